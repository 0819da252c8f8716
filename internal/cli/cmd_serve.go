package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	lazymcp "github.com/kyleking/gh-lazyqa/internal/mcp"
	"github.com/kyleking/gh-lazyqa/internal/observability"
	"github.com/kyleking/gh-lazyqa/internal/server"
	"github.com/kyleking/gh-lazyqa/internal/service"
)

func newServeCmd(e *env) *cobra.Command {
	var (
		addr    string
		withMCP bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, Prometheus metrics and optionally MCP over SSE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics := observability.InitMetrics(reg)

			svc, closeFn, err := service.Build(ctx, e.cfg, e.logger, metrics)
			if err != nil {
				return err
			}
			defer closeFn()

			gin.SetMode(gin.ReleaseMode)
			router := server.NewRouter(svc, server.Options{
				CORSOrigins: e.cfg.Server.CORSOrigins,
				MetricsPath: e.cfg.Observability.MetricsPath,
				Gatherer:    reg,
				Metrics:     metrics,
				Logger:      e.logger.Named("http"),
			})
			if withMCP {
				lazymcp.NewServer(svc, version, e.logger.Named("mcp")).Mount(router)
			}

			if addr == "" {
				addr = e.cfg.Server.Addr
			}
			return server.Run(ctx, addr, router, e.cfg.Server.ReadTimeout, e.cfg.Server.WriteTimeout, e.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")
	cmd.Flags().BoolVar(&withMCP, "mcp", false, "Also serve MCP tools over SSE under /mcp")
	return cmd
}
