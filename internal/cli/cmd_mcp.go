package cli

import (
	"github.com/spf13/cobra"

	lazymcp "github.com/kyleking/gh-lazyqa/internal/mcp"
)

func newMCPCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the workflow and failure-pattern tools over MCP stdio",
		Long: "Starts an MCP server on stdin/stdout. Logs go to stderr so they never\n" +
			"corrupt the protocol stream.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := e.build(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			e.logger.Info("starting MCP server over stdio")
			return lazymcp.NewServer(svc, version, e.logger.Named("mcp")).ServeStdio()
		},
	}
}
