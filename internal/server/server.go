// Package server exposes workflow resolution, dispatch and failure-pattern
// mining over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kyleking/gh-lazyqa/internal/dispatch"
	"github.com/kyleking/gh-lazyqa/internal/frecency"
	"github.com/kyleking/gh-lazyqa/internal/observability"
	"github.com/kyleking/gh-lazyqa/internal/patterns"
	"github.com/kyleking/gh-lazyqa/internal/resolve"
)

// Backend is the service the handlers call.
type Backend interface {
	Workflows(ctx context.Context, repo string) (resolve.Catalog, error)
	Resolve(ctx context.Context, repo, query string) (resolve.Result, error)
	Dispatch(ctx context.Context, req dispatch.Request) (dispatch.Outcome, error)
	FailurePatterns(ctx context.Context, repo string, window time.Duration) (patterns.Report, error)
	History(repo, workflow string, limit int) ([]frecency.HistoryEntry, error)
}

// Options configures the router.
type Options struct {
	CORSOrigins []string
	MetricsPath string
	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	backend Backend
	logger  *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(backend Backend, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{backend: backend, logger: opts.Logger}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	if opts.Metrics != nil {
		r.Use(opts.Metrics.GinMiddleware())
	}

	config := cors.DefaultConfig()
	if len(opts.CORSOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = opts.CORSOrigins
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(config))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Gatherer != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	repo := r.Group("/api/repos/:owner/:repo")
	{
		repo.GET("/workflows", s.listWorkflows)
		repo.GET("/workflows/resolve", s.resolveWorkflow)
		repo.POST("/dispatch", s.dispatchWorkflow)
		repo.GET("/failure-patterns", s.failurePatterns)
		repo.GET("/history", s.history)
	}
	return r
}

// Run serves router on addr until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, addr string, router http.Handler, readTimeout, writeTimeout time.Duration, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func repoParam(c *gin.Context) string {
	return c.Param("owner") + "/" + c.Param("repo")
}

func (s *Server) listWorkflows(c *gin.Context) {
	catalog, err := s.backend.Workflows(c.Request.Context(), repoParam(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	items := make([]workflowJSON, len(catalog.Workflows))
	for i, w := range catalog.Workflows {
		items[i] = toWorkflowJSON(w)
	}
	c.JSON(http.StatusOK, gin.H{"workflows": items, "partial": catalog.Partial})
}

func (s *Server) resolveWorkflow(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "query parameter q is required"}})
		return
	}
	result, err := s.backend.Resolve(c.Request.Context(), repoParam(c), query)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resolutionJSON{
		Workflow: toWorkflowJSON(result.Workflow),
		Tier:     result.Tier.String(),
		Rejected: result.Rejected,
		Disabled: result.Disabled,
	})
}

type dispatchBody struct {
	Workflow string            `json:"workflow" binding:"required"`
	Branch   string            `json:"branch"`
	Inputs   map[string]string `json:"inputs"`
}

func (s *Server) dispatchWorkflow(c *gin.Context) {
	var body dispatchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
		return
	}

	out, err := s.backend.Dispatch(c.Request.Context(), dispatch.Request{
		Repo:     repoParam(c),
		Workflow: body.Workflow,
		Branch:   body.Branch,
		Inputs:   body.Inputs,
	})
	if err != nil {
		status, payload := errorPayload(err)
		if status >= http.StatusInternalServerError {
			s.logger.Warn("dispatch failed", observability.RedactedError(err))
		}
		c.JSON(status, gin.H{"error": payload, "outcome": toOutcomeJSON(out)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": toOutcomeJSON(out)})
}

func (s *Server) failurePatterns(c *gin.Context) {
	var window time.Duration
	if raw := c.Query("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "window must be a positive duration such as 72h"}})
			return
		}
		window = d
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}

	report, err := s.backend.FailurePatterns(c.Request.Context(), repoParam(c), window)
	if err != nil {
		s.writeError(c, err)
		return
	}
	report.Patterns = patterns.Top(report.Patterns, limit)
	c.JSON(http.StatusOK, report)
}

func (s *Server) history(c *gin.Context) {
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	entries, err := s.backend.History(repoParam(c), c.Query("workflow"), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": name + " must be a non-negative integer"}})
		return 0, false
	}
	return n, true
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, payload := errorPayload(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.String("path", c.Request.URL.Path), observability.RedactedError(err))
	}
	c.JSON(status, gin.H{"error": payload})
}
