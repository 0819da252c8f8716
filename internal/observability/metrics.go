package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Metrics holds the Prometheus instruments. It implements the dispatch
// coordinator's Recorder.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ResolutionsTotal *prometheus.CounterVec
	DispatchesTotal  *prometheus.CounterVec

	PatternRuns       *prometheus.GaugeVec
	MinedRecordsTotal *prometheus.CounterVec
}

// InitMetrics creates and registers all instruments on reg.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lazyqa_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lazyqa_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "route"}),

		ResolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lazyqa_resolutions_total",
			Help: "Workflow resolutions by matching tier.",
		}, []string{"tier"}),
		DispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lazyqa_dispatches_total",
			Help: "Dispatch requests by outcome.",
		}, []string{"outcome"}),

		PatternRuns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lazyqa_failure_pattern_runs",
			Help: "Distinct failed runs per failure pattern in the last mined window.",
		}, []string{"repo", "pattern"}),
		MinedRecordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lazyqa_mined_records_total",
			Help: "Failure summaries mined, by classification result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ResolutionsTotal,
		m.DispatchesTotal,
		m.PatternRuns,
		m.MinedRecordsTotal,
	)
	return m
}

// ObserveResolution counts a resolution attempt by tier.
func (m *Metrics) ObserveResolution(tier string) {
	m.ResolutionsTotal.WithLabelValues(tier).Inc()
}

// ObserveDispatch counts a finished dispatch request by outcome.
func (m *Metrics) ObserveDispatch(outcome string) {
	m.DispatchesTotal.WithLabelValues(outcome).Inc()
}

// PatternCount is the minimum a caller reports per mined cluster.
type PatternCount struct {
	Name string
	Runs int
}

// ObservePatterns replaces the per-pattern gauges of repo.
func (m *Metrics) ObservePatterns(repo string, patterns []PatternCount, classified, discarded int) {
	m.PatternRuns.DeletePartialMatch(prometheus.Labels{"repo": repo})
	for _, p := range patterns {
		m.PatternRuns.WithLabelValues(repo, p.Name).Set(float64(p.Runs))
	}
	m.MinedRecordsTotal.WithLabelValues("classified").Add(float64(classified))
	m.MinedRecordsTotal.WithLabelValues("discarded").Add(float64(discarded))
}

// GinMiddleware records request count and duration by route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
