package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return InitMetrics(reg), reg
}

func TestRecorder(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.ObserveResolution("exact")
	m.ObserveResolution("exact")
	m.ObserveResolution("alias")
	m.ObserveDispatch("done")
	m.ObserveDispatch("not_found")

	if got := testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues("exact")); got != 2 {
		t.Errorf("exact resolutions: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues("alias")); got != 1 {
		t.Errorf("alias resolutions: got %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.DispatchesTotal); got != 2 {
		t.Errorf("dispatch series: got %d, want 2", got)
	}
}

func TestObservePatterns_ReplacesRepoSeries(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.ObservePatterns("acme/web", []PatternCount{{"Timeout waiting for locator", 3}, {"Network error", 1}}, 4, 1)
	m.ObservePatterns("acme/api", []PatternCount{{"Assertion failed", 2}}, 2, 0)
	m.ObservePatterns("acme/web", []PatternCount{{"Element not found", 5}}, 5, 0)

	if got := testutil.CollectAndCount(m.PatternRuns); got != 2 {
		t.Errorf("pattern series: got %d, want 2", got)
	}
	if got := testutil.ToFloat64(m.PatternRuns.WithLabelValues("acme/web", "Element not found")); got != 5 {
		t.Errorf("gauge: got %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.MinedRecordsTotal.WithLabelValues("classified")); got != 11 {
		t.Errorf("classified: got %v, want 11", got)
	}
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, _ := newTestMetrics(t)

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/api/repos/:owner/:repo/workflows", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/repos/acme/web/workflows", "/api/repos/acme/api/workflows", "/nope"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/repos/:owner/:repo/workflows", "200")); got != 2 {
		t.Errorf("templated route count: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("unmatched count: got %v, want 1", got)
	}
}
