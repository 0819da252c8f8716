package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/gh-lazyqa/internal/dispatch"
	"github.com/kyleking/gh-lazyqa/internal/frecency"
	"github.com/kyleking/gh-lazyqa/internal/github"
	"github.com/kyleking/gh-lazyqa/internal/patterns"
	"github.com/kyleking/gh-lazyqa/internal/resolve"
)

type fakeBackend struct {
	err      error
	requests []dispatch.Request
	window   time.Duration
}

var testCatalog = resolve.Catalog{Workflows: []resolve.Workflow{
	{ID: 1, Name: "QA US - Smoke", Path: ".github/workflows/qa-us-smoke.yml"},
	{ID: 2, Name: "QA US - Regression", Path: ".github/workflows/qa-us-regression.yml"},
}}

func (f *fakeBackend) Workflows(context.Context, string) (resolve.Catalog, error) {
	return testCatalog, f.err
}

func (f *fakeBackend) Resolve(_ context.Context, _ string, query string) (resolve.Result, error) {
	return resolve.Resolve(query, testCatalog.Workflows)
}

func (f *fakeBackend) Dispatch(_ context.Context, req dispatch.Request) (dispatch.Outcome, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return dispatch.Outcome{State: dispatch.StateFailed}, f.err
	}
	return dispatch.Outcome{
		RequestID:  "req-1",
		State:      dispatch.StateDone,
		Workflow:   testCatalog.Workflows[0],
		Ref:        "main",
		Inputs:     req.Inputs,
		Dispatched: true,
		Run:        &github.WorkflowRun{ID: 99, HTMLURL: "https://github.com/acme/web/actions/runs/99"},
	}, nil
}

func (f *fakeBackend) FailurePatterns(_ context.Context, _ string, window time.Duration) (patterns.Report, error) {
	f.window = window
	return patterns.Miner{}.Analyze([]patterns.Record{
		{Text: "Timeout waiting for locator '#pay'", RunID: 1},
		{Text: "Timeout waiting for locator '#cart'", RunID: 2},
		{Text: "Element not found: #login", RunID: 3},
	}), nil
}

func (f *fakeBackend) History(string, string, int) ([]frecency.HistoryEntry, error) {
	return []frecency.HistoryEntry{{Workflow: "smoke.yml", Branch: "main", RunCount: 2}}, nil
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, r)
	require.NotEmpty(t, r.Content)
	text, ok := r.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", r.Content[0])
	return text.Text
}

func TestRegistersTools(t *testing.T) {
	s := NewServer(&fakeBackend{}, "test", nil)
	tools := s.GetMCPServer().ListTools()
	for _, name := range []string{"list_workflows", "resolve_workflow", "dispatch_workflow", "failure_patterns", "dispatch_history"} {
		assert.Contains(t, tools, name)
	}
}

func TestResolve(t *testing.T) {
	s := NewServer(&fakeBackend{}, "test", nil)

	res, err := s.handleResolve(context.Background(), call("resolve_workflow", map[string]any{"query": "us smoke"}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var got struct {
		Workflow resolve.Workflow `json:"workflow"`
		Tier     string           `json:"tier"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, int64(1), got.Workflow.ID)
	assert.Equal(t, "token-overlap", got.Tier)

	res, err = s.handleResolve(context.Background(), call("resolve_workflow", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestDispatch(t *testing.T) {
	backend := &fakeBackend{}
	s := NewServer(backend, "test", nil)

	res, err := s.handleDispatch(context.Background(), call("dispatch_workflow", map[string]any{
		"repo":     "acme/web",
		"workflow": "us smoke",
		"branch":   "qa",
		"inputs":   map[string]any{"env": "qa", "headless": true, "retries": float64(2)},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	require.Len(t, backend.requests, 1)
	assert.Equal(t, dispatch.Request{
		Repo:     "acme/web",
		Workflow: "us smoke",
		Branch:   "qa",
		Inputs:   map[string]string{"env": "qa", "headless": "true", "retries": "2"},
	}, backend.requests[0])
	assert.Contains(t, resultText(t, res), `"run_url":"https://github.com/acme/web/actions/runs/99"`)
}

func TestDispatch_BadInputs(t *testing.T) {
	backend := &fakeBackend{}
	s := NewServer(backend, "test", nil)

	res, err := s.handleDispatch(context.Background(), call("dispatch_workflow", map[string]any{
		"workflow": "us smoke",
		"inputs":   map[string]any{"matrix": []any{"a", "b"}},
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Empty(t, backend.requests)
}

func TestDispatch_ErrorCarriesRemediation(t *testing.T) {
	backend := &fakeBackend{err: &dispatch.Error{
		Kind:        dispatch.KindAmbiguous,
		Message:     `workflow reference "us" is ambiguous`,
		Remediation: "Use the exact workflow name or file path",
		Available:   testCatalog.Names(),
	}}
	s := NewServer(backend, "test", nil)

	res, err := s.handleDispatch(context.Background(), call("dispatch_workflow", map[string]any{"workflow": "us"}))
	require.NoError(t, err)
	require.True(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "kind: ambiguous")
	assert.Contains(t, text, "remediation: Use the exact workflow name or file path")
	assert.Contains(t, text, "available: QA US - Smoke, QA US - Regression")
}

func TestFailurePatterns(t *testing.T) {
	backend := &fakeBackend{}
	s := NewServer(backend, "test", nil)

	res, err := s.handleFailurePatterns(context.Background(), call("failure_patterns", map[string]any{"window": "72h", "top": float64(1)}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))
	assert.Equal(t, 72*time.Hour, backend.window)

	var report patterns.Report
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &report))
	require.Len(t, report.Patterns, 1)
	assert.Equal(t, "Timeout waiting for locator", report.Patterns[0].Name)
	assert.Equal(t, 2, report.Patterns[0].Count())

	res, err = s.handleFailurePatterns(context.Background(), call("failure_patterns", map[string]any{"window": "a while"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHistory(t *testing.T) {
	s := NewServer(&fakeBackend{}, "test", nil)
	res, err := s.handleHistory(context.Background(), call("dispatch_history", nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), `"workflow":"smoke.yml"`)
}
