package internal_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/gh-lazyqa/internal/dispatch"
	"github.com/kyleking/gh-lazyqa/internal/exec"
	"github.com/kyleking/gh-lazyqa/internal/frecency"
	"github.com/kyleking/gh-lazyqa/internal/github"
	"github.com/kyleking/gh-lazyqa/internal/logs"
	"github.com/kyleking/gh-lazyqa/internal/patterns"
	"github.com/kyleking/gh-lazyqa/internal/resolve"
	"github.com/kyleking/gh-lazyqa/internal/service"
	"github.com/kyleking/gh-lazyqa/internal/store"
	"github.com/kyleking/gh-lazyqa/internal/summaries"
	"github.com/kyleking/gh-lazyqa/internal/workflow"
)

const (
	repo    = "acme/web"
	apiBase = "https://api.github.com/repos/acme/web"
)

const smokeDefinition = `name: QA US - Smoke
on:
  workflow_dispatch:
    inputs:
      env:
        description: Target environment
        type: choice
        options: [qa, staging]
      headless:
        type: boolean
        default: true
jobs:
  e2e:
    runs-on: ubuntu-latest
    steps:
      - run: npx playwright test
`

func jobLog(message string) string {
	return "build\tRun e2e\t2026-03-14T09:00:03.0000000Z ##[group]Run npx playwright test\n" +
		"build\tRun e2e\t2026-03-14T09:00:04.0000000Z Running 12 tests\n" +
		"build\tRun e2e\t2026-03-14T09:00:06.0000000Z ##[error]" + message + "\n" +
		"build\tRun e2e\t2026-03-14T09:00:07.0000000Z ##[endgroup]\n"
}

type fakeGitHub struct {
	mu         sync.Mutex
	runsCalls  int
	dispatched map[string]any
	created    time.Time
}

func newFakeGitHub(t *testing.T, transport *httpmock.MockTransport) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{}

	transport.RegisterResponder("GET", apiBase+"/actions/workflows",
		httpmock.NewJsonResponderOrPanic(200, github.WorkflowsResponse{
			TotalCount: 2,
			Workflows: []github.Workflow{
				{ID: 11, Name: "QA US - Smoke", Path: ".github/workflows/qa-us-smoke.yml", State: github.WorkflowActive},
				{ID: 12, Name: "QA EU - Regression", Path: ".github/workflows/qa-eu-regression.yml", State: github.WorkflowActive},
			},
		}))

	transport.RegisterResponder("GET", apiBase+"/contents/.github/workflows/qa-us-smoke.yml",
		httpmock.NewJsonResponderOrPanic(200, github.ContentResponse{
			Name:     "qa-us-smoke.yml",
			Path:     ".github/workflows/qa-us-smoke.yml",
			Encoding: "base64",
			Content:  base64.StdEncoding.EncodeToString([]byte(smokeDefinition)),
		}))

	transport.RegisterResponder("POST", apiBase+"/actions/workflows/11/dispatches",
		func(req *http.Request) (*http.Response, error) {
			var body map[string]any
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				return nil, err
			}
			f.mu.Lock()
			f.dispatched = body
			f.created = time.Now()
			f.mu.Unlock()
			return httpmock.NewStringResponse(204, ""), nil
		})

	older := github.WorkflowRun{
		ID: 500, WorkflowID: 11, Event: "push", Status: github.StatusCompleted,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	transport.RegisterResponder("GET", apiBase+"/actions/workflows/11/runs",
		func(*http.Request) (*http.Response, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.runsCalls++
			runs := []github.WorkflowRun{older}
			if !f.created.IsZero() {
				runs = append([]github.WorkflowRun{{
					ID: 501, WorkflowID: 11, Event: github.EventWorkflowDispatch, Status: github.StatusQueued,
					CreatedAt: f.created, HTMLURL: "https://github.com/acme/web/actions/runs/501",
				}}, runs...)
			}
			return httpmock.NewJsonResponse(200, github.RunsResponse{TotalCount: len(runs), WorkflowRuns: runs})
		})

	failedAt := time.Now().Add(-2 * time.Hour)
	transport.RegisterResponder("GET", apiBase+"/actions/runs",
		httpmock.NewJsonResponderOrPanic(200, github.RunsResponse{
			TotalCount: 3,
			WorkflowRuns: []github.WorkflowRun{
				{ID: 601, Name: "QA US - Smoke", Status: github.StatusCompleted, Conclusion: github.ConclusionFailure, CreatedAt: failedAt},
				{ID: 602, Name: "QA US - Smoke", Status: github.StatusCompleted, Conclusion: github.ConclusionFailure, CreatedAt: failedAt},
				{ID: 603, Name: "QA EU - Regression", Status: github.StatusCompleted, Conclusion: github.ConclusionFailure, CreatedAt: failedAt},
			},
		}))
	for _, runID := range []int64{601, 602, 603} {
		transport.RegisterResponder("GET", fmt.Sprintf("%s/actions/runs/%d/jobs", apiBase, runID),
			httpmock.NewJsonResponderOrPanic(200, github.JobsResponse{
				TotalCount: 1,
				Jobs: []github.Job{{
					ID: 7000 + runID, RunID: runID, Name: "build",
					Status: github.StatusCompleted, Conclusion: github.ConclusionFailure,
					Steps: []github.Step{
						{Name: "Run e2e", Status: github.StatusCompleted, Conclusion: github.ConclusionFailure, Number: 1},
					},
				}},
			}))
	}
	return f
}

func newService(t *testing.T) (*service.Service, *fakeGitHub, *exec.MockExecutor, *frecency.Store) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	client, err := github.NewClient(github.Options{Host: "github.com", AuthToken: "test-token", Transport: transport})
	require.NoError(t, err)
	gh := newFakeGitHub(t, transport)

	runner := exec.NewMockExecutor()
	runner.AddJobLog(repo, 601, 7601, jobLog("TimeoutError: Timeout 30000ms exceeded while waiting for locator('#checkout')"))
	runner.AddJobLog(repo, 602, 7602, jobLog("TimeoutError: Timeout 30000ms exceeded while waiting for locator('#pay')"))
	runner.AddJobLog(repo, 603, 7603, jobLog("Error: page.goto: net::ERR_CONNECTION_REFUSED at https://qa.example.com/login"))

	history, err := frecency.Load(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	coordinator := dispatch.New(dispatch.Config{
		DefaultBranch:     "main",
		EnvironmentLabels: dispatch.DefaultEnvironmentLabels,
		PollAttempts:      2,
		ClockSkew:         5 * time.Second,
	}, dispatch.Deps{
		Catalog:   client,
		Inspector: workflow.NewRemoteInspector(client, ""),
		Trigger:   client,
		Runs:      client,
		History:   history,
	})

	source := summaries.New(client, store.NewMemoryStore(), logs.NewFetcher(client, runner, nil), summaries.Options{})
	svc := service.New(service.Deps{
		Catalog:     client,
		Coordinator: coordinator,
		Summaries:   source,
		History:     history,
		DefaultRepo: repo,
		RunURL:      client.RunURL,
	})
	return svc, gh, runner, history
}

func TestEndToEnd_DispatchLooseReference(t *testing.T) {
	svc, gh, _, history := newService(t)

	out, err := svc.Dispatch(context.Background(), dispatch.Request{
		Workflow: "us smoke",
		Branch:   "qa",
		Inputs:   map[string]string{"env": "qa", "headless": "false", "debug": "1"},
	})
	require.NoError(t, err)

	assert.Equal(t, dispatch.StateDone, out.State)
	assert.Equal(t, []dispatch.State{
		dispatch.StateIdle, dispatch.StateResolving, dispatch.StateValidating,
		dispatch.StateDispatching, dispatch.StateAwaitingRunID, dispatch.StateDone,
	}, out.Transitions)
	assert.Equal(t, int64(11), out.Workflow.ID)
	assert.Equal(t, resolve.TierTokenOverlap, out.Tier)
	assert.Equal(t, "main", out.Ref)
	assert.Equal(t, []string{"debug"}, out.DroppedInputs)
	require.NotNil(t, out.Run)
	assert.Equal(t, int64(501), out.Run.ID)
	assert.Equal(t, "https://github.com/acme/web/actions/runs/501", out.Run.HTMLURL)

	gh.mu.Lock()
	assert.Equal(t, map[string]any{
		"ref":    "main",
		"inputs": map[string]any{"env": "qa", "headless": "false"},
	}, gh.dispatched)
	assert.GreaterOrEqual(t, gh.runsCalls, 2)
	gh.mu.Unlock()

	entries := history.TopForRepo(repo, "", 5)
	require.Len(t, entries, 1)
	assert.Equal(t, ".github/workflows/qa-us-smoke.yml", entries[0].Workflow)
	assert.Equal(t, "main", entries[0].Branch)
}

func TestEndToEnd_DispatchUnknownWorkflow(t *testing.T) {
	svc, gh, _, _ := newService(t)

	out, err := svc.Dispatch(context.Background(), dispatch.Request{Workflow: "payments nightly"})
	require.Error(t, err)

	kind, ok := dispatch.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, dispatch.KindNotFound, kind)
	assert.Equal(t, dispatch.StateFailed, out.State)
	assert.False(t, out.Dispatched)

	gh.mu.Lock()
	assert.Nil(t, gh.dispatched)
	gh.mu.Unlock()
}

func TestEndToEnd_FailurePatternsFromJobLogs(t *testing.T) {
	svc, _, runner, _ := newService(t)

	report, err := svc.FailurePatterns(context.Background(), "", 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Classified)
	require.Len(t, report.Patterns, 2)
	assert.Equal(t, "Timeout waiting for locator", report.Patterns[0].Name)
	assert.Equal(t, []int64{601, 602}, report.Patterns[0].RunIDs)
	assert.Equal(t, "Network error", report.Patterns[1].Name)
	assert.Equal(t, []string{"QA EU - Regression"}, report.Patterns[1].Workflows)

	fetched := len(runner.Executed())
	assert.Equal(t, 3, fetched)

	again, err := svc.FailurePatterns(context.Background(), "", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, report.Patterns, again.Patterns)
	assert.Len(t, runner.Executed(), fetched, "stored summaries are reused")

	assert.Equal(t, []patterns.Pattern{report.Patterns[0]}, patterns.Top(report.Patterns, 1))
}
