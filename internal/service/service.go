// Package service ties workflow resolution, dispatch and failure-pattern
// mining together for the CLI, HTTP and MCP front ends.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cli/go-gh/v2/pkg/repository"
	"go.uber.org/zap"

	"github.com/kyleking/gh-lazyqa/internal/dispatch"
	"github.com/kyleking/gh-lazyqa/internal/frecency"
	"github.com/kyleking/gh-lazyqa/internal/observability"
	"github.com/kyleking/gh-lazyqa/internal/patterns"
	"github.com/kyleking/gh-lazyqa/internal/resolve"
)

// ErrNoRepo is returned when neither the request nor the configuration
// names a repository.
var ErrNoRepo = errors.New("no repository given; pass owner/name or set github.repo")

// ErrInvalidRepo is returned for a repository that is not owner/name.
var ErrInvalidRepo = errors.New("invalid repository")

// Resolver resolves and dispatches workflows.
type Resolver interface {
	Resolve(ctx context.Context, repo, query string) (resolve.Result, resolve.Catalog, error)
	Run(ctx context.Context, req dispatch.Request) (dispatch.Outcome, error)
}

// CatalogProvider lists a repository's workflows.
type CatalogProvider interface {
	Catalog(ctx context.Context, repo string) (resolve.Catalog, error)
}

// SummarySource returns failure summaries of recent failed runs.
type SummarySource interface {
	Recent(ctx context.Context, repo string, window time.Duration) ([]patterns.Record, error)
}

// Deps are the collaborators of a Service. Metrics and History are optional.
type Deps struct {
	Catalog     CatalogProvider
	Coordinator Resolver
	Summaries   SummarySource
	Miner       patterns.Miner
	Metrics     *observability.Metrics
	History     *frecency.Store
	Logger      *zap.Logger
	// DefaultRepo is used when a call names no repository.
	DefaultRepo   string
	DefaultWindow time.Duration
	// RunURL builds the web URL of a run.
	RunURL func(repo string, runID int64) string
}

// Service is safe for concurrent use.
type Service struct {
	deps Deps
}

// New creates a Service.
func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.DefaultWindow <= 0 {
		deps.DefaultWindow = 7 * 24 * time.Hour
	}
	if deps.History == nil {
		deps.History = frecency.NewStore()
	}
	return &Service{deps: deps}
}

// Repo returns repo, or the configured default, validated as owner/name.
func (s *Service) Repo(repo string) (string, error) {
	if repo == "" {
		repo = s.deps.DefaultRepo
	}
	if repo == "" {
		if current, err := repository.Current(); err == nil {
			return current.Owner + "/" + current.Name, nil
		}
		return "", ErrNoRepo
	}
	r, err := repository.Parse(repo)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidRepo, repo, err)
	}
	return r.Owner + "/" + r.Name, nil
}

// Workflows lists a repository's workflows.
func (s *Service) Workflows(ctx context.Context, repo string) (resolve.Catalog, error) {
	repo, err := s.Repo(repo)
	if err != nil {
		return resolve.Catalog{}, err
	}
	catalog, err := s.deps.Catalog.Catalog(ctx, repo)
	if err != nil {
		return resolve.Catalog{}, fmt.Errorf("list workflows for %s: %w", repo, err)
	}
	return catalog, nil
}

// Resolve maps a loose workflow reference to one workflow without
// dispatching it.
func (s *Service) Resolve(ctx context.Context, repo, query string) (resolve.Result, error) {
	repo, err := s.Repo(repo)
	if err != nil {
		return resolve.Result{}, err
	}
	result, _, err := s.deps.Coordinator.Resolve(ctx, repo, query)
	return result, err
}

// Dispatch triggers a workflow and persists the dispatch history.
func (s *Service) Dispatch(ctx context.Context, req dispatch.Request) (dispatch.Outcome, error) {
	repo, err := s.Repo(req.Repo)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	req.Repo = repo

	out, runErr := s.deps.Coordinator.Run(ctx, req)
	if out.Dispatched {
		if err := s.deps.History.Save(); err != nil {
			s.deps.Logger.Warn("saving dispatch history failed", zap.Error(err))
		}
	}
	return out, runErr
}

// Redispatch repeats a recorded dispatch. The entry's workflow path
// resolves exactly.
func (s *Service) Redispatch(ctx context.Context, repo string, entry frecency.HistoryEntry) (dispatch.Outcome, error) {
	return s.Dispatch(ctx, dispatch.Request{
		Repo:     repo,
		Workflow: entry.Workflow,
		Branch:   entry.Branch,
		Inputs:   entry.Inputs,
	})
}

// FailurePatterns mines the failure summaries of runs that failed within
// window. A non-positive window uses the configured default.
func (s *Service) FailurePatterns(ctx context.Context, repo string, window time.Duration) (patterns.Report, error) {
	repo, err := s.Repo(repo)
	if err != nil {
		return patterns.Report{}, err
	}
	if window <= 0 {
		window = s.deps.DefaultWindow
	}

	records, err := s.deps.Summaries.Recent(ctx, repo, window)
	if err != nil {
		return patterns.Report{}, fmt.Errorf("collect failure summaries for %s: %w", repo, err)
	}
	report := s.deps.Miner.Analyze(records)

	if s.deps.Metrics != nil {
		counts := make([]observability.PatternCount, len(report.Patterns))
		for i, p := range report.Patterns {
			counts[i] = observability.PatternCount{Name: p.Name, Runs: p.Count()}
		}
		s.deps.Metrics.ObservePatterns(repo, counts, report.Classified, report.Discarded)
	}
	s.deps.Logger.Info("mined failure patterns",
		zap.String("repo", repo),
		zap.Duration("window", window),
		zap.Int("records", report.Total),
		zap.Int("patterns", len(report.Patterns)),
		zap.Int("discarded", report.Discarded))
	return report, nil
}

// History returns the most frecent dispatches of repo, optionally for one
// workflow path.
func (s *Service) History(repo, workflow string, limit int) ([]frecency.HistoryEntry, error) {
	repo, err := s.Repo(repo)
	if err != nil {
		return nil, err
	}
	return s.deps.History.TopForRepo(repo, workflow, limit), nil
}

// RunURL is the web page of a run, or "" when unknown.
func (s *Service) RunURL(repo string, runID int64) string {
	if s.deps.RunURL == nil {
		return ""
	}
	repo, err := s.Repo(repo)
	if err != nil {
		return ""
	}
	return s.deps.RunURL(repo, runID)
}
