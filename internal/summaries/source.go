// Package summaries gathers failure summaries for recent failed runs.
package summaries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kyleking/gh-lazyqa/internal/github"
	"github.com/kyleking/gh-lazyqa/internal/patterns"
	"github.com/kyleking/gh-lazyqa/internal/store"
)

// FailedRunLister lists failed runs across a repository.
type FailedRunLister interface {
	ListFailedRuns(ctx context.Context, repo string, since time.Time, limit int) ([]github.WorkflowRun, error)
}

// Summarizer derives a summary from a run's logs.
type Summarizer interface {
	Summary(ctx context.Context, repo string, runID int64, workflow string) (string, error)
}

// Options tunes a Source.
type Options struct {
	// MaxRuns caps how many failed runs are considered per call.
	MaxRuns int
	// Concurrency bounds parallel log fetches.
	Concurrency int
	Logger      *zap.Logger
}

// Source joins failed runs with stored summaries, deriving and caching
// log summaries for runs that have none.
type Source struct {
	runs     FailedRunLister
	store    store.SummaryStore
	fallback Summarizer
	opts     Options
	now      func() time.Time
}

// New creates a Source. fallback may be nil, in which case runs without a
// stored summary are skipped.
func New(runs FailedRunLister, st store.SummaryStore, fallback Summarizer, opts Options) *Source {
	if opts.MaxRuns <= 0 {
		opts.MaxRuns = 200
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if st == nil {
		st = store.NewMemoryStore()
	}
	return &Source{runs: runs, store: st, fallback: fallback, opts: opts, now: time.Now}
}

// Recent returns one record per failed run created within window, in the
// order the runs were listed.
func (s *Source) Recent(ctx context.Context, repo string, window time.Duration) ([]patterns.Record, error) {
	since := s.now().Add(-window)
	runs, err := s.runs.ListFailedRuns(ctx, repo, since, s.opts.MaxRuns)
	if err != nil {
		return nil, fmt.Errorf("list failed runs: %w", err)
	}

	texts := make([]string, len(runs))
	var (
		mu       sync.Mutex
		derived  int
		unusable int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, run := range runs {
		stored, err := s.store.Get(gctx, repo, run.ID)
		if err == nil {
			texts[i] = stored.Text
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			s.opts.Logger.Warn("summary lookup failed", zap.Int64("run_id", run.ID), zap.Error(err))
		}
		if s.fallback == nil {
			continue
		}

		g.Go(func() error {
			text, err := s.fallback.Summary(gctx, repo, run.ID, run.Name)
			if err != nil || strings.TrimSpace(text) == "" {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				mu.Lock()
				unusable++
				mu.Unlock()
				s.opts.Logger.Debug("no summary derived from logs", zap.Int64("run_id", run.ID), zap.Error(err))
				return nil
			}
			texts[i] = text
			mu.Lock()
			derived++
			mu.Unlock()

			if err := s.store.Save(gctx, store.Summary{
				Repo:      repo,
				RunID:     run.ID,
				Workflow:  run.Name,
				Text:      text,
				CreatedAt: run.CreatedAt,
			}); err != nil {
				s.opts.Logger.Warn("caching derived summary failed", zap.Int64("run_id", run.ID), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]patterns.Record, 0, len(runs))
	for i, run := range runs {
		if texts[i] == "" {
			continue
		}
		records = append(records, patterns.Record{Text: texts[i], RunID: run.ID, Workflow: run.Name})
	}
	s.opts.Logger.Info("collected failure summaries",
		zap.String("repo", repo),
		zap.Int("failed_runs", len(runs)),
		zap.Int("records", len(records)),
		zap.Int("derived", derived),
		zap.Int("unusable", unusable))
	return records, nil
}
