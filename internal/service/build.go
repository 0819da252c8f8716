package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kyleking/gh-lazyqa/internal/config"
	"github.com/kyleking/gh-lazyqa/internal/dispatch"
	"github.com/kyleking/gh-lazyqa/internal/exec"
	"github.com/kyleking/gh-lazyqa/internal/frecency"
	"github.com/kyleking/gh-lazyqa/internal/github"
	"github.com/kyleking/gh-lazyqa/internal/logs"
	"github.com/kyleking/gh-lazyqa/internal/observability"
	"github.com/kyleking/gh-lazyqa/internal/patterns"
	"github.com/kyleking/gh-lazyqa/internal/resolve"
	"github.com/kyleking/gh-lazyqa/internal/store"
	"github.com/kyleking/gh-lazyqa/internal/summaries"
	"github.com/kyleking/gh-lazyqa/internal/workflow"
)

// Build wires a Service against GitHub from cfg. metrics may be nil. The
// returned close function releases the database pool, if any.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) (*Service, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	closeFn := func() {}

	client, err := github.NewClient(github.Options{
		Host:      cfg.GitHub.Host,
		AuthToken: cfg.GitHub.Token,
		Timeout:   cfg.GitHub.Timeout,
		Logger:    logger.Named("github"),
	})
	if err != nil {
		return nil, closeFn, err
	}

	historyPath := cfg.HistoryPath
	if historyPath == "" {
		if historyPath, err = frecency.DefaultPath(); err != nil {
			return nil, closeFn, err
		}
	}
	history, err := frecency.Load(historyPath)
	if err != nil {
		logger.Warn("dispatch history unreadable, starting empty", zap.String("path", historyPath), zap.Error(err))
		history = frecency.NewStore()
	}

	var summaryStore store.SummaryStore = store.NewMemoryStore()
	if cfg.Database.DSN != "" {
		if cfg.Database.Migrate {
			if err := store.Migrate(cfg.Database.DSN, logger.Named("migrate")); err != nil {
				return nil, closeFn, err
			}
		}
		pool, err := store.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, closeFn, fmt.Errorf("open summary store: %w", err)
		}
		closeFn = pool.Close
		summaryStore = store.NewPostgresStore(pool)
	}

	gh := exec.NewRealExecutor(exec.WithGitHub(cfg.GitHub.Host, cfg.GitHub.Token), exec.WithTimeout(cfg.GitHub.Timeout))
	source := summaries.New(client, summaryStore, logs.NewFetcher(client, gh, logger.Named("logs")), summaries.Options{
		MaxRuns:     cfg.Patterns.MaxRuns,
		Concurrency: cfg.Patterns.Concurrency,
		Logger:      logger.Named("summaries"),
	})

	var inspector dispatch.DefinitionInspector
	switch {
	case !cfg.Dispatch.Inspect:
	case cfg.Dispatch.LocalRoot != "":
		inspector = workflow.NewLocalInspector(cfg.Dispatch.LocalRoot)
	default:
		inspector = workflow.NewRemoteInspector(client, "")
	}
	var recorder dispatch.Recorder
	if metrics != nil {
		recorder = metrics
	}
	resolver := resolve.New(append(cfg.ResolverOptions(), resolve.WithLogger(logger.Named("resolve")))...)

	coordinator := dispatch.New(cfg.DispatchConfig(), dispatch.Deps{
		Catalog:   client,
		Inspector: inspector,
		Trigger:   client,
		Runs:      client,
		Resolver:  resolver,
		Recorder:  recorder,
		History:   history,
		Logger:    logger.Named("dispatch"),
	})

	svc := New(Deps{
		Catalog:     client,
		Coordinator: coordinator,
		Summaries:   source,
		Miner: patterns.Miner{
			MaxExamples:     cfg.Patterns.MaxExamples,
			MaxExampleRunes: cfg.Patterns.MaxExampleRunes,
		},
		Metrics:       metrics,
		History:       history,
		Logger:        logger,
		DefaultRepo:   cfg.GitHub.Repo,
		DefaultWindow: cfg.Patterns.Window,
		RunURL:        client.RunURL,
	})
	return svc, closeFn, nil
}
