// Package cli wires the gh-lazyqa commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kyleking/gh-lazyqa/internal/config"
	"github.com/kyleking/gh-lazyqa/internal/observability"
	"github.com/kyleking/gh-lazyqa/internal/service"
)

// version is set at build time via -ldflags.
var version = "dev"

type rootFlags struct {
	configFile string
	repo       string
	logLevel   string
	jsonOut    bool
}

// env is the state shared by every command after the root pre-run.
type env struct {
	flags  rootFlags
	cfg    *config.Config
	logger *zap.Logger
}

// build wires a service for commands that talk to GitHub.
func (e *env) build(ctx context.Context) (*service.Service, func(), error) {
	return service.Build(ctx, e.cfg, e.logger, nil)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "gh-lazyqa",
		Short: "Dispatch QA workflows by loose name and mine recurring CI failures",
		Long: "gh-lazyqa resolves loosely typed workflow references, dispatches them\n" +
			"and finds the run they created, and clusters the failure summaries of\n" +
			"recent failed runs into named recurring patterns.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(e.flags.configFile)
			if err != nil {
				return err
			}
			if e.flags.repo != "" {
				cfg.GitHub.Repo = e.flags.repo
			}
			if e.flags.logLevel != "" {
				cfg.Observability.LogLevel = e.flags.logLevel
			}
			logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogEncoding)
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.logger = logger
			cmd.SetContext(observability.WithLogger(cmd.Context(), logger))
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}
	root.Version = version

	f := root.PersistentFlags()
	f.StringVar(&e.flags.configFile, "config", "", "Config file (default: ./gh-lazyqa.yaml or the user config dir)")
	f.StringVarP(&e.flags.repo, "repo", "R", "", "Repository as owner/name (default: github.repo or the current checkout)")
	f.StringVar(&e.flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	f.BoolVar(&e.flags.jsonOut, "json", false, "Print machine-readable JSON")

	root.AddCommand(
		newWorkflowsCmd(e),
		newResolveCmd(e),
		newDispatchCmd(e),
		newPatternsCmd(e),
		newHistoryCmd(e),
		newTUICmd(e),
		newServeCmd(e),
		newMCPCmd(e),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		var shown *shownError
		if !errors.As(err, &shown) {
			fmt.Fprintln(os.Stderr, observability.RedactToken(err.Error()))
		}
		os.Exit(1)
	}
}
