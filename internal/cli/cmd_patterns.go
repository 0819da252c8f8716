package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kyleking/gh-lazyqa/internal/exec"
	"github.com/kyleking/gh-lazyqa/internal/logs"
	"github.com/kyleking/gh-lazyqa/internal/patterns"
	"github.com/kyleking/gh-lazyqa/internal/ui"
)

func newPatternsCmd(e *env) *cobra.Command {
	var (
		window time.Duration
		top    int
	)
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Cluster recent CI failures into recurring patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := logs.CheckGHCLIAvailable(ctx, exec.NewRealExecutor(exec.WithGitHub(e.cfg.GitHub.Host, e.cfg.GitHub.Token))); err != nil {
				e.logger.Warn("gh CLI unavailable; runs without a stored summary are skipped", zap.Error(err))
			}

			svc, closeFn, err := e.build(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := svc.FailurePatterns(ctx, "", window)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if e.flags.jsonOut {
				report.Patterns = patterns.Top(report.Patterns, top)
				return writeJSON(out, report)
			}
			if window <= 0 {
				window = e.cfg.Patterns.Window
			}
			fmt.Fprintln(out, ui.RenderReport(fmt.Sprintf("Failure patterns, last %s", window), report, top))
			return nil
		},
	}
	cmd.Flags().DurationVarP(&window, "window", "w", 0, "Look-back window (default: patterns.window)")
	cmd.Flags().IntVarP(&top, "top", "n", 10, "Show at most this many patterns; 0 shows all")
	return cmd
}
