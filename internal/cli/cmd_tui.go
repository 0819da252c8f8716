package cli

import (
	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kyleking/gh-lazyqa/internal/app"
	"github.com/kyleking/gh-lazyqa/internal/browser"
)

func newTUICmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "tui",
		Aliases: []string{"browse"},
		Short:   "Browse failure patterns and re-dispatch recent workflows interactively",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, closeFn, err := e.build(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			repo, err := svc.Repo("")
			if err != nil {
				return err
			}
			m := app.New(ctx, svc, app.Options{
				Repo:   repo,
				Window: e.cfg.Patterns.Window,
				Open:   browser.Open,
				Copy:   clipboard.WriteAll,
			})
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
}
