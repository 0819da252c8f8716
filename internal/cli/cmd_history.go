package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kyleking/gh-lazyqa/internal/ui"
	"github.com/kyleking/gh-lazyqa/internal/ui/panes"
)

func newHistoryCmd(e *env) *cobra.Command {
	var (
		workflow string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent dispatches, most frequent and recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := e.build(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			entries, err := svc.History("", workflow, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if e.flags.jsonOut {
				return writeJSON(out, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No dispatches recorded yet.")
				return nil
			}
			now := time.Now()
			for _, entry := range entries {
				fmt.Fprintf(out, "%-40s %-16s %-30s %3dx  %s\n",
					entry.Workflow, entry.Branch, panes.FormatInputs(entry.Inputs),
					entry.RunCount, ui.FormatTimeAgo(entry.LastRunAt, now))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&workflow, "workflow", "", "Only dispatches of this workflow path")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Show at most this many entries; 0 shows all")
	return cmd
}
