package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kyleking/gh-lazyqa/internal/ui"
)

func newResolveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <reference...>",
		Short: "Show which workflow a loose reference resolves to, without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := e.build(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			result, err := svc.Resolve(cmd.Context(), "", strings.Join(args, " "))
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ui.RenderError(err))
				return &shownError{err: err}
			}
			if e.flags.jsonOut {
				return writeJSON(out, result)
			}
			fmt.Fprintln(out, ui.RenderResolution(result))
			return nil
		},
	}
}
