package cli

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/kyleking/gh-lazyqa/internal/browser"
	"github.com/kyleking/gh-lazyqa/internal/dispatch"
	"github.com/kyleking/gh-lazyqa/internal/ui"
)

type dispatchFlags struct {
	branch string
	inputs []string
	open   bool
	copy   bool
}

func newDispatchCmd(e *env) *cobra.Command {
	var flags dispatchFlags
	cmd := &cobra.Command{
		Use:   "dispatch <reference...>",
		Short: "Trigger a workflow by loose reference and report the run it created",
		Example: "  gh-lazyqa dispatch us smoke --branch qa\n" +
			"  gh-lazyqa dispatch qa-eu-regression.yml -i suite=checkout -i headless=true --open",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := parseInputs(flags.inputs)
			if err != nil {
				return err
			}

			svc, closeFn, err := e.build(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			outcome, runErr := svc.Dispatch(cmd.Context(), dispatch.Request{
				Workflow: strings.Join(args, " "),
				Branch:   flags.branch,
				Inputs:   inputs,
			})
			if e.flags.jsonOut {
				if err := writeJSON(out, outcome); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, ui.RenderOutcome(outcome, runErr))
			}
			if runErr != nil {
				return &shownError{err: runErr}
			}

			if outcome.Run == nil || outcome.Run.HTMLURL == "" {
				return nil
			}
			if flags.copy {
				if err := clipboard.WriteAll(outcome.Run.HTMLURL); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "copy failed:", err)
				}
			}
			if flags.open {
				return browser.Open(outcome.Run.HTMLURL)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&flags.branch, "branch", "b", "", "Branch, or an environment label such as qa (default: dispatch.default_branch)")
	f.StringArrayVarP(&flags.inputs, "input", "i", nil, "Workflow input as key=value; repeatable")
	f.BoolVar(&flags.open, "open", false, "Open the created run in the browser")
	f.BoolVar(&flags.copy, "copy", false, "Copy the created run's URL to the clipboard")
	return cmd
}
