package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kyleking/gh-lazyqa/internal/workflow"
)

func newWorkflowsCmd(e *env) *cobra.Command {
	var local string
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "List the repository's workflows",
		Long: "Lists workflows from the GitHub API. With --local, lists the dispatchable\n" +
			"workflow files of a checkout with their declared inputs instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if cmd.Flags().Changed("local") {
				return listLocal(cmd, e, local)
			}

			svc, closeFn, err := e.build(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			catalog, err := svc.Workflows(cmd.Context(), "")
			if err != nil {
				return err
			}
			if e.flags.jsonOut {
				return writeJSON(out, catalog)
			}
			for _, w := range catalog.Workflows {
				state := ""
				if w.IsDisabled() {
					state = "  (disabled)"
				}
				fmt.Fprintf(out, "%-8d %-40s %s%s\n", w.ID, w.Name, w.Path, state)
			}
			if catalog.Partial {
				fmt.Fprintln(out, "warning: the workflow listing is incomplete")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&local, "local", "", "List workflow files under this checkout (default: working directory)")
	cmd.Flags().Lookup("local").NoOptDefVal = "."
	return cmd
}

func listLocal(cmd *cobra.Command, e *env, root string) error {
	if root == "" || root == "." {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		root = cwd
	}
	defs, err := workflow.Discover(root)
	if err != nil {
		return fmt.Errorf("discover workflows: %w", err)
	}

	out := cmd.OutOrStdout()
	if e.flags.jsonOut {
		return writeJSON(out, defs)
	}
	if len(defs) == 0 {
		fmt.Fprintln(out, "No dispatchable workflows found in .github/workflows/")
		return nil
	}
	fmt.Fprintf(out, "Found %d dispatchable workflow(s):\n", len(defs))
	for _, def := range defs {
		fmt.Fprintf(out, "  - %s (%s)\n", def.Filename, def.DisplayName())
		for _, name := range def.InputNames() {
			in := def.Inputs[name]
			line := fmt.Sprintf("      %s (%s)", name, in.InputType())
			if in.Description != "" {
				line += ": " + in.Description
			}
			if len(in.Options) > 0 {
				line += " [" + strings.Join(in.Options, ", ") + "]"
			}
			fmt.Fprintln(out, line)
		}
	}
	return nil
}
