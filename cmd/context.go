package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Azure/cmdpilot/internal/planner"
)

// newContextCmd prints the context snapshot the Plan Generator would build
// for the current directory, useful for debugging why a plan picked a given
// project type or tool set.
func newContextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "context",
		Short: "Show the detected project context for the current directory",
		RunE: func(c *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			snapshot := planner.BuildContextSnapshot(cwd)
			fmt.Fprintf(os.Stdout, "cwd: %s\nproject root: %s\nproject type: %s\n",
				snapshot.Cwd, snapshot.ProjectRoot, snapshot.ProjectType)

			if theApp.git.IsRepo(c.Context(), cwd) {
				branch := theApp.git.CurrentBranch(c.Context(), cwd)
				dirty := theApp.git.IsDirty(c.Context(), cwd)
				fmt.Fprintf(os.Stdout, "git branch: %s\ngit dirty: %v\n", branch, dirty)
			}
			return nil
		},
	}
}
