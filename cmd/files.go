package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Azure/cmdpilot/pkg/common/filesystem"
)

// newFilesCmd implements the `files` subcommand's file-level operations
// (spec §6: "thin").
func newFilesCmd() *cobra.Command {
	var maxDepth int
	var showHidden bool

	filesCmd := &cobra.Command{
		Use:   "files",
		Short: "File-level operations",
	}

	treeCmd := &cobra.Command{
		Use:   "tree [path]",
		Short: "Print a gitignore-aware file tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			opts := filesystem.DefaultFileTreeOptions()
			opts.MaxDepth = maxDepth
			opts.ShowHidden = showHidden

			tree, err := filesystem.GenerateFileTree(root, opts)
			if err != nil {
				return fmt.Errorf("generating file tree: %w", err)
			}
			fmt.Fprint(os.Stdout, tree)
			return nil
		},
	}
	treeCmd.Flags().IntVar(&maxDepth, "max-depth", 5, "maximum directory depth to traverse")
	treeCmd.Flags().BoolVar(&showHidden, "show-hidden", false, "include hidden files and directories")

	existsCmd := &cobra.Command{
		Use:   "exists <path>",
		Short: "Report whether a path exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if filesystem.FileExists(args[0]) {
				fmt.Fprintln(os.Stdout, "exists")
				return nil
			}
			fmt.Fprintln(os.Stdout, "not found")
			return nil
		},
	}

	filesCmd.AddCommand(treeCmd, existsCmd)
	return filesCmd
}
