package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newDockerCmd implements the `docker` subcommand (spec §1: out of core,
// a thin CLI wrapper collaborator).
func newDockerCmd() *cobra.Command {
	dockerCmd := &cobra.Command{
		Use:   "docker",
		Short: "Thin docker CLI wrapper",
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Check whether the docker daemon is reachable",
		RunE: func(c *cobra.Command, args []string) error {
			if err := theApp.docker.Info(c.Context()); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "docker daemon is reachable")
			return nil
		},
	}

	var tag, contextDir string
	buildCmd := &cobra.Command{
		Use:   "build <dockerfile>",
		Short: "Build an image from a Dockerfile",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if contextDir == "" {
				contextDir = "."
			}
			out, err := theApp.docker.Build(c.Context(), args[0], tag, contextDir)
			fmt.Fprint(os.Stdout, out)
			return err
		},
	}
	buildCmd.Flags().StringVar(&tag, "tag", "", "image tag")
	buildCmd.Flags().StringVar(&contextDir, "context", ".", "build context directory")

	pushCmd := &cobra.Command{
		Use:   "push <tag>",
		Short: "Push an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			out, err := theApp.docker.Push(c.Context(), args[0])
			fmt.Fprint(os.Stdout, out)
			return err
		},
	}

	dockerCmd.AddCommand(infoCmd, buildCmd, pushCmd)
	return dockerCmd
}
