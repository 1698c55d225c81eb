package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/spf13/cobra"

	"github.com/Azure/cmdpilot/internal/config"
	"github.com/Azure/cmdpilot/internal/logging"
)

// Execute builds and runs the root command, following the teacher's
// cmd.go Execute() entry point.
func Execute() {
	root := newRootCmd()
	cc.Init(&cc.Config{
		RootCmd:         root,
		Headings:        cc.Bold | cc.Underline,
		Commands:        cc.HiCyan | cc.Bold,
		CmdShortDescr:   cc.White,
		ExecName:        cc.HiCyan | cc.Bold,
		Flags:           cc.Bold,
		FlagsDataType:   cc.Italic,
		NoExtraNewlines: true,
		NoBottomNewline: true,
	})
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f globalFlags

	root := &cobra.Command{
		Use:   "cmdpilot",
		Short: "A natural-language shell assistant that plans and executes command workflows",
		Long: `cmdpilot turns a plain-language request into a dependency-ordered plan of
shell commands, executes it with approval gates and automatic rollback, and
recovers from failures using a learned history of past fixes.`,
		SilenceUsage: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			profileEnvFile := ""
			if f.profile != "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("resolving home directory for profile %q: %w", f.profile, err)
				}
				profileEnvFile = filepath.Join(home, ".cmdpilot", "profiles", f.profile+".env")
			}

			cfg, err := config.Load(profileEnvFile)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			if f.verbose {
				cfg.LogLevel = "debug"
			}
			if err := logging.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
				return fmt.Errorf("configuring logging: %w", err)
			}

			built, err := newApp(cfg, f)
			if err != nil {
				return err
			}
			theApp = built
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&f.dryRun, "dry-run", false, "simulate execution without running any command")
	root.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "enable debug-level logging")
	root.PersistentFlags().BoolVarP(&f.yes, "yes", "y", false, "skip approval prompts for LOW-or-below risk commands")
	root.PersistentFlags().StringVar(&f.profile, "profile", "", "named configuration profile under ~/.cmdpilot/profiles/<name>.env")

	root.AddCommand(newFilesCmd())
	root.AddCommand(newWorkflowsCmd())
	root.AddCommand(newGenerateCmd())
	root.AddCommand(newDockerCmd())
	root.AddCommand(newRollbackCmd())
	root.AddCommand(newContextCmd())
	root.AddCommand(newRecoveryCmd())

	return root
}

// theApp is the wired collaborator set built by PersistentPreRunE, read by
// every subcommand's RunE. Cobra's one-root-command-per-process model makes
// a single package-level instance the simplest honest shape here; if
// cmdpilot ever hosted multiple root commands in one process this would
// need to move onto the command context instead.
var theApp *app
