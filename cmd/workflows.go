package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Azure/cmdpilot/internal/orchestrator"
	"github.com/Azure/cmdpilot/internal/planner"
	"github.com/Azure/cmdpilot/internal/workflow"
)

func workflowsDir(stateDir string) string {
	return filepath.Join(stateDir, "workflows")
}

func workflowPath(stateDir, name string) string {
	return filepath.Join(workflowsDir(stateDir), name+".json")
}

func savePlan(stateDir string, plan *workflow.Plan, author string) error {
	if err := os.MkdirAll(workflowsDir(stateDir), 0o755); err != nil {
		return fmt.Errorf("creating workflows dir: %w", err)
	}
	pkg := planner.Export(plan, author)
	data, err := pkg.Marshal()
	if err != nil {
		return fmt.Errorf("serializing workflow package: %w", err)
	}
	return os.WriteFile(workflowPath(stateDir, plan.Name), data, 0o644)
}

func loadPlan(stateDir, name string) (*workflow.Plan, error) {
	data, err := os.ReadFile(workflowPath(stateDir, name))
	if err != nil {
		return nil, fmt.Errorf("reading workflow %q: %w", name, err)
	}
	pkg, err := planner.Import(data)
	if err != nil {
		return nil, fmt.Errorf("importing workflow %q: %w", name, err)
	}
	return pkg.Plan, nil
}

// newWorkflowsCmd implements the `workflows` subcommand group (spec §6):
// list/create/show/run/delete/export/import against saved plan documents.
func newWorkflowsCmd() *cobra.Command {
	workflowsCmd := &cobra.Command{
		Use:   "workflows",
		Short: "Manage saved workflow plans",
	}

	workflowsCmd.AddCommand(
		newWorkflowsListCmd(),
		newWorkflowsCreateCmd(),
		newWorkflowsShowCmd(),
		newWorkflowsRunCmd(),
		newWorkflowsDeleteCmd(),
		newWorkflowsExportCmd(),
		newWorkflowsImportCmd(),
	)
	return workflowsCmd
}

func newWorkflowsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved workflow plans",
		RunE: func(c *cobra.Command, args []string) error {
			entries, err := os.ReadDir(workflowsDir(theApp.cfg.StateDir))
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintln(os.Stdout, "no saved workflows")
					return nil
				}
				return err
			}
			var names []string
			for _, e := range entries {
				if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
					names = append(names, strings.TrimSuffix(e.Name(), ".json"))
				}
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Fprintln(os.Stdout, n)
			}
			return nil
		},
	}
}

func newWorkflowsCreateCmd() *cobra.Command {
	var cwd string
	create := &cobra.Command{
		Use:   "create <request>",
		Short: "Generate a new plan from a natural language request and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if cwd == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				cwd = wd
			}
			snapshot := planner.BuildContextSnapshot(cwd)
			plan := theApp.generator.Generate(c.Context(), args[0], snapshot)
			if err := savePlan(theApp.cfg.StateDir, plan, os.Getenv("USER")); err != nil {
				return err
			}
			if plan.ErrorAnnotation != "" {
				fmt.Fprintf(os.Stdout, "saved %q with a degraded plan: %s\n", plan.Name, plan.ErrorAnnotation)
				return nil
			}
			fmt.Fprintf(os.Stdout, "saved workflow %q (%d steps)\n", plan.Name, len(plan.Steps))
			return nil
		},
	}
	create.Flags().StringVar(&cwd, "cwd", "", "working directory for context detection (default: current directory)")
	return create
}

func newWorkflowsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved plan as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			plan, err := loadPlan(theApp.cfg.StateDir, args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(plan, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
}

func newWorkflowsRunCmd() *cobra.Command {
	var vars []string
	run := &cobra.Command{
		Use:   "run <name>",
		Short: "Execute a saved plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			plan, err := loadPlan(theApp.cfg.StateDir, args[0])
			if err != nil {
				return err
			}
			initial := parseVarFlags(vars)
			report, err := theApp.orchestrator.Engine.Run(c.Context(), plan, initial, theApp.rollback, theApp.flags.dryRun)
			result := &orchestrator.Result{Plan: plan, Report: report}
			fmt.Fprintln(os.Stdout, orchestrator.Summarize(result))
			return err
		},
	}
	run.Flags().StringArrayVar(&vars, "var", nil, "seed a variable as NAME=VALUE (repeatable)")
	return run
}

func newWorkflowsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			path := workflowPath(theApp.cfg.StateDir, args[0])
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("deleting workflow %q: %w", args[0], err)
			}
			fmt.Fprintf(os.Stdout, "deleted %q\n", args[0])
			return nil
		},
	}
}

func newWorkflowsExportCmd() *cobra.Command {
	var output string
	export := &cobra.Command{
		Use:   "export <name>",
		Short: "Export a saved plan as a portable workflow package",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			data, err := os.ReadFile(workflowPath(theApp.cfg.StateDir, args[0]))
			if err != nil {
				return fmt.Errorf("reading workflow %q: %w", args[0], err)
			}
			if output == "" {
				fmt.Fprintln(os.Stdout, string(data))
				return nil
			}
			return os.WriteFile(output, data, 0o644)
		},
	}
	export.Flags().StringVar(&output, "output", "", "file to write the package to (default: stdout)")
	return export
}

func newWorkflowsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a workflow package, rejecting a schema version newer than supported",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			pkg, err := planner.Import(data)
			if err != nil {
				return err
			}
			if err := savePlan(theApp.cfg.StateDir, pkg.Plan, pkg.Manifest.Author); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "imported workflow %q\n", pkg.Plan.Name)
			return nil
		},
	}
}

func parseVarFlags(pairs []string) map[string]string {
	out := map[string]string{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}
