// Package cmd implements cmdpilot's cobra CLI surface (spec §6): the root
// command, global flags, and the workflows/generate/docker/rollback/files
// subcommands, wired the way the teacher's cmd.go composes its cobra tree.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Azure/cmdpilot/internal/ai"
	"github.com/Azure/cmdpilot/internal/approval"
	"github.com/Azure/cmdpilot/internal/codegen"
	"github.com/Azure/cmdpilot/internal/command"
	"github.com/Azure/cmdpilot/internal/config"
	"github.com/Azure/cmdpilot/internal/dockercli"
	"github.com/Azure/cmdpilot/internal/gitcli"
	"github.com/Azure/cmdpilot/internal/notify"
	"github.com/Azure/cmdpilot/internal/orchestrator"
	"github.com/Azure/cmdpilot/internal/planner"
	"github.com/Azure/cmdpilot/internal/recovery"
	"github.com/Azure/cmdpilot/internal/rollbacklog"
	"github.com/Azure/cmdpilot/internal/workflow"
)

// globalFlags mirrors the spec's §6 root-level flag surface.
type globalFlags struct {
	dryRun  bool
	verbose bool
	yes     bool
	profile string
}

// app is the service-locator struct owned by the root command, built once
// in PersistentPreRunE and handed down to each subcommand (Design Note
// "service-locator struct owned by the orchestrator").
type app struct {
	cfg          config.Config
	runner       command.Execer
	collaborator ai.Collaborator
	approver     *approval.Prompter
	notifier     *notify.TerminalNotifier
	history      *recovery.History
	rollback     *rollbacklog.Store
	orchestrator *orchestrator.Orchestrator
	generator    *planner.Generator
	docker       *dockercli.Client
	git          *gitcli.Client
	codegen      *codegen.Engine
	flags        globalFlags
}

// newApp wires every collaborator from cfg and flags, following the
// teacher's cmd.go initClient pattern generalized to the full collaborator
// set this spec's core consumes.
func newApp(cfg config.Config, flags globalFlags) (*app, error) {
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", cfg.StateDir, err)
	}

	runner := command.NewRunner(cfg.MaxCaptureBytes)

	var collaborator ai.Collaborator
	if key := cfg.AICredential(); key != "" && cfg.AIEndpoint != "" && cfg.AIDeploymentID != "" {
		client, err := ai.NewAzureClient(cfg.AIEndpoint, key, cfg.AIDeploymentID)
		if err != nil {
			return nil, fmt.Errorf("initializing AI collaborator: %w", err)
		}
		collaborator = client
	}

	approver := approval.New(flags.yes, os.Stderr)
	notifier := notify.New()

	historyPath := filepath.Join(cfg.StateDir, "recovery-history.json")
	history, err := recovery.LoadHistory(historyPath)
	if err != nil {
		return nil, fmt.Errorf("loading recovery history: %w", err)
	}

	trusted := loadTrustedCommands(cfg.TrustedCommandsFile)

	rollbackStore := rollbacklog.NewStore(filepath.Join(cfg.StateDir, "rollback"))

	dispatcher := workflow.NewDispatcher(runner, notifier)
	engine := workflow.NewEngine(dispatcher, cfg.MaxParallelWidth)
	engine.Approver = approver
	engine.TrustedCmds = trusted
	engine.Yes = flags.yes

	recoveryManager := recovery.NewManager(runner, collaborator, approver, history)
	recoveryManager.TrustedCmds = trusted
	engine.Recoverer = recoveryManager

	generator := planner.NewGenerator(collaborator, runner)
	orch := orchestrator.New(generator, engine, rollbackStore)

	return &app{
		cfg:          cfg,
		runner:       runner,
		collaborator: collaborator,
		approver:     approver,
		notifier:     notifier,
		history:      history,
		rollback:     rollbackStore,
		orchestrator: orch,
		generator:    generator,
		docker:       dockercli.New(runner),
		git:          gitcli.New(runner),
		codegen:      codegen.New(),
		flags:        flags,
	}, nil
}

// loadTrustedCommands reads a newline-separated list of pre-approved base
// executables (spec §4.2); a missing file simply yields no trusted commands.
func loadTrustedCommands(path string) map[string]bool {
	trusted := map[string]bool{}
	data, err := os.ReadFile(path)
	if err != nil {
		return trusted
	}
	for _, line := range strings.Split(string(data), "\n") {
		name := strings.TrimSpace(line)
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		trusted[name] = true
	}
	return trusted
}
