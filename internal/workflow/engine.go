package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Azure/cmdpilot/internal/apperrors"
	"github.com/Azure/cmdpilot/internal/depgraph"
	"github.com/Azure/cmdpilot/internal/logging"
	"github.com/Azure/cmdpilot/internal/rollbacklog"
	"github.com/Azure/cmdpilot/internal/safety"
	"github.com/Azure/cmdpilot/internal/vars"
)

// CommitPolicy decides whether a finished execution's transaction is
// committed or rolled back (spec §4.4 step 8).
type CommitPolicy func(status WorkflowStatus) bool

// DefaultCommitPolicy commits on completed, rolls back on anything else.
func DefaultCommitPolicy(status WorkflowStatus) bool {
	return status == WorkflowCompleted
}

// Approver gates execution of steps whose risk exceeds the trusted
// threshold (spec §6 user-approval collaborator).
type Approver interface {
	Confirm(prompt string, risk safety.Level, options []string) (string, error)
}

// Recoverer is the Error-Recovery Manager's entry point as seen by the
// engine, kept as an interface here to avoid an import cycle between
// internal/workflow and internal/recovery (the recovery manager depends on
// workflow's Step/StepResult types).
type Recoverer interface {
	Recover(ctx context.Context, plan *Plan, step Step, failed StepResult, store *vars.Store) StepResult
}

// ExecutionState is the live state of one workflow run (spec §3).
type ExecutionState struct {
	WorkflowID  string
	Start       time.Time
	End         time.Time
	DryRun      bool
	CurrentStep string
	Completed   map[string]bool
	Failed      map[string]bool
	Results     map[string]StepResult
	Store       *vars.Store
	Status      WorkflowStatus

	mu sync.Mutex
}

func newExecutionState(planID string, store *vars.Store, dryRun bool) *ExecutionState {
	return &ExecutionState{
		WorkflowID: planID,
		Start:      time.Now(),
		DryRun:     dryRun,
		Completed:  map[string]bool{},
		Failed:     map[string]bool{},
		Results:    map[string]StepResult{},
		Store:      store,
		Status:     WorkflowRunning,
	}
}

// Engine drives a Plan to completion (spec §4.4).
type Engine struct {
	Dispatcher   *Dispatcher
	Classifier   func(cmd string) safety.Classification
	Approver     Approver
	Recoverer    Recoverer
	CommitPolicy CommitPolicy
	MaxParallel  int
	TrustedCmds  map[string]bool
	Yes          bool // --yes: skip approval for LOW-or-below risk
}

// NewEngine builds an Engine with the spec's default commit policy.
func NewEngine(dispatcher *Dispatcher, maxParallel int) *Engine {
	return &Engine{
		Dispatcher:   dispatcher,
		Classifier:   safety.Classify,
		CommitPolicy: DefaultCommitPolicy,
		MaxParallel:  maxParallel,
		TrustedCmds:  map[string]bool{},
	}
}

// Report summarises a finished execution for the CLI / orchestrator.
type Report struct {
	State           *ExecutionState
	TransactionID   string
	Committed       bool
	RollbackResult  *rollbacklog.RollbackResult
	StuckSteps      map[string][]string // step id -> unmet predecessors/missing vars
}

// Run executes plan to a terminal status (spec §4.4 steps 1-8).
func (e *Engine) Run(ctx context.Context, plan *Plan, initialVars map[string]string, store *rollbacklog.Store, dryRun bool) (*Report, error) {
	seed := map[string]string{}
	for k, v := range plan.InitialVars {
		seed[k] = v
	}
	for k, v := range initialVars {
		seed[k] = v
	}
	vs := vars.New(seed)
	state := newExecutionState(plan.ID, vs, dryRun)

	tx, err := store.Open(fmt.Sprintf("plan %s (%s)", plan.Name, plan.ID))
	if err != nil {
		return nil, fmt.Errorf("opening rollback transaction: %w", err)
	}

	graphNodes := make([]depgraph.Node, 0, len(plan.Steps))
	for id, s := range plan.Steps {
		graphNodes = append(graphNodes, depgraph.Node{ID: id, Predecessors: s.PredecessorIDs(), Command: s.Command})
	}
	graph, err := depgraph.Build(graphNodes)
	if err != nil {
		return nil, fmt.Errorf("building dependency graph: %w", err)
	}
	if _, err := graph.TopologicalOrder(); err != nil {
		return nil, fmt.Errorf("plan is not schedulable: %w", err)
	}

	stuckSteps := map[string][]string{}

	for {
		executable := e.executableSet(plan, state)
		if len(executable) == 0 {
			break
		}

		commandOf := make(map[string]string, len(executable))
		for _, id := range executable {
			commandOf[id] = plan.Steps[id].Command
		}
		subBatches := depgraph.SplitByConflict(executable, commandOf)

		for _, group := range subBatches {
			e.dispatchGroup(ctx, plan, group, state, tx)
			// A failed step without continue-on-failure halts the workflow
			// immediately (spec §4.4 step 6); stop scheduling further groups
			// in this batch and further batches entirely.
			if e.hasBlockingFailure(plan, state) {
				break
			}
		}
		if e.hasBlockingFailure(plan, state) {
			break
		}
	}

	status := e.finalStatus(plan, state, stuckSteps)
	state.Status = status
	state.End = time.Now()

	commit := e.CommitPolicy(status)
	report := &Report{State: state, TransactionID: tx.ID, StuckSteps: stuckSteps}
	if commit {
		if err := tx.Commit(); err != nil {
			return report, fmt.Errorf("committing transaction: %w", err)
		}
		report.Committed = true
	} else {
		res, rbErr := tx.Rollback()
		report.RollbackResult = &res
		if rbErr != nil {
			logging.Warn(fmt.Sprintf("workflow: rollback incomplete for transaction %s: %v", tx.ID, rbErr))
		}
	}

	if status == WorkflowCompleted {
		return report, nil
	}
	if status == WorkflowStuck {
		return report, apperrors.New(apperrors.CodeStuck, "workflow", "workflow made no further progress", nil)
	}
	return report, nil
}

// executableSet computes the steps whose predecessors are all satisfied and
// whose required variables are all present, excluding already-terminal
// steps (spec §4.4 step 3).
func (e *Engine) executableSet(plan *Plan, state *ExecutionState) []string {
	state.mu.Lock()
	defer state.mu.Unlock()

	var ready []string
	for id, step := range plan.Steps {
		if state.Completed[id] || state.Failed[id] {
			continue
		}
		if !e.predecessorsSatisfied(step, state) {
			continue
		}
		if len(state.Store.Missing(step.RequiredVariables...)) > 0 {
			continue
		}
		ready = append(ready, id)
	}
	sort.Strings(ready)
	return ready
}

func (e *Engine) predecessorsSatisfied(step Step, state *ExecutionState) bool {
	for _, pred := range step.Predecessors {
		switch {
		case state.Completed[pred.StepID]:
			if pred.Required == StatusFailed {
				return false
			}
		case state.Failed[pred.StepID]:
			if pred.Required == StatusSucceeded {
				return false
			}
		default:
			return false // predecessor not yet terminal
		}
	}
	return true
}

func (e *Engine) dispatchGroup(ctx context.Context, plan *Plan, ids []string, state *ExecutionState, tx *rollbacklog.Transaction) {
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(stepID string) {
			defer wg.Done()
			e.runOne(ctx, plan, plan.Steps[stepID], state, tx)
		}(id)
	}
	wg.Wait()
}

// runOne gates a step on approval, dispatches it, applies recovery on
// failure, merges produced variables, and applies outgoing DataFlow edges.
func (e *Engine) runOne(ctx context.Context, plan *Plan, step Step, state *ExecutionState, tx *rollbacklog.Transaction) {
	state.mu.Lock()
	state.CurrentStep = step.ID
	state.mu.Unlock()

	switch step.Kind {
	case KindCommand, KindTool:
		if err := e.gateApproval(step); err != nil {
			e.recordResult(state, step, StepResult{Success: false, ErrorKind: string(apperrors.CodeUnsafeCommand), ErrorMessage: err.Error()})
			return
		}
	case KindCustomCode:
		if err := e.gateCustomCode(step); err != nil {
			e.recordResult(state, step, StepResult{Success: false, ErrorKind: string(apperrors.CodeUnsafeCommand), ErrorMessage: err.Error()})
			return
		}
	}

	res := e.Dispatcher.Dispatch(ctx, plan, step, state.Store, tx)

	if !res.Success && e.Recoverer != nil {
		recovered := e.Recoverer.Recover(ctx, plan, step, res, state.Store)
		if recovered.Success {
			recovered.Recovered = true
			res = recovered
		}
	}

	e.recordResult(state, step, res)
	e.applyDataFlows(ctx, plan, step, res, state)
}

func (e *Engine) gateApproval(step Step) error {
	cls := e.Classifier(step.Command)
	base := baseExecutable(step.Command)
	_, needsApproval := safety.RequiresApproval(step.Command, base, e.TrustedCmds)
	if !needsApproval {
		return nil
	}
	if e.Yes && cls.Level <= safety.Low {
		return nil
	}
	if e.Approver == nil {
		return apperrors.New(apperrors.CodeUnsafeCommand, "workflow",
			fmt.Sprintf("command classified %s with no approval collaborator configured", cls.Level), nil)
	}
	choice, err := e.Approver.Confirm(step.Command, cls.Level, []string{"run", "skip", "abort"})
	if err != nil {
		return err
	}
	if choice != "run" {
		return apperrors.New(apperrors.CodeUnsafeCommand, "workflow", "user declined to run "+step.Command, nil)
	}
	return nil
}

// gateCustomCode enforces spec §9's "treat custom-code as HIGH risk by
// default": a custom-code step runs arbitrary interpreter code with no
// executable name to check against TrustedCmds, so it always requires
// approval regardless of --yes, same as any other HIGH-classified step.
func (e *Engine) gateCustomCode(step Step) error {
	level := safety.High
	if e.Approver == nil {
		return apperrors.New(apperrors.CodeUnsafeCommand, "workflow",
			fmt.Sprintf("custom-code step classified %s with no approval collaborator configured", level), nil)
	}
	prompt := step.Name
	if prompt == "" {
		prompt = "custom-code step " + step.ID
	}
	choice, err := e.Approver.Confirm(prompt, level, []string{"run", "skip", "abort"})
	if err != nil {
		return err
	}
	if choice != "run" {
		return apperrors.New(apperrors.CodeUnsafeCommand, "workflow", "user declined to run custom-code step "+step.ID, nil)
	}
	return nil
}

func baseExecutable(cmd string) string {
	trimmed := cmd
	for i, c := range trimmed {
		if c == ' ' || c == '\t' {
			return trimmed[:i]
		}
	}
	return trimmed
}

func (e *Engine) recordResult(state *ExecutionState, step Step, res StepResult) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.Results[step.ID] = res
	if res.Success {
		state.Completed[step.ID] = true
	} else {
		state.Failed[step.ID] = true
	}
	for name, val := range res.Variables {
		state.Store.Set(name, val)
	}
}

func (e *Engine) hasBlockingFailure(plan *Plan, state *ExecutionState) bool {
	state.mu.Lock()
	defer state.mu.Unlock()
	for id := range state.Failed {
		if !plan.Steps[id].ContinueOnFailure {
			return true
		}
	}
	return false
}

// applyDataFlows reads each outgoing edge's source value and assigns it to
// the target variable, running the transform if present (spec §4.4
// "DataFlow application").
func (e *Engine) applyDataFlows(ctx context.Context, plan *Plan, step Step, res StepResult, state *ExecutionState) {
	for _, df := range plan.DataFlows {
		if df.SourceStepID != step.ID {
			continue
		}
		value, ok := resolveSource(res, df.SourceVariable)
		if !ok {
			logging.Warn(fmt.Sprintf("workflow: dataflow from %s.%s has no value, leaving %s untouched", df.SourceStepID, df.SourceVariable, df.TargetVariable))
			continue
		}
		if df.Transform != "" {
			transformed, err := e.Dispatcher.RunTransform(ctx, df.Transform, value)
			if err != nil {
				logging.Warn(fmt.Sprintf("workflow: dataflow transform for %s failed: %v", df.TargetVariable, err))
				continue
			}
			value = transformed
		}
		state.Store.Set(df.TargetVariable, value)
	}
}

func resolveSource(res StepResult, sourceVar string) (string, bool) {
	switch sourceVar {
	case "stdout":
		return res.Stdout, true
	case "stderr":
		return res.Stderr, true
	case "return_code":
		return fmt.Sprintf("%d", res.ExitCode), true
	default:
		if v, ok := res.Variables[sourceVar]; ok {
			return v, true
		}
		if res.Transformed != nil {
			if v, ok := vars.JSONPath(res.Transformed, sourceVar); ok {
				return vars.FormatValue(v), true
			}
		}
		return "", false
	}
}

// finalStatus implements spec §4.4 step 7's terminal-status derivation.
func (e *Engine) finalStatus(plan *Plan, state *ExecutionState, stuckSteps map[string][]string) WorkflowStatus {
	state.mu.Lock()
	defer state.mu.Unlock()

	allTerminal := true
	anyBlockingFailure := false
	for id, step := range plan.Steps {
		terminal := state.Completed[id] || state.Failed[id]
		if !terminal {
			allTerminal = false
			var unmet []string
			for _, pred := range step.Predecessors {
				if !state.Completed[pred.StepID] && !state.Failed[pred.StepID] {
					unmet = append(unmet, pred.StepID)
				}
			}
			for _, rv := range step.RequiredVariables {
				if _, ok := state.Store.Get(rv); !ok {
					unmet = append(unmet, "var:"+rv)
				}
			}
			stuckSteps[id] = unmet
		}
		if state.Failed[id] && !step.ContinueOnFailure {
			anyBlockingFailure = true
		}
	}

	if allTerminal {
		if anyBlockingFailure {
			return WorkflowFailed
		}
		return WorkflowCompleted
	}
	if anyBlockingFailure {
		return WorkflowFailed
	}
	return WorkflowStuck
}
