package recovery

import (
	"context"
	"fmt"

	"github.com/Azure/cmdpilot/internal/ai"
	"github.com/Azure/cmdpilot/internal/apperrors"
	"github.com/Azure/cmdpilot/internal/command"
	"github.com/Azure/cmdpilot/internal/logging"
	"github.com/Azure/cmdpilot/internal/safety"
	"github.com/Azure/cmdpilot/internal/vars"
	"github.com/Azure/cmdpilot/internal/workflow"
)

// autoConfidenceThreshold is the minimum ranked confidence that triggers
// auto-recovery without asking the approval collaborator (spec §4.6 step 4).
const autoConfidenceThreshold = 0.8

// Approver is the subset of the user-approval collaborator the manager
// needs when no strategy auto-qualifies.
type Approver interface {
	Confirm(prompt string, risk safety.Level, options []string) (string, error)
}

// Manager implements the Error-Recovery Manager (spec §4.6).
type Manager struct {
	Runner       command.Execer
	Collaborator ai.Collaborator
	Approver     Approver
	History      *History
	TrustedCmds  map[string]bool
}

// NewManager builds a Manager. collaborator and approver may be nil; a nil
// collaborator simply skips the AI-suggestion fallback, a nil approver
// forces every non-auto-recoverable failure to abort.
func NewManager(runner command.Execer, collaborator ai.Collaborator, approver Approver, history *History) *Manager {
	return &Manager{Runner: runner, Collaborator: collaborator, Approver: approver, History: history, TrustedCmds: map[string]bool{}}
}

var _ workflow.Recoverer = (*Manager)(nil)

// Recover implements workflow.Recoverer. It never attempts recovery
// recursively: a failure during the recovery attempt itself terminates
// recovery for this step (spec §4.6 "Recursive recovery is not attempted").
func (m *Manager) Recover(ctx context.Context, plan *workflow.Plan, step workflow.Step, failed workflow.StepResult, store *vars.Store) workflow.StepResult {
	if step.Kind != workflow.KindCommand && step.Kind != workflow.KindTool {
		return failed // recovery only applies to command-like steps
	}
	if apperrors.Code(failed.ErrorKind) == apperrors.CodeCancelled {
		// Only Timeout cancellations are eligible, never user-initiated ones
		// (spec §5 "Cancellation and timeouts").
		return failed
	}

	signature := ExtractSignature(failed.Stderr, failed.ErrorMessage)
	candidates := generateStrategies(ctx, m.Collaborator, signature, step.Command, failed.Stderr+failed.ErrorMessage)
	ranked := m.rank(signature, candidates)

	if len(ranked) == 0 {
		return failed
	}

	top := ranked[0]
	if !m.qualifiesForAuto(signature, top) {
		choice, err := m.askApproval(step, failed, ranked)
		if err != nil || choice == nil {
			return failed
		}
		top = *choice
	}

	result := m.execute(ctx, step, top, store)
	if result.Success {
		result.Recovered = true
		result.RecoveryStrategy = string(top.Kind)
		result.RecoveryConfidence = top.Confidence
		if m.History != nil {
			if err := m.History.RecordSuccess(signature, top.Kind, top.Command); err != nil {
				logging.Warn("recovery: failed to persist history: " + err.Error())
			}
		}
	}
	return result
}

// rank blends each strategy's own confidence (60%) with the historical
// success rate for (signature, kind, command) (40%), capped at 0.95 (spec
// §4.6 step 3), and returns strategies sorted highest-confidence-first.
func (m *Manager) rank(signature string, strategies []Strategy) []Strategy {
	out := make([]Strategy, len(strategies))
	copy(out, strategies)
	if m.History != nil {
		for i := range out {
			count := m.History.Lookup(signature, out[i].Kind, out[i].Command)
			if count == 0 {
				continue
			}
			historyConfidence := minF(0.3+float64(count)*0.1, 0.9)
			adjusted := out[i].Confidence*0.6 + historyConfidence*0.4
			out[i].Confidence = minF(adjusted, 0.95)
		}
	}
	insertionSortDesc(out)
	return out
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func insertionSortDesc(s []Strategy) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].Confidence > s[j-1].Confidence; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// qualifiesForAuto implements spec §4.6 step 4.
func (m *Manager) qualifiesForAuto(signature string, top Strategy) bool {
	if top.Confidence >= autoConfidenceThreshold {
		return true
	}
	if top.Kind == Retry {
		return true
	}
	if m.History != nil && m.History.HasPriorSuccess(signature, top.Kind, top.Command) {
		return true
	}
	return false
}

func (m *Manager) askApproval(step workflow.Step, failed workflow.StepResult, ranked []Strategy) (*Strategy, error) {
	if m.Approver == nil {
		return nil, apperrors.New(apperrors.CodeUnsafeCommand, "recovery", "no approval collaborator configured", nil)
	}
	options := make([]string, 0, len(ranked)+1)
	for _, s := range ranked {
		options = append(options, fmt.Sprintf("%s: %s", s.Kind, s.Description))
	}
	options = append(options, "abort")

	prompt := fmt.Sprintf("step %q failed (%s); choose a recovery strategy", step.ID, failed.ErrorMessage)
	choice, err := m.Approver.Confirm(prompt, safety.Medium, options)
	if err != nil {
		return nil, err
	}
	for i, opt := range options {
		if opt == choice && i < len(ranked) {
			return &ranked[i], nil
		}
	}
	return nil, nil // user chose abort or an unrecognized option
}

// execute runs the chosen strategy (spec §4.6 step 5).
func (m *Manager) execute(ctx context.Context, step workflow.Step, strategy Strategy, store *vars.Store) workflow.StepResult {
	switch strategy.Kind {
	case Skip:
		return workflow.StepResult{Success: true}
	case Abort:
		return workflow.StepResult{Success: false, ErrorKind: string(apperrors.CodeUnsafeCommand), ErrorMessage: "recovery aborted"}
	case Retry:
		return m.runCommand(ctx, step.Command, store)
	case ModifyCommand, AlternativeCommand:
		res := m.runGatedCommand(ctx, strategy.Command, store)
		if res.Success && strategy.RetryOriginal {
			return m.runCommand(ctx, step.Command, store)
		}
		return res
	case PrepareThenRetry:
		prep := m.runGatedCommand(ctx, strategy.Command, store)
		if !prep.Success {
			return prep
		}
		return m.runCommand(ctx, step.Command, store)
	default:
		return workflow.StepResult{Success: false, ErrorMessage: "unknown recovery strategy kind " + string(strategy.Kind)}
	}
}

func (m *Manager) runCommand(ctx context.Context, cmd string, store *vars.Store) workflow.StepResult {
	substituted := store.Substitute(cmd)
	res, err := m.Runner.Run(ctx, command.Request{Command: substituted})
	out := workflow.StepResult{Success: res.Success, ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}
	if err != nil {
		out.ErrorKind = string(res.ErrorKind)
		out.ErrorMessage = res.ErrMessage
	}
	return out
}

// runGatedCommand safety-gates new command text a strategy introduces (spec
// §4.6 step 5 "safety-gated for new command text") before running it: an
// AI-suggested or heuristic replacement command was never seen by the
// engine's own approval gate, unlike the original step command, so it is
// classified and approved here the same way.
func (m *Manager) runGatedCommand(ctx context.Context, cmd string, store *vars.Store) workflow.StepResult {
	if err := m.gateCommand(cmd); err != nil {
		return workflow.StepResult{Success: false, ErrorKind: string(apperrors.CodeUnsafeCommand), ErrorMessage: err.Error()}
	}
	return m.runCommand(ctx, cmd, store)
}

func (m *Manager) gateCommand(cmd string) error {
	cls := safety.Classify(cmd)
	base := baseExecutable(cmd)
	_, needsApproval := safety.RequiresApproval(cmd, base, m.TrustedCmds)
	if !needsApproval {
		return nil
	}
	if m.Approver == nil {
		return apperrors.New(apperrors.CodeUnsafeCommand, "recovery",
			fmt.Sprintf("recovery command classified %s with no approval collaborator configured", cls.Level), nil)
	}
	choice, err := m.Approver.Confirm(cmd, cls.Level, []string{"run", "skip", "abort"})
	if err != nil {
		return err
	}
	if choice != "run" {
		return apperrors.New(apperrors.CodeUnsafeCommand, "recovery", "user declined to run recovery command "+cmd, nil)
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
