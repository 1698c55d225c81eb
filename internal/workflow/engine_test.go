package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Azure/cmdpilot/internal/apperrors"
	"github.com/Azure/cmdpilot/internal/command"
	"github.com/Azure/cmdpilot/internal/rollbacklog"
	"github.com/Azure/cmdpilot/internal/safety"
)

type scriptedApprover struct {
	choice string
	calls  int
}

func (a *scriptedApprover) Confirm(_ string, _ safety.Level, _ []string) (string, error) {
	a.calls++
	return a.choice, nil
}

// TestRun_LinearThreeSteps covers spec scenario 1: A->B->C, all echo, expect
// all completed and the transaction committed.
func TestRun_LinearThreeSteps(t *testing.T) {
	root := t.TempDir()
	runner := &command.FakeRunner{Default: command.Result{Success: true, ExitCode: 0}}
	d := NewDispatcher(runner, nil)
	e := NewEngine(d, 4)
	store := rollbacklog.NewStore(root)

	plan := &Plan{
		ID: "p1",
		Steps: map[string]Step{
			"A": {ID: "A", Kind: KindCommand, Command: "echo a"},
			"B": {ID: "B", Kind: KindCommand, Command: "echo b", Predecessors: []Predecessor{{StepID: "A", Required: StatusSucceeded}}},
			"C": {ID: "C", Kind: KindCommand, Command: "echo c", Predecessors: []Predecessor{{StepID: "B", Required: StatusSucceeded}}},
		},
		EntryPoints: []string{"A"},
	}

	report, err := e.Run(context.Background(), plan, nil, store, false)
	require.NoError(t, err)
	require.Equal(t, WorkflowCompleted, report.State.Status)
	require.True(t, report.Committed)
	require.Len(t, report.State.Completed, 3)
}

// TestRun_VariableFlow covers spec scenario 2: A produces FOO through its
// produced-variables list (not a DataFlow transform, see below), a stdout
// DataFlow edge copies A's raw output to RAW, and B consumes ${FOO}.
func TestRun_VariableFlow(t *testing.T) {
	root := t.TempDir()
	runner := &command.FakeRunner{Responses: map[string]command.Result{
		"echo FOO=bar": {Success: true, Stdout: "FOO=bar\n"},
		"echo bar":     {Success: true, Stdout: "bar\n"},
	}}
	d := NewDispatcher(runner, nil)
	e := NewEngine(d, 4)
	store := rollbacklog.NewStore(root)

	plan := &Plan{
		ID: "p2",
		Steps: map[string]Step{
			"A": {ID: "A", Kind: KindCommand, Command: "echo FOO=bar"},
			"B": {ID: "B", Kind: KindCommand, Command: "echo ${FOO}",
				Predecessors:      []Predecessor{{StepID: "A", Required: StatusSucceeded}},
				RequiredVariables: []string{"FOO"}},
		},
		DataFlows: []DataFlow{
			{SourceStepID: "A", SourceVariable: "stdout", TargetVariable: "RAW"},
		},
	}
	// Extraction of FOO happens via produced-variables on step A instead of a
	// transform (transform bodies require a subprocess interpreter); wire it
	// through produced-variables to match how the dispatcher actually fills
	// the store.
	a := plan.Steps["A"]
	a.ProducedVariables = []string{"FOO"}
	plan.Steps["A"] = a

	report, err := e.Run(context.Background(), plan, nil, store, false)
	require.NoError(t, err)
	require.Equal(t, WorkflowCompleted, report.State.Status)
	require.Equal(t, "bar\n", report.State.Results["B"].Stdout)
	foo, ok := report.State.Store.Get("FOO")
	require.True(t, ok)
	require.Equal(t, "bar", foo)
}

// TestRun_ParallelNonConflicting covers spec scenario 3: independent steps
// run in the same batch, so wall-clock is less than the sum of both.
func TestRun_ParallelNonConflicting(t *testing.T) {
	root := t.TempDir()
	const sleepEach = 40 * time.Millisecond
	runner := &delayingRunner{delay: sleepEach}
	d := NewDispatcher(runner, nil)
	e := NewEngine(d, 4)
	store := rollbacklog.NewStore(root)

	plan := &Plan{
		ID: "p3",
		Steps: map[string]Step{
			"A": {ID: "A", Kind: KindCommand, Command: "cat /tmp/in.txt > /tmp/outA"},
			"B": {ID: "B", Kind: KindCommand, Command: "cat /tmp/in.txt > /tmp/outB"},
		},
	}

	start := time.Now()
	report, err := e.Run(context.Background(), plan, nil, store, false)
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.Equal(t, WorkflowCompleted, report.State.Status)
	require.Less(t, elapsed, 2*sleepEach)
}

// TestRun_ParallelConflictingSerialised covers spec scenario 4: two writers
// to the same path are placed in separate sub-batches.
func TestRun_ParallelConflictingSerialised(t *testing.T) {
	root := t.TempDir()
	runner := &command.FakeRunner{Default: command.Result{Success: true}}
	d := NewDispatcher(runner, nil)
	e := NewEngine(d, 4)
	store := rollbacklog.NewStore(root)

	plan := &Plan{
		ID: "p4",
		Steps: map[string]Step{
			"A": {ID: "A", Kind: KindCommand, Command: "echo 1 > /tmp/x"},
			"B": {ID: "B", Kind: KindCommand, Command: "echo 2 > /tmp/x"},
		},
	}

	report, err := e.Run(context.Background(), plan, nil, store, false)
	require.NoError(t, err)
	require.Equal(t, WorkflowCompleted, report.State.Status)
	require.Len(t, report.State.Completed, 2)
}

// TestRun_StuckDetection covers spec scenario 7: B needs variable V produced
// by skipped step A; B never becomes executable.
func TestRun_StuckDetection(t *testing.T) {
	root := t.TempDir()
	runner := &command.FakeRunner{Default: command.Result{Success: true}}
	d := NewDispatcher(runner, nil)
	e := NewEngine(d, 4)
	store := rollbacklog.NewStore(root)

	plan := &Plan{
		ID: "p7",
		Steps: map[string]Step{
			"B": {ID: "B", Kind: KindCommand, Command: "echo ${V}", RequiredVariables: []string{"V"}},
		},
	}

	report, err := e.Run(context.Background(), plan, nil, store, false)
	require.Error(t, err)
	require.Equal(t, WorkflowStuck, report.State.Status)
	require.Contains(t, report.StuckSteps["B"], "var:V")
}

// TestRun_CustomCodeWithoutApprovalNeverDispatches covers spec §9's "treat
// custom-code as HIGH risk by default": with no approval collaborator
// configured, a custom-code step fails at the gate and never reaches the
// interpreter subprocess.
func TestRun_CustomCodeWithoutApprovalNeverDispatches(t *testing.T) {
	root := t.TempDir()
	runner := &command.FakeRunner{Default: command.Result{Success: true}}
	d := NewDispatcher(runner, nil)
	e := NewEngine(d, 4)
	store := rollbacklog.NewStore(root)

	plan := &Plan{
		ID: "pc",
		Steps: map[string]Step{
			"C": {ID: "C", Kind: KindCustomCode, Code: "print('hi')"},
		},
	}

	report, err := e.Run(context.Background(), plan, nil, store, false)
	require.NoError(t, err)
	require.Equal(t, WorkflowFailed, report.State.Status)
	require.Equal(t, string(apperrors.CodeUnsafeCommand), report.State.Results["C"].ErrorKind)
}

// TestRun_CustomCodeApprovedRunsThroughDispatcher covers the approved path:
// once the approval collaborator confirms, the step proceeds to dispatch.
func TestRun_CustomCodeApprovedRunsThroughDispatcher(t *testing.T) {
	root := t.TempDir()
	runner := &command.FakeRunner{Default: command.Result{Success: true}}
	d := NewDispatcher(runner, nil)
	d.Interpreter = "true" // any PATH-resolvable binary; its stdin/stdout are irrelevant here
	e := NewEngine(d, 4)
	e.Approver = &scriptedApprover{choice: "run"}
	store := rollbacklog.NewStore(root)

	plan := &Plan{
		ID: "pc2",
		Steps: map[string]Step{
			"C": {ID: "C", Kind: KindCustomCode, Code: "print('hi')"},
		},
	}

	report, err := e.Run(context.Background(), plan, nil, store, false)
	require.NoError(t, err)
	require.NotEqual(t, string(apperrors.CodeUnsafeCommand), report.State.Results["C"].ErrorKind)
}

func TestGateCustomCode_DeclinedFails(t *testing.T) {
	e := NewEngine(NewDispatcher(&command.FakeRunner{}, nil), 1)
	e.Approver = &scriptedApprover{choice: "abort"}
	step := Step{ID: "c", Kind: KindCustomCode, Code: "print('hi')"}
	require.Error(t, e.gateCustomCode(step))
}

// delayingRunner is a minimal Execer that sleeps before reporting success,
// used to exercise real concurrency in TestRun_ParallelNonConflicting.
type delayingRunner struct {
	delay time.Duration
}

func (r *delayingRunner) Run(ctx context.Context, req command.Request) (command.Result, error) {
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return command.Result{}, ctx.Err()
	}
	return command.Result{Success: true}, nil
}
