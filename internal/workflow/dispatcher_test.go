package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Azure/cmdpilot/internal/command"
	"github.com/Azure/cmdpilot/internal/vars"
)

type fakeNotifier struct {
	titles []string
}

func (n *fakeNotifier) Notify(title, body, severity string) error {
	n.titles = append(n.titles, title)
	return nil
}

func TestDispatch_CommandExtractsVariables(t *testing.T) {
	runner := &command.FakeRunner{Responses: map[string]command.Result{
		"echo FOO=bar": {Success: true, ExitCode: 0, Stdout: "FOO=bar\n"},
	}}
	d := NewDispatcher(runner, nil)
	store := vars.New(nil)
	plan := &Plan{Steps: map[string]Step{}}
	step := Step{ID: "a", Kind: KindCommand, Command: "echo FOO=bar", ProducedVariables: []string{"FOO"}}

	res := d.Dispatch(context.Background(), plan, step, store, nil)
	require.True(t, res.Success)
	require.Equal(t, "bar", res.Variables["FOO"])
}

func TestDispatch_CommandSubstitutesBeforeRunning(t *testing.T) {
	runner := &command.FakeRunner{Responses: map[string]command.Result{
		"echo hello-world": {Success: true, ExitCode: 0, Stdout: "hello-world\n"},
	}}
	d := NewDispatcher(runner, nil)
	store := vars.New(map[string]string{"NAME": "world"})
	plan := &Plan{Steps: map[string]Step{}}
	step := Step{ID: "a", Kind: KindCommand, Command: "echo hello-${NAME}"}

	res := d.Dispatch(context.Background(), plan, step, store, nil)
	require.True(t, res.Success)
	require.Equal(t, 1, len(runner.Calls))
	require.Equal(t, "echo hello-world", runner.Calls[0].Command)
}

func TestDispatch_Decision(t *testing.T) {
	runner := &command.FakeRunner{}
	d := NewDispatcher(runner, nil)
	store := vars.New(map[string]string{"OK": "1"})
	plan := &Plan{Steps: map[string]Step{}}
	step := Step{ID: "d", Kind: KindDecision, Predicate: "${OK} == 1"}

	res := d.Dispatch(context.Background(), plan, step, store, nil)
	require.True(t, res.Success)
	require.True(t, res.Truthy)
}

func TestDispatch_ValidationSeparatesEvalFromTruthiness(t *testing.T) {
	runner := &command.FakeRunner{}
	d := NewDispatcher(runner, nil)
	store := vars.New(map[string]string{"OK": "0"})
	plan := &Plan{Steps: map[string]Step{}}
	step := Step{ID: "v", Kind: KindValidation, Predicate: "${OK} == 1"}

	res := d.Dispatch(context.Background(), plan, step, store, nil)
	require.True(t, res.Success) // evaluated fine
	require.True(t, res.EvaluationOK)
	require.False(t, res.Truthy) // but the predicate itself is false
}

func TestDispatch_WaitDuration(t *testing.T) {
	runner := &command.FakeRunner{}
	d := NewDispatcher(runner, nil)
	store := vars.New(nil)
	plan := &Plan{Steps: map[string]Step{}}
	step := Step{ID: "w", Kind: KindWait, WaitDuration: 5 * time.Millisecond}

	start := time.Now()
	res := d.Dispatch(context.Background(), plan, step, store, nil)
	require.True(t, res.Success)
	require.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestDispatch_Notification(t *testing.T) {
	notifier := &fakeNotifier{}
	d := NewDispatcher(&command.FakeRunner{}, notifier)
	store := vars.New(nil)
	plan := &Plan{Steps: map[string]Step{}}
	step := Step{ID: "n", Kind: KindNotification, Name: "deploy done", Message: "all good"}

	res := d.Dispatch(context.Background(), plan, step, store, nil)
	require.True(t, res.Success)
	require.Equal(t, []string{"deploy done"}, notifier.titles)
}

func TestDispatch_ParallelChildrenAllSucceed(t *testing.T) {
	runner := &command.FakeRunner{Responses: map[string]command.Result{
		"echo a": {Success: true},
		"echo b": {Success: true},
	}}
	d := NewDispatcher(runner, nil)
	store := vars.New(nil)
	plan := &Plan{Steps: map[string]Step{
		"a": {ID: "a", Kind: KindCommand, Command: "echo a"},
		"b": {ID: "b", Kind: KindCommand, Command: "echo b"},
	}}
	step := Step{ID: "p", Kind: KindParallel, Children: []string{"a", "b"}}

	res := d.Dispatch(context.Background(), plan, step, store, nil)
	require.True(t, res.Success)
}

func TestDispatch_ParallelChildFails(t *testing.T) {
	runner := &command.FakeRunner{Responses: map[string]command.Result{
		"echo a": {Success: true},
		"false":  {Success: false, ExitCode: 1, ErrMessage: "exit code 1"},
	}}
	d := NewDispatcher(runner, nil)
	store := vars.New(nil)
	plan := &Plan{Steps: map[string]Step{
		"a": {ID: "a", Kind: KindCommand, Command: "echo a"},
		"b": {ID: "b", Kind: KindCommand, Command: "false"},
	}}
	step := Step{ID: "p", Kind: KindParallel, Children: []string{"a", "b"}}

	res := d.Dispatch(context.Background(), plan, step, store, nil)
	require.False(t, res.Success)
}
