package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Azure/cmdpilot/internal/ai"
	"github.com/Azure/cmdpilot/internal/command"
	"github.com/Azure/cmdpilot/internal/planner"
	"github.com/Azure/cmdpilot/internal/rollbacklog"
	"github.com/Azure/cmdpilot/internal/workflow"
)

func TestRun_PlansExecutesAndCommits(t *testing.T) {
	resp := `{"name":"greet","description":"d","steps":[
		{"id":"hello","kind":"command","command":"echo hi"}
	],"entry_points":["hello"]}`
	fakeAI := &ai.FakeCollaborator{Response: resp}
	runner := &command.FakeRunner{Responses: map[string]command.Result{
		"echo hi": {Success: true, ExitCode: 0, Stdout: "hi\n"},
	}}

	gen := planner.NewGenerator(fakeAI, runner)
	dispatcher := workflow.NewDispatcher(runner, nil)
	engine := workflow.NewEngine(dispatcher, 4)
	engine.Yes = true
	store := rollbacklog.NewStore(t.TempDir())

	o := New(gen, engine, store)
	result, err := o.Run(context.Background(), "say hi", t.TempDir(), nil, false)
	require.NoError(t, err)
	require.Empty(t, result.Plan.ErrorAnnotation)
	require.Equal(t, workflow.WorkflowCompleted, result.Report.State.Status)
	require.True(t, result.Report.Committed)

	summary := Summarize(result)
	require.Contains(t, summary, "hello: ok")
	require.Contains(t, summary, "status: completed")
}

func TestRun_FallbackPlanStillExecutes(t *testing.T) {
	runner := &command.FakeRunner{}
	gen := planner.NewGenerator(nil, runner)
	dispatcher := workflow.NewDispatcher(runner, nil)
	engine := workflow.NewEngine(dispatcher, 4)
	store := rollbacklog.NewStore(t.TempDir())

	o := New(gen, engine, store)
	result, err := o.Run(context.Background(), "do the impossible", t.TempDir(), nil, false)
	require.NoError(t, err)
	require.NotEmpty(t, result.Plan.ErrorAnnotation)

	summary := Summarize(result)
	require.Contains(t, summary, "plan generation degraded")
}

func TestSummarize_NilReport(t *testing.T) {
	require.Equal(t, "no execution report available", Summarize(&Result{}))
}
