package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Azure/cmdpilot/internal/ai"
	"github.com/Azure/cmdpilot/internal/command"
	"github.com/Azure/cmdpilot/internal/workflow"
)

func TestGenerate_ValidResponseParsesDirectly(t *testing.T) {
	resp := `{"name":"test plan","description":"d","steps":[
		{"id":"A","kind":"command","command":"echo a"},
		{"id":"B","kind":"command","command":"echo b","predecessors":[{"step_id":"A","required_status":"succeeded"}]}
	],"entry_points":["A"]}`
	fake := &ai.FakeCollaborator{Response: resp}
	g := NewGenerator(fake, &command.FakeRunner{})

	plan := g.Generate(context.Background(), "do a then b", workflow.ContextSnapshot{ProjectType: "go"})
	require.Empty(t, plan.ErrorAnnotation)
	require.Len(t, plan.Steps, 2)
	require.Equal(t, "do a then b", plan.Request)
}

func TestGenerate_RepairsDuplicateAndDanglingIDs(t *testing.T) {
	resp := `{"steps":[
		{"id":"A","kind":"command","command":"echo a"},
		{"id":"A","kind":"command","command":"echo a-dup"},
		{"id":"B","kind":"command","command":"echo b","predecessors":[{"step_id":"missing","required_status":"succeeded"}]}
	],"entry_points":["missing"]}`
	fake := &ai.FakeCollaborator{Response: resp}
	g := NewGenerator(fake, &command.FakeRunner{})

	plan := g.Generate(context.Background(), "do stuff", workflow.ContextSnapshot{})
	require.Empty(t, plan.ErrorAnnotation)
	require.Len(t, plan.Steps, 2)
	require.Equal(t, "echo a", plan.Steps["A"].Command)
	require.NotContains(t, plan.EntryPoints, "missing")
}

func TestGenerate_FallsBackOnUnparseableResponse(t *testing.T) {
	fake := &ai.FakeCollaborator{Response: "not json at all, sorry"}
	g := NewGenerator(fake, &command.FakeRunner{})

	plan := g.Generate(context.Background(), "do the impossible", workflow.ContextSnapshot{})
	require.NotEmpty(t, plan.ErrorAnnotation)
	require.Len(t, plan.Steps, 1)
	require.Contains(t, plan.Steps["fallback"].Command, "do the impossible")
}

func TestGenerate_FallsBackWithNoCollaborator(t *testing.T) {
	g := NewGenerator(nil, &command.FakeRunner{})
	plan := g.Generate(context.Background(), "anything", workflow.ContextSnapshot{})
	require.NotEmpty(t, plan.ErrorAnnotation)
}

func TestInferProducedVariable_JQPattern(t *testing.T) {
	require.Equal(t, "foo", inferProducedVariable("curl -s https://x | jq -r .foo"))
	require.Equal(t, "", inferProducedVariable("echo hi"))
}
