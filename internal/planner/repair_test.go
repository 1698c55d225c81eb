package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Azure/cmdpilot/internal/workflow"
)

func TestRepair_DedupesDropsAndBreaksCycles(t *testing.T) {
	d := &planDraft{
		Steps: []stepDraft{
			{ID: "A", Kind: workflow.KindCommand, Command: "echo a"},
			{ID: "A", Kind: workflow.KindCommand, Command: "echo a-dup"}, // duplicate id, dropped
			{ID: "B", Kind: workflow.KindCommand, Command: "echo b",
				Predecessors: []workflow.Predecessor{{StepID: "A", Required: workflow.StatusSucceeded}, {StepID: "ghost", Required: workflow.StatusSucceeded}}},
			{ID: "C", Kind: workflow.KindCommand, Command: "echo c",
				Predecessors: []workflow.Predecessor{{StepID: "B", Required: workflow.StatusSucceeded}}},
		},
		DataFlows: []workflow.DataFlow{
			{SourceStepID: "A", SourceVariable: "stdout", TargetVariable: "X"},
			{SourceStepID: "ghost", SourceVariable: "stdout", TargetVariable: "Y"}, // dangling, dropped
		},
		EntryPoints: []string{"A", "ghost"},
	}
	// Introduce a cycle: C -> A.
	d.Steps[0].Predecessors = []workflow.Predecessor{{StepID: "C", Required: workflow.StatusSucceeded}}

	ok := repair(d)
	require.True(t, ok)
	require.Len(t, d.Steps, 3)
	require.Len(t, d.DataFlows, 1)

	ids := stepIDSet(d)
	for _, ep := range d.EntryPoints {
		require.True(t, ids[ep])
	}
	require.NoError(t, validateSchedulable(d))
}

func TestValidateSchedulable_RejectsEmptyDraft(t *testing.T) {
	require.Error(t, validateSchedulable(&planDraft{}))
}
