package depgraph

import "testing"

func TestTopologicalOrder_RespectsPredecessors(t *testing.T) {
	g, err := Build([]Node{
		{ID: "C", Predecessors: []string{"B"}},
		{ID: "A"},
		{ID: "B", Predecessors: []string{"A"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		t.Fatal(err)
	}
	pos := map[string]int{}
	for i, id := range order {
		pos[id] = i
	}
	if !(pos["A"] < pos["B"] && pos["B"] < pos["C"]) {
		t.Errorf("order %v violates A->B->C", order)
	}
}

func TestTopologicalOrder_DetectsCycle(t *testing.T) {
	g, err := Build([]Node{
		{ID: "A", Predecessors: []string{"B"}},
		{ID: "B", Predecessors: []string{"A"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = g.TopologicalOrder()
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if _, ok := err.(*CycleError); !ok {
		t.Errorf("expected *CycleError, got %T", err)
	}
}

func TestBuild_UnknownPredecessor(t *testing.T) {
	_, err := Build([]Node{{ID: "A", Predecessors: []string{"ghost"}}})
	if err == nil {
		t.Fatal("expected unknown predecessor error")
	}
}

func TestBatches_IndependentStepsShareABatch(t *testing.T) {
	g, err := Build([]Node{{ID: "A"}, {ID: "B"}, {ID: "C", Predecessors: []string{"A", "B"}}})
	if err != nil {
		t.Fatal(err)
	}
	batches, err := g.Batches()
	if err != nil {
		t.Fatal(err)
	}
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d: %v", len(batches), batches)
	}
	if len(batches[0]) != 2 {
		t.Fatalf("expected first batch to contain A and B, got %v", batches[0])
	}
}

func TestConflicts_SamePathConflicts(t *testing.T) {
	if !Conflicts("echo hi > /tmp/x", "echo bye > /tmp/x") {
		t.Error("same-path writers should conflict")
	}
}

func TestConflicts_DistinctPathsDoNotConflict(t *testing.T) {
	if Conflicts("echo hi > /tmp/a", "echo bye > /tmp/b") {
		t.Error("distinct-path writers should not conflict")
	}
}

func TestConflicts_UncertainInferenceConflicts(t *testing.T) {
	if !Conflicts("do-something", "echo hi > /tmp/a") {
		t.Error("uncertain inference should default to conflicting")
	}
}

func TestConflicts_SharedReadDoesNotConflict(t *testing.T) {
	if Conflicts("cat /tmp/in.txt > /tmp/outA", "cat /tmp/in.txt > /tmp/outB") {
		t.Error("two readers of the same input writing to distinct outputs should not conflict")
	}
}

func TestConflicts_WriteConflictsWithOthersRead(t *testing.T) {
	if !Conflicts("cat /tmp/shared.txt", "echo overwritten > /tmp/shared.txt") {
		t.Error("a write to a path the other side reads should conflict")
	}
}

func TestSplitByConflict_SharedReadersShareABatch(t *testing.T) {
	cmds := map[string]string{"A": "cat /tmp/in.txt > /tmp/outA", "B": "cat /tmp/in.txt > /tmp/outB"}
	groups := SplitByConflict([]string{"A", "B"}, cmds)
	if len(groups) != 1 {
		t.Fatalf("expected both readers in one batch, got %v", groups)
	}
}

func TestSplitByConflict_SerialisesConflictingPair(t *testing.T) {
	cmds := map[string]string{"A": "echo 1 > /tmp/x", "B": "echo 2 > /tmp/x"}
	groups := SplitByConflict([]string{"A", "B"}, cmds)
	if len(groups) != 2 {
		t.Fatalf("expected conflicting steps in separate groups, got %v", groups)
	}
}
