package planner

import (
	"sort"

	"github.com/Azure/cmdpilot/internal/depgraph"
)

// maxCycleBreaks bounds the cycle-repair loop so a pathological draft cannot
// spin forever; a real plan needs at most len(steps) breaks to become acyclic.
const maxCycleBreaks = 64

// repair implements spec §4.7 step 4's repair pass: dedupe step ids keeping
// the first occurrence, drop edges referencing missing ids, and break cycles
// by removing the last edge on the cycle. It mutates d in place and reports
// whether the result is schedulable.
func repair(d *planDraft) bool {
	dedupeStepIDs(d)
	ids := stepIDSet(d)
	dropDanglingPredecessors(d, ids)
	dropDanglingDataFlows(d, ids)
	breakCycles(d)
	repairEntryPoints(d, ids)
	return validateSchedulable(d) == nil
}

func dedupeStepIDs(d *planDraft) {
	seen := map[string]bool{}
	kept := d.Steps[:0]
	for _, s := range d.Steps {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		kept = append(kept, s)
	}
	d.Steps = kept
}

func stepIDSet(d *planDraft) map[string]bool {
	ids := make(map[string]bool, len(d.Steps))
	for _, s := range d.Steps {
		ids[s.ID] = true
	}
	return ids
}

func dropDanglingPredecessors(d *planDraft, ids map[string]bool) {
	for i, s := range d.Steps {
		kept := s.Predecessors[:0]
		for _, p := range s.Predecessors {
			if ids[p.StepID] {
				kept = append(kept, p)
			}
		}
		d.Steps[i].Predecessors = kept
	}
}

func dropDanglingDataFlows(d *planDraft, ids map[string]bool) {
	kept := d.DataFlows[:0]
	for _, df := range d.DataFlows {
		if ids[df.SourceStepID] {
			kept = append(kept, df)
		}
	}
	d.DataFlows = kept
}

// breakCycles repeatedly builds the dependency graph and removes the last
// edge reported in any detected cycle until none remains or the break
// budget is exhausted.
func breakCycles(d *planDraft) {
	for i := 0; i < maxCycleBreaks; i++ {
		g, err := buildGraph(d)
		if err != nil {
			return // dangling references should already be gone; give up quietly
		}
		_, err = g.TopologicalOrder()
		if err == nil {
			return
		}
		cycleErr, ok := err.(*depgraph.CycleError)
		if !ok || len(cycleErr.Cycle) < 2 {
			return
		}
		from := cycleErr.Cycle[len(cycleErr.Cycle)-2]
		to := cycleErr.Cycle[len(cycleErr.Cycle)-1]
		removeEdge(d, from, to)
	}
}

func removeEdge(d *planDraft, fromStepID, toStepID string) {
	for i, s := range d.Steps {
		if s.ID != toStepID {
			continue
		}
		kept := s.Predecessors[:0]
		for _, p := range s.Predecessors {
			if p.StepID != fromStepID {
				kept = append(kept, p)
			}
		}
		d.Steps[i].Predecessors = kept
		return
	}
}

// repairEntryPoints drops missing entry-point ids, falling back to every
// step with no predecessors when that leaves the list empty.
func repairEntryPoints(d *planDraft, ids map[string]bool) {
	kept := d.EntryPoints[:0]
	for _, id := range d.EntryPoints {
		if ids[id] {
			kept = append(kept, id)
		}
	}
	d.EntryPoints = kept
	if len(d.EntryPoints) > 0 {
		return
	}
	for _, s := range d.Steps {
		if len(s.Predecessors) == 0 {
			d.EntryPoints = append(d.EntryPoints, s.ID)
		}
	}
	sort.Strings(d.EntryPoints)
}

func buildGraph(d *planDraft) (*depgraph.Graph, error) {
	nodes := make([]depgraph.Node, 0, len(d.Steps))
	for _, s := range d.Steps {
		nodes = append(nodes, depgraph.Node{ID: s.ID, Predecessors: predecessorIDs(s), Command: s.Command})
	}
	return depgraph.Build(nodes)
}

func predecessorIDs(s stepDraft) []string {
	ids := make([]string, len(s.Predecessors))
	for i, p := range s.Predecessors {
		ids[i] = p.StepID
	}
	return ids
}

// validateSchedulable re-checks the invariants spec §4.7 step 4 requires
// before a draft is accepted: no duplicate step ids, no unknown references,
// no cycles, every entry point exists.
func validateSchedulable(d *planDraft) error {
	if len(d.Steps) == 0 {
		return &draftValidationError{"draft has no steps"}
	}
	seen := make(map[string]bool, len(d.Steps))
	for _, s := range d.Steps {
		if seen[s.ID] {
			return &draftValidationError{"duplicate step id " + s.ID}
		}
		seen[s.ID] = true
	}
	g, err := buildGraph(d)
	if err != nil {
		return err
	}
	if _, err := g.TopologicalOrder(); err != nil {
		return err
	}
	ids := stepIDSet(d)
	for _, id := range d.EntryPoints {
		if !ids[id] {
			return &draftValidationError{"entry point references unknown step " + id}
		}
	}
	return nil
}

type draftValidationError struct{ reason string }

func (e *draftValidationError) Error() string { return e.reason }
