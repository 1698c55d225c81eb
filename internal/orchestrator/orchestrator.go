// Package orchestrator is the front door (spec §2, §6): it turns a natural
// language request into a Plan via the Plan Generator, runs the Plan through
// the Workflow Engine (which itself drives the Rollback Log and the
// Error-Recovery Manager), and returns a result summary.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/cmdpilot/internal/planner"
	"github.com/Azure/cmdpilot/internal/rollbacklog"
	"github.com/Azure/cmdpilot/internal/workflow"
)

// Orchestrator wires the Plan Generator, Workflow Engine, and Rollback Log
// together behind a single request/response call, following the teacher's
// constructor-injected, no-singletons orchestrator shape.
type Orchestrator struct {
	Generator *planner.Generator
	Engine    *workflow.Engine
	Store     *rollbacklog.Store
}

// New builds an Orchestrator from its three collaborators.
func New(generator *planner.Generator, engine *workflow.Engine, store *rollbacklog.Store) *Orchestrator {
	return &Orchestrator{Generator: generator, Engine: engine, Store: store}
}

// Result is the outcome of one Run: the generated Plan and the Engine's
// execution report (nil if plan generation itself failed, which it never
// does since the Plan Generator always falls back to a single-step plan).
type Result struct {
	Plan   *workflow.Plan
	Report *workflow.Report
}

// Run plans and executes one request end to end. cwd seeds the context
// snapshot the Plan Generator uses for project-type detection (spec §4.7
// step 2); initialVars are laid over the Plan's own InitialVars, so a
// caller-supplied value wins over the plan default.
func (o *Orchestrator) Run(ctx context.Context, request, cwd string, initialVars map[string]string, dryRun bool) (*Result, error) {
	snapshot := planner.BuildContextSnapshot(cwd)
	plan := o.Generator.Generate(ctx, request, snapshot)

	report, err := o.Engine.Run(ctx, plan, initialVars, o.Store, dryRun)
	result := &Result{Plan: plan, Report: report}
	if err != nil {
		return result, err
	}
	return result, nil
}

// Summarize renders a Result as the human-readable report the CLI prints:
// one line per step plus the overall outcome.
func Summarize(result *Result) string {
	if result == nil || result.Report == nil {
		return "no execution report available"
	}

	var b strings.Builder
	state := result.Report.State

	if result.Plan.ErrorAnnotation != "" {
		fmt.Fprintf(&b, "plan generation degraded: %s\n", result.Plan.ErrorAnnotation)
	}

	for _, id := range sortedStepIDs(result.Plan) {
		res, ok := state.Results[id]
		if !ok {
			fmt.Fprintf(&b, "  %s: did not run (%s)\n", id, strings.Join(result.Report.StuckSteps[id], ", "))
			continue
		}
		status := "ok"
		if !res.Success {
			status = "failed: " + res.ErrorMessage
		}
		if res.Recovered {
			status += " (recovered)"
		}
		fmt.Fprintf(&b, "  %s: %s\n", id, status)
	}

	fmt.Fprintf(&b, "status: %s", state.Status)
	if result.Report.Committed {
		b.WriteString(" (committed)")
	} else if result.Report.RollbackResult != nil {
		fmt.Fprintf(&b, " (rolled back: %s, %d failure(s))", result.Report.RollbackResult.Status, len(result.Report.RollbackResult.Failures))
	}
	return b.String()
}

func sortedStepIDs(plan *workflow.Plan) []string {
	ids := make([]string, 0, len(plan.Steps))
	for id := range plan.Steps {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}
