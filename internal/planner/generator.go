package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Azure/cmdpilot/internal/ai"
	"github.com/Azure/cmdpilot/internal/command"
	"github.com/Azure/cmdpilot/internal/workflow"
)

const planPrompt = `You are generating an execution plan for a command-line assistant.

User request: %s

Working directory: %s
Project root: %s
Project type: %s

Project files (partial listing):
%s

Available tools:
%s

Respond with ONLY a single JSON object matching this shape (no prose, no markdown fences):
{
  "name": "...", "description": "...",
  "steps": [{"id": "...", "kind": "command", "command": "...", "predecessors": [{"step_id": "...", "required_status": "succeeded"}], "required_variables": [], "produced_variables": []}],
  "data_flows": [{"source_step_id": "...", "source_variable": "stdout", "target_variable": "...", "transform": ""}],
  "entry_points": ["..."],
  "initial_variables": {}
}
Valid step kinds: command, tool, api, decision, wait, parallel, custom_code, notification, validation.`

// Generator implements the Plan Generator (spec §4.7).
type Generator struct {
	Collaborator ai.Collaborator
	Runner       command.Execer
	Capabilities *CapabilityCache
}

// NewGenerator builds a Generator. runner backs the tool-capability probes
// (spec §4.7 step 2); the Plan Generator itself never executes a plan step.
func NewGenerator(collaborator ai.Collaborator, runner command.Execer) *Generator {
	return &Generator{Collaborator: collaborator, Runner: runner, Capabilities: NewCapabilityCache()}
}

// Generate turns a natural-language request plus a context snapshot into a
// Plan (spec §4.7 steps 1-5). It never returns an error: an unrecoverable
// failure yields the single-step fallback plan instead, since the spec
// requires the user's intent is never silently dropped.
func (g *Generator) Generate(ctx context.Context, request string, snapshot workflow.ContextSnapshot) *workflow.Plan {
	tools := DetectTools(ctx, g.Collaborator, request, snapshot.ProjectType)

	var toolLines strings.Builder
	for _, t := range tools {
		desc := g.Capabilities.Describe(ctx, g.Runner, t)
		if desc == "" {
			desc = "(not probed / unavailable)"
		}
		fmt.Fprintf(&toolLines, "- %s: %s\n", t, desc)
	}
	if toolLines.Len() == 0 {
		toolLines.WriteString("(none detected)\n")
	}

	fileLines := strings.Join(snapshot.FileListing, "\n")
	if fileLines == "" {
		fileLines = "(none)"
	}

	prompt := fmt.Sprintf(planPrompt, request, snapshot.Cwd, snapshot.ProjectRoot, snapshot.ProjectType, fileLines, toolLines.String())

	draft, err := g.callAndParse(ctx, prompt)
	if err == nil {
		if validateSchedulable(draft) != nil {
			repair(draft)
		}
		if validateSchedulable(draft) == nil {
			return g.finalize(draft, request, snapshot)
		}
	}
	return fallbackPlan(request, snapshot)
}

func (g *Generator) callAndParse(ctx context.Context, prompt string) (*planDraft, error) {
	if g.Collaborator == nil {
		return nil, fmt.Errorf("planner: no AI collaborator configured")
	}
	raw, err := g.Collaborator.Generate(ctx, prompt, 2048, 0.2)
	if err != nil {
		return nil, err
	}
	candidate := extractJSONCandidate(raw)
	if err := validateAgainstSchema([]byte(candidate)); err != nil {
		// Schema violations are recoverable via repair; keep parsing so the
		// draft can still be dedupe/drop/break-cycle repaired below.
		var draft planDraft
		if jerr := json.Unmarshal([]byte(candidate), &draft); jerr != nil {
			return nil, fmt.Errorf("plan response is not valid JSON: %w (schema error: %v)", jerr, err)
		}
		return &draft, nil
	}
	var draft planDraft
	if err := json.Unmarshal([]byte(candidate), &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

func (g *Generator) finalize(d *planDraft, request string, snapshot workflow.ContextSnapshot) *workflow.Plan {
	steps := make(map[string]workflow.Step, len(d.Steps))
	for _, sd := range d.Steps {
		step := sd.toStep()
		if step.Kind == workflow.KindCommand || step.Kind == workflow.KindTool {
			if len(step.ProducedVariables) == 0 {
				if v := inferProducedVariable(step.Command); v != "" {
					step.ProducedVariables = []string{v}
				}
			}
		}
		steps[step.ID] = step
	}

	name := d.Name
	if name == "" {
		name = request
	}
	return &workflow.Plan{
		ID:            uuid.NewString(),
		Name:          name,
		Description:   d.Description,
		Request:       request,
		Steps:         steps,
		DataFlows:     d.DataFlows,
		EntryPoints:   d.EntryPoints,
		InitialVars:   d.InitialVars,
		CreatedAt:     time.Now(),
		SourceContext: snapshot,
	}
}

// fallbackPlan implements spec §4.7 step 4's "never silently omit user
// intent" fallback: a single step that echoes the unfulfilled request,
// annotated with the failure.
func fallbackPlan(request string, snapshot workflow.ContextSnapshot) *workflow.Plan {
	const stepID = "fallback"
	cmd := fmt.Sprintf("echo 'Failed to generate plan for: %s'", escapeSingleQuotes(request))
	return &workflow.Plan{
		ID:              uuid.NewString(),
		Name:            "fallback",
		Description:     "plan generation failed; intent preserved as a no-op echo",
		Request:         request,
		Steps:           map[string]workflow.Step{stepID: {ID: stepID, Name: stepID, Kind: workflow.KindCommand, Command: cmd}},
		EntryPoints:     []string{stepID},
		CreatedAt:       time.Now(),
		SourceContext:   snapshot,
		ErrorAnnotation: "plan generation failed validation/repair; falling back to a no-op acknowledgement",
	}
}

func escapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}
