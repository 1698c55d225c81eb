package planner

import (
	"time"

	"github.com/Azure/cmdpilot/internal/workflow"
)

// stepDraft mirrors workflow.Step but keeps Predecessors... as a plain slice
// field the AI response round-trips through JSON unmarshalling directly
// (workflow.Step itself is equally shaped for this purpose, but a distinct
// type keeps the draft/repair stage from silently depending on engine-side
// field additions).
type stepDraft struct {
	ID                string                  `json:"id"`
	Name              string                  `json:"name"`
	Kind              workflow.Kind           `json:"kind"`
	Command           string                  `json:"command,omitempty"`
	URL               string                  `json:"url,omitempty"`
	Method            string                  `json:"method,omitempty"`
	Headers           map[string]string       `json:"headers,omitempty"`
	Body              string                  `json:"body,omitempty"`
	Predicate         string                  `json:"predicate,omitempty"`
	WaitDuration      time.Duration           `json:"wait_duration,omitempty"`
	Children          []string                `json:"children,omitempty"`
	Code              string                  `json:"code,omitempty"`
	Message           string                  `json:"message,omitempty"`
	Severity          string                  `json:"severity,omitempty"`
	Predecessors      []workflow.Predecessor  `json:"predecessors,omitempty"`
	RequiredVariables []string                `json:"required_variables,omitempty"`
	ProducedVariables []string                `json:"produced_variables,omitempty"`
	ContinueOnFailure bool                    `json:"continue_on_failure,omitempty"`
	WorkingDir        string                  `json:"working_dir,omitempty"`
	Env               []string                `json:"env,omitempty"`
	Timeout           time.Duration           `json:"timeout,omitempty"`
	RetryCount        int                     `json:"retry_count,omitempty"`
	EstimatedRisk     workflow.RiskLevel      `json:"estimated_risk,omitempty"`
}

func (d stepDraft) toStep() workflow.Step {
	return workflow.Step{
		ID: d.ID, Name: d.Name, Kind: d.Kind, Command: d.Command,
		URL: d.URL, Method: d.Method, Headers: d.Headers, Body: d.Body,
		Predicate: d.Predicate, WaitDuration: d.WaitDuration, Children: d.Children,
		Code: d.Code, Message: d.Message, Severity: d.Severity,
		Predecessors: d.Predecessors, RequiredVariables: d.RequiredVariables,
		ProducedVariables: d.ProducedVariables, ContinueOnFailure: d.ContinueOnFailure,
		WorkingDir: d.WorkingDir, Env: d.Env, Timeout: d.Timeout,
		RetryCount: d.RetryCount, EstimatedRisk: d.EstimatedRisk,
	}
}

// planDraft is the AI collaborator's raw response shape (an exported workflow
// package stores a workflow.Plan, not a planDraft). Steps is
// a slice (not a map) so duplicate-id detection can run before the id is
// used as a map key.
type planDraft struct {
	ID            string            `json:"id,omitempty"`
	Name          string            `json:"name,omitempty"`
	Description   string            `json:"description,omitempty"`
	Steps         []stepDraft       `json:"steps"`
	DataFlows     []workflow.DataFlow `json:"data_flows,omitempty"`
	EntryPoints   []string          `json:"entry_points,omitempty"`
	InitialVars   map[string]string `json:"initial_variables,omitempty"`
}
