// Package workflow implements the Step sum type, Plan/Workflow data model,
// the Step Dispatcher, and the Workflow Engine (spec §3, §4.4, §4.5).
package workflow

import (
	"encoding/json"
	"time"
)

// Kind discriminates a Step's payload, realizing the spec's sum-type Design
// Note: Step = Command{...} | Tool{...} | Api{...} | ... .
type Kind string

const (
	KindCommand      Kind = "command"
	KindTool         Kind = "tool"
	KindAPI          Kind = "api"
	KindDecision     Kind = "decision"
	KindWait         Kind = "wait"
	KindParallel     Kind = "parallel"
	KindCustomCode   Kind = "custom_code"
	KindNotification Kind = "notification"
	KindValidation   Kind = "validation"
)

// RequiredStatus is the predecessor status a Step demands before it is
// eligible for dispatch (spec §3 Step).
type RequiredStatus string

const (
	StatusSucceeded RequiredStatus = "succeeded"
	StatusCompleted RequiredStatus = "completed" // succeeded or continue-on-failure failed
	StatusFailed    RequiredStatus = "failed"
)

// Predecessor names one dependency and the status it must reach.
type Predecessor struct {
	StepID   string         `json:"step_id"`
	Required RequiredStatus `json:"required_status"`
}

// RiskLevel mirrors internal/safety.Level without importing it, so the
// data model stays dependency-free; Plan/Step JSON uses the string form.
type RiskLevel string

// Step is one executable unit within a Plan (spec §3). Fields are
// kind-specific per §3's Step payload description; unused fields for a given
// Kind are left zero.
type Step struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`

	// command / tool
	Command string `json:"command,omitempty"`

	// api
	URL     string            `json:"url,omitempty"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`

	// decision / validation / wait (predicate form)
	Predicate string `json:"predicate,omitempty"`

	// wait (duration form, used when Predicate is empty)
	WaitDuration time.Duration `json:"wait_duration,omitempty"`

	// parallel
	Children []string `json:"children,omitempty"`

	// custom_code
	Code string `json:"code,omitempty"`

	// notification
	Message  string `json:"message,omitempty"`
	Severity string `json:"severity,omitempty"`

	Predecessors       []Predecessor `json:"predecessors,omitempty"`
	RequiredVariables  []string      `json:"required_variables,omitempty"`
	ProducedVariables  []string      `json:"produced_variables,omitempty"`
	ContinueOnFailure  bool          `json:"continue_on_failure,omitempty"`
	WorkingDir         string        `json:"working_dir,omitempty"`
	Env                []string      `json:"env,omitempty"`
	Timeout            time.Duration `json:"timeout,omitempty"`
	RetryCount         int           `json:"retry_count,omitempty"`
	EstimatedRisk      RiskLevel     `json:"estimated_risk,omitempty"`
}

// PredecessorIDs returns the bare predecessor step ids, for graph building.
func (s Step) PredecessorIDs() []string {
	ids := make([]string, len(s.Predecessors))
	for i, p := range s.Predecessors {
		ids[i] = p.StepID
	}
	return ids
}

// DataFlow is a typed wire from one step's output to another's input (spec §3).
type DataFlow struct {
	SourceStepID   string `json:"source_step_id"`
	SourceVariable string `json:"source_variable"` // name, "stdout", "stderr", "return_code", or a JSON path
	TargetVariable string `json:"target_variable"`
	Transform      string `json:"transform,omitempty"` // optional pure transformation code body
}

// Plan is an immutable, validated, dependency-graph-structured workflow
// (spec §3). One Plan executes at most once.
type Plan struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Request         string            `json:"request"`
	Steps           map[string]Step   `json:"steps"`
	DataFlows       []DataFlow        `json:"data_flows,omitempty"`
	EntryPoints     []string          `json:"entry_points"`
	InitialVars     map[string]string `json:"initial_variables,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	SourceContext   ContextSnapshot   `json:"source_context,omitempty"`
	ErrorAnnotation string            `json:"error_annotation,omitempty"` // set on fallback plans
}

// ContextSnapshot is the filtered caller-context copy a Plan carries (spec §3:
// "never the whole context"). FileListing is a shallow, gitignore-aware
// listing of the project root, not a full recursive tree.
type ContextSnapshot struct {
	Cwd         string   `json:"cwd,omitempty"`
	ProjectRoot string   `json:"project_root,omitempty"`
	ProjectType string   `json:"project_type,omitempty"`
	FileListing []string `json:"file_listing,omitempty"`
}

// StepStatus is a terminal per-step outcome tracked by Execution State.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// WorkflowStatus is the overall Execution State status (spec §3).
type WorkflowStatus string

const (
	WorkflowRunning   WorkflowStatus = "running"
	WorkflowCompleted WorkflowStatus = "completed"
	WorkflowFailed    WorkflowStatus = "failed"
	WorkflowStuck     WorkflowStatus = "stuck"
	WorkflowError     WorkflowStatus = "error"
)

// StepResult is the outcome of dispatching one step (spec §3).
type StepResult struct {
	Success           bool                   `json:"success"`
	ExitCode          int                    `json:"exit_code"`
	Stdout            string                 `json:"stdout,omitempty"`
	Stderr            string                 `json:"stderr,omitempty"`
	Variables         map[string]string      `json:"variables,omitempty"`
	Transformed       interface{}            `json:"transformed,omitempty"`
	Elapsed           time.Duration          `json:"elapsed"`
	ErrorKind         string                 `json:"error_kind,omitempty"`
	ErrorMessage      string                 `json:"error_message,omitempty"`
	Recovered         bool                   `json:"recovered,omitempty"`
	RecoveryStrategy  string                 `json:"recovery_strategy,omitempty"`
	RecoveryConfidence float64               `json:"recovery_confidence,omitempty"`
	EvaluationOK      bool                   `json:"evaluation_ok"` // validation: did the predicate itself evaluate without error
	Truthy            bool                   `json:"truthy"`        // validation/decision: the predicate's boolean result
	Extra             map[string]interface{} `json:"-"`
}

// MarshalResultJSON renders a StepResult compactly for CLI/report output.
func (r StepResult) MarshalResultJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
