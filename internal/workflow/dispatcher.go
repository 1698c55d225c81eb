package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/Azure/cmdpilot/internal/apperrors"
	"github.com/Azure/cmdpilot/internal/command"
	"github.com/Azure/cmdpilot/internal/logging"
	"github.com/Azure/cmdpilot/internal/rollbacklog"
	"github.com/Azure/cmdpilot/internal/vars"
)

// waitPollInterval is the polling cadence for wait-with-predicate steps
// (spec §4.5).
const waitPollInterval = 5 * time.Second

// customCodeWallClock and customCodeMaxOutput bound custom-code steps
// (spec §9).
const (
	customCodeWallClock  = 30 * time.Second
	customCodeMaxOutput  = 1 << 20
)

// Notifier is the fire-and-forget notification collaborator (spec §6).
type Notifier interface {
	Notify(title, body, severity string) error
}

// Dispatcher executes one Step at a time, dispatching on Kind (spec §4.5).
// It holds the collaborators a Step might need; the Workflow Engine owns the
// Variable Store and Rollback Transaction and passes them in per call so a
// Dispatcher instance is reusable across concurrent workflow executions.
type Dispatcher struct {
	Runner      command.Execer
	HTTPClient  *retryablehttp.Client
	Notifier    Notifier
	Interpreter string // interpreter binary for custom-code steps, e.g. "python3"
}

// NewDispatcher builds a Dispatcher with sane defaults. The api-step HTTP
// client retries transient failures with backoff rather than failing a step
// on the first dropped connection.
func NewDispatcher(runner command.Execer, notifier Notifier) *Dispatcher {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 2
	hc.HTTPClient.Timeout = 30 * time.Second
	hc.Logger = nil
	return &Dispatcher{
		Runner:      runner,
		HTTPClient:  hc,
		Notifier:    notifier,
		Interpreter: "python3",
	}
}

// Dispatch runs one Step and returns its StepResult. store has already had
// no substitution performed on it by the caller; Dispatch performs
// substitution on every kind-specific string field before acting (spec
// §4.5).
func (d *Dispatcher) Dispatch(ctx context.Context, plan *Plan, step Step, store *vars.Store, tx *rollbacklog.Transaction) StepResult {
	start := time.Now()
	var res StepResult

	switch step.Kind {
	case KindCommand, KindTool:
		res = d.dispatchCommand(ctx, step, store, tx)
	case KindAPI:
		res = d.dispatchAPI(ctx, step, store)
	case KindDecision:
		res = d.dispatchDecision(ctx, step, store)
	case KindValidation:
		res = d.dispatchValidation(ctx, step, store)
	case KindWait:
		res = d.dispatchWait(ctx, step, store)
	case KindParallel:
		res = d.dispatchParallel(ctx, plan, step, store, tx)
	case KindCustomCode:
		res = d.dispatchCustomCode(ctx, step, store)
	case KindNotification:
		res = d.dispatchNotification(step, store)
	default:
		res = StepResult{Success: false, ErrorKind: string(apperrors.CodeUnknownStep),
			ErrorMessage: fmt.Sprintf("unknown step kind %q", step.Kind)}
	}

	res.Elapsed = time.Since(start)
	return res
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, step Step, store *vars.Store, tx *rollbacklog.Transaction) StepResult {
	substituted := store.Substitute(step.Command)

	prep := prepareFileMutation(tx, substituted)

	req := command.Request{Command: substituted, WorkingDir: step.WorkingDir, Env: step.Env, Timeout: step.Timeout}
	cr, err := d.Runner.Run(ctx, req)

	res := StepResult{
		Success: cr.Success, ExitCode: cr.ExitCode, Stdout: cr.Stdout, Stderr: cr.Stderr,
	}
	if err != nil {
		res.ErrorKind = string(cr.ErrorKind)
		res.ErrorMessage = cr.ErrMessage
	}
	if cr.Success {
		res.Variables = vars.Extract(cr.Stdout, step.ProducedVariables)
	}

	if tx != nil {
		op := finalizeFileMutation(prep, substituted, cr.Success)
		if appendErr := tx.Append(op); appendErr != nil {
			logging.Warn("workflow: failed to record " + string(op.Kind) + " operation: " + appendErr.Error())
		}
	}
	return res
}

func (d *Dispatcher) dispatchAPI(ctx context.Context, step Step, store *vars.Store) StepResult {
	url := store.Substitute(step.URL)
	method := store.Substitute(step.Method)
	if method == "" {
		method = http.MethodGet
	}
	body := store.Substitute(step.Body)

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, strings.NewReader(body))
	if err != nil {
		return StepResult{Success: false, ErrorKind: string(apperrors.CodeSpawn), ErrorMessage: err.Error()}
	}
	for k, v := range step.Headers {
		req.Header.Set(store.Substitute(k), store.Substitute(v))
	}
	if req.Header.Get("Content-Type") == "" && body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return StepResult{Success: false, ErrorKind: string(apperrors.CodeAIUnavailable), ErrorMessage: err.Error()}
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)

	res := StepResult{
		Success:  resp.StatusCode >= 200 && resp.StatusCode < 300,
		ExitCode: resp.StatusCode,
		Stdout:   buf.String(),
	}
	if !res.Success {
		res.ErrorMessage = fmt.Sprintf("http status %d", resp.StatusCode)
	}

	var asJSON map[string]interface{}
	if json.Unmarshal(buf.Bytes(), &asJSON) == nil {
		res.Variables = make(map[string]string, len(step.ProducedVariables))
		for _, name := range step.ProducedVariables {
			if v, ok := asJSON[name]; ok {
				res.Variables[name] = vars.FormatValue(v)
			}
		}
	}
	return res
}

func (d *Dispatcher) dispatchDecision(ctx context.Context, step Step, store *vars.Store) StepResult {
	_, truthy, err := EvaluatePredicate(ctx, d.Runner, store, store.Substitute(step.Predicate))
	if err != nil {
		return StepResult{Success: false, ErrorKind: string(apperrors.CodeOf(err)), ErrorMessage: err.Error()}
	}
	return StepResult{Success: truthy, Truthy: truthy, EvaluationOK: true}
}

func (d *Dispatcher) dispatchValidation(ctx context.Context, step Step, store *vars.Store) StepResult {
	ok, truthy, err := EvaluatePredicate(ctx, d.Runner, store, store.Substitute(step.Predicate))
	if err != nil {
		return StepResult{Success: false, EvaluationOK: ok, ErrorKind: string(apperrors.CodeOf(err)), ErrorMessage: err.Error()}
	}
	// validation distinguishes success-of-evaluation from predicate truthiness
	// (spec §4.5); the step itself is considered successful once it evaluates.
	return StepResult{Success: true, EvaluationOK: ok, Truthy: truthy}
}

func (d *Dispatcher) dispatchWait(ctx context.Context, step Step, store *vars.Store) StepResult {
	if step.Predicate == "" {
		select {
		case <-time.After(step.WaitDuration):
			return StepResult{Success: true}
		case <-ctx.Done():
			return StepResult{Success: false, ErrorKind: string(apperrors.CodeCancelled), ErrorMessage: ctx.Err().Error()}
		}
	}

	deadline := time.Now().Add(step.Timeout)
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()
	for {
		_, truthy, err := EvaluatePredicate(ctx, d.Runner, store, store.Substitute(step.Predicate))
		if err != nil {
			return StepResult{Success: false, ErrorKind: string(apperrors.CodeOf(err)), ErrorMessage: err.Error()}
		}
		if truthy {
			return StepResult{Success: true, Truthy: true}
		}
		if step.Timeout > 0 && time.Now().After(deadline) {
			return StepResult{Success: false, ErrorKind: string(apperrors.CodeTimeout), ErrorMessage: "wait predicate did not become true before timeout"}
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return StepResult{Success: false, ErrorKind: string(apperrors.CodeCancelled), ErrorMessage: ctx.Err().Error()}
		}
	}
}

// dispatchParallel runs this step's named children concurrently through
// Dispatch and succeeds iff all children succeed (spec §4.5). The Workflow
// Engine normally schedules children itself via the dependency graph; this
// path exists for a parallel step nested inside another plan's step list
// that names children not otherwise wired into the graph.
func (d *Dispatcher) dispatchParallel(ctx context.Context, plan *Plan, step Step, store *vars.Store, tx *rollbacklog.Transaction) StepResult {
	type childOutcome struct {
		id  string
		res StepResult
	}
	results := make(chan childOutcome, len(step.Children))
	for _, childID := range step.Children {
		child, ok := plan.Steps[childID]
		if !ok {
			return StepResult{Success: false, ErrorKind: string(apperrors.CodeUnknownStep),
				ErrorMessage: "parallel step references unknown child " + childID}
		}
		go func(c Step) {
			results <- childOutcome{id: c.ID, res: d.Dispatch(ctx, plan, c, store, tx)}
		}(child)
	}

	allOK := true
	for range step.Children {
		out := <-results
		if !out.res.Success {
			allOK = false
		}
	}
	return StepResult{Success: allOK}
}

func (d *Dispatcher) dispatchCustomCode(ctx context.Context, step Step, store *vars.Store) StepResult {
	interp := d.Interpreter
	if interp == "" {
		interp = "python3"
	}
	childCtx, cancel := context.WithTimeout(ctx, customCodeWallClock)
	defer cancel()

	input, err := json.Marshal(store.Snapshot())
	if err != nil {
		return StepResult{Success: false, ErrorKind: string(apperrors.CodeSpawn), ErrorMessage: err.Error()}
	}

	cmd := exec.CommandContext(childCtx, interp, "-c", store.Substitute(step.Code))
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout, limit: customCodeMaxOutput}
	cmd.Stderr = &limitedWriter{w: &stderr, limit: customCodeMaxOutput}

	runErr := cmd.Run()
	if runErr != nil {
		kind := apperrors.CodeExit
		if childCtx.Err() == context.DeadlineExceeded {
			kind = apperrors.CodeTimeout
		}
		return StepResult{Success: false, Stderr: stderr.String(), ErrorKind: string(kind), ErrorMessage: runErr.Error()}
	}

	res := StepResult{Success: true, Stdout: stdout.String(), Stderr: stderr.String()}
	var transformed interface{}
	if json.Unmarshal(stdout.Bytes(), &transformed) == nil {
		res.Transformed = transformed
	}
	return res
}

// RunTransform evaluates a DataFlow edge's transform code against one input
// value and returns the transformed value (spec §9: "a sandboxed pure
// function from one value to one value"). It uses the same short-lived
// subprocess idiom as custom-code steps: the input value is passed on
// stdin and the transformed value is read back from stdout, trimmed of a
// trailing newline.
func (d *Dispatcher) RunTransform(ctx context.Context, code, input string) (string, error) {
	interp := d.Interpreter
	if interp == "" {
		interp = "python3"
	}
	childCtx, cancel := context.WithTimeout(ctx, customCodeWallClock)
	defer cancel()

	cmd := exec.CommandContext(childCtx, interp, "-c", code)
	cmd.Stdin = strings.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout, limit: customCodeMaxOutput}
	cmd.Stderr = &limitedWriter{w: &stderr, limit: customCodeMaxOutput}

	if err := cmd.Run(); err != nil {
		if childCtx.Err() == context.DeadlineExceeded {
			return "", apperrors.New(apperrors.CodeTimeout, "workflow", "transform exceeded wall clock", err)
		}
		return "", apperrors.New(apperrors.CodeExit, "workflow", strings.TrimSpace(stderr.String()), err)
	}
	return strings.TrimRight(stdout.String(), "\n"), nil
}

func (d *Dispatcher) dispatchNotification(step Step, store *vars.Store) StepResult {
	if d.Notifier == nil {
		return StepResult{Success: true}
	}
	title := store.Substitute(step.Name)
	body := store.Substitute(step.Message)
	severity := step.Severity
	if severity == "" {
		severity = "info"
	}
	if err := d.Notifier.Notify(title, body, severity); err != nil {
		logging.Warn("workflow: notification delivery failed: " + err.Error())
	}
	return StepResult{Success: true}
}

// limitedWriter truncates writes past limit, matching the custom-code
// output cap (spec §9).
type limitedWriter struct {
	w      *bytes.Buffer
	limit  int
	cut    bool
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.cut {
		return len(p), nil
	}
	remaining := l.limit - l.w.Len()
	if remaining <= 0 {
		l.cut = true
		return len(p), nil
	}
	if len(p) > remaining {
		l.w.Write(p[:remaining])
		l.cut = true
		return len(p), nil
	}
	l.w.Write(p)
	return len(p), nil
}
