// Package apperrors provides the structured error type shared across cmdpilot's
// execution orchestration subsystem.
package apperrors

import "fmt"

// Code identifies a class of failure, matching the error kinds enumerated in
// the orchestration spec.
type Code string

const (
	CodeSpawn              Code = "SPAWN"               // argv could not be executed
	CodeTimeout            Code = "TIMEOUT"             // wall-clock deadline exceeded
	CodeSignalled          Code = "SIGNALLED"           // process killed by signal
	CodeExit               Code = "EXIT"                // non-zero exit code
	CodeUnsafeCommand      Code = "UNSAFE_COMMAND"      // rejected without approval
	CodeMalformedPredicate Code = "MALFORMED_PREDICATE" // predicate grammar violation
	CodeMissingVariable    Code = "MISSING_VARIABLE"    // required variable absent
	CodeCycleDetected      Code = "CYCLE_DETECTED"      // dependency graph has a cycle
	CodeUnknownStep        Code = "UNKNOWN_STEP"        // referenced step id does not exist
	CodeAIUnavailable      Code = "AI_UNAVAILABLE"      // AI collaborator call failed
	CodeAIMalformed        Code = "AI_MALFORMED"        // AI collaborator returned bad data
	CodeCancelled          Code = "CANCELLED"           // user or timeout cancellation
	CodeRollbackIncomplete Code = "ROLLBACK_INCOMPLETE" // at least one reverse op failed
	CodeStuck              Code = "STUCK"               // workflow cannot make progress
	CodeSchemaTooNew       Code = "SCHEMA_TOO_NEW"      // imported package schema is newer than supported
	CodeValidationFailed   Code = "VALIDATION_FAILED"   // plan/step validation failed
	CodeNotFound           Code = "NOT_FOUND"           // named resource does not exist
)

// Error is a structured error carrying a code, the domain (component) that
// raised it, a human message, and an optional wrapped cause.
type Error struct {
	Code    Code
	Domain  string
	Message string
	Cause   error
}

// New constructs an Error.
func New(code Code, domain, message string, cause error) *Error {
	return &Error{Code: code, Domain: domain, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Domain, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Domain, e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by Code, so errors.Is(err, apperrors.New(CodeStuck, "", "", nil)) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// CodeOf extracts the Code from err if it is (or wraps) an *Error, else "".
func CodeOf(err error) Code {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return ""
	}
	return e.Code
}
