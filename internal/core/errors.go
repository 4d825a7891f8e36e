package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input, rejected at the boundary
	ErrCatAgent      ErrorCategory = "agent"      // Remote stage invocation failure
	ErrCatModel      ErrorCategory = "model"      // Model backend invocation failure
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatConflict   ErrorCategory = "conflict"   // Concurrent modification
	ErrCatNotReady   ErrorCategory = "not_ready"  // Results requested before completion
	ErrCatState      ErrorCategory = "state"      // Internal consistency violation
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Cause    error
	Details  map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{Category: ErrCatValidation, Code: code, Message: message}
}

// ErrAgent creates a stage invocation error. The workflow treats every
// agent failure as fatal.
func ErrAgent(code, message string) *DomainError {
	return &DomainError{Category: ErrCatAgent, Code: code, Message: message}
}

// ErrAgentUnreachable creates a transport-level stage failure.
func ErrAgentUnreachable(stage Stage, cause error) *DomainError {
	return &DomainError{
		Category: ErrCatAgent,
		Code:     CodeAgentUnreachable,
		Message:  fmt.Sprintf("stage %s is unreachable", stage),
		Cause:    cause,
	}
}

// ErrAgentRejected creates an error for a stage that returned a
// non-success status.
func ErrAgentRejected(stage Stage, message string) *DomainError {
	return &DomainError{
		Category: ErrCatAgent,
		Code:     CodeAgentRejected,
		Message:  fmt.Sprintf("stage %s rejected the request: %s", stage, message),
	}
}

// ErrAgentTimeout creates an error for a stage call that exceeded its
// deadline.
func ErrAgentTimeout(stage Stage) *DomainError {
	return &DomainError{
		Category: ErrCatAgent,
		Code:     CodeAgentTimeout,
		Message:  fmt.Sprintf("stage %s timed out", stage),
	}
}

// ErrModel creates a model backend error.
func ErrModel(code, message string) *DomainError {
	return &DomainError{Category: ErrCatModel, Code: code, Message: message}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category: ErrCatNotFound,
		Code:     CodeNotFound,
		Message:  fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrConflict creates a concurrent modification error.
func ErrConflict(message string) *DomainError {
	return &DomainError{Category: ErrCatConflict, Code: CodeConflict, Message: message}
}

// ErrAlreadyExists creates an id collision error.
func ErrAlreadyExists(id WorkflowID) *DomainError {
	return &DomainError{
		Category: ErrCatConflict,
		Code:     CodeAlreadyExists,
		Message:  fmt.Sprintf("workflow already exists: %s", id),
	}
}

// ErrNotReady creates a results-before-completion error.
func ErrNotReady(id WorkflowID, status WorkflowStatus) *DomainError {
	return &DomainError{
		Category: ErrCatNotReady,
		Code:     CodeNotReady,
		Message:  fmt.Sprintf("workflow %s is not completed (status: %s)", id, status),
	}
}

// ErrState creates an internal consistency error. These indicate bugs
// and must be surfaced loudly, never masked with partial data.
func ErrState(code, message string) *DomainError {
	return &DomainError{Category: ErrCatState, Code: code, Message: message}
}

// ErrIncompleteResults reports a completed workflow with a missing
// stage payload.
func ErrIncompleteResults(id WorkflowID, missing Stage) *DomainError {
	return &DomainError{
		Category: ErrCatState,
		Code:     CodeIncompleteResults,
		Message:  fmt.Sprintf("workflow %s is completed but has no result for stage %s", id, missing),
		Details:  map[string]interface{}{"missing_stage": string(missing)},
	}
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes
const (
	CodeWorkflowIDRequired = "WORKFLOW_ID_REQUIRED"
	CodeEmptyInput         = "EMPTY_INPUT"
	CodeInputTooShort      = "INPUT_TOO_SHORT"
	CodeInputTooLong       = "INPUT_TOO_LONG"
	CodeInvalidConfig      = "INVALID_CONFIG"

	CodeAgentUnreachable = "AGENT_UNREACHABLE"
	CodeAgentRejected    = "AGENT_REJECTED"
	CodeAgentTimeout     = "AGENT_TIMEOUT"

	CodeModelAccessDenied = "MODEL_ACCESS_DENIED"
	CodeModelBadRequest   = "MODEL_BAD_REQUEST"
	CodeModelUnavailable  = "MODEL_UNAVAILABLE"
	CodeUnknownModel      = "UNKNOWN_MODEL"

	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeAlreadyExists = "ALREADY_EXISTS"
	CodeNotReady      = "NOT_READY"

	CodeInvalidState      = "INVALID_STATE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeIncompleteResults = "INCOMPLETE_RESULTS"
	CodeWorkflowBusy      = "WORKFLOW_BUSY"
)
