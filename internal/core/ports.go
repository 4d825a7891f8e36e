package core

import (
	"context"
	"encoding/json"
)

// =============================================================================
// Agent port
// =============================================================================

// StageRequest is the invocation envelope sent to a remote stage.
type StageRequest struct {
	Stage        Stage                     `json:"stage_name"`
	InputPayload string                    `json:"input_payload"`
	PriorResults map[Stage]json.RawMessage `json:"prior_results,omitempty"`
}

// StageResponse is the envelope returned by a remote stage.
type StageResponse struct {
	Status       string          `json:"status"` // "success" or "error"
	Payload      json.RawMessage `json:"payload,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// AgentClient invokes one remote analysis stage. Implementations carry
// no state beyond connection configuration and are safe for concurrent
// use; persistence belongs to the coordinator.
type AgentClient interface {
	// Name returns the adapter identifier (e.g., "http", "static").
	Name() string

	// Invoke calls the stage with a bounded timeout and returns its
	// payload, or an agent-category DomainError (unreachable, rejected,
	// timeout).
	Invoke(ctx context.Context, req StageRequest) (json.RawMessage, error)
}

// StageInvoker resolves a pipeline stage to the client that executes
// it. The registry is closed at construction; unknown stages are
// rejected at startup, not at call time.
type StageInvoker interface {
	// Invoke runs the given stage.
	Invoke(ctx context.Context, req StageRequest) (json.RawMessage, error)

	// Stages returns the stages this invoker can execute.
	Stages() []Stage
}

// =============================================================================
// Model port
// =============================================================================

// GenerateOptions configures one model invocation.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// ModelInvoker invokes a language-model backend. Both supported wire
// formats are normalized to plain text; failures surface as
// model-category DomainErrors, never silent fallbacks.
type ModelInvoker interface {
	// Generate produces text for the prompt using the named model.
	Generate(ctx context.Context, modelID, prompt string, opts GenerateOptions) (string, error)

	// Models returns the model IDs known to this invoker.
	Models() []string
}

// =============================================================================
// Store port
// =============================================================================

// WorkflowMutator inspects and modifies a workflow inside an atomic
// status update. Returning an error aborts the update.
type WorkflowMutator func(w *Workflow) error

// WorkflowStore is the durable record of workflows and their stage
// results. It is the only shared mutable state in the system.
type WorkflowStore interface {
	// Create persists a new workflow. Fails with an already-exists
	// conflict when the id collides.
	Create(ctx context.Context, w *Workflow) error

	// Get returns the workflow or a not-found error.
	Get(ctx context.Context, id WorkflowID) (*Workflow, error)

	// UpdateStatus applies the mutator atomically with respect to
	// concurrent writers for the same workflow. Two stage-completion
	// updates must never interleave into an inconsistent state.
	UpdateStatus(ctx context.Context, id WorkflowID, mutate WorkflowMutator) (*Workflow, error)

	// ListByOwner returns workflows submitted by the owner, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*Workflow, error)

	// ListByStatus returns workflows in the given status, newest first.
	ListByStatus(ctx context.Context, status WorkflowStatus) ([]*Workflow, error)

	// SaveStageResult records a stage output, overwriting any previous
	// result for the same (workflow, stage) pair.
	SaveStageResult(ctx context.Context, result *StageResult) error

	// ListStageResults returns all recorded results for a workflow.
	ListStageResults(ctx context.Context, id WorkflowID) ([]*StageResult, error)

	// Close releases store resources.
	Close() error
}
