package core

import (
	"time"
)

// WorkflowID uniquely identifies one analysis run.
type WorkflowID string

// WorkflowStatus represents the current state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusInitiated  WorkflowStatus = "initiated"
	WorkflowStatusGenomics   WorkflowStatus = "genomics_processing"
	WorkflowStatusProteomics WorkflowStatus = "proteomics_processing"
	WorkflowStatusLiterature WorkflowStatus = "literature_processing"
	WorkflowStatusDrug       WorkflowStatus = "drug_processing"
	WorkflowStatusReport     WorkflowStatus = "report_generation"
	WorkflowStatusCompleted  WorkflowStatus = "completed"
	WorkflowStatusFailed     WorkflowStatus = "failed"
)

// AllStatuses returns every valid workflow status.
func AllStatuses() []WorkflowStatus {
	return []WorkflowStatus{
		WorkflowStatusInitiated,
		WorkflowStatusGenomics,
		WorkflowStatusProteomics,
		WorkflowStatusLiterature,
		WorkflowStatusDrug,
		WorkflowStatusReport,
		WorkflowStatusCompleted,
		WorkflowStatusFailed,
	}
}

// ValidStatus checks if a status string is valid.
func ValidStatus(s WorkflowStatus) bool {
	for _, status := range AllStatuses() {
		if status == s {
			return true
		}
	}
	return false
}

// Workflow represents one end-to-end analysis request.
type Workflow struct {
	ID              WorkflowID
	OwnerID         string
	Status          WorkflowStatus
	CurrentStage    Stage // empty when no stage is in flight
	ProgressPercent float64
	InputPayload    string
	ErrorMessage    string
	Metadata        map[string]string
	Version         int64 // optimistic concurrency counter, bumped by the store
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewWorkflow creates a workflow in its initial state.
func NewWorkflow(id WorkflowID, ownerID, input string, metadata map[string]string) *Workflow {
	now := time.Now().UTC()
	return &Workflow{
		ID:              id,
		OwnerID:         ownerID,
		Status:          WorkflowStatusInitiated,
		ProgressPercent: 0,
		InputPayload:    input,
		Metadata:        metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// IsTerminal returns true if the workflow is in a terminal state.
func (w *Workflow) IsTerminal() bool {
	return w.Status == WorkflowStatusCompleted || w.Status == WorkflowStatusFailed
}

// BeginStage marks a stage as in flight.
func (w *Workflow) BeginStage(s Stage) error {
	if w.IsTerminal() {
		return ErrState(CodeInvalidTransition, "cannot begin stage on terminal workflow")
	}
	w.Status = s.RunningStatus()
	w.CurrentStage = s
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// CompleteStage records the completion of a stage and recomputes
// progress. Progress never decreases while the workflow is running.
func (w *Workflow) CompleteStage(s Stage) error {
	if w.IsTerminal() {
		return ErrState(CodeInvalidTransition, "cannot complete stage on terminal workflow")
	}
	if w.CurrentStage != s {
		// A replayed completion for an earlier stage must not move the
		// workflow backward.
		return ErrState(CodeInvalidTransition, "stage "+string(s)+" is not in flight")
	}
	total := len(AllStages())
	completed := StageOrder(s) + 1
	pct := float64(completed) / float64(total) * 100
	if pct > w.ProgressPercent {
		w.ProgressPercent = pct
	}
	if next := NextStage(s); next != "" {
		w.CurrentStage = next
		w.Status = next.RunningStatus()
	} else {
		w.complete()
	}
	w.UpdatedAt = time.Now().UTC()
	return nil
}

func (w *Workflow) complete() {
	w.Status = WorkflowStatusCompleted
	w.CurrentStage = ""
	w.ProgressPercent = 100
	w.ErrorMessage = ""
}

// Fail transitions the workflow to the terminal failed state.
// The failed stage is kept in CurrentStage for diagnosis.
func (w *Workflow) Fail(err error) {
	w.Status = WorkflowStatusFailed
	if err != nil {
		w.ErrorMessage = err.Error()
	} else {
		w.ErrorMessage = "unknown failure"
	}
	w.UpdatedAt = time.Now().UTC()
}

// Validate checks workflow invariants.
func (w *Workflow) Validate() error {
	if w.ID == "" {
		return ErrValidation(CodeWorkflowIDRequired, "workflow ID cannot be empty")
	}
	if w.InputPayload == "" {
		return ErrValidation(CodeEmptyInput, "input payload cannot be empty")
	}
	if !ValidStatus(w.Status) {
		return ErrState(CodeInvalidState, "unknown workflow status: "+string(w.Status))
	}
	if w.Status == WorkflowStatusCompleted && w.ProgressPercent != 100 {
		return ErrState(CodeInvalidState, "completed workflow must be at 100% progress")
	}
	if w.Status == WorkflowStatusFailed && w.ErrorMessage == "" {
		return ErrState(CodeInvalidState, "failed workflow must carry an error message")
	}
	if !w.IsTerminal() && w.Status != WorkflowStatusInitiated && w.CurrentStage == "" {
		return ErrState(CodeInvalidState, "running workflow must have a current stage")
	}
	return nil
}

// Clone returns a deep copy. Store implementations hand out clones so
// callers never share mutable state.
func (w *Workflow) Clone() *Workflow {
	dup := *w
	if w.Metadata != nil {
		dup.Metadata = make(map[string]string, len(w.Metadata))
		for k, v := range w.Metadata {
			dup.Metadata[k] = v
		}
	}
	return &dup
}

// MinInputLength is the minimum accepted sequence length. Anything
// shorter cannot produce a meaningful genomics reading.
const MinInputLength = 8

// MaxInputLength bounds the accepted payload size.
const MaxInputLength = 10_000_000

// ValidateInput checks a submitted payload before any state is created.
func ValidateInput(input string) error {
	return ValidateInputMin(input, MinInputLength)
}

// ValidateInputMin is ValidateInput with a caller-chosen minimum length.
func ValidateInputMin(input string, minLen int) error {
	if minLen < 1 {
		minLen = MinInputLength
	}
	if input == "" {
		return ErrValidation(CodeEmptyInput, "no sequence data provided")
	}
	if len(input) < minLen {
		return ErrValidation(CodeInputTooShort, "sequence data is too short for analysis")
	}
	if len(input) > MaxInputLength {
		return ErrValidation(CodeInputTooLong, "sequence data exceeds maximum size")
	}
	return nil
}
