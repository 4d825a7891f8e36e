package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	err := ErrValidation(CodeEmptyInput, "no sequence data provided")
	msg := err.Error()

	if !strings.Contains(msg, string(ErrCatValidation)) {
		t.Errorf("Error() = %q, want category in message", msg)
	}
	if !strings.Contains(msg, CodeEmptyInput) {
		t.Errorf("Error() = %q, want code in message", msg)
	}
}

func TestDomainError_WithCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := ErrAgentUnreachable(StageGenomics, cause)

	if !errors.Is(err, err) {
		t.Error("error should match itself")
	}
	if errors.Unwrap(err) != cause {
		t.Error("Unwrap() should return the cause")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() = %q, want cause included", err.Error())
	}
}

func TestDomainError_Is(t *testing.T) {
	a := ErrAgentTimeout(StageDrug)
	b := ErrAgentTimeout(StageGenomics)

	// Same category and code match regardless of message.
	if !errors.Is(a, b) {
		t.Error("timeout errors with same code should match")
	}
	if errors.Is(a, ErrAgentRejected(StageDrug, "nope")) {
		t.Error("different codes should not match")
	}
}

func TestGetCategory(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"agent error", ErrAgentTimeout(StageGenomics), ErrCatAgent},
		{"model error", ErrModel(CodeModelUnavailable, "throttled"), ErrCatModel},
		{"not found", ErrNotFound("workflow", "wf-1"), ErrCatNotFound},
		{"not ready", ErrNotReady("wf-1", WorkflowStatusGenomics), ErrCatNotReady},
		{"incomplete results", ErrIncompleteResults("wf-1", StageDrug), ErrCatState},
		{"plain error", errors.New("boom"), ErrCatInternal},
		{"wrapped domain error", fmt.Errorf("outer: %w", ErrConflict("lost update")), ErrCatConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCategory(tt.err); got != tt.want {
				t.Errorf("GetCategory() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestErrIncompleteResults_Details(t *testing.T) {
	err := ErrIncompleteResults("wf-9", StageLiterature)
	if err.Details["missing_stage"] != "literature" {
		t.Errorf("Details[missing_stage] = %v, want literature", err.Details["missing_stage"])
	}
}
