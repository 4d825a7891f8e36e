package core

import (
	"encoding/json"
	"time"
)

// StageResult is the durable output record of one stage for one
// workflow. At most one result exists per (workflow, stage) pair;
// later writes overwrite.
type StageResult struct {
	WorkflowID WorkflowID
	Stage      Stage
	Payload    json.RawMessage
	RecordedAt time.Time
}

// NewStageResult creates a stage result from an arbitrary payload.
func NewStageResult(id WorkflowID, stage Stage, payload interface{}) (*StageResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, ErrState(CodeInvalidState, "stage payload is not serializable").WithCause(err)
	}
	return &StageResult{
		WorkflowID: id,
		Stage:      stage,
		Payload:    raw,
		RecordedAt: time.Now().UTC(),
	}, nil
}

// ConsensusRole identifies a position in the multi-model consensus
// sub-pipeline.
type ConsensusRole string

const (
	RolePrimary    ConsensusRole = "primary"
	RoleValidation ConsensusRole = "validation"
	RoleSynthesis  ConsensusRole = "synthesis"
)

// AllRoles returns the consensus roles in invocation order.
func AllRoles() []ConsensusRole {
	return []ConsensusRole{RolePrimary, RoleValidation, RoleSynthesis}
}

// ConsensusStep records one model call within a consensus run. Steps
// are ephemeral; only the assembled report is persisted.
type ConsensusStep struct {
	Role       ConsensusRole `json:"role"`
	ModelID    string        `json:"model_id"`
	ModelName  string        `json:"model_name"`
	OutputText string        `json:"output_text"`
	Succeeded  bool          `json:"succeeded"`
}

// Confidence labels for consensus reports. The high label is only used
// when all three roles produced output.
const (
	ConfidenceHigh     = "high, multi-model consensus"
	ConfidenceDegraded = "degraded, partial model consensus"
)

// ConsensusReport is the assembled output of a consensus run.
type ConsensusReport struct {
	ExecutiveSummary string   `json:"executive_summary"`
	DetailedAnalysis string   `json:"detailed_analysis"`
	ValidationNotes  string   `json:"validation_notes"`
	ConfidenceLabel  string   `json:"confidence_label"`
	ModelsUsed       []string `json:"models_used"`
}

// AnalysisResults is the externally returned aggregate for a completed
// workflow, keyed by stage name.
type AnalysisResults struct {
	WorkflowID  WorkflowID                `json:"workflow_id"`
	Stages      map[Stage]json.RawMessage `json:"stages"`
	CompletedAt time.Time                 `json:"completed_at"`
	Metadata    map[string]string         `json:"metadata,omitempty"`
}
