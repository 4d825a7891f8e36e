package events

// Event type constants.
const (
	TypeWorkflowStarted   = "workflow_started"
	TypeStageStarted      = "stage_started"
	TypeStageCompleted    = "stage_completed"
	TypeWorkflowCompleted = "workflow_completed"
	TypeWorkflowFailed    = "workflow_failed"
	TypeConsensusStep     = "consensus_step"
)

// WorkflowStartedEvent is emitted when a workflow is created.
type WorkflowStartedEvent struct {
	BaseEvent
	OwnerID     string `json:"owner_id"`
	InputLength int    `json:"input_length"`
}

// NewWorkflowStartedEvent creates a new workflow started event.
func NewWorkflowStartedEvent(workflowID, ownerID string, inputLength int) WorkflowStartedEvent {
	return WorkflowStartedEvent{
		BaseEvent:   NewBaseEvent(TypeWorkflowStarted, workflowID),
		OwnerID:     ownerID,
		InputLength: inputLength,
	}
}

// StageStartedEvent is emitted when a stage begins executing.
type StageStartedEvent struct {
	BaseEvent
	Stage string `json:"stage"`
}

// NewStageStartedEvent creates a new stage started event.
func NewStageStartedEvent(workflowID, stage string) StageStartedEvent {
	return StageStartedEvent{
		BaseEvent: NewBaseEvent(TypeStageStarted, workflowID),
		Stage:     stage,
	}
}

// StageCompletedEvent is emitted when a stage result is durably
// recorded.
type StageCompletedEvent struct {
	BaseEvent
	Stage           string  `json:"stage"`
	ProgressPercent float64 `json:"progress_percent"`
}

// NewStageCompletedEvent creates a new stage completed event.
func NewStageCompletedEvent(workflowID, stage string, progress float64) StageCompletedEvent {
	return StageCompletedEvent{
		BaseEvent:       NewBaseEvent(TypeStageCompleted, workflowID),
		Stage:           stage,
		ProgressPercent: progress,
	}
}

// WorkflowCompletedEvent is emitted once when a workflow reaches the
// completed state.
type WorkflowCompletedEvent struct {
	BaseEvent
	Stages int `json:"stages"`
}

// NewWorkflowCompletedEvent creates a new workflow completed event.
func NewWorkflowCompletedEvent(workflowID string, stages int) WorkflowCompletedEvent {
	return WorkflowCompletedEvent{
		BaseEvent: NewBaseEvent(TypeWorkflowCompleted, workflowID),
		Stages:    stages,
	}
}

// WorkflowFailedEvent is emitted once when a workflow fails.
type WorkflowFailedEvent struct {
	BaseEvent
	Stage        string `json:"stage"`
	ErrorMessage string `json:"error_message"`
}

// NewWorkflowFailedEvent creates a new workflow failed event.
func NewWorkflowFailedEvent(workflowID, stage, errorMessage string) WorkflowFailedEvent {
	return WorkflowFailedEvent{
		BaseEvent:    NewBaseEvent(TypeWorkflowFailed, workflowID),
		Stage:        stage,
		ErrorMessage: errorMessage,
	}
}

// ConsensusStepEvent is emitted after each role in a consensus run.
type ConsensusStepEvent struct {
	BaseEvent
	Role      string `json:"role"`
	ModelID   string `json:"model_id"`
	Succeeded bool   `json:"succeeded"`
}

// NewConsensusStepEvent creates a new consensus step event.
func NewConsensusStepEvent(workflowID, role, modelID string, succeeded bool) ConsensusStepEvent {
	return ConsensusStepEvent{
		BaseEvent: NewBaseEvent(TypeConsensusStep, workflowID),
		Role:      role,
		ModelID:   modelID,
		Succeeded: succeeded,
	}
}
