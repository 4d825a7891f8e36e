package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/biomerkin/biomerkin/internal/core"
	"github.com/biomerkin/biomerkin/internal/events"
	"github.com/biomerkin/biomerkin/internal/logging"
)

// DefaultStageTimeout bounds a single stage invocation. A slow stage
// fails the workflow rather than blocking it forever.
const DefaultStageTimeout = 5 * time.Minute

// CoordinatorConfig holds coordinator configuration.
type CoordinatorConfig struct {
	StageTimeout   time.Duration
	MinInputLength int
}

// DefaultCoordinatorConfig returns default configuration.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		StageTimeout:   DefaultStageTimeout,
		MinInputLength: core.MinInputLength,
	}
}

// Coordinator is the top-level workflow state machine. It walks the
// fixed stage ordering, dispatching each stage to the agent invoker
// except the decision stage, which runs the consensus pipeline. After
// every transition the workflow record is updated through the store's
// atomic mutator, so concurrent coordinators over the same store never
// corrupt a workflow.
type Coordinator struct {
	config    CoordinatorConfig
	store     core.WorkflowStore
	agents    core.StageInvoker
	consensus *ConsensusPipeline
	bus       *events.Bus
	logger    *logging.Logger

	// running tracks workflows this process is driving, so two local
	// callers cannot step the same workflow at once. Cross-process
	// discipline comes from the store's version check.
	mu      sync.Mutex
	running map[core.WorkflowID]struct{}
}

// NewCoordinator creates a workflow coordinator.
func NewCoordinator(
	config CoordinatorConfig,
	store core.WorkflowStore,
	agents core.StageInvoker,
	consensus *ConsensusPipeline,
	bus *events.Bus,
	logger *logging.Logger,
) *Coordinator {
	if config.StageTimeout <= 0 {
		config.StageTimeout = DefaultStageTimeout
	}
	if config.MinInputLength < 1 {
		config.MinInputLength = core.MinInputLength
	}
	return &Coordinator{
		config:    config,
		store:     store,
		agents:    agents,
		consensus: consensus,
		bus:       bus,
		logger:    logger,
		running:   make(map[core.WorkflowID]struct{}),
	}
}

// StartWorkflow validates the input, persists a new workflow in its
// initial state, and launches the stage loop in the background. The
// returned id can be polled immediately.
func (c *Coordinator) StartWorkflow(ctx context.Context, input, ownerID string, metadata map[string]string) (core.WorkflowID, error) {
	if err := core.ValidateInputMin(input, c.config.MinInputLength); err != nil {
		return "", err
	}

	w := core.NewWorkflow(core.WorkflowID(uuid.NewString()), ownerID, input, metadata)
	if err := c.store.Create(ctx, w); err != nil {
		return "", err
	}

	c.logger.WithWorkflow(string(w.ID)).Info("workflow started",
		"owner_id", ownerID,
		"input_length", len(input),
	)
	if c.bus != nil {
		c.bus.Publish(events.NewWorkflowStartedEvent(string(w.ID), ownerID, len(input)))
	}

	// The request context ends when the caller's request does; the
	// stage loop must outlive it.
	go c.drive(context.Background(), w.ID)

	return w.ID, nil
}

// Run executes a workflow synchronously: it creates the record and
// drives every stage before returning. Used by the CLI.
func (c *Coordinator) Run(ctx context.Context, input, ownerID string, metadata map[string]string) (*core.Workflow, error) {
	if err := core.ValidateInputMin(input, c.config.MinInputLength); err != nil {
		return nil, err
	}

	w := core.NewWorkflow(core.WorkflowID(uuid.NewString()), ownerID, input, metadata)
	if err := c.store.Create(ctx, w); err != nil {
		return nil, err
	}
	if c.bus != nil {
		c.bus.Publish(events.NewWorkflowStartedEvent(string(w.ID), ownerID, len(input)))
	}

	c.drive(ctx, w.ID)
	return c.store.Get(ctx, w.ID)
}

// drive steps the workflow until it reaches a terminal state. Stage
// failures are absorbed into the workflow record; callers observe them
// through polled status, never as returned errors.
func (c *Coordinator) drive(ctx context.Context, id core.WorkflowID) {
	// Wait for the running slot rather than giving up: a caller who
	// single-stepped the workflow holds it only briefly.
	for !c.acquire(id) {
		w, err := c.store.Get(ctx, id)
		if err != nil || w.IsTerminal() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
	defer c.release(id)

	for {
		w, err := c.store.Get(ctx, id)
		if err != nil {
			c.logger.WithWorkflow(string(id)).Error("loading workflow", "error", err)
			return
		}
		if w.IsTerminal() {
			return
		}
		if err := c.step(ctx, w); err != nil {
			// step already recorded the failure; nothing left to drive.
			return
		}
	}
}

// RunNextStage advances the workflow by exactly one stage. It is the
// single-step form of the loop in drive and shares its running-set
// guard.
func (c *Coordinator) RunNextStage(ctx context.Context, id core.WorkflowID) error {
	if !c.acquire(id) {
		return core.ErrConflict("workflow " + string(id) + " is already being advanced")
	}
	defer c.release(id)

	w, err := c.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if w.IsTerminal() {
		return core.ErrState(core.CodeInvalidTransition, "workflow "+string(id)+" is already "+string(w.Status))
	}
	return c.step(ctx, w)
}

// step runs the next pending stage for w: marks it running, invokes
// it, durably records the result, then advances status and progress.
// The result write strictly precedes the advance so a crash between
// the two re-runs the stage instead of skipping it.
func (c *Coordinator) step(ctx context.Context, w *core.Workflow) error {
	stage := w.CurrentStage
	if stage == "" {
		stage = core.FirstStage()
	}
	logger := c.logger.WithWorkflow(string(w.ID)).WithStage(string(stage))

	if _, err := c.store.UpdateStatus(ctx, w.ID, func(u *core.Workflow) error {
		return u.BeginStage(stage)
	}); err != nil {
		return err
	}
	if c.bus != nil {
		c.bus.Publish(events.NewStageStartedEvent(string(w.ID), string(stage)))
	}
	logger.Info("stage started")

	payload, err := c.invokeStage(ctx, w, stage)
	if err != nil {
		return c.fail(ctx, w.ID, stage, err)
	}

	result := &core.StageResult{
		WorkflowID: w.ID,
		Stage:      stage,
		Payload:    payload,
		RecordedAt: time.Now().UTC(),
	}
	if err := c.store.SaveStageResult(ctx, result); err != nil {
		return c.fail(ctx, w.ID, stage, err)
	}

	updated, err := c.store.UpdateStatus(ctx, w.ID, func(u *core.Workflow) error {
		return u.CompleteStage(stage)
	})
	if err != nil {
		return c.fail(ctx, w.ID, stage, err)
	}

	logger.Info("stage completed", "progress_percent", updated.ProgressPercent)
	if c.bus != nil {
		c.bus.Publish(events.NewStageCompletedEvent(string(w.ID), string(stage), updated.ProgressPercent))
		if updated.Status == core.WorkflowStatusCompleted {
			c.bus.Publish(events.NewWorkflowCompletedEvent(string(w.ID), len(core.AllStages())))
		}
	}
	if updated.Status == core.WorkflowStatusCompleted {
		logger.Info("workflow completed")
	}
	return nil
}

// invokeStage dispatches one stage with the configured timeout. The
// decision stage is model-based and runs the consensus pipeline; all
// other stages go to the agent invoker.
func (c *Coordinator) invokeStage(ctx context.Context, w *core.Workflow, stage core.Stage) (json.RawMessage, error) {
	stageCtx, cancel := context.WithTimeout(ctx, c.config.StageTimeout)
	defer cancel()

	if stage == core.StageDecision {
		report, _, err := c.consensus.Run(stageCtx, w.ID, w.InputPayload)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(report)
		if err != nil {
			return nil, core.ErrState(core.CodeInvalidState, "consensus report is not serializable").WithCause(err)
		}
		return payload, nil
	}

	prior, err := c.priorResults(stageCtx, w.ID)
	if err != nil {
		return nil, err
	}
	return c.agents.Invoke(stageCtx, core.StageRequest{
		Stage:        stage,
		InputPayload: w.InputPayload,
		PriorResults: prior,
	})
}

func (c *Coordinator) priorResults(ctx context.Context, id core.WorkflowID) (map[core.Stage]json.RawMessage, error) {
	results, err := c.store.ListStageResults(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	prior := make(map[core.Stage]json.RawMessage, len(results))
	for _, r := range results {
		prior[r.Stage] = r.Payload
	}
	return prior, nil
}

// fail records the terminal failure and returns the causing error.
// CurrentStage is left pointing at the failed stage for diagnosis.
func (c *Coordinator) fail(ctx context.Context, id core.WorkflowID, stage core.Stage, cause error) error {
	c.logger.WithWorkflow(string(id)).WithStage(string(stage)).Error("stage failed", "error", cause)

	if _, err := c.store.UpdateStatus(ctx, id, func(u *core.Workflow) error {
		u.Fail(cause)
		return nil
	}); err != nil {
		c.logger.WithWorkflow(string(id)).Error("recording failure", "error", err)
	}
	if c.bus != nil {
		c.bus.Publish(events.NewWorkflowFailedEvent(string(id), string(stage), cause.Error()))
	}
	return cause
}

// GetStatus returns the current workflow record.
func (c *Coordinator) GetStatus(ctx context.Context, id core.WorkflowID) (*core.Workflow, error) {
	return c.store.Get(ctx, id)
}

// GetResults returns the aggregated per-stage payloads for a completed
// workflow. Any other status yields a not-ready error.
func (c *Coordinator) GetResults(ctx context.Context, id core.WorkflowID) (*core.AnalysisResults, error) {
	w, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Status != core.WorkflowStatusCompleted {
		return nil, core.ErrNotReady(id, w.Status)
	}

	results, err := c.store.ListStageResults(ctx, id)
	if err != nil {
		return nil, err
	}
	aggregated, err := AggregateResults(w, results)
	if err != nil {
		// A completed workflow missing a stage payload is a coordinator
		// bug; surface it loudly instead of patching around it.
		c.logger.WithWorkflow(string(id)).Error("completed workflow has incomplete results", "error", err)
		return nil, err
	}
	return aggregated, nil
}

// ListByOwner returns the owner's workflows, newest first.
func (c *Coordinator) ListByOwner(ctx context.Context, ownerID string) ([]*core.Workflow, error) {
	return c.store.ListByOwner(ctx, ownerID)
}

// ListByStatus returns workflows in the given status, newest first.
func (c *Coordinator) ListByStatus(ctx context.Context, status core.WorkflowStatus) ([]*core.Workflow, error) {
	return c.store.ListByStatus(ctx, status)
}

// WaitForTerminal polls the store until the workflow reaches a
// terminal state or the context expires.
func (c *Coordinator) WaitForTerminal(ctx context.Context, id core.WorkflowID, interval time.Duration) (*core.Workflow, error) {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		w, err := c.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if w.IsTerminal() {
			return w, nil
		}
		select {
		case <-ctx.Done():
			return w, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Coordinator) acquire(id core.WorkflowID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.running[id]; busy {
		return false
	}
	c.running[id] = struct{}{}
	return true
}

func (c *Coordinator) release(id core.WorkflowID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.running, id)
}
