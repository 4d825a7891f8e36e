package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/biomerkin/biomerkin/internal/adapters/store"
	"github.com/biomerkin/biomerkin/internal/core"
	"github.com/biomerkin/biomerkin/internal/events"
	"github.com/biomerkin/biomerkin/internal/logging"
)

// stubAgents serves every non-decision stage with a canned payload and
// injectable per-stage failures.
type stubAgents struct {
	mu    sync.Mutex
	fail  map[core.Stage]error
	calls []core.Stage
}

func (s *stubAgents) Invoke(_ context.Context, req core.StageRequest) (json.RawMessage, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req.Stage)
	s.mu.Unlock()

	if err := s.fail[req.Stage]; err != nil {
		return nil, err
	}
	payload, _ := json.Marshal(map[string]string{"stage": string(req.Stage), "status": "ok"})
	return payload, nil
}

func (s *stubAgents) Stages() []core.Stage { return core.AllStages() }

func (s *stubAgents) invoked() []core.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Stage(nil), s.calls...)
}

func newTestCoordinator(agents core.StageInvoker, models core.ModelInvoker) (*Coordinator, core.WorkflowStore) {
	st := store.NewMemoryStore()
	consensus := NewConsensusPipeline(DefaultConsensusConfig(), models, nil, logging.NewNop())
	coord := NewCoordinator(DefaultCoordinatorConfig(), st, agents, consensus, nil, logging.NewNop())
	return coord, st
}

const testInput = "ATCGATCGATCGATCG"

func TestCoordinator_RunAllStagesSucceed(t *testing.T) {
	agents := &stubAgents{}
	coord, st := newTestCoordinator(agents, &stubModels{})
	ctx := context.Background()

	w, err := coord.Run(ctx, testInput, "owner-1", map[string]string{"source": "test"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if w.Status != core.WorkflowStatusCompleted {
		t.Errorf("status = %s, want completed", w.Status)
	}
	if w.ProgressPercent != 100 {
		t.Errorf("progress = %g, want 100", w.ProgressPercent)
	}
	if w.CurrentStage != "" {
		t.Errorf("current_stage = %s, want empty on completion", w.CurrentStage)
	}

	results, err := st.ListStageResults(ctx, w.ID)
	if err != nil {
		t.Fatalf("ListStageResults returned error: %v", err)
	}
	if len(results) != len(core.AllStages()) {
		t.Fatalf("got %d stage results, want %d", len(results), len(core.AllStages()))
	}
	for i, stage := range core.AllStages() {
		if results[i].Stage != stage {
			t.Errorf("result %d stage = %s, want %s", i, results[i].Stage, stage)
		}
	}

	// The decision stage is model-based: no agent call, and its payload
	// is the assembled consensus report.
	for _, stage := range agents.invoked() {
		if stage == core.StageDecision {
			t.Error("decision stage must not be dispatched to agents")
		}
	}
	var report core.ConsensusReport
	if err := json.Unmarshal(results[len(results)-1].Payload, &report); err != nil {
		t.Fatalf("decision payload is not a consensus report: %v", err)
	}
	if report.ConfidenceLabel != core.ConfidenceHigh {
		t.Errorf("confidence = %q, want %q", report.ConfidenceLabel, core.ConfidenceHigh)
	}

	aggregated, err := coord.GetResults(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetResults returned error: %v", err)
	}
	if len(aggregated.Stages) != len(core.AllStages()) {
		t.Errorf("aggregated stages = %d, want %d", len(aggregated.Stages), len(core.AllStages()))
	}
	if aggregated.Metadata["source"] != "test" {
		t.Errorf("metadata = %v, want source carried through", aggregated.Metadata)
	}
}

func TestCoordinator_StageFailureStopsPipeline(t *testing.T) {
	agents := &stubAgents{fail: map[core.Stage]error{
		core.StageLiterature: core.ErrAgentTimeout(core.StageLiterature),
	}}
	coord, st := newTestCoordinator(agents, &stubModels{})
	ctx := context.Background()

	w, err := coord.Run(ctx, testInput, "owner-1", nil)
	if err != nil {
		t.Fatalf("Run returned error: %v (stage failures stay inside the workflow)", err)
	}

	if w.Status != core.WorkflowStatusFailed {
		t.Errorf("status = %s, want failed", w.Status)
	}
	if w.CurrentStage != core.StageLiterature {
		t.Errorf("current_stage = %s, want the failed stage kept for diagnosis", w.CurrentStage)
	}
	if w.ErrorMessage == "" {
		t.Error("failed workflow must carry an error message")
	}

	results, err := st.ListStageResults(ctx, w.ID)
	if err != nil {
		t.Fatalf("ListStageResults returned error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d stage results, want exactly 2 (completed stages only)", len(results))
	}

	// No stage after the failed one may have run.
	for _, stage := range agents.invoked() {
		if core.StageOrder(stage) > core.StageOrder(core.StageLiterature) {
			t.Errorf("stage %s ran after the pipeline failed", stage)
		}
	}

	_, err = coord.GetResults(ctx, w.ID)
	if !core.IsCategory(err, core.ErrCatNotReady) {
		t.Errorf("GetResults on failed workflow = %v, want not_ready category", err)
	}
}

func TestCoordinator_PrimaryModelFailureFailsWorkflow(t *testing.T) {
	models := &stubModels{fail: map[string]error{
		"amazon.nova-pro-v1:0": core.ErrModel(core.CodeModelAccessDenied, "not entitled"),
	}}
	coord, st := newTestCoordinator(&stubAgents{}, models)
	ctx := context.Background()

	w, err := coord.Run(ctx, testInput, "owner-1", nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if w.Status != core.WorkflowStatusFailed {
		t.Errorf("status = %s, want failed when the primary consensus role fails", w.Status)
	}
	if w.CurrentStage != core.StageDecision {
		t.Errorf("current_stage = %s, want decision", w.CurrentStage)
	}

	results, _ := st.ListStageResults(ctx, w.ID)
	if len(results) != len(core.AllStages())-1 {
		t.Errorf("got %d stage results, want %d (all but decision)", len(results), len(core.AllStages())-1)
	}
}

func TestCoordinator_DegradedConsensusStillCompletes(t *testing.T) {
	models := &stubModels{fail: map[string]error{
		"openai.gpt-oss-120b-1:0": core.ErrModel(core.CodeModelUnavailable, "validation down"),
	}}
	coord, _ := newTestCoordinator(&stubAgents{}, models)
	ctx := context.Background()

	w, err := coord.Run(ctx, testInput, "owner-1", nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if w.Status != core.WorkflowStatusCompleted {
		t.Fatalf("status = %s, want completed despite degraded validation", w.Status)
	}

	aggregated, err := coord.GetResults(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetResults returned error: %v", err)
	}
	var report core.ConsensusReport
	if err := json.Unmarshal(aggregated.Stages[core.StageDecision], &report); err != nil {
		t.Fatalf("decision payload is not a consensus report: %v", err)
	}
	if report.ConfidenceLabel != core.ConfidenceDegraded {
		t.Errorf("confidence = %q, want %q", report.ConfidenceLabel, core.ConfidenceDegraded)
	}
	if report.ValidationNotes != validationUnavailableText {
		t.Errorf("validation notes = %q, want explicit placeholder", report.ValidationNotes)
	}
}

func TestCoordinator_StartWorkflowValidation(t *testing.T) {
	coord, st := newTestCoordinator(&stubAgents{}, &stubModels{})
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too short", "ATC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := coord.StartWorkflow(ctx, tt.input, "owner-1", nil)
			if !core.IsCategory(err, core.ErrCatValidation) {
				t.Errorf("StartWorkflow(%q) error = %v, want validation category", tt.input, err)
			}
		})
	}

	// Rejected input must leave no workflow behind.
	workflows, err := st.ListByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ListByOwner returned error: %v", err)
	}
	if len(workflows) != 0 {
		t.Errorf("got %d workflows after rejected input, want 0", len(workflows))
	}
}

func TestCoordinator_StartWorkflowAsync(t *testing.T) {
	coord, _ := newTestCoordinator(&stubAgents{}, &stubModels{})
	ctx := context.Background()

	id, err := coord.StartWorkflow(ctx, testInput, "owner-1", nil)
	if err != nil {
		t.Fatalf("StartWorkflow returned error: %v", err)
	}
	if id == "" {
		t.Fatal("StartWorkflow returned empty id")
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	w, err := coord.WaitForTerminal(waitCtx, id, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForTerminal returned error: %v", err)
	}
	if w.Status != core.WorkflowStatusCompleted {
		t.Errorf("status = %s, want completed", w.Status)
	}
}

func TestCoordinator_RunNextStageOnTerminalWorkflow(t *testing.T) {
	coord, _ := newTestCoordinator(&stubAgents{}, &stubModels{})
	ctx := context.Background()

	w, err := coord.Run(ctx, testInput, "owner-1", nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	err = coord.RunNextStage(ctx, w.ID)
	if !core.IsCategory(err, core.ErrCatState) {
		t.Errorf("RunNextStage on completed workflow = %v, want state category", err)
	}
}

func TestCoordinator_NoDoubleAdvance(t *testing.T) {
	coord, st := newTestCoordinator(&stubAgents{}, &stubModels{})
	ctx := context.Background()

	id, err := coord.StartWorkflow(ctx, testInput, "owner-1", nil)
	if err != nil {
		t.Fatalf("StartWorkflow returned error: %v", err)
	}

	// Hammer RunNextStage while the background loop is driving. Every
	// call must either advance cleanly or report a conflict; none may
	// interleave into a broken state.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := coord.RunNextStage(ctx, id)
			if err == nil {
				return
			}
			if !core.IsCategory(err, core.ErrCatConflict) && !core.IsCategory(err, core.ErrCatState) {
				t.Errorf("concurrent RunNextStage error = %v, want conflict or state category", err)
			}
		}()
	}
	wg.Wait()

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	w, err := coord.WaitForTerminal(waitCtx, id, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForTerminal returned error: %v", err)
	}

	if w.Status != core.WorkflowStatusCompleted {
		t.Fatalf("status = %s, want completed", w.Status)
	}
	if w.ProgressPercent != 100 {
		t.Errorf("progress = %g, want 100 (never past it)", w.ProgressPercent)
	}
	results, err := st.ListStageResults(ctx, id)
	if err != nil {
		t.Fatalf("ListStageResults returned error: %v", err)
	}
	if len(results) != len(core.AllStages()) {
		t.Errorf("got %d stage results, want exactly %d", len(results), len(core.AllStages()))
	}
}

func TestCoordinator_PublishesLifecycleEvents(t *testing.T) {
	bus := events.New(64)
	defer bus.Close()
	ch := bus.Subscribe(events.TypeWorkflowStarted, events.TypeStageCompleted, events.TypeWorkflowCompleted)

	st := store.NewMemoryStore()
	consensus := NewConsensusPipeline(DefaultConsensusConfig(), &stubModels{}, bus, logging.NewNop())
	coord := NewCoordinator(DefaultCoordinatorConfig(), st, &stubAgents{}, consensus, bus, logging.NewNop())

	if _, err := coord.Run(context.Background(), testInput, "owner-1", nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	counts := make(map[string]int)
	timeout := time.After(2 * time.Second)
	for counts[events.TypeWorkflowCompleted] == 0 {
		select {
		case ev := <-ch:
			counts[ev.EventType()]++
		case <-timeout:
			t.Fatalf("timed out waiting for completion event, saw %v", counts)
		}
	}

	if counts[events.TypeWorkflowStarted] != 1 {
		t.Errorf("workflow_started events = %d, want 1", counts[events.TypeWorkflowStarted])
	}
	if counts[events.TypeStageCompleted] != len(core.AllStages()) {
		t.Errorf("stage_completed events = %d, want %d", counts[events.TypeStageCompleted], len(core.AllStages()))
	}
}
