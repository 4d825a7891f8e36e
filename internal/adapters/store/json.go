package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"

	"github.com/biomerkin/biomerkin/internal/core"
)

const jsonSchemaVersion = 1

// JSONStore implements core.WorkflowStore with a single JSON file.
// All state is held in memory and flushed atomically on every
// mutation, so a crash never leaves a half-written file behind.
type JSONStore struct {
	path string

	mu        sync.RWMutex
	workflows map[core.WorkflowID]*core.Workflow
	results   map[core.WorkflowID]map[core.Stage]*core.StageResult
}

// fileEnvelope is the on-disk shape.
type fileEnvelope struct {
	Version   int              `json:"version"`
	UpdatedAt time.Time        `json:"updated_at"`
	Workflows []workflowRecord `json:"workflows"`
	Results   []resultRecord   `json:"stage_results"`
}

type workflowRecord struct {
	ID              core.WorkflowID     `json:"id"`
	OwnerID         string              `json:"owner_id"`
	Status          core.WorkflowStatus `json:"status"`
	CurrentStage    core.Stage          `json:"current_stage,omitempty"`
	ProgressPercent float64             `json:"progress_percent"`
	InputPayload    string              `json:"input_payload"`
	ErrorMessage    string              `json:"error_message,omitempty"`
	Metadata        map[string]string   `json:"metadata,omitempty"`
	Version         int64               `json:"version"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type resultRecord struct {
	WorkflowID core.WorkflowID `json:"workflow_id"`
	Stage      core.Stage      `json:"stage"`
	Payload    json.RawMessage `json:"payload"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// NewJSONStore opens the store, loading existing state when the file
// is present.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{
		path:      path,
		workflows: make(map[core.WorkflowID]*core.Workflow),
		results:   make(map[core.WorkflowID]map[core.Stage]*core.StageResult),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close flushes nothing; every mutation already persisted.
func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading state file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("parsing state file %s: %w", s.path, err)
	}
	if env.Version > jsonSchemaVersion {
		return fmt.Errorf("state file %s has schema version %d, newer than supported %d", s.path, env.Version, jsonSchemaVersion)
	}

	for _, rec := range env.Workflows {
		w := rec.toWorkflow()
		s.workflows[w.ID] = w
	}
	for _, rec := range env.Results {
		byStage := s.results[rec.WorkflowID]
		if byStage == nil {
			byStage = make(map[core.Stage]*core.StageResult)
			s.results[rec.WorkflowID] = byStage
		}
		byStage[rec.Stage] = &core.StageResult{
			WorkflowID: rec.WorkflowID,
			Stage:      rec.Stage,
			Payload:    rec.Payload,
			RecordedAt: rec.RecordedAt,
		}
	}
	return nil
}

// flush writes the whole state atomically. Caller holds the write lock.
func (s *JSONStore) flush() error {
	env := fileEnvelope{
		Version:   jsonSchemaVersion,
		UpdatedAt: time.Now().UTC(),
	}
	for _, w := range s.workflows {
		env.Workflows = append(env.Workflows, toRecord(w))
	}
	for _, byStage := range s.results {
		for _, r := range byStage {
			env.Results = append(env.Results, resultRecord{
				WorkflowID: r.WorkflowID,
				Stage:      r.Stage,
				Payload:    r.Payload,
				RecordedAt: r.RecordedAt,
			})
		}
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

// Create persists a new workflow.
func (s *JSONStore) Create(_ context.Context, w *core.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workflows[w.ID]; exists {
		return core.ErrAlreadyExists(w.ID)
	}
	s.workflows[w.ID] = w.Clone()
	return s.flush()
}

// Get returns a copy of the workflow or a not-found error.
func (s *JSONStore) Get(_ context.Context, id core.WorkflowID) (*core.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.workflows[id]
	if !ok {
		return nil, core.ErrNotFound("workflow", string(id))
	}
	return w.Clone(), nil
}

// UpdateStatus applies the mutator under the store lock, so updates
// for the same workflow are serialized.
func (s *JSONStore) UpdateStatus(_ context.Context, id core.WorkflowID, mutate core.WorkflowMutator) (*core.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workflows[id]
	if !ok {
		return nil, core.ErrNotFound("workflow", string(id))
	}

	updated := w.Clone()
	if err := mutate(updated); err != nil {
		return nil, err
	}
	updated.Version = w.Version + 1

	s.workflows[id] = updated
	if err := s.flush(); err != nil {
		s.workflows[id] = w
		return nil, err
	}
	return updated.Clone(), nil
}

// ListByOwner returns the owner's workflows, newest first.
func (s *JSONStore) ListByOwner(_ context.Context, ownerID string) ([]*core.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.Workflow
	for _, w := range s.workflows {
		if w.OwnerID == ownerID {
			out = append(out, w.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListByStatus returns workflows in the given status, newest first.
func (s *JSONStore) ListByStatus(_ context.Context, status core.WorkflowStatus) ([]*core.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.Workflow
	for _, w := range s.workflows {
		if w.Status == status {
			out = append(out, w.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// SaveStageResult records a stage output, replacing any previous
// result for the same stage.
func (s *JSONStore) SaveStageResult(_ context.Context, result *core.StageResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byStage := s.results[result.WorkflowID]
	if byStage == nil {
		byStage = make(map[core.Stage]*core.StageResult)
		s.results[result.WorkflowID] = byStage
	}
	byStage[result.Stage] = &core.StageResult{
		WorkflowID: result.WorkflowID,
		Stage:      result.Stage,
		Payload:    append(json.RawMessage(nil), result.Payload...),
		RecordedAt: result.RecordedAt,
	}
	return s.flush()
}

// ListStageResults returns recorded results in pipeline order.
func (s *JSONStore) ListStageResults(_ context.Context, id core.WorkflowID) ([]*core.StageResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byStage := s.results[id]
	var out []*core.StageResult
	for _, r := range byStage {
		out = append(out, &core.StageResult{
			WorkflowID: r.WorkflowID,
			Stage:      r.Stage,
			Payload:    append(json.RawMessage(nil), r.Payload...),
			RecordedAt: r.RecordedAt,
		})
	}
	sortStageResults(out)
	return out, nil
}

func toRecord(w *core.Workflow) workflowRecord {
	return workflowRecord{
		ID:              w.ID,
		OwnerID:         w.OwnerID,
		Status:          w.Status,
		CurrentStage:    w.CurrentStage,
		ProgressPercent: w.ProgressPercent,
		InputPayload:    w.InputPayload,
		ErrorMessage:    w.ErrorMessage,
		Metadata:        w.Metadata,
		Version:         w.Version,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
	}
}

func (r workflowRecord) toWorkflow() *core.Workflow {
	return &core.Workflow{
		ID:              r.ID,
		OwnerID:         r.OwnerID,
		Status:          r.Status,
		CurrentStage:    r.CurrentStage,
		ProgressPercent: r.ProgressPercent,
		InputPayload:    r.InputPayload,
		ErrorMessage:    r.ErrorMessage,
		Metadata:        r.Metadata,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

var _ core.WorkflowStore = (*JSONStore)(nil)
