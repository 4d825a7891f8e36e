package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/biomerkin/biomerkin/internal/core"
)

// MemoryStore implements core.WorkflowStore in process memory. Used
// for tests and throwaway runs; nothing survives a restart.
type MemoryStore struct {
	mu        sync.RWMutex
	workflows map[core.WorkflowID]*core.Workflow
	results   map[core.WorkflowID]map[core.Stage]*core.StageResult
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workflows: make(map[core.WorkflowID]*core.Workflow),
		results:   make(map[core.WorkflowID]map[core.Stage]*core.StageResult),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Create(_ context.Context, w *core.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workflows[w.ID]; exists {
		return core.ErrAlreadyExists(w.ID)
	}
	s.workflows[w.ID] = w.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id core.WorkflowID) (*core.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.workflows[id]
	if !ok {
		return nil, core.ErrNotFound("workflow", string(id))
	}
	return w.Clone(), nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id core.WorkflowID, mutate core.WorkflowMutator) (*core.Workflow, error) {
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
	return updated.Clone(), nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, ownerID string) ([]*core.Workflow, error) {
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

func (s *MemoryStore) ListByStatus(_ context.Context, status core.WorkflowStatus) ([]*core.Workflow, error) {
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

func (s *MemoryStore) SaveStageResult(_ context.Context, result *core.StageResult) error {
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
	return nil
}

func (s *MemoryStore) ListStageResults(_ context.Context, id core.WorkflowID) ([]*core.StageResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.StageResult
	for _, r := range s.results[id] {
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

func sortNewestFirst(workflows []*core.Workflow) {
	sort.SliceStable(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})
}

var _ core.WorkflowStore = (*MemoryStore)(nil)
