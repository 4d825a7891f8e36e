package service

import (
	"encoding/json"

	"github.com/biomerkin/biomerkin/internal/core"
)

// AggregateResults assembles the external response for a completed
// workflow from its stage results. It is a pure function of its
// inputs.
//
// Every pipeline stage must have a recorded payload; a gap on a
// workflow marked completed means the coordinator advanced without
// persisting, which is reported as an incomplete-results state error
// rather than papered over.
func AggregateResults(w *core.Workflow, results []*core.StageResult) (*core.AnalysisResults, error) {
	if w.Status != core.WorkflowStatusCompleted {
		return nil, core.ErrNotReady(w.ID, w.Status)
	}

	byStage := make(map[core.Stage]json.RawMessage, len(results))
	for _, r := range results {
		byStage[r.Stage] = r.Payload
	}

	for _, stage := range core.AllStages() {
		if _, ok := byStage[stage]; !ok {
			return nil, core.ErrIncompleteResults(w.ID, stage)
		}
	}

	return &core.AnalysisResults{
		WorkflowID:  w.ID,
		Stages:      byStage,
		CompletedAt: w.UpdatedAt,
		Metadata:    w.Metadata,
	}, nil
}
