package diagnostics

import (
	"context"
	"fmt"

	"github.com/biomerkin/biomerkin/internal/core"
)

// Check is the outcome of one dependency probe.
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// CheckStore verifies the workflow store answers queries. A probe for
// a workflow that cannot exist must come back as a clean not-found,
// not a transport or schema error.
func CheckStore(ctx context.Context, store core.WorkflowStore) Check {
	check := Check{Name: "store"}

	_, err := store.Get(ctx, "doctor-probe")
	if err == nil || core.IsCategory(err, core.ErrCatNotFound) {
		check.OK = true
		check.Detail = "reachable"
		return check
	}
	check.Detail = err.Error()
	return check
}

// CheckAgents verifies the stage invoker covers the full pipeline.
func CheckAgents(invoker core.StageInvoker) Check {
	check := Check{Name: "agents"}

	registered := make(map[core.Stage]bool)
	for _, stage := range invoker.Stages() {
		registered[stage] = true
	}
	for _, stage := range core.AllStages() {
		if !registered[stage] {
			check.Detail = fmt.Sprintf("stage %s has no registered agent", stage)
			return check
		}
	}
	check.OK = true
	check.Detail = fmt.Sprintf("%d stages registered", len(registered))
	return check
}

// CheckModels verifies the consensus roles resolve to known models.
func CheckModels(invoker core.ModelInvoker, roleModels []string) Check {
	check := Check{Name: "models"}

	known := make(map[string]bool)
	for _, id := range invoker.Models() {
		known[id] = true
	}
	for _, id := range roleModels {
		if !known[id] {
			check.Detail = fmt.Sprintf("model %s is not in the dispatch table", id)
			return check
		}
	}
	check.OK = true
	check.Detail = fmt.Sprintf("%d models configured", len(known))
	return check
}
