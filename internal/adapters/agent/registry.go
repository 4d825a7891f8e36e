// Package agent provides clients for the remote analysis stages and
// the closed registry that binds each pipeline stage to its client.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/biomerkin/biomerkin/internal/core"
)

// Registry maps pipeline stages to agent clients. The mapping is fixed
// at construction; unknown stages are rejected here, never at call
// time.
type Registry struct {
	clients map[core.Stage]core.AgentClient
}

// NewRegistry builds a registry covering the given stages. Every stage
// must have a client.
func NewRegistry(clients map[core.Stage]core.AgentClient) (*Registry, error) {
	if len(clients) == 0 {
		return nil, fmt.Errorf("agent registry requires at least one stage client")
	}
	for stage := range clients {
		if !core.ValidStage(stage) {
			return nil, fmt.Errorf("unknown stage in agent registry: %s", stage)
		}
	}
	return &Registry{clients: clients}, nil
}

// NewUniformRegistry binds the same client to every given stage.
func NewUniformRegistry(client core.AgentClient, stages []core.Stage) (*Registry, error) {
	clients := make(map[core.Stage]core.AgentClient, len(stages))
	for _, stage := range stages {
		clients[stage] = client
	}
	return NewRegistry(clients)
}

// Invoke dispatches the request to the client registered for its stage.
func (r *Registry) Invoke(ctx context.Context, req core.StageRequest) (json.RawMessage, error) {
	client, ok := r.clients[req.Stage]
	if !ok {
		return nil, core.ErrState(core.CodeInvalidState, "no agent registered for stage "+string(req.Stage))
	}
	return client.Invoke(ctx, req)
}

// Stages returns the registered stages in pipeline order.
func (r *Registry) Stages() []core.Stage {
	stages := make([]core.Stage, 0, len(r.clients))
	for stage := range r.clients {
		stages = append(stages, stage)
	}
	sort.Slice(stages, func(i, j int) bool {
		return core.StageOrder(stages[i]) < core.StageOrder(stages[j])
	})
	return stages
}
