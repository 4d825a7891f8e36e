package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/biomerkin/biomerkin/internal/core"
	"github.com/biomerkin/biomerkin/internal/events"
	"github.com/biomerkin/biomerkin/internal/logging"
)

// WorkflowService is the surface the handlers need from the
// coordinator.
type WorkflowService interface {
	StartWorkflow(ctx context.Context, input, ownerID string, metadata map[string]string) (core.WorkflowID, error)
	GetStatus(ctx context.Context, id core.WorkflowID) (*core.Workflow, error)
	GetResults(ctx context.Context, id core.WorkflowID) (*core.AnalysisResults, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*core.Workflow, error)
	ListByStatus(ctx context.Context, status core.WorkflowStatus) ([]*core.Workflow, error)
}

// WorkflowHandler serves the workflow API routes.
type WorkflowHandler struct {
	svc    WorkflowService
	bus    *events.Bus
	logger *logging.Logger
}

// NewWorkflowHandler creates the handler.
func NewWorkflowHandler(svc WorkflowService, bus *events.Bus, logger *logging.Logger) *WorkflowHandler {
	return &WorkflowHandler{svc: svc, bus: bus, logger: logger}
}

// RegisterRoutes mounts the workflow routes on the router.
func (h *WorkflowHandler) RegisterRoutes(r chi.Router) {
	r.Route("/workflows", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Get("/results", h.handleResults)
			r.Get("/events", h.handleEvents)
		})
	})
}

type createRequest struct {
	InputPayload string            `json:"input_payload"`
	OwnerID      string            `json:"owner_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type createResponse struct {
	WorkflowID string `json:"workflow_id"`
}

type statusResponse struct {
	WorkflowID      string            `json:"workflow_id"`
	Status          string            `json:"status"`
	CurrentStage    string            `json:"current_stage,omitempty"`
	ProgressPercent float64           `json:"progress_percent"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func toStatusResponse(w *core.Workflow) statusResponse {
	return statusResponse{
		WorkflowID:      string(w.ID),
		Status:          string(w.Status),
		CurrentStage:    string(w.CurrentStage),
		ProgressPercent: w.ProgressPercent,
		ErrorMessage:    w.ErrorMessage,
		Metadata:        w.Metadata,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
	}
}

func (h *WorkflowHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, core.ErrValidation(core.CodeEmptyInput, "request body is not valid JSON"))
		return
	}

	id, err := h.svc.StartWorkflow(r.Context(), req.InputPayload, req.OwnerID, req.Metadata)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{WorkflowID: string(id)})
}

func (h *WorkflowHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := core.WorkflowID(chi.URLParam(r, "id"))

	workflow, err := h.svc.GetStatus(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(workflow))
}

func (h *WorkflowHandler) handleResults(w http.ResponseWriter, r *http.Request) {
	id := core.WorkflowID(chi.URLParam(r, "id"))

	results, err := h.svc.GetResults(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *WorkflowHandler) handleList(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	status := r.URL.Query().Get("status")

	var (
		workflows []*core.Workflow
		err       error
	)
	switch {
	case owner != "":
		workflows, err = h.svc.ListByOwner(r.Context(), owner)
	case status != "":
		if !core.ValidStatus(core.WorkflowStatus(status)) {
			writeError(w, core.ErrValidation(core.CodeInvalidConfig, "unknown status: "+status))
			return
		}
		workflows, err = h.svc.ListByStatus(r.Context(), core.WorkflowStatus(status))
	default:
		writeError(w, core.ErrValidation(core.CodeInvalidConfig, "owner or status query parameter required"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]statusResponse, 0, len(workflows))
	for _, workflow := range workflows {
		out = append(out, toStatusResponse(workflow))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"workflows": out})
}

// handleEvents streams workflow progress over SSE until the client
// disconnects.
func (h *WorkflowHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if h.bus == nil {
		writeError(w, core.ErrState(core.CodeInvalidState, "event streaming is not enabled"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// The workflow must exist before we hold a stream open for it.
	if _, err := h.svc.GetStatus(r.Context(), core.WorkflowID(id)); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := h.bus.Subscribe()
	defer h.bus.Unsubscribe(ch)

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case event, ok := <-ch:
			if !ok {
				return
			}
			if event.WorkflowID() != id {
				continue
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.EventType(), data)
			flusher.Flush()

			// Terminal events end the stream; there is nothing more to
			// report for this workflow.
			if event.EventType() == events.TypeWorkflowCompleted || event.EventType() == events.TypeWorkflowFailed {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
