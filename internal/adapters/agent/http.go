package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/biomerkin/biomerkin/internal/core"
	"github.com/biomerkin/biomerkin/internal/logging"
)

// HTTPClient invokes a remote stage over HTTP using the stage
// invocation envelope. Stage calls are slow, potentially LLM-backed
// operations, so the timeout is generous by default.
type HTTPClient struct {
	endpoints  map[core.Stage]string
	timeout    time.Duration
	httpClient *http.Client
	logger     *logging.Logger
}

// DefaultStageTimeout bounds one stage invocation.
const DefaultStageTimeout = 5 * time.Minute

// HTTPClientOption configures the client.
type HTTPClientOption func(*HTTPClient)

// WithTimeout sets the per-invocation timeout.
func WithTimeout(d time.Duration) HTTPClientOption {
	return func(c *HTTPClient) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the underlying http.Client (used in tests).
func WithHTTPClient(hc *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// NewHTTPClient creates a client for the given stage endpoints.
func NewHTTPClient(endpoints map[core.Stage]string, logger *logging.Logger, opts ...HTTPClientOption) (*HTTPClient, error) {
	for stage, endpoint := range endpoints {
		if endpoint == "" {
			return nil, fmt.Errorf("stage %s has no endpoint", stage)
		}
	}
	c := &HTTPClient{
		endpoints: endpoints,
		timeout:   DefaultStageTimeout,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c, nil
}

// Name returns the adapter identifier.
func (c *HTTPClient) Name() string {
	return "http"
}

// Invoke posts the envelope to the stage endpoint and normalizes the
// response. Failures map onto the agent error taxonomy: transport
// errors are unreachable, deadline hits are timeouts, and non-success
// responses are rejections.
func (c *HTTPClient) Invoke(ctx context.Context, req core.StageRequest) (json.RawMessage, error) {
	endpoint, ok := c.endpoints[req.Stage]
	if !ok {
		return nil, core.ErrState(core.CodeInvalidState, "no endpoint configured for stage "+string(req.Stage))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, core.ErrState(core.CodeInvalidState, "stage request is not serializable").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, core.ErrAgentUnreachable(req.Stage, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, core.ErrAgentTimeout(req.Stage)
		}
		return nil, core.ErrAgentUnreachable(req.Stage, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.ErrAgentUnreachable(req.Stage, err)
	}

	c.logger.WithStage(string(req.Stage)).Debug("stage invocation finished",
		"status_code", resp.StatusCode,
		"duration", time.Since(start).String(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, core.ErrAgentRejected(req.Stage, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	var envelope core.StageResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, core.ErrAgentRejected(req.Stage, "malformed response envelope")
	}
	if envelope.Status != "success" {
		msg := envelope.ErrorMessage
		if msg == "" {
			msg = "stage returned status " + envelope.Status
		}
		return nil, core.ErrAgentRejected(req.Stage, msg)
	}

	return envelope.Payload, nil
}
