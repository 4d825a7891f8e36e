package model

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/biomerkin/biomerkin/internal/core"
	"github.com/biomerkin/biomerkin/internal/logging"
)

// RuntimeClient invokes models through the shared inference runtime.
// It implements core.ModelInvoker and is safe for concurrent use.
type RuntimeClient struct {
	endpoint   string
	apiKey     string
	table      *Table
	timeout    time.Duration
	httpClient *http.Client
	logger     *logging.Logger
}

// DefaultInvokeTimeout bounds one model invocation.
const DefaultInvokeTimeout = 2 * time.Minute

// RuntimeClientOption configures the client.
type RuntimeClientOption func(*RuntimeClient)

// WithInvokeTimeout sets the per-invocation timeout.
func WithInvokeTimeout(d time.Duration) RuntimeClientOption {
	return func(c *RuntimeClient) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the underlying http.Client (used in tests).
func WithHTTPClient(hc *http.Client) RuntimeClientOption {
	return func(c *RuntimeClient) {
		c.httpClient = hc
	}
}

// WithAPIKey sets the bearer token for the runtime endpoint.
func WithAPIKey(key string) RuntimeClientOption {
	return func(c *RuntimeClient) {
		c.apiKey = key
	}
}

// NewRuntimeClient creates a client for the given runtime endpoint and
// model table.
func NewRuntimeClient(endpoint string, table *Table, logger *logging.Logger, opts ...RuntimeClientOption) (*RuntimeClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("model runtime endpoint is required")
	}
	if table == nil {
		return nil, fmt.Errorf("model table is required")
	}
	c := &RuntimeClient{
		endpoint: endpoint,
		table:    table,
		timeout:  DefaultInvokeTimeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c, nil
}

// Models returns the model ids known to this invoker.
func (c *RuntimeClient) Models() []string {
	return c.table.IDs()
}

// Generate produces text for the prompt using the named model. All
// failure modes surface as model-category DomainErrors; the caller
// decides whether a fallback is acceptable.
func (c *RuntimeClient) Generate(ctx context.Context, modelID, prompt string, opts core.GenerateOptions) (string, error) {
	spec, ok := c.table.Lookup(modelID)
	if !ok {
		return "", core.ErrModel(core.CodeUnknownModel, "model not in dispatch table: "+modelID)
	}

	body, err := c.table.codecFor(spec).EncodeRequest(prompt, opts)
	if err != nil {
		return "", core.ErrModel(core.CodeModelBadRequest, "encoding request for "+modelID).WithCause(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	invokeURL := fmt.Sprintf("%s/model/%s/invoke", c.endpoint, url.PathEscape(modelID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, invokeURL, bytes.NewReader(body))
	if err != nil {
		return "", core.ErrModel(core.CodeModelBadRequest, "building request for "+modelID).WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return "", core.ErrModel(core.CodeModelUnavailable, "model "+modelID+" timed out")
		}
		return "", core.ErrModel(core.CodeModelUnavailable, "model runtime unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", core.ErrModel(core.CodeModelUnavailable, "reading model response").WithCause(err)
	}

	c.logger.WithModel(modelID).Debug("model invocation finished",
		"status_code", resp.StatusCode,
		"duration", time.Since(start).String(),
	)

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return "", core.ErrModel(core.CodeModelAccessDenied, "model "+modelID+" is not entitled")
	case resp.StatusCode == http.StatusBadRequest:
		return "", core.ErrModel(core.CodeModelBadRequest, "model "+modelID+" rejected the request")
	default:
		return "", core.ErrModel(core.CodeModelUnavailable,
			fmt.Sprintf("model %s returned HTTP %d", modelID, resp.StatusCode))
	}

	text, err := c.table.codecFor(spec).DecodeResponse(respBody)
	if err != nil {
		return "", core.ErrModel(core.CodeModelUnavailable, "malformed response from "+modelID).WithCause(err)
	}
	return text, nil
}
