package model

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/biomerkin/biomerkin/internal/core"
	"github.com/biomerkin/biomerkin/internal/logging"
)

func testTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable([]Spec{
		{ID: "amazon.nova-pro-v1:0", Format: FormatNova, Name: "Amazon Nova Pro"},
		{ID: "openai.gpt-oss-120b-1:0", Format: FormatOpenAI, Name: "OpenAI GPT-OSS 120B"},
	})
	if err != nil {
		t.Fatalf("NewTable returned error: %v", err)
	}
	return table
}

func TestNewTable_RejectsUnknownFormat(t *testing.T) {
	_, err := NewTable([]Spec{{ID: "custom.model", Format: Format("grpc")}})
	if err == nil {
		t.Error("NewTable should reject unknown formats")
	}
}

func TestNewTable_RejectsDuplicates(t *testing.T) {
	_, err := NewTable([]Spec{
		{ID: "m", Format: FormatNova},
		{ID: "m", Format: FormatOpenAI},
	})
	if err == nil {
		t.Error("NewTable should reject duplicate ids")
	}
}

func TestRuntimeClient_NovaFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "amazon.nova-pro-v1:0") {
			t.Errorf("path = %s, want model id in path", r.URL.Path)
		}
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if _, ok := req["inferenceConfig"]; !ok {
			t.Error("nova request missing inferenceConfig")
		}
		_, _ = w.Write([]byte(`{"output":{"message":{"content":[{"text":"nova says hello"}]}}}`))
	}))
	defer srv.Close()

	client, err := NewRuntimeClient(srv.URL, testTable(t), logging.NewNop())
	if err != nil {
		t.Fatalf("NewRuntimeClient returned error: %v", err)
	}

	text, err := client.Generate(context.Background(), "amazon.nova-pro-v1:0", "analyze this",
		core.GenerateOptions{MaxTokens: 2000, Temperature: 0.3})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if text != "nova says hello" {
		t.Errorf("text = %q, want nova says hello", text)
	}
}

func TestRuntimeClient_OpenAIFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if _, ok := req["max_tokens"]; !ok {
			t.Error("openai request missing max_tokens")
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"validated"}}]}`))
	}))
	defer srv.Close()

	client, err := NewRuntimeClient(srv.URL, testTable(t), logging.NewNop())
	if err != nil {
		t.Fatalf("NewRuntimeClient returned error: %v", err)
	}

	text, err := client.Generate(context.Background(), "openai.gpt-oss-120b-1:0", "review this",
		core.GenerateOptions{MaxTokens: 1500, Temperature: 0.4})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if text != "validated" {
		t.Errorf("text = %q, want validated", text)
	}
}

func TestRuntimeClient_UnknownModel(t *testing.T) {
	client, err := NewRuntimeClient("http://localhost:1", testTable(t), logging.NewNop())
	if err != nil {
		t.Fatalf("NewRuntimeClient returned error: %v", err)
	}

	_, err = client.Generate(context.Background(), "mystery.model-v1", "x", core.GenerateOptions{})
	var domErr *core.DomainError
	if !errors.As(err, &domErr) {
		t.Fatalf("Generate error = %v, want DomainError", err)
	}
	if domErr.Code != core.CodeUnknownModel {
		t.Errorf("code = %s, want %s", domErr.Code, core.CodeUnknownModel)
	}
}

func TestRuntimeClient_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode string
	}{
		{"forbidden", http.StatusForbidden, core.CodeModelAccessDenied},
		{"unauthorized", http.StatusUnauthorized, core.CodeModelAccessDenied},
		{"bad request", http.StatusBadRequest, core.CodeModelBadRequest},
		{"throttled", http.StatusTooManyRequests, core.CodeModelUnavailable},
		{"server error", http.StatusInternalServerError, core.CodeModelUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client, err := NewRuntimeClient(srv.URL, testTable(t), logging.NewNop())
			if err != nil {
				t.Fatalf("NewRuntimeClient returned error: %v", err)
			}

			_, err = client.Generate(context.Background(), "amazon.nova-pro-v1:0", "x", core.GenerateOptions{})
			var domErr *core.DomainError
			if !errors.As(err, &domErr) {
				t.Fatalf("Generate error = %v, want DomainError", err)
			}
			if domErr.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", domErr.Code, tt.wantCode)
			}
			if domErr.Category != core.ErrCatModel {
				t.Errorf("category = %s, want %s", domErr.Category, core.ErrCatModel)
			}
		})
	}
}

func TestRuntimeClient_APIKeyHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want Bearer test-key", got)
		}
		_, _ = w.Write([]byte(`{"output":{"message":{"content":[{"text":"ok"}]}}}`))
	}))
	defer srv.Close()

	client, err := NewRuntimeClient(srv.URL, testTable(t), logging.NewNop(), WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("NewRuntimeClient returned error: %v", err)
	}
	if _, err := client.Generate(context.Background(), "amazon.nova-pro-v1:0", "x", core.GenerateOptions{}); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
}
