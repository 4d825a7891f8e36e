package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/biomerkin/biomerkin/internal/core"
)

// Backend names accepted by New.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
	BackendMemory = "memory"
)

// New creates a WorkflowStore for the named backend. The path is the
// state file location (e.g., ".biomerkin/state.db"); the memory
// backend ignores it.
func New(backend, path string) (core.WorkflowStore, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendSQLite, "":
		if !strings.HasSuffix(path, ".db") {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".db"
		}
		return NewSQLiteStore(path)
	case BackendJSON:
		if !strings.HasSuffix(path, ".json") {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
		}
		return NewJSONStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q (want sqlite, json, or memory)", backend)
	}
}
