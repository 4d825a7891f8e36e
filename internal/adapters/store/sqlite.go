package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/biomerkin/biomerkin/internal/core"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// casRetries bounds the optimistic-concurrency retry loop. Contention
// on a single workflow is rare; three attempts is generous.
const casRetries = 3

// SQLiteStore implements core.WorkflowStore with SQLite storage.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB
	mu     sync.RWMutex
}

// NewSQLiteStore opens (or creates) the database at dbPath and runs
// pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	// WAL mode for concurrent readers alongside the single writer.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{dbPath: dbPath, db: db}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table doesn't exist yet, run initial migration
		version = 0
	}
	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// Create persists a new workflow.
func (s *SQLiteStore) Create(ctx context.Context, w *core.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metadataJSON, err := marshalMetadata(w.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflows (
			id, owner_id, status, current_stage, progress_percent,
			input_payload, error_message, metadata, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		w.ID, w.OwnerID, w.Status, w.CurrentStage, w.ProgressPercent,
		w.InputPayload, w.ErrorMessage, nullableString(metadataJSON),
		w.Version, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrAlreadyExists(w.ID)
		}
		return fmt.Errorf("inserting workflow: %w", err)
	}
	return nil
}

// Get returns the workflow or a not-found error.
func (s *SQLiteStore) Get(ctx context.Context, id core.WorkflowID) (*core.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getWorkflow(ctx, id)
}

func (s *SQLiteStore) getWorkflow(ctx context.Context, id core.WorkflowID) (*core.Workflow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, status, current_stage, progress_percent,
		       input_payload, error_message, metadata, version, created_at, updated_at
		FROM workflows WHERE id = ?
	`, id)

	w, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound("workflow", string(id))
	}
	if err != nil {
		return nil, fmt.Errorf("loading workflow: %w", err)
	}
	return w, nil
}

// UpdateStatus applies the mutator under optimistic concurrency. The
// row version read is checked on write; a concurrent bump retries the
// read-mutate-write cycle, and persistent contention surfaces as a
// conflict error.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id core.WorkflowID, mutate core.WorkflowMutator) (*core.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < casRetries; attempt++ {
		w, err := s.getWorkflow(ctx, id)
		if err != nil {
			return nil, err
		}

		prevVersion := w.Version
		if err := mutate(w); err != nil {
			return nil, err
		}
		w.Version = prevVersion + 1

		metadataJSON, err := marshalMetadata(w.Metadata)
		if err != nil {
			return nil, err
		}

		res, err := s.db.ExecContext(ctx, `
			UPDATE workflows SET
				status = ?, current_stage = ?, progress_percent = ?,
				error_message = ?, metadata = ?, version = ?, updated_at = ?
			WHERE id = ? AND version = ?
		`,
			w.Status, w.CurrentStage, w.ProgressPercent,
			w.ErrorMessage, nullableString(metadataJSON), w.Version, w.UpdatedAt,
			id, prevVersion,
		)
		if err != nil {
			return nil, fmt.Errorf("updating workflow: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("checking update result: %w", err)
		}
		if affected == 1 {
			return w, nil
		}
		// Version moved under us; retry from a fresh read.
	}

	return nil, core.ErrConflict("workflow " + string(id) + " was modified concurrently")
}

// ListByOwner returns the owner's workflows, newest first.
func (s *SQLiteStore) ListByOwner(ctx context.Context, ownerID string) ([]*core.Workflow, error) {
	return s.list(ctx, `
		SELECT id, owner_id, status, current_stage, progress_percent,
		       input_payload, error_message, metadata, version, created_at, updated_at
		FROM workflows WHERE owner_id = ?
		ORDER BY created_at DESC
	`, ownerID)
}

// ListByStatus returns workflows in the given status, newest first.
func (s *SQLiteStore) ListByStatus(ctx context.Context, status core.WorkflowStatus) ([]*core.Workflow, error) {
	return s.list(ctx, `
		SELECT id, owner_id, status, current_stage, progress_percent,
		       input_payload, error_message, metadata, version, created_at, updated_at
		FROM workflows WHERE status = ?
		ORDER BY created_at DESC
	`, status)
}

func (s *SQLiteStore) list(ctx context.Context, query string, arg interface{}) ([]*core.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("listing workflows: %w", err)
	}
	defer rows.Close()

	var workflows []*core.Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workflow: %w", err)
		}
		workflows = append(workflows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workflows: %w", err)
	}
	return workflows, nil
}

// SaveStageResult upserts the result for a (workflow, stage) pair.
func (s *SQLiteStore) SaveStageResult(ctx context.Context, result *core.StageResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stage_results (workflow_id, stage, payload, recorded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(workflow_id, stage) DO UPDATE SET
			payload = excluded.payload,
			recorded_at = excluded.recorded_at
	`, result.WorkflowID, result.Stage, string(result.Payload), result.RecordedAt)
	if err != nil {
		return fmt.Errorf("saving stage result: %w", err)
	}
	return nil
}

// ListStageResults returns recorded results in pipeline order.
func (s *SQLiteStore) ListStageResults(ctx context.Context, id core.WorkflowID) ([]*core.StageResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT workflow_id, stage, payload, recorded_at
		FROM stage_results WHERE workflow_id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("loading stage results: %w", err)
	}
	defer rows.Close()

	var results []*core.StageResult
	for rows.Next() {
		var r core.StageResult
		var payload string
		if err := rows.Scan(&r.WorkflowID, &r.Stage, &payload, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning stage result: %w", err)
		}
		r.Payload = json.RawMessage(payload)
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stage results: %w", err)
	}

	sortStageResults(results)
	return results, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkflow(row rowScanner) (*core.Workflow, error) {
	var w core.Workflow
	var metadataJSON sql.NullString

	err := row.Scan(
		&w.ID, &w.OwnerID, &w.Status, &w.CurrentStage, &w.ProgressPercent,
		&w.InputPayload, &w.ErrorMessage, &metadataJSON, &w.Version,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &w.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	return &w, nil
}

func marshalMetadata(metadata map[string]string) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}
	return b, nil
}

func nullableString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint violations through the error
	// text; there is no portable sentinel to match against.
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "constraint failed")
}

func sortStageResults(results []*core.StageResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return core.StageOrder(results[i].Stage) < core.StageOrder(results[j].Stage)
	})
}

var _ core.WorkflowStore = (*SQLiteStore)(nil)
