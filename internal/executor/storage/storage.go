package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Execution is one recorded /execute call
type Execution struct {
	ID         string    `db:"id"`
	RequestID  string    `db:"request_id"`
	Tool       string    `db:"tool"`
	URL        string    `db:"url"`
	Mode       string    `db:"mode"`
	Success    bool      `db:"success"`
	Error      *string   `db:"error"`
	DurationMs int64     `db:"duration_ms"`
	CreatedAt  time.Time `db:"created_at"`
}

// ExecutionCursor marks the last row of a page
type ExecutionCursor struct {
	CreatedAt time.Time
	ID        string
}

// ExecutionFilter narrows a history listing
type ExecutionFilter struct {
	Tool     string
	Success  *bool
	PageSize int
	Cursor   *ExecutionCursor
}

// ExecutionRecorder persists and lists executions
type ExecutionRecorder interface {
	Record(ctx context.Context, exec *Execution) error
	List(ctx context.Context, filter ExecutionFilter) ([]Execution, error)
}

const schema = `
	CREATE TABLE IF NOT EXISTS tool_executions (
		id          UUID PRIMARY KEY,
		request_id  TEXT NOT NULL DEFAULT '',
		tool        TEXT NOT NULL,
		url         TEXT NOT NULL DEFAULT '',
		mode        TEXT NOT NULL DEFAULT '',
		success     BOOLEAN NOT NULL,
		error       TEXT,
		duration_ms BIGINT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tool_executions_created_at
		ON tool_executions (created_at DESC, id DESC);
`

// Storage records executions in PostgreSQL
type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// EnsureSchema creates the executions table when it does not exist
func (s *Storage) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tool_executions table: %w", err)
	}
	return nil
}

func (s *Storage) Record(ctx context.Context, exec *Execution) error {
	query := `
		INSERT INTO tool_executions (
			id, request_id, tool, url, mode,
			success, error, duration_ms, created_at
		) VALUES (
			:id, :request_id, :tool, :url, :mode,
			:success, :error, :duration_ms, :created_at
		)
	`

	if _, err := s.db.NamedExecContext(ctx, query, exec); err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}
	return nil
}

// List returns up to PageSize+1 rows, newest first, so the caller can tell
// whether another page exists.
func (s *Storage) List(ctx context.Context, filter ExecutionFilter) ([]Execution, error) {
	query, args := buildListQuery(filter)

	var executions []Execution
	if err := s.db.SelectContext(ctx, &executions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

func buildListQuery(filter ExecutionFilter) (string, []any) {
	var b strings.Builder
	b.WriteString(`
		SELECT
			id, request_id, tool, url, mode,
			success, error, duration_ms, created_at
		FROM tool_executions
		WHERE 1=1`)

	args := []any{}
	argIdx := 1

	if filter.Tool != "" {
		fmt.Fprintf(&b, " AND tool = $%d", argIdx)
		args = append(args, filter.Tool)
		argIdx++
	}

	if filter.Success != nil {
		fmt.Fprintf(&b, " AND success = $%d", argIdx)
		args = append(args, *filter.Success)
		argIdx++
	}

	if filter.Cursor != nil {
		fmt.Fprintf(&b, " AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	b.WriteString(" ORDER BY created_at DESC, id DESC")

	fmt.Fprintf(&b, " LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	return b.String(), args
}

// NopRecorder discards executions. Used when history is disabled.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, *Execution) error { return nil }

func (NopRecorder) List(context.Context, ExecutionFilter) ([]Execution, error) {
	return []Execution{}, nil
}
