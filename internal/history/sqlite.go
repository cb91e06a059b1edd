package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteRepository implements Repository on the program_executions and
// dispatch_log tables.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a journal repository on an open, migrated
// SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// StartExecution implements Repository.
func (r *SQLiteRepository) StartExecution(ctx context.Context, exec Execution) error {
	if exec.ID == "" {
		return fmt.Errorf("execution id is required")
	}
	if exec.StartedAt.IsZero() {
		exec.StartedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO program_executions (id, steps, completed, status, started_at)
		 VALUES (?, ?, 0, ?, ?)`,
		exec.ID, exec.Steps, StatusRunning, formatTime(exec.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

// FinishExecution implements Repository.
func (r *SQLiteRepository) FinishExecution(ctx context.Context, exec Execution) error {
	finished := time.Now()
	if exec.FinishedAt != nil {
		finished = *exec.FinishedAt
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE program_executions
		 SET completed = ?, status = ?, error_kind = ?, error = ?, finished_at = ?, duration_ms = ?
		 WHERE id = ?`,
		exec.Completed, exec.Status,
		nullableString(exec.ErrorKind), nullableString(exec.Error),
		formatTime(finished), exec.DurationMS, exec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating execution: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrExecutionNotFound, exec.ID)
	}
	return nil
}

// RecordDispatch implements Repository.
func (r *SQLiteRepository) RecordDispatch(ctx context.Context, rec DispatchRecord) error {
	if rec.DeviceID == "" {
		return fmt.Errorf("device id is required")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dispatch_log
		 (execution_id, step_index, device_id, command, payload, outcome, error_kind, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(rec.ExecutionID), rec.Index, rec.DeviceID, rec.Command, rec.Payload,
		rec.Outcome, nullableString(rec.ErrorKind), nullableString(rec.Error),
		formatTime(rec.StartedAt), rec.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("inserting dispatch record: %w", err)
	}
	return nil
}

const executionColumns = `id, steps, completed, status, error_kind, error, started_at, finished_at, duration_ms`

// GetExecution implements Repository.
func (r *SQLiteRepository) GetExecution(ctx context.Context, id string) (*Execution, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+executionColumns+` FROM program_executions WHERE id = ?`, id)

	exec, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return exec, nil
}

// ListExecutions implements Repository.
func (r *SQLiteRepository) ListExecutions(ctx context.Context, filter Filter) ([]Execution, error) {
	filter = filter.normalise()

	query := `SELECT ` + executionColumns + ` FROM program_executions`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY started_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	execs := make([]Execution, 0)
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, *exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return execs, nil
}

// ListDispatches implements Repository.
func (r *SQLiteRepository) ListDispatches(ctx context.Context, executionID string) ([]DispatchRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, execution_id, step_index, device_id, command, payload, outcome, error_kind, error, started_at, duration_ms
		 FROM dispatch_log
		 WHERE execution_id = ?
		 ORDER BY step_index, id`,
		executionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying dispatch log: %w", err)
	}
	defer rows.Close()

	recs := make([]DispatchRecord, 0)
	for rows.Next() {
		var rec DispatchRecord
		var execID, payload, errKind, errMsg sql.NullString
		var startedAt string

		if err := rows.Scan(&rec.ID, &execID, &rec.Index, &rec.DeviceID, &rec.Command, &payload,
			&rec.Outcome, &errKind, &errMsg, &startedAt, &rec.DurationMS); err != nil {
			return nil, fmt.Errorf("scanning dispatch record: %w", err)
		}

		rec.ExecutionID = execID.String
		rec.ErrorKind = errKind.String
		rec.Error = errMsg.String
		if payload.Valid {
			p := payload.String
			rec.Payload = &p
		}
		if rec.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}

		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dispatch log: %w", err)
	}
	return recs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanExecution(s scanner) (*Execution, error) {
	var exec Execution
	var errKind, errMsg, finishedAt sql.NullString
	var duration sql.NullInt64
	var startedAt string

	if err := s.Scan(&exec.ID, &exec.Steps, &exec.Completed, &exec.Status,
		&errKind, &errMsg, &startedAt, &finishedAt, &duration); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning execution: %w", err)
	}

	exec.ErrorKind = errKind.String
	exec.Error = errMsg.String
	exec.DurationMS = duration.Int64

	var err error
	if exec.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return nil, err
		}
		exec.FinishedAt = &t
	}
	return &exec, nil
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing journal timestamp %q: %w", s, err)
	}
	return t, nil
}

// nullableString returns nil for empty strings so nullable TEXT columns
// stay NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
