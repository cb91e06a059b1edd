package history

import (
	"context"
	"errors"
	"time"
)

// ErrExecutionNotFound is returned when no journal row exists for an ID.
var ErrExecutionNotFound = errors.New("history: execution not found")

// Status is the lifecycle state of a program execution.
type Status string

// Execution statuses.
const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Dispatch outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Execution is one program run as recorded in the journal.
type Execution struct {
	ID         string     `json:"id"`
	Steps      int        `json:"steps"`
	Completed  int        `json:"completed"`
	Status     Status     `json:"status"`
	ErrorKind  string     `json:"error_kind,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	DurationMS int64      `json:"duration_ms"`
}

// DispatchRecord is one dispatch outcome as recorded in the journal.
type DispatchRecord struct {
	ID          int64     `json:"id"`
	ExecutionID string    `json:"execution_id,omitempty"`
	Index       int       `json:"index"`
	DeviceID    string    `json:"device_id"`
	Command     string    `json:"command"`
	Payload     *string   `json:"payload,omitempty"`
	Outcome     string    `json:"outcome"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
}

// Filter controls which executions ListExecutions returns.
type Filter struct {
	Status Status // optional
	Limit  int    // default 50, max 200
	Offset int
}

// normalise clamps the paging fields into their allowed ranges.
func (f Filter) normalise() Filter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Repository stores and retrieves the execution journal.
//
// Implementations must be safe for concurrent use; many programs write at once.
type Repository interface {
	// StartExecution inserts a running execution.
	StartExecution(ctx context.Context, exec Execution) error

	// FinishExecution records the final status of an execution started earlier.
	FinishExecution(ctx context.Context, exec Execution) error

	// RecordDispatch appends one dispatch outcome.
	RecordDispatch(ctx context.Context, rec DispatchRecord) error

	// GetExecution returns one execution or ErrExecutionNotFound.
	GetExecution(ctx context.Context, id string) (*Execution, error)

	// ListExecutions returns executions newest first.
	ListExecutions(ctx context.Context, filter Filter) ([]Execution, error)

	// ListDispatches returns the dispatches of an execution in step order.
	ListDispatches(ctx context.Context, executionID string) ([]DispatchRecord, error)
}
