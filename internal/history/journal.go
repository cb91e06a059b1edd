package history

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
)

// writeTimeout bounds a single journal write.
const writeTimeout = 5 * time.Second

// Logger defines the logging interface used by the journal.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Journal is an iot.Observer that records every program execution and
// dispatch in a Repository.
//
// Writes use a context detached from the caller's cancellation so a
// cancelled program still leaves its final status behind. Write failures
// are logged and never reach the dispatching goroutine.
type Journal struct {
	repo   Repository
	logger Logger
}

// NewJournal creates a journal observer backed by repo.
func NewJournal(repo Repository) *Journal {
	return &Journal{repo: repo, logger: noopLogger{}}
}

// SetLogger sets the logger for write failures.
func (j *Journal) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	j.logger = logger
}

// Repository returns the underlying repository for queries.
func (j *Journal) Repository() Repository {
	return j.repo
}

// DispatchCompleted implements iot.Observer.
func (j *Journal) DispatchCompleted(ctx context.Context, ev iot.DispatchEvent) {
	ctx, cancel := writeContext(ctx)
	defer cancel()

	if err := j.repo.RecordDispatch(ctx, dispatchRecord(ev)); err != nil {
		j.logger.Warn("journal: recording dispatch failed",
			"execution_id", ev.ExecutionID,
			"device_id", string(ev.Message.Target),
			"error", err,
		)
	}
}

// ProgramStarted implements iot.Observer.
func (j *Journal) ProgramStarted(ctx context.Context, ev iot.ProgramEvent) {
	ctx, cancel := writeContext(ctx)
	defer cancel()

	exec := Execution{
		ID:        ev.ExecutionID,
		Steps:     ev.Steps,
		Status:    StatusRunning,
		StartedAt: ev.StartedAt,
	}
	if err := j.repo.StartExecution(ctx, exec); err != nil {
		j.logger.Warn("journal: recording execution start failed",
			"execution_id", ev.ExecutionID,
			"error", err,
		)
	}
}

// ProgramCompleted implements iot.Observer.
func (j *Journal) ProgramCompleted(ctx context.Context, ev iot.ProgramEvent) {
	ctx, cancel := writeContext(ctx)
	defer cancel()

	finished := ev.StartedAt.Add(ev.Duration)
	exec := Execution{
		ID:         ev.ExecutionID,
		Steps:      ev.Steps,
		Completed:  ev.Completed,
		Status:     StatusSucceeded,
		StartedAt:  ev.StartedAt,
		FinishedAt: &finished,
		DurationMS: ev.Duration.Milliseconds(),
	}
	if ev.Err != nil {
		exec.Status = StatusFailed
		exec.ErrorKind = iot.ErrorKind(ev.Err)
		exec.Error = ev.Err.Error()
	}

	if err := j.repo.FinishExecution(ctx, exec); err != nil {
		j.logger.Warn("journal: recording execution result failed",
			"execution_id", ev.ExecutionID,
			"error", err,
		)
	}
}

func dispatchRecord(ev iot.DispatchEvent) DispatchRecord {
	s := ev.Summary()
	rec := DispatchRecord{
		ExecutionID: s.ExecutionID,
		Index:       s.Index,
		DeviceID:    s.DeviceID,
		Command:     s.Command,
		Payload:     s.Payload,
		Outcome:     OutcomeOK,
		ErrorKind:   s.ErrorKind,
		Error:       s.Error,
		StartedAt:   s.StartedAt,
		DurationMS:  s.DurationMS,
	}
	if !s.OK {
		rec.Outcome = OutcomeError
	}
	return rec
}

func writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
}
