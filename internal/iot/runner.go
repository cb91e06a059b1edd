package iot

import (
	"context"
	"time"
)

// MessageDispatcher delivers one message. *Dispatcher implements it.
type MessageDispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// Runner executes programs: messages are dispatched strictly in order and
// the run aborts on the first failure.
//
// Thread Safety: Run is safe for concurrent use; concurrent runs share
// nothing but the dispatcher.
type Runner struct {
	dispatcher MessageDispatcher
	observer   Observer
	logger     Logger

	// step is an optional pause between consecutive messages.
	step time.Duration
}

// NewRunner creates a program runner. observer may be nil.
func NewRunner(dispatcher MessageDispatcher, observer Observer) *Runner {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Runner{
		dispatcher: dispatcher,
		observer:   observer,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the runner.
func (r *Runner) SetLogger(logger Logger) {
	r.logger = logger
}

// SetStepDelay sets a pause inserted between consecutive messages.
func (r *Runner) SetStepDelay(d time.Duration) {
	r.step = d
}

// Run executes program in order.
//
// Message i+1 is dispatched only after the dispatch of message i has
// returned. On the first failure the remaining messages are skipped and a
// *ProgramError carrying the zero-based index is returned. Already
// dispatched messages are not compensated. An empty program succeeds.
//
// The context is checked before every message, so a cancelled run stops
// before its next message; the returned ProgramError then wraps the
// context error.
//
// If ctx carries no execution ID (see WithExecutionID) one is generated.
func (r *Runner) Run(ctx context.Context, program Program) error {
	execID, ok := ExecutionIDFromContext(ctx)
	if !ok {
		execID = GenerateExecutionID()
		ctx = WithExecutionID(ctx, execID)
	}

	started := time.Now()
	ev := ProgramEvent{
		ExecutionID: execID,
		Steps:       len(program),
		StartedAt:   started.UTC(),
	}
	r.observer.ProgramStarted(ctx, ev)

	completed, err := r.run(ctx, program)

	ev.Completed = completed
	ev.Err = err
	ev.Duration = time.Since(started)
	r.observer.ProgramCompleted(ctx, ev)

	return err
}

// run is the sequential loop. It returns the number of messages that
// completed successfully.
func (r *Runner) run(ctx context.Context, program Program) (int, error) {
	for i, msg := range program {
		if i > 0 && r.step > 0 {
			select {
			case <-time.After(r.step):
			case <-ctx.Done():
				return i, &ProgramError{Index: i, Message: msg, Err: ctx.Err()}
			}
		}

		if err := ctx.Err(); err != nil {
			return i, &ProgramError{Index: i, Message: msg, Err: err}
		}

		if err := r.dispatcher.Dispatch(withStepIndex(ctx, i), msg); err != nil {
			return i, &ProgramError{Index: i, Message: msg, Err: err}
		}
	}
	return len(program), nil
}
