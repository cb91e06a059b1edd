package iot

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// executionIDPrefix marks identifiers of program runs.
const executionIDPrefix = "exe-"

// DispatchEvent describes the outcome of one dispatch.
type DispatchEvent struct {
	ExecutionID string // empty for dispatches outside a program
	Index       int    // position in the program, -1 outside a program
	Message     Message
	Err         error
	StartedAt   time.Time
	Duration    time.Duration
}

// ProgramEvent describes a program run. Err is nil while the run is in
// progress and on success.
type ProgramEvent struct {
	ExecutionID string
	Steps       int
	Completed   int
	Err         error
	StartedAt   time.Time
	Duration    time.Duration
}

// Observer receives dispatch and program events. Implementations must be
// safe for concurrent use and must not block for long; they run on the
// dispatching goroutine.
type Observer interface {
	DispatchCompleted(ctx context.Context, ev DispatchEvent)
	ProgramStarted(ctx context.Context, ev ProgramEvent)
	ProgramCompleted(ctx context.Context, ev ProgramEvent)
}

// Observers fans events out to several observers in order.
type Observers []Observer

// DispatchCompleted implements Observer.
func (o Observers) DispatchCompleted(ctx context.Context, ev DispatchEvent) {
	for _, obs := range o {
		obs.DispatchCompleted(ctx, ev)
	}
}

// ProgramStarted implements Observer.
func (o Observers) ProgramStarted(ctx context.Context, ev ProgramEvent) {
	for _, obs := range o {
		obs.ProgramStarted(ctx, ev)
	}
}

// ProgramCompleted implements Observer.
func (o Observers) ProgramCompleted(ctx context.Context, ev ProgramEvent) {
	for _, obs := range o {
		obs.ProgramCompleted(ctx, ev)
	}
}

// noopObserver discards all events.
type noopObserver struct{}

func (noopObserver) DispatchCompleted(context.Context, DispatchEvent) {}
func (noopObserver) ProgramStarted(context.Context, ProgramEvent)     {}
func (noopObserver) ProgramCompleted(context.Context, ProgramEvent)   {}

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const (
	ctxKeyExecutionID contextKey = "execution_id"
	ctxKeyStepIndex   contextKey = "step_index"
)

// WithExecutionID returns a context carrying the program execution ID.
func WithExecutionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyExecutionID, id)
}

// ExecutionIDFromContext returns the execution ID carried by ctx, if any.
func ExecutionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKeyExecutionID).(string)
	return id, ok && id != ""
}

// withStepIndex records the position of the message being dispatched.
func withStepIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, ctxKeyStepIndex, index)
}

// stepIndexFromContext returns the step index, or -1 outside a program.
func stepIndexFromContext(ctx context.Context) int {
	if idx, ok := ctx.Value(ctxKeyStepIndex).(int); ok {
		return idx
	}
	return -1
}

// GenerateExecutionID creates a new program execution identifier.
func GenerateExecutionID() string {
	return executionIDPrefix + uuid.NewString()
}
