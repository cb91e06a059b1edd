package iot

import (
	"context"
	"fmt"
	"time"
)

// Resolver looks up registered devices. *Registry implements it.
type Resolver interface {
	Resolve(id DeviceID) (Device, error)
}

// Dispatcher routes single messages to their target devices.
//
// A dispatch is one best-effort attempt: the dispatcher never retries and
// never swallows an error. Every failure is returned as a *DispatchError
// wrapping ErrUnknownDevice, ErrUnsupportedCommand, ErrDeviceExecution or
// the context error.
//
// Thread Safety: Dispatch is safe for concurrent use.
type Dispatcher struct {
	devices  Resolver
	observer Observer
	logger   Logger
}

// NewDispatcher creates a dispatcher over the given resolver.
// observer may be nil.
func NewDispatcher(devices Resolver, observer Observer) *Dispatcher {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Dispatcher{
		devices:  devices,
		observer: observer,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// Dispatch resolves msg.Target and invokes the device with msg.Kind and
// msg.Payload.
//
// Parameters:
//   - ctx: Context for cancellation; checked before the device is touched
//   - msg: The message to deliver
//
// Returns:
//   - error: nil on success, or a *DispatchError
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) error {
	started := time.Now()
	err := d.dispatch(ctx, msg)

	execID, _ := ExecutionIDFromContext(ctx) //nolint:errcheck // empty outside a program
	d.observer.DispatchCompleted(ctx, DispatchEvent{
		ExecutionID: execID,
		Index:       stepIndexFromContext(ctx),
		Message:     msg,
		Err:         err,
		StartedAt:   started.UTC(),
		Duration:    time.Since(started),
	})

	if err != nil {
		d.logger.Debug("dispatch failed",
			"device_id", msg.Target,
			"command", msg.Kind,
			"error_kind", ErrorKind(err),
			"error", err,
		)
		return err
	}

	d.logger.Debug("dispatch completed",
		"device_id", msg.Target,
		"command", msg.Kind,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, msg Message) error {
	fail := func(err error) error {
		return &DispatchError{DeviceID: msg.Target, Kind: msg.Kind, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	device, err := d.devices.Resolve(msg.Target)
	if err != nil {
		return fail(err)
	}

	if !device.Capabilities().Supports(msg.Kind) {
		return fail(fmt.Errorf("%w: %s", ErrUnsupportedCommand, msg.Kind))
	}

	if err := device.Accept(ctx, msg.Kind, msg.Payload); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrDeviceExecution, err))
	}

	return nil
}
