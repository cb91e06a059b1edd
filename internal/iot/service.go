package iot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ProgramResult is the outcome of one program launched by RunPrograms.
type ProgramResult struct {
	Index       int // position of the program in the RunPrograms call
	ExecutionID string
	Err         error
	Duration    time.Duration
}

// Service composes the registry, dispatcher and runner into the
// coordinator's public surface.
//
// Registration is concurrent and fail-fast. Programs run concurrently with
// respect to each other and fail independently; within a program messages
// keep their order.
type Service struct {
	registry   *Registry
	dispatcher *Dispatcher
	runner     *Runner
	logger     Logger
}

// Options configures a Service.
type Options struct {
	// MaxDevices bounds the registry. Zero means unlimited.
	MaxDevices int

	// StepDelay pauses between consecutive messages of a program.
	StepDelay time.Duration

	// Observer receives dispatch and program events. May be nil.
	Observer Observer

	// Logger is used by every component. May be nil.
	Logger Logger
}

// NewService wires a registry, dispatcher and runner together.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	registry := NewRegistry(WithMaxDevices(opts.MaxDevices))
	registry.SetLogger(logger)

	dispatcher := NewDispatcher(registry, opts.Observer)
	dispatcher.SetLogger(logger)

	runner := NewRunner(dispatcher, opts.Observer)
	runner.SetLogger(logger)
	runner.SetStepDelay(opts.StepDelay)

	return &Service{
		registry:   registry,
		dispatcher: dispatcher,
		runner:     runner,
		logger:     logger,
	}
}

// Registry returns the service's device registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Dispatcher returns the service's dispatcher.
func (s *Service) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// RegisterDevice registers a single device.
func (s *Service) RegisterDevice(ctx context.Context, device Device) (DeviceID, error) {
	return s.registry.Register(ctx, device)
}

// RegisterDevices registers all devices concurrently.
//
// Every registration is issued without waiting for the others. Identities
// are returned in argument order once every registration has finished. If
// any registration fails the first error is returned and no identities are
// returned; callers must not run programs in that case.
func (s *Service) RegisterDevices(ctx context.Context, devices ...Device) ([]DeviceID, error) {
	ids := make([]DeviceID, len(devices))

	// No derived context: a failure must not cancel registrations that are
	// already in flight.
	var g errgroup.Group
	for i, d := range devices {
		g.Go(func() error {
			id, err := s.registry.Register(ctx, d)
			if err != nil {
				return fmt.Errorf("registering device %d: %w", i, err)
			}
			ids[i] = id
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("device registration failed", "error", err)
		return nil, err
	}

	s.logger.Info("devices registered", "count", len(ids))
	return ids, nil
}

// RunProgram runs one program and returns its execution ID alongside the
// result.
func (s *Service) RunProgram(ctx context.Context, program Program) (string, error) {
	execID := GenerateExecutionID()
	err := s.runner.Run(WithExecutionID(ctx, execID), program)
	if err != nil {
		s.reportProgramError(execID, err)
	}
	return execID, err
}

// RunPrograms runs every program concurrently and waits for all of them.
//
// A failing program never cancels its siblings. Results are returned in
// argument order; each failure is also logged with the failing device,
// command, error kind and message.
func (s *Service) RunPrograms(ctx context.Context, programs ...Program) []ProgramResult {
	results := make([]ProgramResult, len(programs))

	var wg sync.WaitGroup
	for i, p := range programs {
		wg.Add(1)
		go func(idx int, program Program) {
			defer wg.Done()

			started := time.Now()
			execID, err := s.RunProgram(ctx, program)
			results[idx] = ProgramResult{
				Index:       idx,
				ExecutionID: execID,
				Err:         err,
				Duration:    time.Since(started),
			}
		}(i, p)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.logger.Info("programs finished", "total", len(programs), "failed", failed)

	return results
}

// reportProgramError logs a failed program run.
func (s *Service) reportProgramError(execID string, err error) {
	var perr *ProgramError
	if !errors.As(err, &perr) {
		s.logger.Error("program failed", "execution_id", execID, "error", err)
		return
	}
	s.logger.Error("program failed",
		"execution_id", execID,
		"index", perr.Index,
		"device_id", perr.Message.Target,
		"command", perr.Message.Kind,
		"error_kind", ErrorKind(perr.Err),
		"error", perr.Err.Error(),
	)
}
