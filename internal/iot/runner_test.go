package iot

import (
	"context"
	"errors"
	"testing"
	"time"
)

// newTestRig registers a lamp and a toilet and returns a runner over them.
func newTestRig(t *testing.T) (*Runner, *callLog, DeviceID, DeviceID) {
	t.Helper()
	ctx := context.Background()
	log := &callLog{}
	r := NewRegistry()

	lamp, err := r.Register(ctx, newFakeDevice("lamp", log, CommandSwitchOn, CommandSwitchOff))
	if err != nil {
		t.Fatalf("Register(lamp) error = %v", err)
	}
	toilet, err := r.Register(ctx, newFakeDevice("toilet", log, CommandFlush, CommandClean))
	if err != nil {
		t.Fatalf("Register(toilet) error = %v", err)
	}

	return NewRunner(NewDispatcher(r, nil), nil), log, lamp, toilet
}

func TestRunner_PreservesOrder(t *testing.T) {
	runner, log, lamp, toilet := newTestRig(t)

	program := Program{
		NewMessage(lamp, CommandSwitchOn),
		NewMessage(toilet, CommandFlush),
		NewMessage(lamp, CommandSwitchOff),
		NewMessage(toilet, CommandClean),
	}
	if err := runner.Run(context.Background(), program); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	calls := log.snapshot()
	if len(calls) != len(program) {
		t.Fatalf("devices saw %d commands, want %d", len(calls), len(program))
	}
	for i, msg := range program {
		if calls[i].Kind != msg.Kind {
			t.Errorf("call %d = %s, want %s", i, calls[i].Kind, msg.Kind)
		}
	}
}

func TestRunner_AbortsOnFirstFailure(t *testing.T) {
	runner, log, lamp, toilet := newTestRig(t)

	program := Program{
		NewMessage(lamp, CommandSwitchOn),
		NewMessage(lamp, CommandFlush), // unsupported by the lamp
		NewMessage(toilet, CommandFlush),
	}
	err := runner.Run(context.Background(), program)

	var perr *ProgramError
	if !errors.As(err, &perr) {
		t.Fatalf("Run() error = %v, want *ProgramError", err)
	}
	if perr.Index != 1 {
		t.Errorf("ProgramError.Index = %d, want 1", perr.Index)
	}
	if !errors.Is(err, ErrUnsupportedCommand) {
		t.Errorf("Run() error = %v, want ErrUnsupportedCommand", err)
	}

	calls := log.snapshot()
	if len(calls) != 1 {
		t.Fatalf("devices saw %d commands, want 1 (third message must not run)", len(calls))
	}
	if calls[0].Device != "lamp" || calls[0].Kind != CommandSwitchOn {
		t.Errorf("first call = %+v, want lamp switch_on", calls[0])
	}
}

func TestRunner_EmptyProgram(t *testing.T) {
	runner, log, _, _ := newTestRig(t)

	if err := runner.Run(context.Background(), nil); err != nil {
		t.Errorf("Run(nil) error = %v", err)
	}
	if err := runner.Run(context.Background(), Program{}); err != nil {
		t.Errorf("Run(empty) error = %v", err)
	}
	if len(log.snapshot()) != 0 {
		t.Error("empty program dispatched commands")
	}
}

func TestRunner_CancelStopsBeforeNextMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := &callLog{}
	r := NewRegistry()
	lamp := newFakeDevice("lamp", log, CommandSwitchOn, CommandSwitchOff)
	id, _ := r.Register(ctx, lamp) //nolint:errcheck // fresh registry

	// Cancel as soon as the first message is delivered.
	d := &cancellingDispatcher{inner: NewDispatcher(r, nil), cancel: cancel}
	runner := NewRunner(d, nil)

	err := runner.Run(ctx, Program{
		NewMessage(id, CommandSwitchOn),
		NewMessage(id, CommandSwitchOff),
	})

	var perr *ProgramError
	if !errors.As(err, &perr) {
		t.Fatalf("Run() error = %v, want *ProgramError", err)
	}
	if perr.Index != 1 {
		t.Errorf("ProgramError.Index = %d, want 1", perr.Index)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if n := len(log.snapshot()); n != 1 {
		t.Errorf("devices saw %d commands, want 1", n)
	}
}

func TestRunner_StepDelayRespectsCancel(t *testing.T) {
	runner, log, lamp, _ := newTestRig(t)
	runner.SetStepDelay(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := runner.Run(ctx, Program{
		NewMessage(lamp, CommandSwitchOn),
		NewMessage(lamp, CommandSwitchOff),
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want context.DeadlineExceeded", err)
	}
	if n := len(log.snapshot()); n != 1 {
		t.Errorf("devices saw %d commands, want 1", n)
	}
}

func TestRunner_ObserverEvents(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	id, _ := r.Register(ctx, newFakeDevice("lamp", nil, CommandSwitchOn)) //nolint:errcheck // fresh registry

	obs := &recordingObserver{}
	runner := NewRunner(NewDispatcher(r, obs), obs)

	ctx = WithExecutionID(ctx, "exe-test")
	err := runner.Run(ctx, Program{
		NewMessage(id, CommandSwitchOn),
		NewMessage(id, CommandClean),
	})
	if err == nil {
		t.Fatal("Run() expected error for unsupported second step")
	}

	if len(obs.started) != 1 || len(obs.completed) != 1 {
		t.Fatalf("program events = %d started, %d completed, want 1/1", len(obs.started), len(obs.completed))
	}
	done := obs.completed[0]
	if done.ExecutionID != "exe-test" || done.Steps != 2 || done.Completed != 1 || done.Err == nil {
		t.Errorf("completed event = %+v", done)
	}

	if len(obs.dispatch) != 2 {
		t.Fatalf("dispatch events = %d, want 2", len(obs.dispatch))
	}
	for i, ev := range obs.dispatch {
		if ev.Index != i || ev.ExecutionID != "exe-test" {
			t.Errorf("dispatch event %d = {index %d, exec %q}", i, ev.Index, ev.ExecutionID)
		}
	}
}

func TestRunner_GeneratesExecutionID(t *testing.T) {
	obs := &recordingObserver{}
	runner := NewRunner(NewDispatcher(NewRegistry(), nil), obs)

	if err := runner.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(obs.started) != 1 || obs.started[0].ExecutionID == "" {
		t.Errorf("started events = %+v, want one with an execution id", obs.started)
	}
}

// cancellingDispatcher cancels the run's context after each dispatch.
type cancellingDispatcher struct {
	inner  MessageDispatcher
	cancel context.CancelFunc
}

func (d *cancellingDispatcher) Dispatch(ctx context.Context, msg Message) error {
	err := d.inner.Dispatch(ctx, msg)
	d.cancel()
	return err
}
