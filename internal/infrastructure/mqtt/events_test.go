package mqtt

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
)

func TestEventPublisher_Dispatch(t *testing.T) {
	pub := &fakePublisher{}
	p := NewEventPublisher(pub)

	p.DispatchCompleted(context.Background(), iot.DispatchEvent{
		ExecutionID: "exe-1",
		Index:       2,
		Message:     iot.NewMessage("dev-7", iot.CommandFlush),
		Err:         &iot.DispatchError{DeviceID: "dev-7", Kind: iot.CommandFlush, Err: iot.ErrUnknownDevice},
		StartedAt:   time.Now(),
		Duration:    3 * time.Millisecond,
	})

	msgs := pub.all()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	if msgs[0].topic != "graylogic/iot/dispatch/dev-7" {
		t.Errorf("topic = %q", msgs[0].topic)
	}
	if msgs[0].env["event"] != iot.EventDispatchCompleted {
		t.Errorf("event = %v", msgs[0].env["event"])
	}

	data, ok := msgs[0].env["data"].(map[string]any)
	if !ok {
		t.Fatalf("data = %T, want object", msgs[0].env["data"])
	}
	if data["ok"] != false || data["error_kind"] != iot.KindUnknownDevice || data["index"] != float64(2) {
		t.Errorf("data = %v", data)
	}
}

func TestEventPublisher_Program(t *testing.T) {
	pub := &fakePublisher{}
	p := NewEventPublisher(pub)
	ctx := context.Background()

	ev := iot.ProgramEvent{ExecutionID: "exe-9", Steps: 3, StartedAt: time.Now()}
	p.ProgramStarted(ctx, ev)

	ev.Completed = 1
	ev.Err = &iot.ProgramError{Index: 1, Message: iot.NewMessage("dev-1", iot.CommandClean), Err: iot.ErrUnsupportedCommand}
	p.ProgramCompleted(ctx, ev)

	msgs := pub.all()
	if len(msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(msgs))
	}
	for i, want := range []string{iot.EventProgramStarted, iot.EventProgramCompleted} {
		if msgs[i].topic != "graylogic/iot/program/exe-9" || msgs[i].env["event"] != want {
			t.Errorf("msgs[%d] = %s %v, want %s", i, msgs[i].topic, msgs[i].env["event"], want)
		}
	}

	data := msgs[1].env["data"].(map[string]any)
	if data["failed_index"] != float64(1) || data["error_kind"] != iot.KindUnsupportedCommand {
		t.Errorf("completed data = %v", data)
	}
}

func TestEventPublisher_LogsFailures(t *testing.T) {
	logger := &captureLogger{}
	p := NewEventPublisher(&fakePublisher{err: fmt.Errorf("%w: broker gone", ErrNotConnected)})
	p.SetLogger(logger)

	p.ProgramStarted(context.Background(), iot.ProgramEvent{ExecutionID: "exe-1"})

	if logger.warnCount() != 1 {
		t.Errorf("logged %d warnings, want 1", logger.warnCount())
	}
}

func TestEventPublisher_InService(t *testing.T) {
	pub := &fakePublisher{}
	svc := iot.NewService(iot.Options{Observer: NewEventPublisher(pub)})

	_, err := svc.RunProgram(context.Background(), iot.Program{
		iot.NewMessage("dev-missing", iot.CommandSwitchOn),
	})
	if !errors.Is(err, iot.ErrUnknownDevice) {
		t.Fatalf("RunProgram() error = %v", err)
	}

	// started, dispatch, completed
	if got := len(pub.all()); got != 3 {
		t.Errorf("published %d events, want 3", got)
	}
}
