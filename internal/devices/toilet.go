package devices

import (
	"context"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
)

// SmartToilet is a sanitary fixture that can flush and self-clean.
type SmartToilet struct {
	base
	flushes int
	cleans  int
}

// NewSmartToilet creates a toilet with zeroed counters.
func NewSmartToilet(opts ...Option) *SmartToilet {
	t := &SmartToilet{}
	t.init(TypeSmartToilet, "Smart Toilet", iot.NewCapabilitySet(iot.CommandFlush, iot.CommandClean), opts)
	return t
}

// Accept implements iot.Device.
func (t *SmartToilet) Accept(ctx context.Context, kind iot.CommandKind, payload *string) error {
	if err := t.check(kind, payload); err != nil {
		return err
	}
	if err := t.wait(ctx); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	switch kind {
	case iot.CommandFlush:
		t.flushes++
	case iot.CommandClean:
		t.cleans++
	}
	return nil
}

// Flushes returns how many times the toilet has flushed.
func (t *SmartToilet) Flushes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushes
}

// Cleans returns how many clean cycles have run.
func (t *SmartToilet) Cleans() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cleans
}

// State implements iot.Describer.
func (t *SmartToilet) State() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return map[string]any{
		"flushes": t.flushes,
		"cleans":  t.cleans,
	}
}
