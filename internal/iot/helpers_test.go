package iot

import (
	"context"
	"errors"
	"sync"
)

// ─── Test Doubles ───────────────────────────────────────────────────────────

// callLog records accepted commands across devices in global order.
type callLog struct {
	mu    sync.Mutex
	calls []call
}

type call struct {
	Device  string
	Kind    CommandKind
	Payload string
}

func (l *callLog) add(c call) {
	l.mu.Lock()
	l.calls = append(l.calls, c)
	l.mu.Unlock()
}

func (l *callLog) snapshot() []call {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]call, len(l.calls))
	copy(out, l.calls)
	return out
}

// fakeDevice accepts a fixed set of kinds and records every accepted
// command. Commands listed in failOn are rejected before any state change.
type fakeDevice struct {
	name   string
	caps   CapabilitySet
	log    *callLog
	failOn map[CommandKind]error

	mu    sync.Mutex
	state map[string]any
}

func newFakeDevice(name string, log *callLog, kinds ...CommandKind) *fakeDevice {
	return &fakeDevice{
		name:   name,
		caps:   NewCapabilitySet(kinds...),
		log:    log,
		failOn: make(map[CommandKind]error),
		state:  make(map[string]any),
	}
}

func (d *fakeDevice) Capabilities() CapabilitySet { return d.caps }

func (d *fakeDevice) Accept(_ context.Context, kind CommandKind, payload *string) error {
	if err, ok := d.failOn[kind]; ok {
		return err
	}
	p := ""
	if payload != nil {
		p = *payload
	}
	d.mu.Lock()
	d.state[string(kind)] = p
	d.mu.Unlock()
	if d.log != nil {
		d.log.add(call{Device: d.name, Kind: kind, Payload: p})
	}
	return nil
}

func (d *fakeDevice) Name() string { return d.name }
func (d *fakeDevice) Type() string { return "fake" }

func (d *fakeDevice) State() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]any, len(d.state))
	for k, v := range d.state {
		out[k] = v
	}
	return out
}

var errBrokenPayload = errors.New("payload rejected")

// recordingObserver captures all events.
type recordingObserver struct {
	mu        sync.Mutex
	dispatch  []DispatchEvent
	started   []ProgramEvent
	completed []ProgramEvent
}

func (o *recordingObserver) DispatchCompleted(_ context.Context, ev DispatchEvent) {
	o.mu.Lock()
	o.dispatch = append(o.dispatch, ev)
	o.mu.Unlock()
}

func (o *recordingObserver) ProgramStarted(_ context.Context, ev ProgramEvent) {
	o.mu.Lock()
	o.started = append(o.started, ev)
	o.mu.Unlock()
}

func (o *recordingObserver) ProgramCompleted(_ context.Context, ev ProgramEvent) {
	o.mu.Lock()
	o.completed = append(o.completed, ev)
	o.mu.Unlock()
}
