package devices

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
)

// Domain errors for the devices package.
var (
	// ErrInvalidPayload is returned when a command's payload is missing,
	// empty or not expected for its kind.
	ErrInvalidPayload = errors.New("devices: invalid payload")

	// ErrUnsupportedCommand is returned when Accept is called directly with
	// a kind outside the device's capability set.
	ErrUnsupportedCommand = errors.New("devices: unsupported command")

	// ErrUnknownType is returned by New for an unrecognised device type.
	ErrUnknownType = errors.New("devices: unknown type")
)

// Device type names reported through iot.Describer.
const (
	TypeHueLight     = "hue_light"
	TypeSmartSpeaker = "smart_speaker"
	TypeSmartToilet  = "smart_toilet"
)

// Option configures a device at construction time.
type Option func(*base)

// WithName sets a human-readable name.
func WithName(name string) Option {
	return func(b *base) {
		b.name = name
	}
}

// WithLatency makes every command take d before it completes, simulating
// device I/O. The wait honours context cancellation and happens before
// any state change.
func WithLatency(d time.Duration) Option {
	return func(b *base) {
		b.latency = d
	}
}

// base holds what every device variant shares: identity fields, the
// capability set, simulated latency and the state lock.
type base struct {
	name    string
	kind    string
	caps    iot.CapabilitySet
	latency time.Duration
	mu      sync.Mutex
}

func (b *base) init(kind, defaultName string, caps iot.CapabilitySet, opts []Option) {
	b.name = defaultName
	b.kind = kind
	b.caps = caps
	for _, opt := range opts {
		opt(b)
	}
}

// Name implements iot.Describer.
func (b *base) Name() string { return b.name }

// Type implements iot.Describer.
func (b *base) Type() string { return b.kind }

// Capabilities implements iot.Device.
func (b *base) Capabilities() iot.CapabilitySet { return b.caps }

// check validates kind and payload shape before anything is touched.
// Only play_song carries a payload.
func (b *base) check(kind iot.CommandKind, payload *string) error {
	if !b.caps.Supports(kind) {
		return fmt.Errorf("%w: %s does not support %s", ErrUnsupportedCommand, b.kind, kind)
	}
	switch kind {
	case iot.CommandPlaySong:
		if payload == nil || *payload == "" {
			return fmt.Errorf("%w: %s requires a song", ErrInvalidPayload, kind)
		}
	default:
		if payload != nil {
			return fmt.Errorf("%w: %s takes no payload", ErrInvalidPayload, kind)
		}
	}
	return nil
}

// wait simulates device I/O.
func (b *base) wait(ctx context.Context) error {
	if b.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(b.latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
