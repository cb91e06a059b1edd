package devices

import (
	"context"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
)

// HueLight is a switchable light.
type HueLight struct {
	base
	on       bool
	switches int
}

// NewHueLight creates a light that starts switched off.
func NewHueLight(opts ...Option) *HueLight {
	l := &HueLight{}
	l.init(TypeHueLight, "Hue Light", iot.NewCapabilitySet(iot.CommandSwitchOn, iot.CommandSwitchOff), opts)
	return l
}

// Accept implements iot.Device.
func (l *HueLight) Accept(ctx context.Context, kind iot.CommandKind, payload *string) error {
	if err := l.check(kind, payload); err != nil {
		return err
	}
	if err := l.wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = kind == iot.CommandSwitchOn
	l.switches++
	return nil
}

// IsOn reports whether the light is on.
func (l *HueLight) IsOn() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

// State implements iot.Describer.
func (l *HueLight) State() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return map[string]any{
		"on":       l.on,
		"switches": l.switches,
	}
}
