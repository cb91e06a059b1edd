package iot

import (
	"context"
	"sort"
)

// Device is the capability every registered device exposes.
//
// Accept must validate before mutating: a rejected command leaves the
// device's observable state unchanged. Implementations guard their own
// state; the coordinator may call Accept from several goroutines when two
// programs target the same device.
type Device interface {
	// Capabilities returns the command kinds the device supports.
	Capabilities() CapabilitySet

	// Accept executes a command. payload is nil when the message has none.
	Accept(ctx context.Context, kind CommandKind, payload *string) error
}

// CapabilitySet is the set of command kinds a device variant declares.
type CapabilitySet map[CommandKind]struct{}

// NewCapabilitySet builds a set from the given kinds.
func NewCapabilitySet(kinds ...CommandKind) CapabilitySet {
	set := make(CapabilitySet, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return set
}

// Supports reports whether kind is in the set.
func (s CapabilitySet) Supports(kind CommandKind) bool {
	_, ok := s[kind]
	return ok
}

// Kinds returns the members sorted by name.
func (s CapabilitySet) Kinds() []CommandKind {
	kinds := make([]CommandKind, 0, len(s))
	for k := range s {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Describer is optionally implemented by devices that can name themselves
// and report a snapshot of their state. Used for listings and logs only.
type Describer interface {
	Name() string
	Type() string
	State() map[string]any
}
