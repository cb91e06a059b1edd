package iot

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the iot package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DeviceID is the opaque identity assigned to a device at registration.
type DeviceID string

// String returns the identity as a string.
func (id DeviceID) String() string {
	return string(id)
}

// deviceIDPrefix marks registry-assigned identities.
const deviceIDPrefix = "dev-"

// Entry is a registered device together with its identity.
type Entry struct {
	ID     DeviceID
	Device Device
}

// Registry owns every registered device and maps identities to them.
//
// Identity assignment and insertion happen under a single write lock, so
// concurrent registrations never observe or hand out the same identity.
//
// All public methods are thread-safe.
type Registry struct {
	devices    map[DeviceID]Device
	order      []DeviceID // registration order, for stable listings
	maxDevices int        // 0 means unlimited
	mu         sync.RWMutex
	newID      func() DeviceID
	logger     Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMaxDevices bounds the number of devices the registry admits.
// Zero or a negative value means unlimited.
func WithMaxDevices(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxDevices = n
		}
	}
}

// withIDGenerator replaces identity generation. Tests use it to force
// collisions.
func withIDGenerator(fn func() DeviceID) RegistryOption {
	return func(r *Registry) {
		r.newID = fn
	}
}

// NewRegistry creates an empty device registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		devices: make(map[DeviceID]Device),
		newID:   generateDeviceID,
		logger:  noopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Register takes ownership of a device and returns its fresh identity.
//
// Parameters:
//   - ctx: Context for cancellation; a cancelled context admits nothing
//   - device: The constructed device to register
//
// Returns:
//   - DeviceID: The identity assigned to the device
//   - error: ErrRegistration if the device is nil (including a typed nil
//     pointer), the context is done or the registry is at capacity
func (r *Registry) Register(ctx context.Context, device Device) (DeviceID, error) {
	if isNilDevice(device) {
		return "", fmt.Errorf("%w: nil device", ErrRegistration)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRegistration, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxDevices > 0 && len(r.devices) >= r.maxDevices {
		return "", fmt.Errorf("%w: capacity of %d devices reached", ErrRegistration, r.maxDevices)
	}

	id := r.newID()
	if _, exists := r.devices[id]; exists {
		return "", fmt.Errorf("%w: identity %s already assigned", ErrRegistration, id)
	}

	r.devices[id] = device
	r.order = append(r.order, id)

	r.logger.Info("device registered", "id", id, "type", deviceType(device))
	return id, nil
}

// Resolve returns the device registered under id. The device stays owned
// by the registry; callers borrow it for the duration of one call.
// Returns ErrUnknownDevice if the identity was never registered.
func (r *Registry) Resolve(id DeviceID) (Device, error) {
	r.mu.RLock()
	device, ok := r.devices[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	return device, nil
}

// List returns all registered devices in registration order.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		entries = append(entries, Entry{ID: id, Device: r.devices[id]})
	}
	return entries
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Stats returns registry statistics for monitoring.
type Stats struct {
	TotalDevices int
	ByType       map[string]int
	ByCommand    map[CommandKind]int
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		TotalDevices: len(r.devices),
		ByType:       make(map[string]int),
		ByCommand:    make(map[CommandKind]int),
	}
	for _, d := range r.devices {
		stats.ByType[deviceType(d)]++
		for kind := range d.Capabilities() {
			stats.ByCommand[kind]++
		}
	}
	return stats
}

// IDs returns the registered identities sorted lexically.
func (r *Registry) IDs() []DeviceID {
	r.mu.RLock()
	ids := make([]DeviceID, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// generateDeviceID creates a new random device identity.
func generateDeviceID() DeviceID {
	return DeviceID(deviceIDPrefix + uuid.NewString())
}

// isNilDevice reports whether device is nil or wraps a nil pointer.
func isNilDevice(device Device) bool {
	if device == nil {
		return true
	}
	v := reflect.ValueOf(device)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}

// deviceType returns the device's declared type, or "unknown".
func deviceType(d Device) string {
	if desc, ok := d.(Describer); ok {
		return desc.Type()
	}
	return "unknown"
}
