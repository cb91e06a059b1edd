package devices

import (
	"fmt"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
)

// New constructs a device by type name. It is used where device types
// arrive as strings, such as the HTTP API.
func New(deviceType string, opts ...Option) (iot.Device, error) {
	switch deviceType {
	case TypeHueLight:
		return NewHueLight(opts...), nil
	case TypeSmartSpeaker:
		return NewSmartSpeaker(opts...), nil
	case TypeSmartToilet:
		return NewSmartToilet(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, deviceType)
	}
}

// Types returns the device type names New understands.
func Types() []string {
	return []string{TypeHueLight, TypeSmartSpeaker, TypeSmartToilet}
}
