package iot

import (
	"context"
	"errors"
	"fmt"
)

// Domain errors for the iot package.
//
// These errors can be checked using errors.Is() through any wrapping,
// including DispatchError and ProgramError:
//
//	if errors.Is(err, iot.ErrUnknownDevice) {
//	    // handle unregistered target
//	}
var (
	// ErrRegistration is returned when the registry cannot admit a device.
	ErrRegistration = errors.New("iot: registration failed")

	// ErrUnknownDevice is returned when an identity was never registered.
	ErrUnknownDevice = errors.New("iot: unknown device")

	// ErrUnsupportedCommand is returned when the target device does not
	// declare the requested command kind.
	ErrUnsupportedCommand = errors.New("iot: unsupported command")

	// ErrDeviceExecution is returned when a device accepted a command but
	// failed while executing it.
	ErrDeviceExecution = errors.New("iot: device execution failed")

	// ErrInvalidCommandKind is returned when parsing an unknown command kind.
	ErrInvalidCommandKind = errors.New("iot: invalid command kind")
)

// Error kinds reported in logs, the execution journal and API responses.
const (
	KindRegistration       = "registration"
	KindUnknownDevice      = "unknown_device"
	KindUnsupportedCommand = "unsupported_command"
	KindDeviceExecution    = "device_execution"
	KindCancelled          = "cancelled"
	KindInternal           = "internal"
)

// DispatchError describes a failed dispatch of a single message.
type DispatchError struct {
	DeviceID DeviceID
	Kind     CommandKind
	Err      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatching %s to %s: %v", e.Kind, e.DeviceID, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// ProgramError reports the first failing message of a program. Messages
// before Index were dispatched and are not rolled back; messages after it
// were never dispatched.
type ProgramError struct {
	Index   int
	Message Message
	Err     error
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("program step %d (%s): %v", e.Index, e.Message.Kind, e.Err)
}

func (e *ProgramError) Unwrap() error {
	return e.Err
}

// ErrorKind maps an error to a stable kind string.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, ErrUnknownDevice):
		return KindUnknownDevice
	case errors.Is(err, ErrUnsupportedCommand):
		return KindUnsupportedCommand
	case errors.Is(err, ErrDeviceExecution):
		return KindDeviceExecution
	case errors.Is(err, ErrRegistration):
		return KindRegistration
	default:
		return KindInternal
	}
}
