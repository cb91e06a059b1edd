package iot

import "fmt"

// CommandKind identifies the action a message asks a device to perform.
type CommandKind string

// Command kinds understood by the coordinator.
const (
	CommandSwitchOn  CommandKind = "switch_on"
	CommandSwitchOff CommandKind = "switch_off"
	CommandPlaySong  CommandKind = "play_song"
	CommandFlush     CommandKind = "flush"
	CommandClean     CommandKind = "clean"
)

// AllCommandKinds returns every known command kind.
func AllCommandKinds() []CommandKind {
	return []CommandKind{
		CommandSwitchOn,
		CommandSwitchOff,
		CommandPlaySong,
		CommandFlush,
		CommandClean,
	}
}

// ParseCommandKind validates a command kind arriving from config or the API.
func ParseCommandKind(s string) (CommandKind, error) {
	for _, k := range AllCommandKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCommandKind, s)
}

// Message is a single addressed command. It is a value type; copies are
// independent and the coordinator never mutates one after construction.
type Message struct {
	Target  DeviceID
	Kind    CommandKind
	Payload *string
}

// NewMessage creates a message without a payload.
func NewMessage(target DeviceID, kind CommandKind) Message {
	return Message{Target: target, Kind: kind}
}

// NewMessageWithPayload creates a message carrying a payload.
// Whether the payload is meaningful for the kind is decided by the device.
func NewMessageWithPayload(target DeviceID, kind CommandKind, payload string) Message {
	return Message{Target: target, Kind: kind, Payload: &payload}
}

// HasPayload reports whether the message carries a payload.
func (m Message) HasPayload() bool {
	return m.Payload != nil
}

// PayloadString returns the payload or an empty string.
func (m Message) PayloadString() string {
	if m.Payload == nil {
		return ""
	}
	return *m.Payload
}

// String formats the message for logs.
func (m Message) String() string {
	if m.Payload == nil {
		return fmt.Sprintf("%s -> %s", m.Kind, m.Target)
	}
	return fmt.Sprintf("%s(%q) -> %s", m.Kind, *m.Payload, m.Target)
}

// Program is an ordered sequence of messages executed as a unit.
type Program []Message
