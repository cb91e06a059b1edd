package devices

import (
	"context"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
)

// SmartSpeaker is a speaker that can be switched and asked to play a song.
// Playing does not require the speaker to be switched on first; programs
// racing each other may deliver play_song before switch_on.
type SmartSpeaker struct {
	base
	on      bool
	playing string
	played  []string
}

// NewSmartSpeaker creates a speaker that starts switched off and silent.
func NewSmartSpeaker(opts ...Option) *SmartSpeaker {
	s := &SmartSpeaker{}
	s.init(TypeSmartSpeaker, "Smart Speaker", iot.NewCapabilitySet(iot.CommandSwitchOn, iot.CommandSwitchOff, iot.CommandPlaySong), opts)
	return s
}

// Accept implements iot.Device.
func (s *SmartSpeaker) Accept(ctx context.Context, kind iot.CommandKind, payload *string) error {
	if err := s.check(kind, payload); err != nil {
		return err
	}
	if err := s.wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case iot.CommandSwitchOn:
		s.on = true
	case iot.CommandSwitchOff:
		s.on = false
		s.playing = ""
	case iot.CommandPlaySong:
		s.playing = *payload
		s.played = append(s.played, *payload)
	}
	return nil
}

// IsOn reports whether the speaker is on.
func (s *SmartSpeaker) IsOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

// Playing returns the current song, or "" when silent.
func (s *SmartSpeaker) Playing() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Played returns every song played so far, oldest first.
func (s *SmartSpeaker) Played() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.played))
	copy(out, s.played)
	return out
}

// State implements iot.Describer.
func (s *SmartSpeaker) State() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"on":      s.on,
		"playing": s.playing,
		"played":  len(s.played),
	}
}
