package iot

import (
	"errors"
	"time"
)

// Event names used by sinks that forward events off-process.
const (
	EventDispatchCompleted = "dispatch.completed"
	EventProgramStarted    = "program.started"
	EventProgramCompleted  = "program.completed"
)

// DispatchSummary is the JSON form of a DispatchEvent.
type DispatchSummary struct {
	ExecutionID string    `json:"execution_id,omitempty"`
	Index       int       `json:"index"`
	DeviceID    string    `json:"device_id"`
	Command     string    `json:"command"`
	Payload     *string   `json:"payload,omitempty"`
	OK          bool      `json:"ok"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
}

// Summary converts the event to its JSON form.
func (ev DispatchEvent) Summary() DispatchSummary {
	s := DispatchSummary{
		ExecutionID: ev.ExecutionID,
		Index:       ev.Index,
		DeviceID:    string(ev.Message.Target),
		Command:     string(ev.Message.Kind),
		Payload:     ev.Message.Payload,
		OK:          ev.Err == nil,
		StartedAt:   ev.StartedAt,
		DurationMS:  ev.Duration.Milliseconds(),
	}
	if ev.Err != nil {
		s.ErrorKind = ErrorKind(ev.Err)
		s.Error = ev.Err.Error()
	}
	return s
}

// ProgramSummary is the JSON form of a ProgramEvent.
type ProgramSummary struct {
	ExecutionID string    `json:"execution_id"`
	Steps       int       `json:"steps"`
	Completed   int       `json:"completed"`
	OK          bool      `json:"ok"`
	FailedIndex *int      `json:"failed_index,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
}

// Summary converts the event to its JSON form.
func (ev ProgramEvent) Summary() ProgramSummary {
	s := ProgramSummary{
		ExecutionID: ev.ExecutionID,
		Steps:       ev.Steps,
		Completed:   ev.Completed,
		OK:          ev.Err == nil,
		StartedAt:   ev.StartedAt,
		DurationMS:  ev.Duration.Milliseconds(),
	}
	if ev.Err != nil {
		s.ErrorKind = ErrorKind(ev.Err)
		s.Error = ev.Err.Error()
		var perr *ProgramError
		if errors.As(ev.Err, &perr) {
			idx := perr.Index
			s.FailedIndex = &idx
		}
	}
	return s
}
