package mqtt

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
)

// JSONPublisher is the part of Client the event publisher needs.
type JSONPublisher interface {
	PublishJSON(topic string, v any) error
}

// Envelope wraps every event published on the bus.
type Envelope struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// EventPublisher is an iot.Observer that publishes dispatch and program
// events to the broker.
//
// Publishing happens on the dispatching goroutine. A broker outage costs
// each dispatch at most the publish timeout, and failures are only logged.
type EventPublisher struct {
	pub    JSONPublisher
	topics Topics
	logger Logger
}

// NewEventPublisher creates an observer publishing through pub.
func NewEventPublisher(pub JSONPublisher) *EventPublisher {
	return &EventPublisher{pub: pub, logger: noopLogger{}}
}

// SetLogger sets the logger for publish failures.
func (p *EventPublisher) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	p.logger = logger
}

// DispatchCompleted implements iot.Observer.
func (p *EventPublisher) DispatchCompleted(_ context.Context, ev iot.DispatchEvent) {
	p.publish(p.topics.Dispatch(string(ev.Message.Target)), iot.EventDispatchCompleted, ev.Summary())
}

// ProgramStarted implements iot.Observer.
func (p *EventPublisher) ProgramStarted(_ context.Context, ev iot.ProgramEvent) {
	p.publish(p.topics.Program(ev.ExecutionID), iot.EventProgramStarted, ev.Summary())
}

// ProgramCompleted implements iot.Observer.
func (p *EventPublisher) ProgramCompleted(_ context.Context, ev iot.ProgramEvent) {
	p.publish(p.topics.Program(ev.ExecutionID), iot.EventProgramCompleted, ev.Summary())
}

func (p *EventPublisher) publish(topic, event string, data any) {
	env := Envelope{
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Data:      data,
	}
	if err := p.pub.PublishJSON(topic, env); err != nil {
		p.logger.Warn("publishing event failed",
			"topic", topic,
			"event", event,
			"error", err,
		)
	}
}
