package mqtt

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
)

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (fakeMessage) Duplicate() bool   { return false }
func (fakeMessage) Qos() byte         { return 1 }
func (fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string   { return m.topic }
func (fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte { return m.payload }
func (fakeMessage) Ack()              {}

type captureLogger struct {
	mu     sync.Mutex
	errors int
	warns  []string
}

func (l *captureLogger) Error(string, ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors++
}

func (l *captureLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *captureLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

// published is one captured PublishJSON call, re-decoded from JSON.
type published struct {
	topic string
	env   map[string]any
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) PublishJSON(topic string, v any) error {
	if p.err != nil {
		return p.err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var env map[string]any
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic: topic, env: env})
	return nil
}

func (p *fakePublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]published, len(p.msgs))
	copy(out, p.msgs)
	return out
}

type fakeSubscriber struct {
	topic        string
	qos          byte
	handler      MessageHandler
	unsubscribed string
}

func (s *fakeSubscriber) Subscribe(topic string, qos byte, handler MessageHandler) error {
	s.topic, s.qos, s.handler = topic, qos, handler
	return nil
}

func (s *fakeSubscriber) Unsubscribe(topic string) error {
	s.unsubscribed = topic
	return nil
}

// fakeDispatcher records dispatched messages. When release is set, each
// dispatch blocks until it is closed, standing in for a slow device.
type fakeDispatcher struct {
	mu      sync.Mutex
	msgs    []iot.Message
	err     error
	release chan struct{}
}

func (d *fakeDispatcher) Dispatch(_ context.Context, msg iot.Message) error {
	if d.release != nil {
		<-d.release
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, msg)
	return d.err
}

func (d *fakeDispatcher) dispatched() []iot.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]iot.Message, len(d.msgs))
	copy(out, d.msgs)
	return out
}
