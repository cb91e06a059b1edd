package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
)

// Subscriber is the part of Client the command listener needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Unsubscribe(topic string) error
}

// Dispatcher delivers a decoded command. *iot.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg iot.Message) error
}

// CommandPayload is the JSON body accepted on graylogic/iot/command/{device_id}.
//
//	{"kind": "play_song", "payload": "Rick Astley - Never Gonna Give You Up"}
type CommandPayload struct {
	Kind    string  `json:"kind"`
	Payload *string `json:"payload,omitempty"`
}

// CommandListener dispatches single messages received over MQTT.
//
// Each inbound command is an independent dispatch, not part of a program;
// its outcome reaches observers like any other dispatch. Dispatches run on
// their own goroutines: the message callback returns once the command is
// decoded, never waiting on the device or on event publishing.
type CommandListener struct {
	sub        Subscriber
	dispatcher Dispatcher
	qos        byte
	ctx        context.Context
	logger     Logger
	inflight   sync.WaitGroup
}

// NewCommandListener creates a listener. Call Start to subscribe.
func NewCommandListener(sub Subscriber, dispatcher Dispatcher, qos byte) *CommandListener {
	return &CommandListener{
		sub:        sub,
		dispatcher: dispatcher,
		qos:        qos,
		ctx:        context.Background(),
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for rejected commands.
func (l *CommandListener) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	l.logger = logger
}

// Start subscribes to every command topic. Dispatches use ctx, so
// cancelling it makes later commands fail with a cancellation error.
func (l *CommandListener) Start(ctx context.Context) error {
	l.ctx = ctx
	return l.sub.Subscribe(Topics{}.AllCommands(), l.qos, l.handle)
}

// Stop unsubscribes from the command topics and waits for dispatches
// already in flight.
func (l *CommandListener) Stop() error {
	err := l.sub.Unsubscribe(Topics{}.AllCommands())
	l.inflight.Wait()
	return err
}

// handle decodes a command and hands it to a dispatch goroutine.
func (l *CommandListener) handle(topic string, payload []byte) error {
	msg, err := decodeCommand(topic, payload)
	if err != nil {
		return err
	}

	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		l.dispatch(msg)
	}()
	return nil
}

func (l *CommandListener) dispatch(msg iot.Message) {
	if err := l.dispatcher.Dispatch(l.ctx, msg); err != nil {
		l.logger.Warn("MQTT command rejected",
			"device_id", string(msg.Target),
			"command", string(msg.Kind),
			"error_kind", iot.ErrorKind(err),
			"error", err,
		)
	}
}

// decodeCommand turns a command topic and JSON body into a message.
func decodeCommand(topic string, payload []byte) (iot.Message, error) {
	deviceID, ok := Topics{}.DeviceFromCommandTopic(topic)
	if !ok {
		return iot.Message{}, fmt.Errorf("%w: unexpected topic %q", ErrInvalidCommand, topic)
	}

	var cmd CommandPayload
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return iot.Message{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}

	kind, err := iot.ParseCommandKind(cmd.Kind)
	if err != nil {
		return iot.Message{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}

	if cmd.Payload != nil {
		return iot.NewMessageWithPayload(iot.DeviceID(deviceID), kind, *cmd.Payload), nil
	}
	return iot.NewMessage(iot.DeviceID(deviceID), kind), nil
}
