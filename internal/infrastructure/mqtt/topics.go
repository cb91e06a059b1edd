package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the base for every coordinator topic.
//
// Hierarchy:
//
//	graylogic/iot/status                    retained online/offline status (LWT)
//	graylogic/iot/dispatch/{device_id}      one event per dispatch outcome
//	graylogic/iot/program/{execution_id}    program started/completed events
//	graylogic/iot/command/{device_id}       inbound commands
const TopicPrefix = "graylogic/iot"

// Topics provides builders for coordinator MQTT topics.
//
//	topic := mqtt.Topics{}.Dispatch("dev-42")
//	// Returns: "graylogic/iot/dispatch/dev-42"
type Topics struct{}

// Status returns the retained coordinator status topic.
func (Topics) Status() string {
	return TopicPrefix + "/status"
}

// Dispatch returns the topic for dispatch outcomes of one device.
func (Topics) Dispatch(deviceID string) string {
	return fmt.Sprintf("%s/dispatch/%s", TopicPrefix, deviceID)
}

// Program returns the topic for lifecycle events of one program execution.
func (Topics) Program(executionID string) string {
	return fmt.Sprintf("%s/program/%s", TopicPrefix, executionID)
}

// Command returns the inbound command topic for one device.
func (Topics) Command(deviceID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, deviceID)
}

// AllCommands returns a pattern matching every inbound command topic.
//
// Pattern: graylogic/iot/command/+
func (Topics) AllCommands() string {
	return TopicPrefix + "/command/+"
}

// AllDispatches returns a pattern matching every dispatch event topic.
//
// Pattern: graylogic/iot/dispatch/+
func (Topics) AllDispatches() string {
	return TopicPrefix + "/dispatch/+"
}

// AllTopics returns a pattern matching all coordinator traffic.
//
// Pattern: graylogic/iot/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// DeviceFromCommandTopic extracts the device ID from a command topic.
// It returns false when topic is not a single-level command topic.
func (Topics) DeviceFromCommandTopic(topic string) (string, bool) {
	id, ok := strings.CutPrefix(topic, TopicPrefix+"/command/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
