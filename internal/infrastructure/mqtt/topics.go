package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every tunerd topic.
//
// Tuner topics use the flat scheme tunerd/{category}/{protocol}/{uuid}.
const TopicPrefix = "tunerd"

// Topics provides builders for tunerd MQTT topics.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.TunerState("hdhomerun", uuid)
//	// Returns: "tunerd/state/hdhomerun/<uuid>"
type Topics struct{}

// TunerState returns the retained state topic of one tuner device.
//
// Example: tunerd/state/hdhomerun/e15966227a85f7a9d61490331843f8fed48ad504
func (Topics) TunerState(protocol, uuid string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, protocol, uuid)
}

// TunerCommand returns the command topic of one tuner device.
//
// Example: tunerd/command/hdhomerun/e15966227a85f7a9d61490331843f8fed48ad504
func (Topics) TunerCommand(protocol, uuid string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, protocol, uuid)
}

// TunerAck returns the topic for command acknowledgements of one device.
//
// Example: tunerd/ack/hdhomerun/e15966227a85f7a9d61490331843f8fed48ad504
func (Topics) TunerAck(protocol, uuid string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, protocol, uuid)
}

// BridgeHealth returns the health topic of a bridge.
//
// Example: tunerd/health/hdhomerun
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, protocol)
}

// DiscoveryEvent returns the topic carrying scan summaries.
//
// Example: tunerd/discovery/hdhomerun
func (Topics) DiscoveryEvent(protocol string) string {
	return fmt.Sprintf("%s/discovery/%s", TopicPrefix, protocol)
}

// SystemStatus returns the service status topic, also used for the LWT.
//
// Example: tunerd/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// AllTunerStates returns a pattern matching all tuner states of a protocol.
//
// Pattern: tunerd/state/hdhomerun/+
func (Topics) AllTunerStates(protocol string) string {
	return fmt.Sprintf("%s/state/%s/+", TopicPrefix, protocol)
}

// AllTunerCommands returns a pattern matching all tuner commands of a protocol.
//
// Pattern: tunerd/command/hdhomerun/+
func (Topics) AllTunerCommands(protocol string) string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefix, protocol)
}

// AllTopics returns a pattern matching every tunerd topic.
//
// Pattern: tunerd/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// LastSegment returns the final level of topic, typically a device uuid.
func LastSegment(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
