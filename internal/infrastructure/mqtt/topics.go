package mqtt

import "fmt"

// Topic prefixes for the Visionary UI platform bus.
//
// The platform adapter publishes snapshots, entity events, and removals under
// visionary/; the visualization backend publishes commands back on the same
// prefix. Entity kinds are: config, rooms, functions, objects, values
// (snapshots) and room, function, object, value (events/removals).
const (
	// TopicPrefix is the base for all Visionary UI topics.
	TopicPrefix = "visionary"

	// TopicPrefixSnapshot is the base for full-collection snapshot topics.
	TopicPrefixSnapshot = "visionary/snapshot"

	// TopicPrefixEvent is the base for single-entity upsert topics.
	TopicPrefixEvent = "visionary/event"

	// TopicPrefixRemove is the base for single-entity removal topics.
	TopicPrefixRemove = "visionary/remove"

	// TopicPrefixCommand is the base for commands toward the platform.
	TopicPrefixCommand = "visionary/command"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "visionary/system"
)

// Topics provides builders for Visionary UI MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topics.Snapshot("rooms")   // "visionary/snapshot/rooms"
//	topics.Event("value")      // "visionary/event/value"
type Topics struct{}

// Snapshot returns the topic carrying a full collection of the given kind.
//
// Example: visionary/snapshot/rooms
func (Topics) Snapshot(kind string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixSnapshot, kind)
}

// Event returns the topic carrying a single upserted entity of the given kind.
//
// Example: visionary/event/value
func (Topics) Event(kind string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvent, kind)
}

// Remove returns the topic carrying a single entity removal of the given kind.
//
// Example: visionary/remove/object
func (Topics) Remove(kind string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixRemove, kind)
}

// CommandRefresh returns the topic used to request a full snapshot reload
// from the platform adapter.
//
// Example: visionary/command/refresh
func (Topics) CommandRefresh() string {
	return fmt.Sprintf("%s/refresh", TopicPrefixCommand)
}

// CommandState returns the topic for writing a state value to the platform.
//
// Example: visionary/command/state/hue.0.lamp.on
func (Topics) CommandState(objectID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefixCommand, objectID)
}

// SystemStatus returns the backend status topic (online/offline, LWT).
//
// Example: visionary/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllSnapshots returns a pattern matching every snapshot topic.
//
// Pattern: visionary/snapshot/+
func (Topics) AllSnapshots() string {
	return TopicPrefixSnapshot + "/+"
}

// AllEvents returns a pattern matching every entity event topic.
//
// Pattern: visionary/event/+
func (Topics) AllEvents() string {
	return TopicPrefixEvent + "/+"
}

// AllRemovals returns a pattern matching every entity removal topic.
//
// Pattern: visionary/remove/+
func (Topics) AllRemovals() string {
	return TopicPrefixRemove + "/+"
}
