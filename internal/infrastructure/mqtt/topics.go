package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the RX Home MQTT surface.
//
// The hub publishes canonical entity state under rxhome/state/ and
// accepts external writes under rxhome/set/ and service invocations
// under rxhome/call/. System topics carry hub status and time sync.
const (
	// TopicPrefix is the base for all RX Home topics.
	TopicPrefix = "rxhome"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "rxhome/system"

	// TopicPrefixEvent is the base for mirrored hub events.
	TopicPrefixEvent = "rxhome/event"
)

// Topics provides builders for RX Home MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.EntityState("light.kitchen")
//	// Returns: "rxhome/state/light.kitchen"
type Topics struct{}

// EntityState returns the topic for canonical entity state published by
// the hub. Messages are retained so new subscribers see current state.
//
// Example: rxhome/state/light.kitchen
func (Topics) EntityState(entityID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, entityID)
}

// EntitySet returns the topic on which external publishers request a
// state write for an entity.
//
// Example: rxhome/set/light.kitchen
func (Topics) EntitySet(entityID string) string {
	return fmt.Sprintf("%s/set/%s", TopicPrefix, entityID)
}

// ServiceCall returns the topic on which external publishers invoke a
// registered service.
//
// Example: rxhome/call/light/turn_on
func (Topics) ServiceCall(domain, service string) string {
	return fmt.Sprintf("%s/call/%s/%s", TopicPrefix, domain, service)
}

// Event returns the topic on which the hub mirrors a bus event.
//
// Example: rxhome/event/state_changed
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvent, eventType)
}

// SystemStatus returns the hub status topic, used for the online
// message and the Last Will.
//
// Example: rxhome/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemTime returns the time sync topic driven by the hub timer.
//
// Example: rxhome/system/time
func (Topics) SystemTime() string {
	return fmt.Sprintf("%s/time", TopicPrefixSystem)
}

// AllEntitySets returns a pattern matching all entity write requests.
//
// Pattern: rxhome/set/+
func (Topics) AllEntitySets() string {
	return fmt.Sprintf("%s/set/+", TopicPrefix)
}

// AllServiceCalls returns a pattern matching all service invocations.
//
// Pattern: rxhome/call/+/+
func (Topics) AllServiceCalls() string {
	return fmt.Sprintf("%s/call/+/+", TopicPrefix)
}

// AllEntityStates returns a pattern matching all canonical entity state.
//
// Pattern: rxhome/state/+
func (Topics) AllEntityStates() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}

// AllTopics returns a pattern matching every RX Home topic.
// Use with caution - this receives ALL traffic.
//
// Pattern: rxhome/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// ParseEntityState extracts the entity id from a state topic.
// Returns false if the topic is not a state topic.
func ParseEntityState(topic string) (entityID string, ok bool) {
	return parseOneLevel(topic, TopicPrefix+"/state/")
}

// ParseEntitySet extracts the entity id from a set topic.
// Returns false if the topic is not a set topic.
func ParseEntitySet(topic string) (entityID string, ok bool) {
	return parseOneLevel(topic, TopicPrefix+"/set/")
}

// ParseServiceCall extracts the domain and service from a call topic.
// Returns false if the topic is not a call topic.
func ParseServiceCall(topic string) (domain, service string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefix+"/call/")
	if !found {
		return "", "", false
	}
	domain, service, found = strings.Cut(rest, "/")
	if !found || domain == "" || service == "" || strings.Contains(service, "/") {
		return "", "", false
	}
	return domain, service, true
}

// parseOneLevel strips prefix and requires exactly one remaining level.
func parseOneLevel(topic, prefix string) (string, bool) {
	rest, found := strings.CutPrefix(topic, prefix)
	if !found || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
