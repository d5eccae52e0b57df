package core

import "time"

// Origin describes where an event came from.
type Origin string

const (
	// OriginLocal marks events produced inside this hub process.
	OriginLocal Origin = "LOCAL"

	// OriginRemote marks events relayed from another instance or bridge.
	OriginRemote Origin = "REMOTE"
)

// MatchAll is the wildcard event type: listeners subscribed to it receive
// every event, after the exact-type listeners for that event have been
// scheduled.
const MatchAll = "*"

// Well-known event types emitted by the core.
const (
	EventStateChanged      = "state_changed"
	EventCallService       = "call_service"
	EventServiceRegistered = "service_registered"
	EventServiceRemoved    = "service_removed"
	EventTimeChanged       = "time_changed"
	EventTimerOutOfSync    = "timer_out_of_sync"

	EventHomeAssistantStart      = "homeassistant_start"
	EventHomeAssistantStarted    = "homeassistant_started"
	EventHomeAssistantStop       = "homeassistant_stop"
	EventHomeAssistantFinalWrite = "homeassistant_final_write"
	EventHomeAssistantClose      = "homeassistant_close"
)

// Well-known event data keys.
const (
	AttrEntityID    = "entity_id"
	AttrOldState    = "old_state"
	AttrNewState    = "new_state"
	AttrDomain      = "domain"
	AttrService     = "service"
	AttrServiceData = "service_data"
	AttrNow         = "now"
	AttrSeconds     = "seconds"
)

// Event is a single occurrence on the bus. Events are immutable once
// constructed by Publish; listeners receive them by value and must not
// rely on Data surviving beyond their invocation unless they copy it.
type Event struct {
	Type      string         `json:"event_type"`
	Data      map[string]any `json:"data"`
	Origin    Origin         `json:"origin"`
	TimeFired time.Time      `json:"time_fired"`
	Context   Context        `json:"context"`
}
