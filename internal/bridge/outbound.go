package bridge

import (
	"encoding/json"
	"time"

	"github.com/Hatles/rx-home/internal/core"
	"github.com/Hatles/rx-home/internal/infrastructure/mqtt"
)

// onEvent receives every hub event and routes it to the broker. It runs
// on the hub loop, so it only marshals and enqueues; the actual network
// round trip happens on the outbound worker.
func (b *Bridge) onEvent(ev core.Event) {
	switch ev.Type {
	case core.EventTimeChanged:
		// The beacon replaces the event mirror for time ticks; a 1Hz
		// stream on the event topic would be pure noise.
		b.publishTime(ev)
		return
	case core.EventStateChanged:
		entityID, _ := ev.Data[core.AttrEntityID].(string)
		newState, _ := ev.Data[core.AttrNewState].(*core.State)
		if entityID != "" {
			b.publishState(entityID, newState)
		}
	}
	b.publishEvent(ev)
}

// publishState enqueues retained canonical state for one entity. A nil
// state clears the retained message, signalling removal.
func (b *Bridge) publishState(entityID string, state *core.State) {
	topic := mqtt.Topics{}.EntityState(entityID)

	if state == nil {
		b.enqueue(topic, nil, true)
		return
	}

	payload, err := json.Marshal(state)
	if err != nil {
		b.logger.Error("state marshal failed", "entity_id", entityID, "error", err)
		return
	}
	b.enqueue(topic, payload, true)
}

// publishEvent mirrors a hub event onto the event topic.
func (b *Bridge) publishEvent(ev core.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("event marshal failed", "event_type", ev.Type, "error", err)
		return
	}
	b.enqueue(mqtt.Topics{}.Event(ev.Type), payload, false)
}

// timeBeacon is the system/time payload.
type timeBeacon struct {
	Now time.Time `json:"now"`
}

// publishTime enqueues the 1Hz time beacon.
func (b *Bridge) publishTime(ev core.Event) {
	now, ok := ev.Data[core.AttrNow].(time.Time)
	if !ok {
		now = ev.TimeFired
	}

	payload, err := json.Marshal(timeBeacon{Now: now})
	if err != nil {
		b.logger.Error("time beacon marshal failed", "error", err)
		return
	}
	b.enqueue(mqtt.Topics{}.SystemTime(), payload, false)
}
