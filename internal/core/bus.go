package core

import (
	"sync"
	"time"
)

// Listener is a callback invoked with each matching event. Listeners run
// on the loop goroutine and must not block; long-running reactions belong
// on their own goroutine (see Hub.AddJob).
type Listener func(Event)

// Subscription is the handle returned by Subscribe, usable to remove the
// listener again.
type Subscription struct {
	id        uint64
	eventType string
}

// listenerEntry is one registration in the bus table.
type listenerEntry struct {
	id   uint64
	fn   Listener
	once bool
}

// EventBus is the in-process publish/subscribe mechanism. Listener
// registrations are keyed by event type, with MatchAll as the wildcard
// key; dispatch is a lookup-and-iterate, scheduled on the loop so
// Publish never blocks its caller on listener work.
//
// All methods are safe for concurrent use.
type EventBus struct {
	loop   *Loop
	logger Logger

	mu        sync.Mutex
	listeners map[string][]listenerEntry
	nextID    uint64
}

// NewEventBus creates a bus dispatching on the given loop.
func NewEventBus(loop *Loop, logger Logger) *EventBus {
	if logger == nil {
		logger = noopLogger{}
	}
	return &EventBus{
		loop:      loop,
		logger:    logger,
		listeners: make(map[string][]listenerEntry),
	}
}

// Subscribe registers fn for events of the given type. eventType may be
// MatchAll to receive every event. The returned handle removes the
// registration when passed to Unsubscribe.
func (b *EventBus) Subscribe(eventType string, fn Listener) *Subscription {
	return b.subscribe(eventType, fn, false)
}

// SubscribeOnce registers fn for a single delivery. The registration is
// removed before the callback runs, so a listener that re-publishes the
// same event type cannot be delivered to twice.
func (b *EventBus) SubscribeOnce(eventType string, fn Listener) *Subscription {
	return b.subscribe(eventType, fn, true)
}

func (b *EventBus) subscribe(eventType string, fn Listener, once bool) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.listeners[eventType] = append(b.listeners[eventType], listenerEntry{
		id:   b.nextID,
		fn:   fn,
		once: once,
	})
	return &Subscription{id: b.nextID, eventType: eventType}
}

// Unsubscribe removes a registration. It is idempotent: removing a
// handle twice, or one already consumed by SubscribeOnce, is a no-op.
func (b *EventBus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.listeners[sub.eventType]
	for i, e := range entries {
		if e.id == sub.id {
			b.listeners[sub.eventType] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(b.listeners[sub.eventType]) == 0 {
		delete(b.listeners, sub.eventType)
	}
}

// ListenerCount returns the number of registrations per event type.
func (b *EventBus) ListenerCount() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()

	counts := make(map[string]int, len(b.listeners))
	for eventType, entries := range b.listeners {
		counts[eventType] = len(entries)
	}
	return counts
}

// Publish constructs an Event and schedules every matching listener on
// the loop: exact-type listeners first, then wildcard listeners, each
// group in registration order. A listener that panics is logged and does
// not abort the others. If cc is the zero Context a fresh root is minted.
//
// The constructed Event is returned so callers can observe the minted
// Context and fire time.
func (b *EventBus) Publish(eventType string, data map[string]any, origin Origin, cc Context) Event {
	if origin == "" {
		origin = OriginLocal
	}
	ev := Event{
		Type:      eventType,
		Data:      data,
		Origin:    origin,
		TimeFired: time.Now().UTC(),
		Context:   cc.orNew(),
	}

	matched := b.snapshot(eventType)
	for _, entry := range matched {
		fn := entry.fn
		if err := b.loop.Submit(func() {
			b.invoke(fn, ev)
		}); err != nil {
			b.logger.Debug("event dropped, loop stopped", "event_type", eventType)
			break
		}
	}
	return ev
}

// snapshot collects matching listeners in dispatch order and removes
// once-registrations so they cannot be matched again.
func (b *EventBus) snapshot(eventType string) []listenerEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	var matched []listenerEntry
	matched = append(matched, b.takeLocked(eventType)...)
	if eventType != MatchAll {
		matched = append(matched, b.takeLocked(MatchAll)...)
	}
	return matched
}

// takeLocked returns the entries for key and prunes its once-listeners.
// Callers must hold mu.
func (b *EventBus) takeLocked(key string) []listenerEntry {
	entries := b.listeners[key]
	if len(entries) == 0 {
		return nil
	}

	matched := make([]listenerEntry, len(entries))
	copy(matched, entries)

	remaining := entries[:0]
	for _, e := range entries {
		if !e.once {
			remaining = append(remaining, e)
		}
	}
	if len(remaining) == 0 {
		delete(b.listeners, key)
	} else {
		b.listeners[key] = remaining
	}
	return matched
}

// invoke runs one listener with panic isolation.
func (b *EventBus) invoke(fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panic recovered",
				"event_type", ev.Type,
				"panic", r,
			)
		}
	}()
	fn(ev)
}
