// Package core is the nucleus of the rx-home hub: a single long-lived
// runtime that tracks the state of many independently-updating entities,
// notifies listeners when state changes, and dispatches named service
// calls to registered handlers.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────────┐
//	│                            Hub                                  │
//	│                                                                 │
//	│  ┌──────────┐  ┌────────────┐  ┌─────────────────┐  ┌───────┐  │
//	│  │ EventBus │  │ StateStore │  │ ServiceRegistry │  │ Timer │  │
//	│  └────┬─────┘  └─────┬──────┘  └───────┬─────────┘  └───┬───┘  │
//	│       │              │                 │                │      │
//	│       └──────────────┴────────┬────────┴────────────────┘      │
//	│                               ▼                                 │
//	│                         ┌──────────┐                            │
//	│                         │   Loop   │  single dispatch goroutine │
//	│                         └──────────┘                            │
//	└────────────────────────────────────────────────────────────────┘
//
// State mutations and service calls publish events on the bus; listener
// dispatch runs on the Loop, a single goroutine fed by a thread-safe
// task queue. Collaborators running on their own goroutines (MQTT
// handlers, HTTP requests, timers) interact through the public methods,
// which marshal work onto the loop where ordering matters.
//
// # Causal chains
//
// Every event, state change and service call carries a Context token
// identifying what triggered it. Handlers reacting to an event must
// forward (or chain from) the event's Context so that higher layers can
// trace and break automation loops.
//
// # Lifecycle
//
// A Hub moves through not_running → starting → running → stopping →
// stopped. Shutdown publishes homeassistant_stop, homeassistant_final_write
// and homeassistant_close in sequence, giving listeners a bounded time
// budget per phase. Work that overruns a budget is abandoned, not killed:
// the hub stops waiting for it but does not forcibly terminate it.
package core
