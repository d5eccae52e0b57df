// Package history persists entity state changes and serves them back for
// queries.
//
// The Recorder subscribes to the hub's state_changed events and writes
// one row per change through a Repository. Writes run as tracked
// background jobs so a slow disk never stalls event delivery, yet the
// hub's shutdown drains still wait for them (bounded by the phase
// budget).
//
// Architecture:
//
//	EventBus ──state_changed──> Recorder ──AddJob──> Repository (SQLite)
//	                                                      │
//	HTTP /api/v1/history/{entity_id} <────────────────────┘
//
// Rows store the state value, attributes and causal context as JSON
// text, with UTC RFC3339 timestamps.
package history
