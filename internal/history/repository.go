package history

import (
	"context"
	"time"
)

// Entry represents a single recorded state change.
//
// Each entry stores a full snapshot of the entity state at the time the
// change was observed, including the causal context that produced it.
type Entry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// EntityID is the entity the snapshot belongs to.
	EntityID string `json:"entity_id"`

	// State is the entity's primary state value. Empty when the entry
	// records a removal.
	State string `json:"state"`

	// Attributes carry the snapshot's secondary readings.
	Attributes map[string]any `json:"attributes"`

	// ContextID and ContextParentID record the causal chain that
	// produced this change.
	ContextID       string `json:"context_id"`
	ContextParentID string `json:"context_parent_id,omitempty"`

	// LastChanged and LastUpdated mirror the state snapshot timestamps.
	LastChanged time.Time `json:"last_changed"`
	LastUpdated time.Time `json:"last_updated"`

	// RecordedAt is when the row was written (UTC).
	RecordedAt time.Time `json:"recorded_at"`
}

// Repository stores and retrieves entity state change history.
//
// Implementations must be thread-safe and use UTC timestamps.
type Repository interface {
	// Record persists one state change entry.
	Record(ctx context.Context, entry Entry) error

	// History returns recent entries for the entity, newest first.
	// Implementations may clamp limit to an upper bound.
	History(ctx context.Context, entityID string, limit int) ([]Entry, error)

	// Prune deletes entries older than the retention window and reports
	// how many rows were removed.
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}
