package history

import (
	"context"
	"time"

	"github.com/Hatles/rx-home/internal/core"
)

// writeTimeout bounds a single history insert.
const writeTimeout = 10 * time.Second

// Recorder persists every state_changed event through a Repository.
//
// Listener callbacks run on the hub's event loop, so the insert itself
// happens in a tracked background job. The hub's shutdown drains wait
// for in-flight writes, which is what makes the final_write phase
// meaningful for this package.
type Recorder struct {
	hub    *core.Hub
	repo   Repository
	logger Logger

	sub *core.Subscription
}

// NewRecorder creates a recorder. Call Start to begin persisting.
func NewRecorder(hub *core.Hub, repo Repository, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{
		hub:    hub,
		repo:   repo,
		logger: logger,
	}
}

// Start subscribes to state_changed events.
func (r *Recorder) Start() {
	r.sub = r.hub.Bus.Subscribe(core.EventStateChanged, r.onStateChanged)
	r.logger.Info("state recorder started")
}

// Stop unsubscribes. In-flight writes finish on their own; the hub's
// drain accounts for them.
func (r *Recorder) Stop() {
	r.hub.Bus.Unsubscribe(r.sub)
	r.logger.Info("state recorder stopped")
}

// onStateChanged converts the event into an Entry and hands the insert
// to a background job.
func (r *Recorder) onStateChanged(ev core.Event) {
	entityID, _ := ev.Data[core.AttrEntityID].(string)
	if entityID == "" {
		return
	}

	entry := Entry{
		EntityID:        entityID,
		ContextID:       ev.Context.ID,
		ContextParentID: ev.Context.ParentID,
		RecordedAt:      time.Now().UTC(),
	}

	// A nil new state records the removal as a row with an empty value.
	if next, _ := ev.Data[core.AttrNewState].(*core.State); next != nil {
		entry.State = next.Value
		entry.Attributes = next.Attributes
		entry.LastChanged = next.LastChanged
		entry.LastUpdated = next.LastUpdated
	} else {
		entry.LastChanged = ev.TimeFired
		entry.LastUpdated = ev.TimeFired
	}

	r.hub.AddJob("history record", func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := r.repo.Record(ctx, entry); err != nil {
			r.logger.Error("recording state change failed",
				"entity_id", entry.EntityID,
				"error", err,
			)
		}
	})
}
