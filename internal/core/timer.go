package core

import (
	"sync"
	"time"
)

// outOfSyncThreshold is the lateness beyond which a tick is reported as
// missed via timer_out_of_sync.
const outOfSyncThreshold = time.Second

// Timer drives the hub's one-second cadence. Each tick publishes
// time_changed with the captured wall-clock time; a tick arriving more
// than a second after its intended fire time additionally publishes
// timer_out_of_sync with the lateness in seconds.
//
// All ticks share one long-lived Context, so every tick-driven chain has
// the same causal root.
type Timer struct {
	bus    *EventBus
	logger Logger

	// tickContext is minted once and reused for every tick.
	tickContext Context

	mu      sync.Mutex
	running bool
	handle  *time.Timer
}

// NewTimer creates a stopped timer publishing on the given bus.
func NewTimer(bus *EventBus, logger Logger) *Timer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Timer{
		bus:         bus,
		logger:      logger,
		tickContext: NewContext(),
	}
}

// Start schedules the first tick, aligned to the next whole second.
// Starting an already-running timer is a no-op.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.mu.Unlock()

	t.logger.Info("timer starting")
	t.scheduleTick(time.Now())
}

// Stop cancels any pending tick. Safe to call when no tick is pending
// and safe to call more than once.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.running = false
	if t.handle != nil {
		t.handle.Stop()
		t.handle = nil
	}
	t.logger.Info("timer stopped")
}

// scheduleTick arms the wake-up for the next whole second after now.
func (t *Timer) scheduleTick(now time.Time) {
	sleep := nextTickDelay(now)
	target := now.Add(sleep)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.handle = time.AfterFunc(sleep, func() {
		t.fire(target)
	})
}

// fire publishes the tick events for a wake-up intended at target and
// reschedules relative to the captured time.
func (t *Timer) fire(target time.Time) {
	now := time.Now()

	t.bus.Publish(EventTimeChanged, map[string]any{
		AttrNow: now.UTC(),
	}, OriginLocal, t.tickContext)

	// More than a second late means at least one tick was missed.
	if late := now.Sub(target); late > outOfSyncThreshold {
		t.logger.Warn("timer out of sync", "seconds", late.Seconds())
		t.bus.Publish(EventTimerOutOfSync, map[string]any{
			AttrSeconds: late.Seconds(),
		}, OriginLocal, t.tickContext)
	}

	t.scheduleTick(now)
}

// nextTickDelay returns the time remaining until the next whole-second
// boundary after now.
func nextTickDelay(now time.Time) time.Duration {
	return time.Second - time.Duration(now.Nanosecond())
}
