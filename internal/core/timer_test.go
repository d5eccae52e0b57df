package core

import (
	"sync"
	"testing"
	"time"
)

func TestNextTickDelay(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{
			name: "on the boundary",
			now:  time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
			want: time.Second,
		},
		{
			name: "mid second",
			now:  time.Date(2026, 8, 29, 12, 0, 0, 250_000_000, time.UTC),
			want: 750 * time.Millisecond,
		},
		{
			name: "just before boundary",
			now:  time.Date(2026, 8, 29, 12, 0, 0, 999_000_000, time.UTC),
			want: time.Millisecond,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextTickDelay(tt.now); got != tt.want {
				t.Errorf("nextTickDelay(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestTimer_TickPublishesTimeChanged(t *testing.T) {
	h := newTestHub(t)

	var (
		mu     sync.Mutex
		events []Event
	)
	h.Bus.Subscribe(EventTimeChanged, func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	tm := NewTimer(h.Bus, noopLogger{})
	before := time.Now()
	tm.fire(before)
	tm.Stop()
	drain(t, h)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("got %d time_changed events, want 1", len(events))
	}
	now, ok := events[0].Data[AttrNow].(time.Time)
	if !ok {
		t.Fatalf("Data[now] = %T, want time.Time", events[0].Data[AttrNow])
	}
	if now.Location() != time.UTC {
		t.Errorf("Data[now] location = %v, want UTC", now.Location())
	}
	if now.Before(before.UTC().Truncate(time.Second)) {
		t.Errorf("Data[now] = %v, before fire time %v", now, before)
	}
}

func TestTimer_LateTickReportsOutOfSync(t *testing.T) {
	logger := &captureLogger{}
	h := New(Config{
		Name:           "test",
		ShutdownBudget: 200 * time.Millisecond,
		DrainBudget:    2 * time.Second,
	}, logger)
	h.loop.Start()
	t.Cleanup(h.loop.Stop)

	var (
		mu    sync.Mutex
		order []string
		late  float64
	)
	h.Bus.Subscribe(EventTimeChanged, func(Event) {
		mu.Lock()
		order = append(order, EventTimeChanged)
		mu.Unlock()
	})
	h.Bus.Subscribe(EventTimerOutOfSync, func(ev Event) {
		mu.Lock()
		order = append(order, EventTimerOutOfSync)
		late, _ = ev.Data[AttrSeconds].(float64)
		mu.Unlock()
	})

	tm := NewTimer(h.Bus, logger)
	// A target 1.3s in the past simulates a tick delayed past the missed
	// threshold.
	tm.fire(time.Now().Add(-1300 * time.Millisecond))
	tm.Stop()
	drain(t, h)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != EventTimeChanged || order[1] != EventTimerOutOfSync {
		t.Fatalf("event order = %v, want [time_changed timer_out_of_sync]", order)
	}
	if late < 1.3 {
		t.Errorf("Data[seconds] = %v, want >= 1.3", late)
	}
	if !logger.has("warn", "timer out of sync") {
		t.Error("lateness was not logged")
	}
}

func TestTimer_SlightlyLateTickIsQuiet(t *testing.T) {
	h := newTestHub(t)

	var (
		mu      sync.Mutex
		missed  int
		changed int
	)
	h.Bus.Subscribe(EventTimeChanged, func(Event) {
		mu.Lock()
		changed++
		mu.Unlock()
	})
	h.Bus.Subscribe(EventTimerOutOfSync, func(Event) {
		mu.Lock()
		missed++
		mu.Unlock()
	})

	tm := NewTimer(h.Bus, noopLogger{})
	tm.fire(time.Now().Add(-500 * time.Millisecond))
	tm.Stop()
	drain(t, h)

	mu.Lock()
	defer mu.Unlock()
	if changed != 1 {
		t.Errorf("got %d time_changed events, want 1", changed)
	}
	if missed != 0 {
		t.Errorf("got %d timer_out_of_sync events, want 0 for sub-second lateness", missed)
	}
}

func TestTimer_SharedTickContext(t *testing.T) {
	h := newTestHub(t)

	var (
		mu  sync.Mutex
		ids []string
	)
	h.Bus.Subscribe(EventTimeChanged, func(ev Event) {
		mu.Lock()
		ids = append(ids, ev.Context.ID)
		mu.Unlock()
	})

	tm := NewTimer(h.Bus, noopLogger{})
	tm.fire(time.Now())
	tm.fire(time.Now())
	tm.Stop()
	drain(t, h)

	mu.Lock()
	defer mu.Unlock()
	if len(ids) != 2 {
		t.Fatalf("got %d ticks, want 2", len(ids))
	}
	if ids[0] == "" || ids[0] != ids[1] {
		t.Errorf("tick contexts = %v, want a single shared id", ids)
	}
}

func TestTimer_StopIdempotent(t *testing.T) {
	h := newTestHub(t)

	tm := NewTimer(h.Bus, noopLogger{})
	tm.Start()
	tm.Start() // second Start is a no-op
	tm.Stop()
	tm.Stop() // second Stop is a no-op
}
