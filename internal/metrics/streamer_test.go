package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/Hatles/rx-home/internal/core"
)

type stateSample struct {
	entityID string
	domain   string
	value    float64
}

type attrSample struct {
	entityID  string
	attribute string
	value     float64
}

// MockWriter records samples for assertions.
type MockWriter struct {
	mu     sync.Mutex
	states []stateSample
	attrs  []attrSample
	drifts []float64
}

func (m *MockWriter) WriteStateChange(entityID, domain string, value float64, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, stateSample{entityID: entityID, domain: domain, value: value})
}

func (m *MockWriter) WriteAttributeMetric(entityID, attribute string, value float64, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attrs = append(m.attrs, attrSample{entityID: entityID, attribute: attribute, value: value})
}

func (m *MockWriter) WriteTimerDrift(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drifts = append(m.drifts, seconds)
}

func (m *MockWriter) stateSamples() []stateSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateSample(nil), m.states...)
}

func (m *MockWriter) attrSamples() []attrSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]attrSample(nil), m.attrs...)
}

func (m *MockWriter) driftSamples() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.drifts...)
}

func newStreamerHub(t *testing.T) *core.Hub {
	t.Helper()
	h := core.New(core.Config{
		Name:           "test",
		ShutdownBudget: 200 * time.Millisecond,
		DrainBudget:    2 * time.Second,
	}, nil)
	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		if h.IsRunning() {
			h.Stop() //nolint:errcheck // Test cleanup
		}
	})
	return h
}

func TestStreamer_NumericState(t *testing.T) {
	h := newStreamerHub(t)
	w := &MockWriter{}

	s := NewStreamer(h, w, nil)
	s.Start()
	defer s.Stop()

	if _, err := h.States.Set("sensor.outdoor_temp", "21.5", map[string]any{"battery": 87}, core.Context{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := h.BlockTillDone(2 * time.Second); err != nil {
		t.Fatalf("BlockTillDone() error = %v", err)
	}

	states := w.stateSamples()
	if len(states) != 1 {
		t.Fatalf("state samples = %d, want 1", len(states))
	}
	if states[0].entityID != "sensor.outdoor_temp" || states[0].domain != "sensor" || states[0].value != 21.5 {
		t.Errorf("state sample = %+v", states[0])
	}

	attrs := w.attrSamples()
	if len(attrs) != 1 {
		t.Fatalf("attribute samples = %d, want 1", len(attrs))
	}
	if attrs[0].attribute != "battery" || attrs[0].value != 87 {
		t.Errorf("attribute sample = %+v", attrs[0])
	}
}

func TestStreamer_NonNumericStateSkipped(t *testing.T) {
	h := newStreamerHub(t)
	w := &MockWriter{}

	s := NewStreamer(h, w, nil)
	s.Start()
	defer s.Stop()

	if _, err := h.States.Set("light.kitchen", "on", map[string]any{"brightness": 80, "friendly_name": "Kitchen"}, core.Context{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := h.BlockTillDone(2 * time.Second); err != nil {
		t.Fatalf("BlockTillDone() error = %v", err)
	}

	if got := len(w.stateSamples()); got != 0 {
		t.Errorf("state samples = %d, want 0 for non-numeric state", got)
	}

	// Numeric attributes still stream, string attributes do not.
	attrs := w.attrSamples()
	if len(attrs) != 1 {
		t.Fatalf("attribute samples = %d, want 1", len(attrs))
	}
	if attrs[0].attribute != "brightness" || attrs[0].value != 80 {
		t.Errorf("attribute sample = %+v", attrs[0])
	}
}

func TestStreamer_RemovalSkipped(t *testing.T) {
	h := newStreamerHub(t)
	w := &MockWriter{}

	if _, err := h.States.Set("sensor.gone", "1", nil, core.Context{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	s := NewStreamer(h, w, nil)
	s.Start()
	defer s.Stop()

	h.States.Remove("sensor.gone", core.Context{})
	if err := h.BlockTillDone(2 * time.Second); err != nil {
		t.Fatalf("BlockTillDone() error = %v", err)
	}

	if got := len(w.stateSamples()); got != 0 {
		t.Errorf("state samples = %d, want 0 for removal", got)
	}
}

func TestStreamer_TimerDrift(t *testing.T) {
	h := newStreamerHub(t)
	w := &MockWriter{}

	s := NewStreamer(h, w, nil)
	s.Start()
	defer s.Stop()

	h.Bus.Publish(core.EventTimerOutOfSync, map[string]any{core.AttrSeconds: 1.37}, core.OriginLocal, core.Context{})
	if err := h.BlockTillDone(2 * time.Second); err != nil {
		t.Fatalf("BlockTillDone() error = %v", err)
	}

	drifts := w.driftSamples()
	if len(drifts) != 1 || drifts[0] != 1.37 {
		t.Errorf("drift samples = %v, want [1.37]", drifts)
	}
}

func TestStreamer_StopUnsubscribes(t *testing.T) {
	h := newStreamerHub(t)
	w := &MockWriter{}

	s := NewStreamer(h, w, nil)
	s.Start()
	s.Stop()

	if _, err := h.States.Set("sensor.after_stop", "5", nil, core.Context{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := h.BlockTillDone(2 * time.Second); err != nil {
		t.Fatalf("BlockTillDone() error = %v", err)
	}

	if got := len(w.stateSamples()); got != 0 {
		t.Errorf("state samples after Stop() = %d, want 0", got)
	}
}
