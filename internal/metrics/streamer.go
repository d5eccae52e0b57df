package metrics

import (
	"strconv"
	"time"

	"github.com/Hatles/rx-home/internal/core"
)

// Writer is the point-writing surface the streamer needs. Satisfied by
// *influxdb.Client; mocked in tests.
type Writer interface {
	// WriteStateChange records one numeric entity state sample.
	WriteStateChange(entityID, domain string, value float64, timestamp time.Time)

	// WriteAttributeMetric records one numeric attribute sample.
	WriteAttributeMetric(entityID, attribute string, value float64, timestamp time.Time)

	// WriteTimerDrift records a late timer tick.
	WriteTimerDrift(seconds float64)
}

// Logger is the logging interface the streamer requires. It matches
// logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Streamer feeds numeric state changes and timer drift into a Writer.
//
// Listener callbacks run on the hub's event loop. Writes are batched
// and non-blocking on the Writer side, so no background jobs are
// needed here.
type Streamer struct {
	hub    *core.Hub
	writer Writer
	logger Logger

	subs []*core.Subscription
}

// NewStreamer creates a streamer. Call Start to begin writing.
func NewStreamer(hub *core.Hub, writer Writer, logger Logger) *Streamer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Streamer{
		hub:    hub,
		writer: writer,
		logger: logger,
	}
}

// Start subscribes to state_changed and timer_out_of_sync events.
func (s *Streamer) Start() {
	s.subs = append(s.subs,
		s.hub.Bus.Subscribe(core.EventStateChanged, s.onStateChanged),
		s.hub.Bus.Subscribe(core.EventTimerOutOfSync, s.onTimerOutOfSync),
	)
	s.logger.Info("metrics streamer started")
}

// Stop unsubscribes.
func (s *Streamer) Stop() {
	for _, sub := range s.subs {
		s.hub.Bus.Unsubscribe(sub)
	}
	s.subs = nil
	s.logger.Info("metrics streamer stopped")
}

// onStateChanged extracts numeric samples from a state snapshot.
func (s *Streamer) onStateChanged(ev core.Event) {
	next, _ := ev.Data[core.AttrNewState].(*core.State)
	if next == nil {
		return
	}

	if value, err := strconv.ParseFloat(next.Value, 64); err == nil {
		s.writer.WriteStateChange(next.EntityID, next.Domain(), value, next.LastUpdated)
	}

	for name, raw := range next.Attributes {
		if value, ok := asFloat(raw); ok {
			s.writer.WriteAttributeMetric(next.EntityID, name, value, next.LastUpdated)
		}
	}
}

// onTimerOutOfSync records the tick's drift.
func (s *Streamer) onTimerOutOfSync(ev core.Event) {
	seconds, ok := ev.Data[core.AttrSeconds].(float64)
	if !ok {
		s.logger.Warn("timer_out_of_sync event without seconds")
		return
	}
	s.writer.WriteTimerDrift(seconds)
}

// asFloat converts the numeric types JSON decoding and Go callers
// produce. Strings and bools are not coerced.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
