package core

import (
	"sync"
	"testing"
	"time"
)

// captureLogger records log calls for assertions.
type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
}

func (l *captureLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.log("debug", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.log("info", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.log("warn", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.log("error", msg) }

// has reports whether a log entry at the given level contains msg.
func (l *captureLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

// newTestHub builds a hub with short budgets and a running loop.
func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := New(Config{
		Name:           "test",
		ShutdownBudget: 200 * time.Millisecond,
		DrainBudget:    2 * time.Second,
	}, noopLogger{})
	h.loop.Start()
	t.Cleanup(h.loop.Stop)
	return h
}

// drain waits for all pending hub work, failing the test on timeout.
func drain(t *testing.T, h *Hub) {
	t.Helper()
	if err := h.BlockTillDone(2 * time.Second); err != nil {
		t.Fatalf("BlockTillDone() error = %v", err)
	}
}
