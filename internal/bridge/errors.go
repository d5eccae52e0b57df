package bridge

import "errors"

// Sentinel errors for bridge operations.
// Callers match with errors.Is().
var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("bridge: already started")

	// ErrNotStarted is returned when Stop is called before Start.
	ErrNotStarted = errors.New("bridge: not started")

	// ErrBadPayload is returned for inbound messages that are not the
	// expected JSON shape.
	ErrBadPayload = errors.New("bridge: malformed payload")

	// ErrBadTopic is returned for inbound messages on topics the bridge
	// cannot parse.
	ErrBadTopic = errors.New("bridge: unparseable topic")
)

// Logger is the logging interface the bridge requires. It matches
// logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards everything.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
