package history

import "errors"

var (
	// ErrEntityIDRequired is returned when a repository call omits the
	// entity id.
	ErrEntityIDRequired = errors.New("history: entity id is required")

	// ErrInvalidRetention is returned when pruning with a non-positive
	// retention window.
	ErrInvalidRetention = errors.New("history: retention must be positive")
)

// Logger is the minimal structured logging interface this package needs.
// *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
