package core

import (
	"errors"
	"fmt"
)

// Domain errors for the core package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, core.ErrServiceNotFound) {
//	    // handle missing service
//	}
var (
	// ErrInvalidEntityID is returned when an entity id does not match the
	// required <domain>.<object_id> shape.
	ErrInvalidEntityID = errors.New("core: invalid entity id")

	// ErrServiceNotFound is returned when calling an unregistered service.
	ErrServiceNotFound = errors.New("core: service not found")

	// ErrInvalidServiceData is returned when service data fails schema validation.
	ErrInvalidServiceData = errors.New("core: invalid service data")

	// ErrInvalidStateTransition is returned when a lifecycle method is
	// called from the wrong run state.
	ErrInvalidStateTransition = errors.New("core: invalid state transition")

	// ErrUnauthorized signals that a caller is not allowed to perform an
	// operation. The core only defines the signal; enforcement belongs to
	// collaborators such as the HTTP API.
	ErrUnauthorized = errors.New("core: unauthorised")

	// ErrTimeout is returned when a shutdown or drain budget is exceeded.
	ErrTimeout = errors.New("core: timeout exceeded")

	// ErrLoopStopped is returned when work is submitted to a halted loop.
	ErrLoopStopped = errors.New("core: event loop stopped")
)

// ValidationError describes a single service-data schema violation.
// It unwraps to ErrInvalidServiceData.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("core: invalid service data: field %q: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidServiceData
}

// Logger defines the logging interface used throughout the core package.
// It is satisfied by logging.Logger and by slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
