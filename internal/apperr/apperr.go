// Package apperr defines the error categories used across PowerGenome.
//
// Error taxonomy
//
//	UserError      – caused by missing or invalid command-line input (wrong flag, bad value, …).
//	                 The CLI prints only the message; usage help is NOT repeated.
//	                 Exit code: 1.
//
//	ErrConfig      – invalid resource-group descriptors, metadata or profile tables, or
//	                 clustering parameters (maxRows < 1, ambiguous group selectors, …).
//	                 Fatal, never retried.
//
//	ErrNoResources – a selection (regions, capacity, cost cut-off) left nothing to cluster.
//	                 Fatal to that call only; callers may retry with looser selectors.
//
//	ErrCancelled   – the user deliberately aborted an interactive flow (group selector).
//	                 Exit code: 0 (not a failure).
//
// Everything else is a plain Go error (I/O, parsing, …) and is
// propagated with fmt.Errorf("context: %w", err) wrapping.
package apperr

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when the user explicitly aborts an interactive
// operation.  The CLI should exit 0 rather than 1 when it sees this error.
var ErrCancelled = errors.New("operation cancelled")

// ErrConfig is the sentinel matched by every configuration error.
var ErrConfig = errors.New("configuration error")

// ErrNoResources is returned when filtering and selection leave no resources.
var ErrNoResources = errors.New("no resources found or selected")

// UserError represents an error caused by invalid or missing user input.
// Cobra command handlers return this instead of a bare fmt.Errorf so that
// the root command can suppress repeated usage output and format the message
// in a user-friendly way.
type UserError struct {
	Message string
}

func (e *UserError) Error() string { return e.Message }

// User creates a UserError with the given message.
func User(msg string) error { return &UserError{Message: msg} }

// Userf creates a formatted UserError.
func Userf(format string, args ...any) error {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

// IsUser reports whether err is (or wraps) a *UserError.
func IsUser(err error) bool {
	var u *UserError
	return errors.As(err, &u)
}

// ConfigError describes invalid configuration or input data.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// Is lets errors.Is(err, ErrConfig) match any *ConfigError.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// Config creates a ConfigError with the given message.
func Config(msg string) error { return &ConfigError{Message: msg} }

// Configf creates a formatted ConfigError.
func Configf(format string, args ...any) error {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// IsConfig reports whether err is (or wraps) a configuration error.
func IsConfig(err error) bool { return errors.Is(err, ErrConfig) }
