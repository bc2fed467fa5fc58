package retrolog

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Sentinel errors. Errors returned by this package wrap one of these, so
// callers can test them with errors.Is.
var (
	// ErrLoggerClosed is returned by operations on a closed or evicted Logger.
	ErrLoggerClosed = errors.New("logger closed")
	// ErrUnknownLevel is returned for a level name missing from the level table.
	ErrUnknownLevel = errors.New("unknown level")
	// ErrInvalidConfig is wrapped by every ConfigurationError.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrMissingLevelMethod is returned when a backend lacks a required level method.
	ErrMissingLevelMethod = errors.New("backend missing required level method")
	// ErrBackendPanic is reported when a backend call panics.
	ErrBackendPanic = errors.New("backend panicked")
)

// ConfigurationError is returned by New when the configuration or the
// backend cannot be used. It is always fatal.
type ConfigurationError struct {
	Field  string // Config field or backend capability at fault
	Reason string // Human readable explanation
	Err    error  // Underlying cause, if any
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("retrolog: invalid configuration: %s: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error, or ErrInvalidConfig when there is none.
func (e *ConfigurationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidConfig
}

// Is makes every ConfigurationError match ErrInvalidConfig.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func configError(field, reason string, err error) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason, Err: err}
}

// ErrorLevel represents the severity of an operational error
type ErrorLevel int

const (
	// ErrorLevelLow represents minor errors that don't affect buffered data
	ErrorLevelLow ErrorLevel = iota
	// ErrorLevelWarn represents warning-level errors
	ErrorLevelWarn
	// ErrorLevelMedium represents a line that could not be written this pass
	ErrorLevelMedium
	// ErrorLevelHigh represents errors that lose buffered data
	ErrorLevelHigh
	// ErrorLevelCritical represents errors that stop the logger from working
	ErrorLevelCritical
)

// String returns the severity name.
func (l ErrorLevel) String() string {
	switch l {
	case ErrorLevelLow:
		return "low"
	case ErrorLevelWarn:
		return "warn"
	case ErrorLevelMedium:
		return "medium"
	case ErrorLevelHigh:
		return "high"
	case ErrorLevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// LogError represents an error the logger hit while doing its own work.
// LogErrors travel on the diagnostic channel and are never routed through
// the managed backend.
type LogError struct {
	Operation string                 // The operation that failed: "write", "predicate", "dump", "teardown"
	Level     string                 // Log level of the line involved, if any
	Message   string                 // Human readable error message
	Err       error                  // The underlying error
	Severity  ErrorLevel             // The severity of the error
	Timestamp time.Time              // When the error occurred
	Context   map[string]interface{} // Additional context
}

// Error implements the error interface
func (e LogError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e LogError) Unwrap() error {
	return e.Err
}

// ErrorHandler defines a function type for handling logger errors
type ErrorHandler func(err LogError)

// SilentErrorHandler discards all errors (used in tests)
var SilentErrorHandler ErrorHandler = func(err LogError) {}

// StderrErrorHandler writes errors to stderr
var StderrErrorHandler ErrorHandler = func(err LogError) {
	fmt.Fprintf(os.Stderr, "retrolog: %s [%s] %v\n", err.Operation, err.Severity, err)
}
