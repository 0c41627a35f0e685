package domain

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError reports unusable user input. Its message is safe to show.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// RemoteError wraps a transport or service failure of the AI provider,
// including responses that carry no usable payload.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	if e.Err == nil {
		return e.Op + ": remote call failed"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *RemoteError) Unwrap() error { return e.Err }

// SchemaError reports a provider response that does not match the declared
// output shape.
type SchemaError struct {
	Field  string
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	msg := "response does not match schema"
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Reason != "" {
		msg += " " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Err }

// TimeoutError reports that a bounded wait on the provider ran out.
type TimeoutError struct {
	Op       string
	Attempts int
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts (%s)", e.Op, e.Attempts, e.Elapsed.Round(time.Millisecond))
}

// ErrNotFound is wrapped by stores when a keyed item does not exist.
var ErrNotFound = errors.New("not found")
