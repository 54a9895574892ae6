package errors

import "github.com/pkg/errors"

// StackTracer is satisfied by errors that carry a capture-site stack trace.
type StackTracer interface {
	StackTrace() errors.StackTrace
}

// ErrorTracer decorates a pipeline error with a stable message while keeping
// the underlying cause and its stack trace reachable through Unwrap. It is
// the wrapper the engine uses where an infrastructure failure (a lost
// publish, a failed enqueue) is logged rather than retried.
type ErrorTracer struct {
	Message string
	Err     error
}

// NewTracer creates an ErrorTracer carrying only a message; the cause is
// attached later with Wrap.
func NewTracer(message string) *ErrorTracer {
	return &ErrorTracer{Message: message}
}

// TracerFromError wraps an existing error, reusing its message and capturing
// a stack trace here if the error does not already carry one.
func TracerFromError(err error) *ErrorTracer {
	return NewTracer(err.Error()).Wrap(err)
}

// Wrap attaches the cause. A stack trace is captured at the wrap site unless
// the cause already carries one.
func (e *ErrorTracer) Wrap(err error) *ErrorTracer {
	e.Err = ensureStack(err)
	return e
}

func (e *ErrorTracer) Error() string {
	return e.Message
}

func (e *ErrorTracer) Unwrap() error {
	return e.Err
}

// StackTrace exposes the underlying error's stack trace, or nil when there
// is none to expose.
func (e *ErrorTracer) StackTrace() errors.StackTrace {
	if traced, ok := e.Unwrap().(StackTracer); ok {
		return traced.StackTrace()
	}
	return nil
}

func ensureStack(err error) error {
	if _, ok := err.(StackTracer); ok {
		return err
	}
	return errors.WithStack(err)
}
