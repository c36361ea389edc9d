package llm

import (
	"context"
	"errors"
)

// Error wrappers classifying provider failures. Only transport-level
// failure of the primary chat stream is surfaced to the user; callers use
// the classification to decide how to report it.

// TransientError represents a temporary failure (network error, rate
// limit, upstream overload) that might succeed if the user re-sends.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient.
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError represents a permanent failure (bad request, auth) that will
// not succeed on a re-send without reconfiguration.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal.
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient returns true if the error is transient.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal returns true if the error is fatal.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// IsAborted returns true if the error stems from the caller cancelling
// the in-flight stream rather than a provider failure.
func IsAborted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
