package daemon

import (
	"context"
	"errors"
	"strings"
)

// StopError is the error a Runnable stopped with.
type StopError struct {
	Runner string
	Err    error
}

// Error implements error.
func (e *StopError) Error() string {
	return e.Runner + ": " + e.Err.Error()
}

// Unwrap returns the error of the Runnable.
func (e *StopError) Unwrap() error {
	return e.Err
}

// StopErrors lists the Runnables which failed, in stop order.
type StopErrors []*StopError

// Error implements error.
func (e StopErrors) Error() string {
	msgs := make([]string, len(e))
	for n, err := range e {
		msgs[n] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap supports errors.Is and errors.As over all failures.
func (e StopErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for n, err := range e {
		errs[n] = err
	}
	return errs
}

// add records a stopped Runnable. Cancellation is a normal stop.
func (e *StopErrors) add(stopped *StopError) {
	if stopped.Err == nil || errors.Is(stopped.Err, context.Canceled) {
		return
	}
	*e = append(*e, stopped)
}

func (e StopErrors) errorOrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
