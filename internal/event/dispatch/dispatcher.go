package dispatch

import (
	"fmt"
	"time"
)

// Result represents the outcome of a callback execution.
type Result struct {
	// Success is true if the callback completed without error or panic.
	Success bool

	// Error is the error returned by the callback, if any.
	Error error

	// Panicked is true if the callback panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace at the point of panic.
	PanicStack []byte

	// Duration is how long the callback took to execute.
	Duration time.Duration
}

// IsSuccess returns true if the result indicates successful execution.
func (r Result) IsSuccess() bool {
	return r.Success && !r.Panicked && r.Error == nil
}

// IsError returns true if the result indicates an error (not panic).
func (r Result) IsError() bool {
	return r.Error != nil && !r.Panicked
}

// IsPanic returns true if the result indicates a panic.
func (r Result) IsPanic() bool {
	return r.Panicked
}

// Err returns the callback error, a *PanicError for a panic, or nil.
func (r Result) Err(label string) error {
	if r.Panicked {
		return &PanicError{Label: label, Value: r.PanicValue, Stack: string(r.PanicStack)}
	}
	return r.Error
}

// PanicHandler is called when a callback panics during execution.
// It receives the label of the callback, the panic value, and the stack trace.
type PanicHandler func(label string, panicValue any, stack []byte)

// PanicError wraps a recovered panic value as an error.
type PanicError struct {
	// Label identifies the callback, usually the event name.
	Label string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("callback panic in %s: %v", e.Label, e.Value)
}

// Is allows errors.Is to match PanicError with ErrCallbackPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrCallbackPanic
}
