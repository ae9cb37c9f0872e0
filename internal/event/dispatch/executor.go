package dispatch

import (
	"runtime/debug"
	"time"

	"github.com/dshills/vents/internal/logging"
)

// Executor runs callbacks with panic recovery and timing.
// An Executor is stateless after construction and safe for concurrent use.
type Executor struct {
	panicHandler PanicHandler
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new executor with the given options.
// Without options, panics are logged at ERROR through the default logger.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		panicHandler: LogPanics(nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithPanicHandler sets the panic handler for the executor.
// A nil handler silently swallows panics.
func WithPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) {
		e.panicHandler = h
	}
}

// WithLogger reports panics through l.
func WithLogger(l *logging.Logger) ExecutorOption {
	return func(e *Executor) {
		e.panicHandler = LogPanics(l)
	}
}

// LogPanics returns a PanicHandler that logs at ERROR through l, or through
// the process default logger when l is nil.
func LogPanics(l *logging.Logger) PanicHandler {
	return func(label string, panicValue any, stack []byte) {
		logging.OrDefault(l).Error("callback panicked",
			"event", label,
			"panic", panicValue,
			"stack", string(stack),
		)
	}
}

// Execute runs fn and returns the result.
// It recovers from panics and captures timing information.
func (e *Executor) Execute(label string, fn func() error) (result Result) {
	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			stack := debug.Stack()

			result.Success = false
			result.Panicked = true
			result.PanicValue = r
			result.PanicStack = stack

			// A panicking panic handler must not escape either.
			if e.panicHandler != nil {
				func() {
					defer func() {
						_ = recover()
					}()
					e.panicHandler(label, r, stack)
				}()
			}
		}
	}()

	if err := fn(); err != nil {
		result.Error = err
		return result
	}

	result.Success = true
	return result
}

// Call runs a callback that cannot fail other than by panicking.
func (e *Executor) Call(label string, fn func()) Result {
	return e.Execute(label, func() error {
		fn()
		return nil
	})
}
