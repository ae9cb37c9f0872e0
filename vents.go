// Package vents provides typed events with a single subscriber.
//
// An Event delivers each triggered value to at most one subscriber: a
// persistent callback, a one-shot callback, or a oneshot channel receiver.
// A DelayedEvent debounces triggers, delivering only the last value of a
// burst once the configured window passes without a newer trigger:
//
//	saved := vents.NewDelayed[string](vents.WithDelay(250 * time.Millisecond))
//	defer saved.Close()
//	saved.MustVal(func(path string) { fmt.Println("saved", path) })
//
//	saved.Trigger("a.txt")
//	saved.Trigger("b.txt") // prints "saved b.txt" once, 250ms later
//
// Installing a second subscriber fails with ErrAlreadySubscribed until the
// first is removed with RemoveSubscribers.
package vents

import (
	"github.com/dshills/vents/internal/event"
	"github.com/dshills/vents/internal/event/delayed"
	"github.com/dshills/vents/internal/event/oneshot"
)

type (
	// Event is a synchronous single-subscriber event. The zero value is
	// ready for use.
	Event[T any] = event.Event[T]

	// OnceEvent is an event whose subscribers are consumed by one trigger.
	OnceEvent[T any] = event.OnceEvent[T]

	// DelayedEvent is a debounced single-subscriber event. Create it with
	// NewDelayed.
	DelayedEvent[T any] = delayed.Event[T]

	// Property stores a value and triggers OnSet on every change.
	Property[T any] = event.Property[T]

	// Receiver is the receiving half of a OnceAsync subscription.
	Receiver[T any] = oneshot.Receiver[T]

	// Option configures an Event or OnceEvent.
	Option = event.Option

	// DelayedOption configures a DelayedEvent.
	DelayedOption = delayed.Option

	// Scheduler runs the deferred checks of delayed events.
	Scheduler = delayed.Scheduler

	// Stats are delivery statistics of a DelayedEvent.
	Stats = delayed.Stats

	// InstallError reports which subscriber blocked an install.
	InstallError = event.InstallError
)

// Errors returned by event operations.
var (
	ErrAlreadySubscribed = event.ErrAlreadySubscribed
	ErrClosed            = event.ErrClosed
	ErrNilCallback       = event.ErrNilCallback
	ErrDisconnected      = oneshot.ErrDisconnected
)

// New creates an Event.
func New[T any](opts ...Option) *Event[T] {
	return event.New[T](opts...)
}

// NewOnce creates a OnceEvent.
func NewOnce[T any](opts ...Option) *OnceEvent[T] {
	return event.NewOnce[T](opts...)
}

// NewDelayed creates a DelayedEvent. Without WithDelay it delivers
// synchronously like Event.
func NewDelayed[T any](opts ...DelayedOption) *DelayedEvent[T] {
	return delayed.New[T](opts...)
}

// NewProperty creates a Property holding v.
func NewProperty[T any](v T) *Property[T] {
	return event.NewProperty(v)
}

// Bind installs action as e's persistent subscriber without keeping obj
// alive. Once obj is collected, triggers skip the callback.
func Bind[O, T any](e *Event[T], obj *O, action func(*O, T)) error {
	return event.Bind(e, obj, action)
}

// Option constructors.
var (
	WithName = event.WithName

	WithDelay        = delayed.WithDelay
	WithScheduler    = delayed.WithScheduler
	WithDelayedName  = delayed.WithName
	NewScheduler     = delayed.NewScheduler
	DefaultScheduler = delayed.DefaultScheduler
)
