package event

import (
	"reflect"
	"sync"

	"github.com/dshills/vents/internal/event/oneshot"
	"github.com/dshills/vents/internal/event/slot"
	"github.com/dshills/vents/internal/logging"
)

// Event is a synchronous notifier with at most one subscriber.
//
// The subscriber is one of three variants: a persistent callback, a
// one-shot callback, or a oneshot channel for asynchronous consumption.
// Installing a subscriber while another is present fails with
// ErrAlreadySubscribed; call RemoveSubscribers first.
//
// The zero value is ready for use. An Event must not be copied after first
// use.
type Event[T any] struct {
	// mu makes the "no subscriber yet" check and the install atomic across
	// the three slots, and picks exactly one consumer per trigger.
	mu         sync.Mutex
	persistent slot.Slot[func(T)]
	once       slot.Slot[func(T)]
	sender     slot.Slot[*oneshot.Sender[T]]
	closed     bool

	name   string
	logger *logging.Logger
}

// New creates an Event with the given options.
func New[T any](opts ...Option) *Event[T] {
	o := applyOptions(opts)
	return &Event[T]{
		name:   o.name,
		logger: o.logger,
	}
}

// Sub installs a persistent callback that ignores the triggered value.
func (e *Event[T]) Sub(action func()) error {
	if action == nil {
		return ErrNilCallback
	}
	return e.Val(func(T) { action() })
}

// Val installs a persistent callback receiving each triggered value.
func (e *Event[T]) Val(action func(T)) error {
	if action == nil {
		return ErrNilCallback
	}
	return e.install(func() error {
		return e.persistent.Install(action)
	})
}

// Once installs a callback that is consumed by the next trigger.
func (e *Event[T]) Once(action func(T)) error {
	if action == nil {
		return ErrNilCallback
	}
	return e.install(func() error {
		return e.once.Install(action)
	})
}

// OnceAsync installs the sending half of a oneshot channel and returns the
// receiving half. The receiver gets the value of the next trigger, or
// oneshot.ErrDisconnected if the subscriber is removed or the event is
// closed first.
func (e *Event[T]) OnceAsync() (*oneshot.Receiver[T], error) {
	s, r := oneshot.New[T]()
	err := e.install(func() error {
		return e.sender.Install(s)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// MustSub is like Sub but panics if a subscriber is already installed.
func (e *Event[T]) MustSub(action func()) {
	if err := e.Sub(action); err != nil {
		panic(err)
	}
}

// MustVal is like Val but panics if a subscriber is already installed.
func (e *Event[T]) MustVal(action func(T)) {
	if err := e.Val(action); err != nil {
		panic(err)
	}
}

// MustOnce is like Once but panics if a subscriber is already installed.
func (e *Event[T]) MustOnce(action func(T)) {
	if err := e.Once(action); err != nil {
		panic(err)
	}
}

func (e *Event[T]) install(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if v := e.activeLocked(); v != VariantNone {
		return &InstallError{Event: e.String(), Existing: v}
	}
	return fn()
}

// activeLocked returns the installed variant. Caller must hold e.mu.
func (e *Event[T]) activeLocked() Variant {
	switch {
	case e.persistent.IsSet():
		return VariantPersistent
	case e.once.IsSet():
		return VariantOnce
	case e.sender.IsSet():
		return VariantOnceAsync
	default:
		return VariantNone
	}
}

// Trigger delivers value to the installed subscriber.
//
// A persistent callback takes precedence, then a one-shot callback, then a
// oneshot channel. One-shot variants are removed before they run. With no
// subscriber, Trigger does nothing. Callbacks run synchronously on the
// caller's goroutine with no event lock held, so they may re-enter the
// event.
func (e *Event[T]) Trigger(value T) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if fn, ok := e.persistent.Peek(); ok {
		e.mu.Unlock()
		fn(value)
		return
	}
	if fn, ok := e.once.Take(); ok {
		e.mu.Unlock()
		fn(value)
		return
	}
	s, ok := e.sender.Take()
	e.mu.Unlock()

	if ok {
		sendOnce(e.log(), s, value)
	}
}

// RemoveSubscribers clears every installed subscriber. A pending oneshot
// receiver observes oneshot.ErrDisconnected.
func (e *Event[T]) RemoveSubscribers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearLocked()
}

func (e *Event[T]) clearLocked() {
	e.persistent.Clear()
	e.once.Clear()
	if s, ok := e.sender.Take(); ok {
		s.Close()
	}
}

// Close removes all subscribers and turns the event inert: later installs
// return ErrClosed and later triggers do nothing. Close never blocks and is
// safe to call more than once.
func (e *Event[T]) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.clearLocked()
}

// HasSubscriber reports whether any subscriber is installed.
func (e *Event[T]) HasSubscriber() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeLocked() != VariantNone
}

// Active returns the variant of the installed subscriber.
func (e *Event[T]) Active() Variant {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeLocked()
}

// String returns the event name, "Event[T]" unless overridden.
func (e *Event[T]) String() string {
	if e.name != "" {
		return e.name
	}
	return "Event[" + TypeName[T]() + "]"
}

func (e *Event[T]) log() *logging.Logger {
	return logging.OrDefault(e.logger).WithEvent(e.String())
}

// sendOnce delivers v through s. A receiver that already went away is a
// diagnostic, not an error for the triggering caller.
func sendOnce[T any](logger *logging.Logger, s *oneshot.Sender[T], v T) {
	if err := s.Send(v); err != nil {
		logger.Warn("failed to deliver once value", "error", err)
	}
}

// TypeName returns the Go type name of T, e.g. "int" or "main.Config".
func TypeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
