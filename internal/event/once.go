package event

import (
	"sync"

	"github.com/dshills/vents/internal/event/oneshot"
	"github.com/dshills/vents/internal/event/slot"
	"github.com/dshills/vents/internal/logging"
)

// OnceEvent is an event whose subscribers are always one-shot: each
// installed callback or receiver consumes exactly one trigger.
//
// The zero value is ready for use.
type OnceEvent[T any] struct {
	mu       sync.Mutex
	callback slot.Slot[func(T)]
	sender   slot.Slot[*oneshot.Sender[T]]

	name   string
	logger *logging.Logger
}

// NewOnce creates a OnceEvent with the given options.
func NewOnce[T any](opts ...Option) *OnceEvent[T] {
	o := applyOptions(opts)
	return &OnceEvent[T]{
		name:   o.name,
		logger: o.logger,
	}
}

// Sub installs a one-shot callback that ignores the triggered value.
func (e *OnceEvent[T]) Sub(action func()) error {
	if action == nil {
		return ErrNilCallback
	}
	return e.Val(func(T) { action() })
}

// Val installs a one-shot callback receiving the next triggered value.
func (e *OnceEvent[T]) Val(action func(T)) error {
	if action == nil {
		return ErrNilCallback
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkEmptyLocked(); err != nil {
		return err
	}
	return e.callback.Install(action)
}

// Receiver installs a oneshot channel and returns its receiving half.
func (e *OnceEvent[T]) Receiver() (*oneshot.Receiver[T], error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkEmptyLocked(); err != nil {
		return nil, err
	}
	s, r := oneshot.New[T]()
	if err := e.sender.Install(s); err != nil {
		return nil, err
	}
	return r, nil
}

func (e *OnceEvent[T]) checkEmptyLocked() error {
	switch {
	case e.callback.IsSet():
		return &InstallError{Event: e.String(), Existing: VariantOnce}
	case e.sender.IsSet():
		return &InstallError{Event: e.String(), Existing: VariantOnceAsync}
	}
	return nil
}

// Trigger consumes the installed subscriber, if any, and delivers value.
func (e *OnceEvent[T]) Trigger(value T) {
	e.mu.Lock()
	if fn, ok := e.callback.Take(); ok {
		e.mu.Unlock()
		fn(value)
		return
	}
	s, ok := e.sender.Take()
	e.mu.Unlock()

	if ok {
		sendOnce(logging.OrDefault(e.logger).WithEvent(e.String()), s, value)
	}
}

// RemoveSubscribers drops the installed subscriber without delivering.
func (e *OnceEvent[T]) RemoveSubscribers() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.callback.Clear()
	if s, ok := e.sender.Take(); ok {
		s.Close()
	}
}

// HasSubscriber reports whether a subscriber is waiting for a trigger.
func (e *OnceEvent[T]) HasSubscriber() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callback.IsSet() || e.sender.IsSet()
}

// String returns the event name, "OnceEvent[T]" unless overridden.
func (e *OnceEvent[T]) String() string {
	if e.name != "" {
		return e.name
	}
	return "OnceEvent[" + TypeName[T]() + "]"
}
