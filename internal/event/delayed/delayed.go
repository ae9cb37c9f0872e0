package delayed

import (
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/vents/internal/event"
	"github.com/dshills/vents/internal/event/dispatch"
	"github.com/dshills/vents/internal/event/slot"
	"github.com/dshills/vents/internal/logging"
)

// Event is a debounced single-subscriber event.
//
// With a delay of zero, Trigger delivers synchronously like event.Event.
// With a positive delay, each Trigger schedules a deferred check and
// returns immediately; a check delivers only if no newer Trigger happened
// while it slept. A burst of triggers closer together than the delay
// therefore produces one delivery, carrying the last value, one delay after
// the last trigger.
//
// Create an Event with New; the zero value is not usable.
type Event[T any] struct {
	s *state[T]
}

// state is shared by the handle and every in-flight deferred check.
// Checks hold only this block, so the handle can be dropped independently.
type state[T any] struct {
	mu       sync.Mutex
	sub      slot.Slot[func(T)]
	delay    time.Duration
	stamp    uint64 // last stamp handed out by Trigger
	pending  bool   // a delivery for stamp is outstanding
	dropped  bool
	inflight int

	// deliverMu serializes deferred deliveries of one event.
	deliverMu sync.Mutex

	id     string
	name   string
	sched  Scheduler
	exec   *dispatch.Executor
	logger *logging.Logger
	stats  counters
}

// New creates a delayed Event.
func New[T any](opts ...Option) *Event[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	name := cfg.name
	if name == "" {
		name = "DelayedEvent[" + event.TypeName[T]() + "]"
	}
	id := uuid.NewString()
	logger := logging.OrDefault(cfg.logger).WithEvent(name).With("id", id)

	exec := cfg.executor
	if exec == nil {
		exec = dispatch.NewExecutor(dispatch.WithLogger(logger))
	}

	s := &state[T]{
		delay:  cfg.delay,
		id:     id,
		name:   name,
		sched:  cfg.scheduler,
		exec:   exec,
		logger: logger,
	}

	e := &Event[T]{s: s}
	// A handle that is never closed still stops delivering once collected.
	runtime.AddCleanup(e, func(s *state[T]) { s.drop() }, s)
	return e
}

// SetDelay changes the debounce window. Checks already scheduled keep the
// window they were scheduled with. Negative values are treated as zero.
func (e *Event[T]) SetDelay(d time.Duration) {
	if d < 0 {
		d = 0
	}
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	e.s.delay = d
}

// Delay returns the current debounce window.
func (e *Event[T]) Delay() time.Duration {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return e.s.delay
}

// Sub installs a persistent callback that ignores the triggered value.
func (e *Event[T]) Sub(action func()) error {
	if action == nil {
		return event.ErrNilCallback
	}
	return e.Val(func(T) { action() })
}

// Val installs a persistent callback receiving each delivered value.
// Returns event.ErrAlreadySubscribed if a callback is installed and
// event.ErrClosed after Close.
func (e *Event[T]) Val(action func(T)) error {
	if action == nil {
		return event.ErrNilCallback
	}

	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dropped {
		return event.ErrClosed
	}
	if err := s.sub.Install(action); err != nil {
		return &event.InstallError{Event: s.name, Existing: event.VariantPersistent}
	}
	return nil
}

// MustVal is like Val but panics on error.
func (e *Event[T]) MustVal(action func(T)) {
	if err := e.Val(action); err != nil {
		panic(err)
	}
}

// Trigger records value for delivery.
//
// Without a subscriber Trigger does nothing. With a zero delay the
// subscriber runs synchronously before Trigger returns and any check still
// waiting from an earlier delay is superseded. Otherwise Trigger
// schedules a deferred check and returns without waiting.
func (e *Event[T]) Trigger(value T) {
	s := e.s
	s.stats.triggered.Add(1)

	s.mu.Lock()
	if s.dropped {
		s.mu.Unlock()
		return
	}
	fn, ok := s.sub.Peek()
	if !ok {
		s.mu.Unlock()
		s.stats.noSubscriber.Add(1)
		return
	}

	delay := s.delay
	if delay <= 0 {
		// A check scheduled under an earlier delay must not deliver an
		// older value after this one.
		s.pending = false
		s.mu.Unlock()
		s.stats.immediate.Add(1)
		fn(value)
		return
	}

	s.stamp++
	stamp := s.stamp
	s.pending = true
	s.inflight++
	s.mu.Unlock()

	s.stats.scheduled.Add(1)
	s.sched.Go(func() {
		s.check(delay, stamp, value)
	})
}

// check runs on the scheduler. It sleeps for the window captured at
// trigger time, then delivers value only if stamp is still the latest.
func (s *state[T]) check(delay time.Duration, stamp uint64, value T) {
	defer s.done()

	s.sched.Sleep(delay)

	s.mu.Lock()
	switch {
	case s.dropped:
		s.mu.Unlock()
		s.stats.afterClose.Add(1)
		return
	case !s.pending || s.stamp != stamp:
		latest := s.stamp
		s.mu.Unlock()
		s.stats.superseded.Add(1)
		s.logger.Debug("delivery superseded", "stamp", stamp, "latest", latest)
		return
	}
	s.pending = false
	s.mu.Unlock()

	s.deliver(value)
}

func (s *state[T]) deliver(value T) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	// Close or RemoveSubscribers may have run since the stamp check.
	s.mu.Lock()
	dropped := s.dropped
	fn, ok := s.sub.Peek()
	s.mu.Unlock()

	switch {
	case dropped:
		s.stats.afterClose.Add(1)
		return
	case !ok:
		s.stats.noSubscriber.Add(1)
		return
	}

	result := s.exec.Call(s.name, func() { fn(value) })
	if result.IsPanic() {
		s.stats.panicked.Add(1)
		return
	}
	s.stats.delivered.Add(1)
}

func (s *state[T]) done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
}

// drop marks the state dropped before releasing the subscriber, so every
// check that wakes afterwards exits without touching it.
func (s *state[T]) drop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropped = true
	s.pending = false
	s.sub.Clear()
}

// RemoveSubscribers clears the installed callback. Deferred checks that
// wake later find no subscriber and do nothing.
func (e *Event[T]) RemoveSubscribers() {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	e.s.sub.Clear()
}

// Close drops the event. No delivery happens after Close returns, except
// one that was already running. Close does not wait for in-flight checks
// and is safe to call more than once.
func (e *Event[T]) Close() {
	e.s.drop()
}

// IsClosed reports whether Close has been called.
func (e *Event[T]) IsClosed() bool {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return e.s.dropped
}

// HasSubscriber reports whether a callback is installed.
func (e *Event[T]) HasSubscriber() bool {
	return e.s.sub.IsSet()
}

// Pending returns the number of deferred checks that have not finished.
func (e *Event[T]) Pending() int {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return e.s.inflight
}

// Stats returns a snapshot of delivery statistics.
func (e *Event[T]) Stats() Stats {
	return e.s.stats.snapshot()
}

// ID returns the unique identifier attached to this event's log entries.
func (e *Event[T]) ID() string {
	return e.s.id
}

// String returns the event name, "DelayedEvent[T]" unless overridden.
func (e *Event[T]) String() string {
	return e.s.name
}
