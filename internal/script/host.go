// Package script runs Lua scripts against vents events.
//
// A Host owns one sandboxed gopher-lua state and exposes a global "vents"
// module for creating events, delayed events and properties from Lua.
// The Lua state is not goroutine-safe, so deferred deliveries from delayed
// events are queued and run on the goroutine that calls Pump or Wait.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/vents/internal/event/delayed"
	"github.com/dshills/vents/internal/event/dispatch"
	"github.com/dshills/vents/internal/logging"
)

// DefaultTimeout bounds a single script run or pump.
const DefaultTimeout = 30 * time.Second

// Host runs scripts in a sandboxed Lua state.
type Host struct {
	// mu guards L. Every entry into Lua holds it.
	mu     sync.Mutex
	L      *lua.LState
	closed bool

	timeout   time.Duration
	delay     time.Duration
	scheduler delayed.Scheduler
	logger    *logging.Logger
	exec      *dispatch.Executor

	inbox inbox

	handlesMu sync.Mutex
	handles   []handle
}

// Option configures a Host.
type Option func(*hostOptions)

type hostOptions struct {
	timeout   time.Duration
	delay     time.Duration
	scheduler delayed.Scheduler
	logger    *logging.Logger
	output    io.Writer
}

// WithTimeout bounds each DoString, DoFile, Pump and Wait call.
// Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(o *hostOptions) {
		if d >= 0 {
			o.timeout = d
		}
	}
}

// WithDefaultDelay sets the window used by vents.delayed() when the script
// passes no delay.
func WithDefaultDelay(d time.Duration) Option {
	return func(o *hostOptions) {
		if d >= 0 {
			o.delay = d
		}
	}
}

// WithScheduler sets the scheduler for delayed events created by scripts.
func WithScheduler(s delayed.Scheduler) Option {
	return func(o *hostOptions) {
		o.scheduler = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *hostOptions) {
		o.logger = l
	}
}

// WithOutput redirects the Lua print function. The default is stdout.
func WithOutput(w io.Writer) Option {
	return func(o *hostOptions) {
		if w != nil {
			o.output = w
		}
	}
}

// NewHost creates a Host with a fresh sandboxed Lua state.
func NewHost(opts ...Option) *Host {
	o := hostOptions{
		timeout: DefaultTimeout,
		output:  os.Stdout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	installSandbox(L, o.output)

	logger := logging.OrDefault(o.logger).WithComponent("script")
	h := &Host{
		L:         L,
		timeout:   o.timeout,
		delay:     o.delay,
		scheduler: o.scheduler,
		logger:    logger,
		exec:      dispatch.NewExecutor(dispatch.WithLogger(logger)),
	}
	h.inbox.init()
	registerModule(h)
	return h
}

// DoString runs a Lua chunk.
func (h *Host) DoString(ctx context.Context, code string) error {
	return h.run(ctx, func() error {
		return h.L.DoString(code)
	})
}

// DoFile runs a Lua file.
func (h *Host) DoFile(ctx context.Context, path string) error {
	return h.run(ctx, func() error {
		return h.L.DoFile(path)
	})
}

// run enters Lua with ctx attached to the state, so a script that runs past
// the deadline is interrupted.
func (h *Host) run(ctx context.Context, fn func() error) (err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHostClosed
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	h.L.SetContext(ctx)
	defer h.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	err = fn()
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

// Global returns the Go conversion of a Lua global.
func (h *Host) Global(name string) any {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	return ToGo(h.L.GetGlobal(name))
}

// SetGlobal converts v with ToLua and stores it as a Lua global.
func (h *Host) SetGlobal(name string, v any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHostClosed
	}
	h.L.SetGlobal(name, ToLua(h.L, v))
	return nil
}

// Pump runs every queued deferred delivery and returns how many ran.
// Deliveries whose event was closed, or whose subscriber was removed, after
// they were queued are discarded. Errors raised by Lua callbacks are joined
// into the returned error; a failing callback does not stop the others.
func (h *Host) Pump(ctx context.Context) (int, error) {
	var ran int
	var errs []error

	err := h.run(ctx, func() error {
		for _, d := range h.inbox.drain() {
			if !d.live() {
				h.logger.Debug("stale lua delivery discarded", "event", d.owner.ID())
				continue
			}
			ran++
			if err := h.exec.Execute("lua callback", d.run).Err("lua callback"); err != nil {
				h.logger.Warn("lua callback failed", "error", err)
				errs = append(errs, err)
			}
		}
		return nil
	})
	if err != nil {
		return ran, err
	}
	return ran, errors.Join(errs...)
}

// Wait pumps deferred deliveries until no delayed event created by a
// script has a check in flight and the queue is empty, or ctx is done.
func (h *Host) Wait(ctx context.Context) error {
	var errs []error
	for {
		if _, err := h.Pump(ctx); err != nil {
			if errors.Is(err, ErrHostClosed) || errors.Is(err, ErrTimeout) {
				return errors.Join(append(errs, err)...)
			}
			errs = append(errs, err)
		}

		// Pending() drops only after the delivery was queued, so checking
		// idleness before the queue cannot miss a delivery.
		if h.idle() && h.inbox.empty() {
			return errors.Join(errs...)
		}

		select {
		case <-ctx.Done():
			return errors.Join(append(errs, ctx.Err())...)
		case <-h.inbox.ready():
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// Idle reports whether no deferred delivery is scheduled or queued.
func (h *Host) Idle() bool {
	return h.idle() && h.inbox.empty()
}

func (h *Host) idle() bool {
	h.handlesMu.Lock()
	defer h.handlesMu.Unlock()

	for _, hd := range h.handles {
		if hd.pending() > 0 {
			return false
		}
	}
	return true
}

func (h *Host) track(hd handle) {
	h.handlesMu.Lock()
	defer h.handlesMu.Unlock()
	h.handles = append(h.handles, hd)
}

// Close closes every event created by scripts and the Lua state.
// Queued deliveries are discarded.
func (h *Host) Close() error {
	h.handlesMu.Lock()
	handles := h.handles
	h.handles = nil
	h.handlesMu.Unlock()

	for _, hd := range handles {
		hd.close()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	h.inbox.drain()
	h.L.Close()
	return nil
}

// delivery is a queued call of a delayed event's Lua subscriber.
type delivery struct {
	owner *luaDelayed
	gen   uint64
	run   func() error
}

func (d delivery) live() bool {
	return d.owner.current(d.gen)
}

// inbox is an unbounded queue of deliveries waiting for the Lua goroutine.
// Posting never blocks, so scheduler goroutines are not held up by a host
// that pumps slowly.
type inbox struct {
	mu     sync.Mutex
	jobs   []delivery
	notify chan struct{}
}

func (q *inbox) init() {
	q.notify = make(chan struct{}, 1)
}

func (q *inbox) post(job delivery) {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *inbox) drain() []delivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := q.jobs
	q.jobs = nil
	return jobs
}

// take removes and returns the deliveries queued by owner.
func (q *inbox) take(owner *luaDelayed) []delivery {
	q.mu.Lock()
	defer q.mu.Unlock()

	var taken []delivery
	kept := q.jobs[:0]
	for _, d := range q.jobs {
		if d.owner == owner {
			taken = append(taken, d)
		} else {
			kept = append(kept, d)
		}
	}
	clear(q.jobs[len(kept):])
	q.jobs = kept
	return taken
}

func (q *inbox) empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs) == 0
}

func (q *inbox) ready() <-chan struct{} {
	return q.notify
}
