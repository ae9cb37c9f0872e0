// Package watch reloads a configuration file when it changes on disk.
//
// File system events for the file are fed into a delayed event, so an
// editor's burst of write, rename and create events produces one reload
// after the burst settles. Successful reloads are published through a
// Property whose OnSet event carries the new configuration.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/vents/internal/config"
	"github.com/dshills/vents/internal/event"
	"github.com/dshills/vents/internal/event/delayed"
	"github.com/dshills/vents/internal/logging"
)

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("config watcher closed")

// relevant are the operations that can change the file's contents.
const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

// Watcher watches one configuration file.
type Watcher struct {
	path string

	fsw     *fsnotify.Watcher
	changes *delayed.Event[fsnotify.Op]
	current *event.Property[config.Config]
	errs    *event.Event[error]
	logger  *logging.Logger

	// loadMu serializes reloads with Reload called directly.
	loadMu  sync.Mutex
	reloads atomic.Uint64

	closeOnce sync.Once
	closed    chan struct{}
}

// Option configures a Watcher.
type Option func(*options)

type options struct {
	debounce  time.Duration
	scheduler delayed.Scheduler
	logger    *logging.Logger
}

// WithDebounce sets the quiet period after the last file event before the
// file is reloaded. Zero reloads on every event.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.debounce = d
		}
	}
}

// WithScheduler sets the scheduler the debounce runs on.
func WithScheduler(s delayed.Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New loads path and prepares to watch it. The file must exist and be
// valid; later invalid versions are reported through OnError and leave the
// current configuration in place.
func New(path string, opts ...Option) (*Watcher, error) {
	o := options{debounce: config.Default().Watch.Debounce.Std()}
	for _, opt := range opts {
		opt(&o)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(abs)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	// Watch the directory: editors often replace the file, which drops a
	// watch on the file itself.
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	logger := logging.OrDefault(o.logger).WithComponent("config-watch").With("path", abs)

	w := &Watcher{
		path:    abs,
		fsw:     fsw,
		current: event.NewProperty(cfg),
		errs:    event.New[error](event.WithLogger(logger), event.WithName("config-error")),
		logger:  logger,
		closed:  make(chan struct{}),
	}

	w.changes = delayed.New[fsnotify.Op](
		delayed.WithDelay(o.debounce),
		delayed.WithScheduler(o.scheduler),
		delayed.WithLogger(logger),
		delayed.WithName("config-change"),
	)
	w.changes.MustVal(w.onChange)

	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// OnReload installs the callback receiving each successfully reloaded
// configuration. Only one callback may be installed.
func (w *Watcher) OnReload(fn func(config.Config)) error {
	return w.current.OnSet.Val(fn)
}

// OnError installs the callback receiving reload and watch errors.
// Without one, errors are only logged.
func (w *Watcher) OnError(fn func(error)) error {
	return w.errs.Val(fn)
}

// Current returns the last successfully loaded configuration.
func (w *Watcher) Current() config.Config {
	return w.current.Get()
}

// Reloads returns the number of reloads that changed the configuration.
func (w *Watcher) Reloads() uint64 {
	return w.reloads.Load()
}

// Pending reports whether a debounced reload is scheduled.
func (w *Watcher) Pending() bool {
	return w.changes.Pending() > 0
}

// Run forwards file events until ctx is done or the watcher is closed.
// It returns nil when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.closed:
			return ErrClosed
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return ErrClosed
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return ErrClosed
			}
			w.fail(fmt.Errorf("watching %s: %w", w.path, err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path || ev.Op&relevant == 0 {
		return
	}
	w.logger.Debug("config file event", "op", ev.Op.String())
	w.changes.Trigger(ev.Op)
}

func (w *Watcher) onChange(op fsnotify.Op) {
	if err := w.Reload(); err != nil {
		w.fail(err)
		return
	}
	w.logger.Debug("config reloaded", "op", op.String())
}

// Reload loads the file now. An unchanged configuration is not
// republished.
func (w *Watcher) Reload() error {
	w.loadMu.Lock()
	defer w.loadMu.Unlock()

	cfg, err := config.Load(w.path)
	if err != nil {
		return fmt.Errorf("reloading config: %w", err)
	}
	if cfg == w.current.Get() {
		return nil
	}

	w.reloads.Add(1)
	w.logger.Info("config changed", "delay", cfg.Delay.String(), "log_level", cfg.Log.Level)
	w.current.Set(cfg)
	return nil
}

func (w *Watcher) fail(err error) {
	w.logger.Warn("config watch error", "error", err)
	w.errs.Trigger(err)
}

// Close stops watching. Pending debounced reloads are dropped.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closed)
		w.changes.Close()
		w.errs.Close()
		err = w.fsw.Close()
	})
	return err
}
