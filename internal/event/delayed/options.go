package delayed

import (
	"time"

	"github.com/dshills/vents/internal/event/dispatch"
	"github.com/dshills/vents/internal/logging"
)

// Option configures a delayed Event.
type Option func(*config)

type config struct {
	delay     time.Duration
	scheduler Scheduler
	logger    *logging.Logger
	executor  *dispatch.Executor
	name      string
}

func defaultConfig() config {
	return config{
		scheduler: DefaultScheduler(),
	}
}

// WithDelay sets the initial debounce window. Zero, the default, makes
// Trigger deliver synchronously.
func WithDelay(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithScheduler sets the scheduler deferred checks run on.
func WithScheduler(s Scheduler) Option {
	return func(c *config) {
		if s != nil {
			c.scheduler = s
		}
	}
}

// WithLogger sets the logger for delivery diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithExecutor sets the executor deferred deliveries run through.
// By default panics are recovered and logged through the event's logger.
func WithExecutor(e *dispatch.Executor) Option {
	return func(c *config) {
		if e != nil {
			c.executor = e
		}
	}
}

// WithName overrides the name reported by String and in log entries.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}
