package event

import "github.com/dshills/vents/internal/logging"

// Option configures an Event or OnceEvent.
type Option func(*options)

type options struct {
	logger *logging.Logger
	name   string
}

// WithLogger sets the logger used for diagnostics such as a oneshot
// receiver that went away before the trigger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithName overrides the name reported by String and in log entries.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
