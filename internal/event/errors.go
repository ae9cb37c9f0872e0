package event

import (
	"errors"

	"github.com/dshills/vents/internal/event/slot"
)

// Sentinel errors for events.
var (
	// ErrAlreadySubscribed is returned when a subscriber is installed on an
	// event that already has one. Remove the existing subscriber first.
	ErrAlreadySubscribed = errors.New("event already has a subscriber")

	// ErrClosed is returned when installing a subscriber on a closed event.
	ErrClosed = errors.New("event is closed")

	// ErrNilCallback is returned when a nil callback or receiver is provided.
	ErrNilCallback = errors.New("callback cannot be nil")
)

// Variant identifies which kind of subscriber occupies an event.
type Variant int

const (
	// VariantNone means no subscriber is installed.
	VariantNone Variant = iota

	// VariantPersistent is a callback invoked on every trigger.
	VariantPersistent

	// VariantOnce is a callback consumed by the next trigger.
	VariantOnce

	// VariantOnceAsync is a oneshot channel consumed by the next trigger.
	VariantOnceAsync
)

// String returns a human-readable variant name.
func (v Variant) String() string {
	switch v {
	case VariantNone:
		return "none"
	case VariantPersistent:
		return "persistent"
	case VariantOnce:
		return "once"
	case VariantOnceAsync:
		return "once-async"
	default:
		return "unknown"
	}
}

// InstallError reports an attempt to install a second subscriber.
type InstallError struct {
	// Event is the name of the event, e.g. "Event[int]".
	Event string

	// Existing is the variant already occupying the event.
	Existing Variant
}

// Error implements the error interface.
func (e *InstallError) Error() string {
	return e.Event + " already has a " + e.Existing.String() + " subscriber"
}

// Is allows errors.Is to match InstallError with ErrAlreadySubscribed.
func (e *InstallError) Is(target error) bool {
	return target == ErrAlreadySubscribed
}

// Unwrap returns the slot-level error.
func (e *InstallError) Unwrap() error {
	return slot.ErrAlreadySet
}
