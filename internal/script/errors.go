package script

import "errors"

// Errors for script host operations.
var (
	// ErrHostClosed is returned when operating on a closed host.
	ErrHostClosed = errors.New("script host is closed")

	// ErrTimeout is returned when a script run exceeds its time limit.
	ErrTimeout = errors.New("script execution timeout")
)
