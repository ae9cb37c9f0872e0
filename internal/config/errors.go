package config

import (
	"errors"
	"fmt"
)

// Errors returned by configuration operations.
var (
	// ErrFileNotFound indicates the configuration file doesn't exist.
	ErrFileNotFound = errors.New("config file not found")

	// ErrUnknownFormat indicates a file extension or format name that is
	// neither TOML nor YAML.
	ErrUnknownFormat = errors.New("unknown config format")

	// ErrValidationFailed indicates a decoded value is out of range.
	ErrValidationFailed = errors.New("validation failed")
)

// ParseError represents an error while decoding a configuration file.
type ParseError struct {
	// Path is the file path that failed to parse, or "<input>".
	Path string
	// Format is the format the data was decoded as.
	Format Format
	// Line is the line number where the error occurred (if available).
	Line int
	// Err is the underlying decoder error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s (%s) at line %d: %v", e.Path, e.Format, e.Line, e.Err)
	}
	return fmt.Sprintf("parse error in %s (%s): %v", e.Path, e.Format, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError describes an invalid setting.
type ValidationError struct {
	// Key is the dotted setting name, e.g. "log.level".
	Key string
	// Value is the invalid value.
	Value any
	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Key, e.Value, e.Message)
}

// Is reports whether target is ErrValidationFailed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}
