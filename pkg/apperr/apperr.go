// Package apperr defines the error taxonomy shared across repositories,
// services and handlers. Sentinel values allow higher layers to translate
// failures into HTTP statuses without inspecting message text.
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for an unknown webinar or attendee reference.
// Handlers translate it into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned for duplicate registrations or duplicate slugs.
// Handlers translate it into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrCapacityExceeded is returned when a registration would push the roster
// past the webinar's capacity. Handlers translate it into HTTP 400.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrValidation is returned for malformed input, such as an out-of-range
// CTA index. Handlers translate it into HTTP 400.
var ErrValidation = errors.New("validation failed")

// ErrExternal is returned when a notification or list-service call fails or
// responds with a malformed body. Handlers translate it into HTTP 500.
var ErrExternal = errors.New("external service error")

// ErrInvariant guards against internal bugs, e.g. a roster larger than
// capacity observed at read time. Handlers translate it into HTTP 500.
var ErrInvariant = errors.New("invariant violation")

// NotFound wraps ErrNotFound with a formatted message.
func NotFound(format string, args ...interface{}) error {
	return wrap(ErrNotFound, format, args...)
}

// Conflict wraps ErrConflict with a formatted message.
func Conflict(format string, args ...interface{}) error {
	return wrap(ErrConflict, format, args...)
}

// CapacityExceeded wraps ErrCapacityExceeded with a formatted message.
func CapacityExceeded(format string, args ...interface{}) error {
	return wrap(ErrCapacityExceeded, format, args...)
}

// Validation wraps ErrValidation with a formatted message.
func Validation(format string, args ...interface{}) error {
	return wrap(ErrValidation, format, args...)
}

// External wraps ErrExternal with a formatted message.
func External(format string, args ...interface{}) error {
	return wrap(ErrExternal, format, args...)
}

// Invariant wraps ErrInvariant with a formatted message.
func Invariant(format string, args ...interface{}) error {
	return wrap(ErrInvariant, format, args...)
}

func wrap(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, sentinel)...)
}
