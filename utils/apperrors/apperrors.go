// Package apperrors carries the service-wide error taxonomy: every
// domain failure is one of a closed set of kinds with a stable code, a
// human-readable message and an optional wrapped cause.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for callers and for HTTP mapping.
type Kind int

const (
	// Validation covers malformed input, illegal state transitions and
	// step-order violations. Never retried.
	Validation Kind = iota
	// NotFound covers missing bookings, slots and referenced resources.
	NotFound
	// Conflict covers lost races: a slot already claimed, a duplicate
	// active booking, a transaction abort. Callers may retry with
	// different parameters.
	Conflict
	// Unauthorized covers ownership mismatches.
	Unauthorized
	// Server covers storage and infrastructure failures.
	Server
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Unauthorized:
		return "unauthorized"
	default:
		return "server"
	}
}

// Error is the single error type surfaced by the domain layer.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an error with no underlying cause.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Newf builds an error with a formatted message.
func Newf(kind Kind, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause. The cause stays reachable through errors.Is
// and errors.As.
func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain. Unclassified errors
// count as Server failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Server
}

// CodeOf extracts the stable code from an error chain, or "internal".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}

// HTTPStatus maps an error chain to the HTTP status the transport
// layer should answer with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Unauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
