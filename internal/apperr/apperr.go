// Package apperr defines the error-kind taxonomy shared across the store,
// REST boundary, and coordinator.
package apperr

import "fmt"

// Kind classifies an error the way the REST boundary and coordinator need to
// react to it, independent of where it originated.
type Kind string

const (
	ValidationError     Kind = "validation_error"
	NotFound            Kind = "not_found"
	StoreUnavailable    Kind = "store_unavailable"
	UpstreamUnavailable Kind = "upstream_unavailable"
	InvariantViolation  Kind = "invariant_violation"
	PartialSuccess      Kind = "partial_success"
)

// Error wraps a Kind, a human-readable message, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) *Error {
	return New(ValidationError, fmt.Sprintf(format, args...))
}

// StatusCode maps a Kind to the HTTP status the REST boundary returns for it,
// per spec §7's propagation policy.
func (k Kind) StatusCode() int {
	switch k {
	case ValidationError:
		return 400
	case NotFound:
		return 404
	case StoreUnavailable, UpstreamUnavailable:
		return 500
	case InvariantViolation:
		return 500
	case PartialSuccess:
		return 207
	default:
		return 500
	}
}
