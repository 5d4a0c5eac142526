// internal/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected ledger operation. Every failure aborts the
// whole operation; no partial effects persist.
type Kind string

const (
	KindInvalidArgument     Kind = "INVALID_ARGUMENT"
	KindNotFound            Kind = "NOT_FOUND"
	KindUnauthorized        Kind = "UNAUTHORIZED"
	KindInvalidState        Kind = "INVALID_STATE"
	KindInsufficientPayment Kind = "INSUFFICIENT_PAYMENT"
	KindUnavailable         Kind = "UNAVAILABLE"
	KindNothingToClaim      Kind = "NOTHING_TO_CLAIM"
	KindInternal            Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is match on kind so callers can compare against the
// sentinel constructors without carrying messages around.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return newf(KindInvalidArgument, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return newf(KindUnauthorized, format, args...)
}

func InvalidState(format string, args ...interface{}) *Error {
	return newf(KindInvalidState, format, args...)
}

func InsufficientPayment(format string, args ...interface{}) *Error {
	return newf(KindInsufficientPayment, format, args...)
}

func Unavailable(format string, args ...interface{}) *Error {
	return newf(KindUnavailable, format, args...)
}

func NothingToClaim(format string, args ...interface{}) *Error {
	return newf(KindNothingToClaim, format, args...)
}

func Internal(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from any error in the chain, defaulting to
// Internal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
