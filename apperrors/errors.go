package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide whether to retry,
// re-fetch, or surface a terminal message.
type Kind int

const (
	// KindValidation - malformed input (missing fields, start >= end).
	KindValidation Kind = iota
	// KindInvalid - a business-rule precondition on the request itself
	// failed (wrong owner, slot not swappable, self-swap).
	KindInvalid
	// KindUnauthorized - missing or unverifiable credentials.
	KindUnauthorized
	// KindForbidden - caller lacks rights over the target record.
	KindForbidden
	// KindNotFound - id does not exist, or exists outside the caller's
	// scope. Deliberately indistinguishable from "exists but not yours".
	KindNotFound
	// KindConflict - a concurrent status transition won the race; expected
	// under contention and safe to retry against fresh state.
	KindConflict
	// KindInternal - a locking-protocol invariant was violated. A bug, not
	// user error; never retryable.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindInvalid:
		return "INVALID_REQUEST"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindInternal:
		return "INTERNAL_ERROR"
	}
	return "UNKNOWN"
}

// Error is a failure with a stable kind. The registry and coordinator only
// ever return these; they never retry internally.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by kind, so sentinel comparisons like
// errors.Is(err, apperrors.Validation("")) work regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error   { return New(KindValidation, message) }
func Invalid(message string) *Error      { return New(KindInvalid, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }
func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Conflict(message string) *Error     { return New(KindConflict, message) }
func Internal(message string) *Error     { return New(KindInternal, message) }

// KindOf extracts the kind from an error chain. Unclassified errors map to
// KindInternal so nothing is ever silently swallowed.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether any error in the chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
