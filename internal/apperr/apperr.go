package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable machine-checkable error category exposed to clients.
type Kind string

const (
	KindInvalidInput    Kind = "INVALID_INPUT"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindRevoked         Kind = "REVOKED"
	KindConflict        Kind = "CONFLICT"
	KindUnavailable     Kind = "DEPENDENCY_UNAVAILABLE"
	KindInternal        Kind = "INTERNAL_ERROR"
)

// Error is a kind-tagged error with an optional wrapped cause
type Error struct {
	Kind    Kind
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

// Is matches errors by Kind so callers can compare against sentinels
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
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

func InvalidInput(message string) *Error {
	return New(KindInvalidInput, message)
}

func Unauthenticated(message string) *Error {
	return New(KindUnauthenticated, message)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func Revoked(message string) *Error {
	return New(KindRevoked, message)
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

func Unavailable(message string, err error) *Error {
	return Wrap(KindUnavailable, message, err)
}

// MessageOf returns the user-facing message of an error, without the
// wrapped internal cause.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// KindOf extracts the Kind from any error, defaulting to INTERNAL_ERROR
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// StatusCode maps an error to the HTTP status the handlers return.
// Revoked intentionally maps to 403 with its own kind so clients can
// render the "access revoked" state distinctly from a generic forbidden.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden, KindRevoked:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
