// Package apperr defines the domain error taxonomy shared by services and
// the transport layer. Services raise these; the API layer maps them to HTTP
// statuses and WebSocket error envelopes without leaking internal detail.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a domain error.
type Kind string

const (
	KindBadRequest    Kind = "bad_request"
	KindUnauthorized  Kind = "unauthorized"
	KindForbidden     Kind = "forbidden"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindGone          Kind = "gone"
	KindUnprocessable Kind = "unprocessable"
	KindUnavailable   Kind = "unavailable"
	KindInternal      Kind = "internal"
)

// Error is a domain error with a caller-safe message.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a domain error that preserves the underlying cause for
// logging. The cause is never included in the caller-safe message.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func BadRequest(message string) *Error    { return New(KindBadRequest, message) }
func Unauthorized(message string) *Error  { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error     { return New(KindForbidden, message) }
func NotFound(message string) *Error      { return New(KindNotFound, message) }
func Conflict(message string) *Error      { return New(KindConflict, message) }
func Gone(message string) *Error          { return New(KindGone, message) }
func Unprocessable(message string) *Error { return New(KindUnprocessable, message) }
func Unavailable(message string) *Error   { return New(KindUnavailable, message) }

// Internal returns a generic internal error. The cause stays attached for
// operator logs but the message is always the generic one.
func Internal(cause error) *Error {
	return Wrap(KindInternal, "Internal server error. Please try again later.", cause)
}

// From extracts a domain error from err, or wraps err as Internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// HTTPStatus maps a kind to its HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindGone:
		return http.StatusGone
	case KindUnprocessable:
		return http.StatusUnprocessableEntity
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// SanitizeMessage returns a caller-safe message for err: domain errors keep
// their message, anything else collapses to the generic internal message.
func SanitizeMessage(err error) string {
	if err == nil {
		return "Request failed"
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error. Please try again later."
}
