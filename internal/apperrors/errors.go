package apperrors

import (
	"errors"
	"net/http"
)

// Kind is the stable, machine-readable category of a domain error.
type Kind string

const (
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindForbidden          Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindInvalidOperation   Kind = "INVALID_OPERATION"
	KindConflict           Kind = "CONFLICT"
	KindProvisioningFailed Kind = "PROVISIONING_FAILED"
	KindInternal           Kind = "INTERNAL"
)

const internalMessage = "internal server error"

// Error carries a kind, a message safe to show to clients, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Unauthenticated(message string) *Error  { return New(KindUnauthenticated, message) }
func Forbidden(message string) *Error        { return New(KindForbidden, message) }
func NotFound(message string) *Error         { return New(KindNotFound, message) }
func InvalidOperation(message string) *Error { return New(KindInvalidOperation, message) }
func Conflict(message string) *Error         { return New(KindConflict, message) }

// ProvisioningFailed marks an upstream identity failure. Callers may retry.
func ProvisioningFailed(message string, err error) *Error {
	return Wrap(KindProvisioningFailed, message, err)
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage returns the message that may be sent to a client.
// Unclassified errors never leak their text.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Message
	}
	return internalMessage
}

func HTTPStatusFromError(err error) int {
	switch KindOf(err) {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidOperation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindProvisioningFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
