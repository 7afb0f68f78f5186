package api

import (
	"fmt"
	"net/http"
)

// Error is the uniform failure shape of every SDK operation. Status carries
// the HTTP status for protocol failures, StatusValidation for input rejected
// before any network call, and StatusTransport for connection-level failures
// that never produced an HTTP status.
type Error struct {
	Status  int
	Message string
}

const (
	// StatusTransport is the sentinel status for transport-level failures.
	StatusTransport = 0
	// StatusValidation is the status attached to pre-flight input rejection.
	StatusValidation = http.StatusBadRequest
)

func (e *Error) Error() string {
	return e.Message
}

// NewValidationError reports input rejected before any network call.
func NewValidationError(format string, args ...interface{}) *Error {
	return &Error{Status: StatusValidation, Message: fmt.Sprintf(format, args...)}
}

// NewTransportError wraps a connection-level failure.
func NewTransportError(err error) *Error {
	return &Error{Status: StatusTransport, Message: err.Error()}
}

// NewProtocolError reports a failure surfaced by the engine itself, carrying
// the originating HTTP status.
func NewProtocolError(status int, message string) *Error {
	if message == "" {
		message = "Request failed"
	}
	return &Error{Status: status, Message: message}
}

// AsError returns err as an *Error, wrapping unexpected error values as
// transport failures so callers can rely on one shape.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*Error); ok {
		return apiErr
	}
	return NewTransportError(err)
}
