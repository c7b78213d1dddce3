package runtime

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is returned for 401 and 403 responses.
	ErrUnauthorized = errors.New("runtime: unauthorized")

	// ErrBackendNotFound is returned when a backend is not visible to the
	// session.
	ErrBackendNotFound = errors.New("runtime: backend not found")
)

// APIError represents a non-2xx response from the runtime or auth service
type APIError struct {
	// Operation names the call that failed, e.g. "login" or "list backends"
	Operation string

	// StatusCode is the HTTP status code
	StatusCode int

	// Code is the service error code, when the body carried one
	Code string

	// Message is the service error message
	Message string

	// Cause is the mapped sentinel, if any
	Cause error
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: HTTP %d", e.Operation, e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap implements error unwrapping
func (e *APIError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the status is one the HTTP layer retries.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// newAPIError maps a status code onto the package sentinels.
func newAPIError(op string, status int, code, message string) *APIError {
	e := &APIError{Operation: op, StatusCode: status, Code: code, Message: message}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		e.Cause = ErrUnauthorized
	case http.StatusNotFound:
		e.Cause = ErrBackendNotFound
	}
	return e
}
