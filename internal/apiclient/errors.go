// Package apiclient talks to the ticketing service over HTTP/JSON.
//
// Failures are reported through the sentinel values below so that
// callers such as the dashboard controller can branch on the kind of
// failure (a seat taken by someone else, an expired hold, an
// unreachable service) without inspecting status codes.  Every non-2xx
// answer is an *APIError that unwraps to one of these sentinels when
// the status code has a specific meaning.
package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrConflict is returned when the service rejects a reserve request
// because another client already holds or bought the seat (HTTP 409).
var ErrConflict = errors.New("conflict")

// ErrUnauthorized is returned when the session token is missing,
// unknown or expired (HTTP 401, or 403 outside of payment).
var ErrUnauthorized = errors.New("unauthorized")

// ErrNotFound is returned when the addressed resource, typically a
// seat id, does not exist (HTTP 404).
var ErrNotFound = errors.New("not found")

// ErrHoldExpired is returned by Pay when the lock on the seat lapsed
// before payment reached the service (HTTP 403 on /pay).
var ErrHoldExpired = errors.New("hold expired")

// ErrServerOffline is returned when no HTTP response was received at
// all: connection refused, DNS failure or timeout.
var ErrServerOffline = errors.New("server offline")

// APIError describes a non-2xx answer from the service.
//
// Fields:
//
//	Op         – client operation that failed, e.g. "reserve".
//	StatusCode – HTTP status code.
//	Message    – error text taken from the response body, possibly empty.
type APIError struct {
	Op         string
	StatusCode int
	Message    string

	kind error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, e.Message)
}

// Unwrap exposes the sentinel matching the status code, if any.
func (e *APIError) Unwrap() error { return e.kind }

// newAPIError classifies a response status for op.
func newAPIError(op string, status int, message string) *APIError {
	e := &APIError{Op: op, StatusCode: status, Message: message}
	switch status {
	case http.StatusConflict:
		e.kind = ErrConflict
	case http.StatusUnauthorized:
		e.kind = ErrUnauthorized
	case http.StatusForbidden:
		if op == opPay {
			e.kind = ErrHoldExpired
		} else {
			e.kind = ErrUnauthorized
		}
	case http.StatusNotFound:
		e.kind = ErrNotFound
	}
	return e
}

// Message returns the text a user should see for err: the service's own
// error text when it sent one, "Server Offline" when it could not be
// reached, and err.Error() otherwise.
func Message(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, ErrServerOffline):
		return "Server Offline"
	case apiErr != nil:
		return http.StatusText(apiErr.StatusCode)
	default:
		return err.Error()
	}
}
