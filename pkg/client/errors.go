package client

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/jdy-client/pkg/ratelimit"
)

// ErrorClass represents a classification of failed calls.
type ErrorClass string

const (
	// ErrorClassClient represents remote errors with a 4xx status.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents remote errors with a 5xx status.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents the 8303 throttle signal.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents failures before any response arrived.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassMalformed represents response bodies that are not valid JSON.
	ErrorClassMalformed ErrorClass = "malformed"
)

// APIError is an error reported by the form-data service.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("jdy api error (status %d): code %d: %s", e.StatusCode, e.Code, e.Message)
}

// Class returns the classification of the remote error.
func (e *APIError) Class() ErrorClass {
	switch {
	case ratelimit.IsRateLimited(e.Code):
		return ErrorClassRateLimit
	case e.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// TransportError is returned when a request failed before an HTTP response
// was received. It is never retried.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("jdy transport error: %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError is returned when a response body is not the
// expected JSON.
type MalformedResponseError struct {
	StatusCode int
	Body       []byte
	Err        error
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("jdy malformed response (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("jdy malformed response (status %d)", e.StatusCode)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// ErrInvalidJSON is wrapped by MalformedResponseError when a body does not parse.
var ErrInvalidJSON = errors.New("response body is not valid JSON")

// ClassOf returns the ErrorClass of err, or "" if err is nil or unknown.
func ClassOf(err error) ErrorClass {
	var apiErr *APIError
	var transportErr *TransportError
	var malformedErr *MalformedResponseError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Class()
	case errors.As(err, &transportErr):
		return ErrorClassNetwork
	case errors.As(err, &malformedErr):
		return ErrorClassMalformed
	default:
		return ""
	}
}
