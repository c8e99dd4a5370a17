package client

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{
			name:     "invalid field",
			err:      &APIError{StatusCode: 400, Code: 4001, Message: "invalid field"},
			expected: "jdy api error (status 400): code 4001: invalid field",
		},
		{
			name:     "rate limited",
			err:      &APIError{StatusCode: 429, Code: 8303, Message: "rate limited"},
			expected: "jdy api error (status 429): code 8303: rate limited",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{name: "nil", err: nil, expected: ""},
		{name: "client", err: &APIError{StatusCode: 400, Code: 4001}, expected: ErrorClassClient},
		{name: "server", err: &APIError{StatusCode: 502, Code: 5000}, expected: ErrorClassServer},
		{name: "rate limit", err: &APIError{StatusCode: 429, Code: 8303}, expected: ErrorClassRateLimit},
		{name: "network", err: &TransportError{Err: errors.New("refused")}, expected: ErrorClassNetwork},
		{name: "malformed", err: &MalformedResponseError{StatusCode: 200, Err: ErrInvalidJSON}, expected: ErrorClassMalformed},
		{name: "wrapped", err: fmt.Errorf("outer: %w", &APIError{StatusCode: 404, Code: 4004}), expected: ErrorClassClient},
		{name: "unknown", err: errors.New("other"), expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassOf(tt.err); got != tt.expected {
				t.Errorf("ClassOf() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &TransportError{Method: "POST", URL: "https://x/data", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped transport error")
	}
	want := "jdy transport error: POST https://x/data: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestMalformedResponseError_Unwrap(t *testing.T) {
	err := &MalformedResponseError{StatusCode: 200, Err: ErrInvalidJSON}
	if !errors.Is(err, ErrInvalidJSON) {
		t.Error("errors.Is should find ErrInvalidJSON")
	}
}
