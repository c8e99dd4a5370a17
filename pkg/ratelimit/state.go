// Package ratelimit implements detection of the service's throttle signal
// (error code 8303) and the fixed-delay wait that precedes a retry.
package ratelimit

import (
	"time"
)

// Throttle signal and wait used by the service.
const (
	// CodeRateLimited is the error code the service returns when the caller
	// exceeded its request rate.
	CodeRateLimited = 8303

	// DefaultDelay is the fixed wait before re-issuing a throttled request.
	DefaultDelay = 5 * time.Second
)

// IsRateLimited reports whether a remote error code is the throttle signal.
func IsRateLimited(code int) bool {
	return code == CodeRateLimited
}

// State records the throttling seen by one logical call.
// It belongs to a single call chain and is never shared.
type State struct {
	// Throttles is the number of throttled responses received so far.
	Throttles int `json:"throttles"`

	// FirstThrottledAt is when the first throttled response arrived.
	FirstThrottledAt time.Time `json:"first_throttled_at"`

	// LastThrottledAt is when the most recent throttled response arrived.
	LastThrottledAt time.Time `json:"last_throttled_at"`

	// Waited is the total time spent waiting before retries.
	Waited time.Duration `json:"waited"`
}

// Record notes a throttled response received at now.
func (s *State) Record(now time.Time) {
	if s.Throttles == 0 {
		s.FirstThrottledAt = now
	}
	s.Throttles++
	s.LastThrottledAt = now
}

// Throttled returns true once at least one throttled response was seen.
func (s *State) Throttled() bool {
	return s.Throttles > 0
}

// Attempt returns the number of the next attempt (1-based).
func (s *State) Attempt() int {
	return s.Throttles + 1
}

// ThrottledFor returns how long the call has been throttled as of now.
// Returns 0 if it was never throttled.
func (s *State) ThrottledFor(now time.Time) time.Duration {
	if !s.Throttled() {
		return 0
	}
	return now.Sub(s.FirstThrottledAt)
}
