package ratelimit

import (
	"testing"
	"time"
)

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected bool
	}{
		{name: "rate limit code", code: 8303, expected: true},
		{name: "invalid field", code: 4001, expected: false},
		{name: "zero code", code: 0, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimited(tt.code); got != tt.expected {
				t.Errorf("IsRateLimited(%d) = %v, want %v", tt.code, got, tt.expected)
			}
		})
	}
}

func TestState_Record(t *testing.T) {
	var s State
	if s.Throttled() {
		t.Fatal("zero State should not be throttled")
	}
	if s.Attempt() != 1 {
		t.Errorf("Attempt() = %d, want 1", s.Attempt())
	}

	first := time.Now()
	s.Record(first)
	second := first.Add(5 * time.Second)
	s.Record(second)

	if s.Throttles != 2 {
		t.Errorf("Throttles = %d, want 2", s.Throttles)
	}
	if !s.FirstThrottledAt.Equal(first) {
		t.Errorf("FirstThrottledAt = %v, want %v", s.FirstThrottledAt, first)
	}
	if !s.LastThrottledAt.Equal(second) {
		t.Errorf("LastThrottledAt = %v, want %v", s.LastThrottledAt, second)
	}
	if s.Attempt() != 3 {
		t.Errorf("Attempt() = %d, want 3", s.Attempt())
	}
}

func TestState_ThrottledFor(t *testing.T) {
	var s State
	now := time.Now()
	if d := s.ThrottledFor(now); d != 0 {
		t.Errorf("ThrottledFor() on fresh state = %v, want 0", d)
	}

	s.Record(now)
	if d := s.ThrottledFor(now.Add(10 * time.Second)); d != 10*time.Second {
		t.Errorf("ThrottledFor() = %v, want 10s", d)
	}
}
