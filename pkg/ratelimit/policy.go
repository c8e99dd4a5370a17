package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for throttle handling.
var (
	rateLimitRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jdy_rate_limit_retries_total",
		Help: "Total number of requests re-issued after a rate limit response, by endpoint",
	}, []string{"endpoint"})

	rateLimitWaitSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jdy_rate_limit_wait_seconds_total",
		Help: "Total time spent waiting before rate limit retries",
	})

	rateLimitWaiting = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jdy_rate_limit_waiting",
		Help: "Number of calls currently waiting to retry after a rate limit response",
	})
)

// Policy decides whether a throttled request is retried and performs the wait.
//
// The retry is unbounded: every throttled response is followed by the same
// fixed delay and another attempt, with no growth and no cap. Only the
// context passed to Wait can stop it.
type Policy struct {
	enabled bool
	delay   time.Duration
	logger  zerolog.Logger
}

// NewPolicy creates a Policy. A non-positive delay falls back to DefaultDelay.
func NewPolicy(enabled bool, delay time.Duration, logger zerolog.Logger) *Policy {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Policy{
		enabled: enabled,
		delay:   delay,
		logger:  logger,
	}
}

// Enabled reports whether throttled requests are retried.
func (p *Policy) Enabled() bool {
	return p.enabled
}

// Delay returns the fixed wait between a throttled response and the retry.
func (p *Policy) Delay() time.Duration {
	return p.delay
}

// ShouldRetry returns true if a response carrying code must be re-issued.
func (p *Policy) ShouldRetry(code int) bool {
	return p.enabled && IsRateLimited(code)
}

// Wait records the throttle in state and blocks for the fixed delay.
// It returns ctx.Err() if the context ends first. Only the calling
// goroutine is suspended.
func (p *Policy) Wait(ctx context.Context, endpoint string, state *State) error {
	now := time.Now()
	state.Record(now)

	p.logger.Warn().
		Str("endpoint", endpoint).
		Int("attempt", state.Attempt()).
		Dur("delay", p.delay).
		Dur("throttled_for", state.ThrottledFor(now)).
		Msg("Rate limited, retrying after delay")

	rateLimitRetriesTotal.WithLabelValues(endpoint).Inc()
	rateLimitWaiting.Inc()
	defer rateLimitWaiting.Dec()

	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		waited := time.Since(now)
		state.Waited += waited
		rateLimitWaitSeconds.Add(waited.Seconds())
		p.logger.Warn().
			Str("endpoint", endpoint).
			Int("throttles", state.Throttles).
			Msg("Context cancelled during rate limit wait")
		return ctx.Err()
	case <-timer.C:
		state.Waited += p.delay
		rateLimitWaitSeconds.Add(p.delay.Seconds())
		return nil
	}
}
