// Package resilience provides bounded retry with backoff for transient
// external failures, primarily LLM rate limiting.
package resilience

import (
	"context"
	"log/slog"
	"time"
)

// Default retry parameters.
const (
	defaultMaxAttempts = 3
	defaultDelay       = 1 * time.Second
	defaultMaxDelay    = 8 * time.Second
)

// RetryConfig tunes a [Retry] loop. Zero-value fields use the defaults
// above.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// Delay is the wait before the second attempt. It doubles after each
	// failed attempt, capped at MaxDelay.
	Delay time.Duration

	// MaxDelay is the upper bound on the per-attempt wait.
	MaxDelay time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.Delay <= 0 {
		c.Delay = defaultDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	return c
}

// Retry runs fn up to cfg.MaxAttempts times, sleeping with doubling
// backoff between attempts. Only errors for which retryable returns true
// are retried; any other error, context cancellation, or attempt
// exhaustion ends the loop with the last error.
//
// The loop is an explicit iteration with an attempt counter, so a
// sustained failure storm cannot grow the stack.
func Retry(ctx context.Context, cfg RetryConfig, retryable func(error) bool, fn func() error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	delay := cfg.Delay
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == cfg.MaxAttempts {
			return lastErr
		}

		slog.Debug("retrying after transient failure",
			"attempt", attempt, "max_attempts", cfg.MaxAttempts,
			"delay", delay, "error", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return lastErr
}
