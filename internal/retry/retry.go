// Package retry provides an exponential-backoff retry helper. No other
// package in this module calls it.
package retry

import (
	"context"
	"time"
)

// Config bounds a WithBackoff loop.
type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Factor         float64
}

// DefaultConfig returns conservative defaults for a network call with
// a soft SLA.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
		Factor:         2.0,
	}
}

// WithBackoff calls fn up to cfg.MaxAttempts times, sleeping an
// exponentially increasing backoff between attempts, and returns the
// last error if every attempt fails. It aborts promptly on context
// cancellation, never sleeping past ctx.Done().
func WithBackoff(ctx context.Context, cfg Config, fn func(attempt int) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	backoff := cfg.InitialBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * cfg.Factor)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
	return lastErr
}
