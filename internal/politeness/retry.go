package politeness

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryConfig controls the exponential backoff applied on transport
// failures and 5xx responses. 4xx responses are never retried — the
// politeness gate returns them as ordinary results with a nil error.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
	MaxDelay    time.Duration
}

// StopError marks an error as terminal: Do returns immediately instead of
// continuing the backoff loop.
type StopError struct{ Err error }

func (s *StopError) Error() string { return s.Err.Error() }
func (s *StopError) Unwrap() error { return s.Err }

// Stop wraps err so Do treats it as non-retryable.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &StopError{Err: err}
}

// Do runs fn up to cfg.MaxAttempts times, sleeping a full-jitter
// exponential backoff between attempts. It stops early on success, on a
// StopError, or on context cancellation.
func Do(ctx context.Context, cfg RetryConfig, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}

		var stop *StopError
		if errors.As(err, &stop) {
			return stop.Err
		}
		lastErr = err

		if attempt == cfg.MaxAttempts-1 {
			break
		}
		if sleepErr := sleepFor(ctx, calcDelay(cfg, attempt)); sleepErr != nil {
			return sleepErr
		}
	}
	return lastErr
}

func calcDelay(cfg RetryConfig, attempt int) time.Duration {
	factor := cfg.Factor
	if factor <= 0 {
		factor = 2.0
	}
	d := float64(cfg.BaseDelay)
	for i := 0; i < attempt; i++ {
		d *= factor
	}
	delay := time.Duration(d)
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	// Full jitter: uniform in [0, delay].
	if delay <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(delay) + 1))
}

func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
