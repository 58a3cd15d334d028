package politeness

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter gates dispatch through a shared token bucket plus a
// fixed-delay / jitter sleep. It wraps golang.org/x/time/rate.Limiter for
// the token bucket itself — the same primitive the module already lists
// as a dependency — while keeping the delay/jitter behavior the crawl
// engine's politeness layer calls for on top of it.
type RateLimiter struct {
	bucket           *rate.Limiter // nil when rate limiting is disabled
	delay            time.Duration
	randomDelayRange time.Duration
}

// NewRateLimiter builds a limiter. ratePerSecond <= 0 disables the token
// bucket (Wait becomes a pure delay/jitter sleep).
func NewRateLimiter(ratePerSecond float64, burst int, delay, randomDelayRange time.Duration) *RateLimiter {
	rl := &RateLimiter{delay: delay, randomDelayRange: randomDelayRange}
	if ratePerSecond > 0 {
		if burst < 1 {
			burst = 1
		}
		rl.bucket = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}
	return rl
}

// Wait blocks until a token is available (if rate limiting is enabled) and
// then sleeps the larger of the fixed delay and a uniform-random sample
// from [0, randomDelayRange), per the politeness sequence's steps 1-2. It
// returns ctx.Err() if cancelled while waiting.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.bucket != nil {
		if err := rl.bucket.Wait(ctx); err != nil {
			return err
		}
	}

	sleep := rl.delay
	if rl.randomDelayRange > 0 {
		jitter := time.Duration(rand.Int64N(int64(rl.randomDelayRange)))
		if jitter > sleep {
			sleep = jitter
		}
	}
	if sleep <= 0 {
		return nil
	}

	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
