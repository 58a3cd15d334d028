// Package politeness sits between the worker pool and a fetch backend. It
// applies the ordered per-request sequence the crawl engine specifies:
// acquire a rate-limit token, sleep the configured delay/jitter, dispatch,
// retry on transport failure or 5xx with exponential backoff (never on
// 4xx), and rotate proxies per attempt when more than one is configured.
package politeness

import (
	"context"
	"fmt"

	"github.com/endabyss/endabyss/internal/model"
)

// Backend is the capability set a fetch backend exposes to the politeness
// gate.
type Backend interface {
	Fetch(ctx context.Context, req model.FetchRequest) (model.FetchResult, error)
}

// Gate wraps a Backend with rate limiting, delay/jitter, retry, and proxy
// rotation. Proxy rotation only sets an X-EndAbyss-Proxy header on each
// attempt; neither backend in internal/fetch dials through it — the static
// backend drops the header and uses its construction-time proxy, and the
// dynamic backend launches once with a fixed proxy.
type Gate struct {
	backend Backend
	limiter *RateLimiter
	retry   RetryConfig
	proxies *ProxyRotator
}

// NewGate builds a politeness gate around backend.
func NewGate(backend Backend, limiter *RateLimiter, retry RetryConfig, proxies *ProxyRotator) *Gate {
	return &Gate{backend: backend, limiter: limiter, retry: retry, proxies: proxies}
}

// Fetch performs the full politeness sequence. A 4xx response is returned
// as a successful FetchResult without retrying. A transport error or 5xx
// is retried per the backoff policy; if every attempt is exhausted the
// error is returned and the caller (the worker) must count it as a failed
// fetch and drop the task rather than pass a result to the extractor.
func (g *Gate) Fetch(ctx context.Context, req model.FetchRequest) (model.FetchResult, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return model.FetchResult{}, err
		}
	}

	var result model.FetchResult
	err := Do(ctx, g.retry, func(attempt int) error {
		attemptReq := req
		if g.proxies != nil {
			if p := g.proxies.Next(); p != nil {
				if attemptReq.Headers == nil {
					attemptReq.Headers = map[string]string{}
				}
				attemptReq.Headers["X-EndAbyss-Proxy"] = p.String()
			}
		}

		res, fetchErr := g.backend.Fetch(ctx, attemptReq)
		if fetchErr != nil {
			return fmt.Errorf("transport error: %w", fetchErr)
		}
		if res.Status >= 500 {
			return fmt.Errorf("server error: status %d", res.Status)
		}
		result = res
		return nil
	})
	if err != nil {
		return model.FetchResult{}, err
	}
	return result, nil
}
