// Package defaults is the single source of truth for EndAbyss's tunable
// runtime defaults. Components read from here instead of hardcoding
// literals so a single review of this file tells you the full default
// behavior of a scan.
package defaults

import "time"

// Crawl shape.
const (
	// MaxDepth bounds how many hops from a seed a task may be enqueued at.
	MaxDepth = 5

	// Concurrency is the fixed worker pool size.
	Concurrency = 10

	// MaxBodyBytes caps how much of a response body a fetch backend reads
	// before truncating.
	MaxBodyBytes = 10 * 1024 * 1024

	// FrontierBacklog is not read by the frontier: its queue is an
	// unbounded slice and Push never blocks.
	FrontierBacklog = 4096
)

// Backend timeouts.
const (
	StaticTimeout      = 10 * time.Second
	DynamicTimeout     = 30 * time.Second
	MaxRedirects       = 5
	DynamicWaitTime    = 5 * time.Second
	NetworkIdleQuiet   = 500 * time.Millisecond
	BrowserCloseGrace  = 5 * time.Second
	DrainGraceOnCancel = 2 * time.Second
)

// Politeness.
const (
	RetryMaxAttempts  = 3
	RetryBaseDelay    = 500 * time.Millisecond
	RetryFactor       = 2.0
	RetryMaxDelay     = 8 * time.Second
	RateLimitDisabled = 0.0
)

// Directory probing.
const (
	DirProbeConcurrencyFraction = 0.5 // fraction of the main pool a dirscan pass may borrow
)

// Metrics exposition.
const (
	MetricsPath         = "/metrics"
	MetricsReadTimeout  = 5 * time.Second
	MetricsWriteTimeout = 10 * time.Second
	MetricsShutdown     = 5 * time.Second
)

// DefaultUserAgent identifies the tool honestly in traffic; operators
// override it via Config.Headers when stealth is required for an
// authorized engagement.
const DefaultUserAgent = "EndAbyss/1.0 (+https://github.com/endabyss/endabyss)"

// DefaultTrackingDenylist is the set of query-parameter name patterns
// stripped from canonical URLs. Entries ending in "*" match by prefix.
var DefaultTrackingDenylist = []string{"utm_*", "fbclid", "gclid"}

// DefaultDirScanStatusCodes is the response-status allowlist a directory
// probe hit must match to be recorded, absent an operator override.
var DefaultDirScanStatusCodes = []int{200, 201, 202, 204, 301, 302, 307, 401, 403}
