// Package controller wires configuration into a running crawl: it builds
// the fetch backend, politeness gate, frontier, worker pool, and optional
// directory prober, seeds the frontier from the configured targets, and
// assembles the final Result. Grounded on the teacher's crawler.Crawl
// orchestration (pkg/crawler.Crawler.Crawl) generalized to the multi-backend,
// multi-component pipeline this engine needs.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/endabyss/endabyss/internal/aggregator"
	"github.com/endabyss/endabyss/internal/config"
	"github.com/endabyss/endabyss/internal/defaults"
	"github.com/endabyss/endabyss/internal/dirprobe"
	"github.com/endabyss/endabyss/internal/fetch"
	"github.com/endabyss/endabyss/internal/frontier"
	"github.com/endabyss/endabyss/internal/metrics"
	"github.com/endabyss/endabyss/internal/model"
	"github.com/endabyss/endabyss/internal/politeness"
	"github.com/endabyss/endabyss/internal/urlnorm"
	"github.com/endabyss/endabyss/internal/worker"
)

// Run executes one full scan described by cfg and returns the aggregated
// Result. logger receives structured progress; if nil, slog.Default() is
// used. The returned Result is always populated even when ctx is
// cancelled mid-run — Cancelled is set and the partial findings are kept.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (model.Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.New().String()
	logger = logger.With("run_id", runID)

	if len(cfg.Targets) == 0 {
		return model.Result{}, fmt.Errorf("no targets configured")
	}

	normOpts := urlnorm.Options{TrackingDenylist: cfg.TrackingDenylist}
	agg := aggregator.New()
	agg.MinParams = cfg.MinParams
	fr := frontier.New()

	scopes := make(map[string]*urlnorm.Scope, len(cfg.Targets))
	for _, t := range cfg.Targets {
		u, err := url.Parse(t)
		if err != nil || u.Host == "" {
			continue
		}
		if _, ok := scopes[u.Host]; ok {
			continue
		}
		scope, err := buildScope(t, cfg.ScopeMode(), logger)
		if err != nil {
			return model.Result{}, err
		}
		scopes[u.Host] = scope
	}
	if len(scopes) == 0 {
		return model.Result{}, fmt.Errorf("no valid targets configured")
	}

	backend, err := buildBackend(ctx, cfg)
	if err != nil {
		return model.Result{}, err
	}
	defer backend.Close()

	var recorder *metrics.Recorder
	if cfg.MetricsAddr != "" {
		recorder = metrics.New()
		go func() {
			if err := recorder.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
		defer recorder.Close()
	}

	var limiter *politeness.RateLimiter
	if cfg.RateLimit > 0 {
		limiter = politeness.NewRateLimiter(cfg.RateLimit, 1, cfg.Delay, cfg.RandomDelayRange)
	} else if cfg.Delay > 0 || cfg.RandomDelayRange > 0 {
		limiter = politeness.NewRateLimiter(0, 0, cfg.Delay, cfg.RandomDelayRange)
	}

	proxies, err := politeness.NewProxyRotator(cfg.Proxies)
	if err != nil {
		return model.Result{}, fmt.Errorf("proxies: %w", err)
	}

	gate := politeness.NewGate(backend, limiter, politeness.RetryConfig{
		MaxAttempts: defaults.RetryMaxAttempts,
		BaseDelay:   defaults.RetryBaseDelay,
		Factor:      defaults.RetryFactor,
		MaxDelay:    defaults.RetryMaxDelay,
	}, proxies)

	for _, t := range cfg.Targets {
		origin := ""
		if u, err := url.Parse(t); err == nil {
			origin = u.Host
		}
		canonical, err := urlnorm.Canonicalize(t, nil, normOpts)
		if err != nil {
			logger.Warn("skipping unparseable target", "target", t, "error", err)
			continue
		}
		dedup, err := urlnorm.DedupKey(canonical)
		if err != nil {
			continue
		}
		fr.Push(model.Task{URL: canonical, Method: "GET", Depth: 0, Origin: origin}, dedup)
		agg.RecordEndpoint(model.Endpoint{
			URL:     canonical,
			Method:  "GET",
			Sources: []model.EndpointSource{model.SourceSeed},
			Depth:   0,
			Origin:  origin,
		})
	}

	runCtx := ctx
	var cancelTimeout context.CancelFunc
	if cfg.RunTimeout > 0 {
		runCtx, cancelTimeout = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancelTimeout()
	}

	pool := &worker.Pool{
		Concurrency: cfg.Concurrency,
		Fetcher:     gate,
		Frontier:    fr,
		Aggregator:  agg,
		Scopes:      scopes,
		NormOpts:    normOpts,
		Filter:      cfg.Filter(),
		MaxDepth:    cfg.Depth,
		Logger:      logger,
		Metrics:     recorder,
		Backend:     string(cfg.Mode),
	}
	stats := pool.Run(runCtx)

	if cfg.DirScan && len(cfg.Wordlist) > 0 {
		endpoints, _, _ := agg.Finalise()
		prefixes := dirprobe.DirectoryPrefixes(endpoints)

		wordlist := cfg.Wordlist
		var technologies []string
		seenTech := make(map[string]bool)
		for _, t := range cfg.Targets {
			canonical, err := urlnorm.Canonicalize(t, nil, normOpts)
			if err != nil {
				continue
			}
			res, err := gate.Fetch(runCtx, model.FetchRequest{URL: canonical, Method: "GET"})
			if err != nil {
				continue
			}
			for _, tech := range dirprobe.DetectTechnologies(res.Headers, res.Body) {
				if !seenTech[tech] {
					seenTech[tech] = true
					technologies = append(technologies, tech)
				}
			}
		}
		if len(technologies) > 0 {
			logger.Debug("fingerprinted technologies for dirscan wordlist augmentation", "technologies", technologies)
			wordlist = append(append([]string{}, cfg.Wordlist...), dirprobe.BuildWordlist(technologies)...)
		}

		prober := &dirprobe.Prober{
			Fetcher:     gate,
			Wordlist:    wordlist,
			Concurrency: cfg.Concurrency / 2,
			Frontier:    fr,
			Aggregator:  agg,
			Scopes:      scopes,
			NormOpts:    normOpts,
			Filter:      cfg.Filter(),
			MaxDepth:    cfg.Depth,
			Logger:      logger,
			Metrics:     recorder,
			StatusCodes: cfg.StatusCodes,
		}
		for _, prefix := range prefixes {
			prober.ProbePrefix(runCtx, prefix.URL, prefix.Origin, 0)
		}
		stats.Deduped += prober.Deduped()
		// Directory probing can enqueue new tasks into fr; drain them with
		// the same pool before finalising.
		if fr.Len() > 0 {
			extra := pool.Run(runCtx)
			stats.Fetched += extra.Fetched
			stats.Failed += extra.Failed
			stats.Deduped += extra.Deduped
		}
	}

	endpoints, forms, params := agg.Finalise()
	return model.Result{
		Endpoints:  endpoints,
		Forms:      forms,
		Parameters: params,
		Stats:      stats,
		Cancelled:  runCtx.Err() != nil,
	}, nil
}

func buildScope(seed string, scopeMode model.ScopeMode, logger *slog.Logger) (*urlnorm.Scope, error) {
	u, err := url.Parse(seed)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid target %q: %w", seed, err)
	}
	target := model.Target{
		Scheme:     u.Scheme,
		Host:       u.Host,
		PathPrefix: u.Path,
		Scope:      scopeMode,
		Seed:       seed,
	}
	// Touch publicsuffix eagerly so a missing PSL data file surfaces here
	// rather than mid-crawl.
	_, _ = publicsuffix.EffectiveTLDPlusOne(u.Hostname())
	return urlnorm.NewScope(target, logger), nil
}

func buildBackend(ctx context.Context, cfg *config.Config) (fetch.Backend, error) {
	if cfg.Mode == config.ModeDynamic {
		var proxy string
		if len(cfg.Proxies) > 0 {
			proxy = cfg.Proxies[0]
		}
		return fetch.NewDynamic(ctx, fetch.DynamicConfig{
			Timeout:      cfg.Timeout,
			WaitTime:     cfg.WaitTime,
			MaxBodyBytes: cfg.MaxBodyBytes,
			Proxy:        proxy,
		})
	}
	var proxyURL *url.URL
	if len(cfg.Proxies) > 0 {
		if u, err := url.Parse(cfg.Proxies[0]); err == nil {
			proxyURL = u
		}
	}
	return fetch.NewStatic(fetch.StaticConfig{
		Timeout:      cfg.Timeout,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Headers:      cfg.Headers,
		Cookies:      cfg.Cookies,
		Proxy:        proxyURL,
	})
}
