// Package dirprobe implements wordlist-driven directory discovery: given a
// directory prefix found during the crawl, HEAD (falling back to GET on
// 405) every configured word appended to it, filter soft-404 wildcard
// responses, and record interesting hits as DIRSCAN endpoints. Grounded on
// the teacher's pkg/discovery.ActiveDiscoverer worker-pool probing loop
// (probePathsWithPhaseProgress/probeSinglePath) and its wildcard baseline
// detection (detectWildcardBaseline).
package dirprobe

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/endabyss/endabyss/internal/aggregator"
	"github.com/endabyss/endabyss/internal/defaults"
	"github.com/endabyss/endabyss/internal/extract"
	"github.com/endabyss/endabyss/internal/frontier"
	"github.com/endabyss/endabyss/internal/metrics"
	"github.com/endabyss/endabyss/internal/model"
	"github.com/endabyss/endabyss/internal/urlnorm"
)

// Fetcher is the capability the prober needs: one politeness-wrapped fetch
// call, the same interface the worker pool uses.
type Fetcher interface {
	Fetch(ctx context.Context, req model.FetchRequest) (model.FetchResult, error)
}

// randomBaselinePaths are gibberish paths used to establish each prefix's
// soft-404 fingerprint before real words are tried against it.
var randomBaselinePaths = []string{
	"zzq83nvpqirp-does-not-exist",
	"nonexistent-path-48213",
}

func interestingStatus(codes []int, status int) bool {
	if len(codes) == 0 {
		codes = defaults.DefaultDirScanStatusCodes
	}
	for _, c := range codes {
		if c == status {
			return true
		}
	}
	return false
}

// Prober runs directory-prefix expansion against discovered prefixes.
// Scopes is keyed by Target host, mirroring worker.Pool: a prefix is
// dispatched against the Scope of the target it was discovered under
// rather than one Scope shared across every target.
type Prober struct {
	Fetcher     Fetcher
	Wordlist    []string
	Concurrency int
	Frontier    *frontier.Frontier
	Aggregator  *aggregator.Aggregator
	Scopes      map[string]*urlnorm.Scope
	NormOpts    urlnorm.Options
	Filter      extract.Filter
	MaxDepth    int
	Logger      *slog.Logger
	Metrics     *metrics.Recorder
	// StatusCodes is the response-status allowlist a probe hit must match
	// to be recorded. Empty uses defaults.DefaultDirScanStatusCodes.
	StatusCodes []int

	detectors sync.Map // prefix -> *WildcardDetector
	deduped   atomic.Int64
}

// Deduped reports how many probe hits were dropped as scope rejections or
// frontier dedup collisions since the Prober was created.
func (p *Prober) Deduped() int { return int(p.deduped.Load()) }

func (p *Prober) scopeFor(origin string) *urlnorm.Scope {
	if s, ok := p.Scopes[origin]; ok {
		return s
	}
	for _, s := range p.Scopes {
		return s
	}
	return nil
}

// ProbePrefix expands prefix (a URL ending in "/") against the configured
// wordlist. origin is the host of the Target prefix was discovered under,
// used to look up the right Scope. depth is the crawl depth the prefix
// itself was discovered at; hits at or beyond MaxDepth are recorded but not
// fed back into extraction.
func (p *Prober) ProbePrefix(ctx context.Context, prefix, origin string, depth int) {
	if len(p.Wordlist) == 0 {
		return
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	scope := p.scopeFor(origin)
	detector := p.baselineFor(ctx, prefix)

	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	words := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for word := range words {
				select {
				case <-ctx.Done():
					return
				default:
				}
				p.probeOne(ctx, prefix, word, origin, scope, depth, detector, logger)
			}
		}()
	}

wordLoop:
	for _, w := range p.Wordlist {
		select {
		case <-ctx.Done():
			break wordLoop
		case words <- w:
		}
	}
	close(words)
	wg.Wait()
}

func (p *Prober) baselineFor(ctx context.Context, prefix string) *WildcardDetector {
	if existing, ok := p.detectors.Load(prefix); ok {
		return existing.(*WildcardDetector)
	}
	detector := NewWildcardDetector()
	for _, method := range []string{"HEAD", "GET"} {
		for _, rp := range randomBaselinePaths {
			res, err := p.Fetcher.Fetch(ctx, model.FetchRequest{URL: prefix + rp, Method: method})
			if err != nil {
				continue
			}
			detector.AddBaseline(method, CalculateFingerprint(res.Status, res.Body, res.ContentType))
			break
		}
	}
	actual, _ := p.detectors.LoadOrStore(prefix, detector)
	return actual.(*WildcardDetector)
}

func (p *Prober) probeOne(ctx context.Context, prefix, word, origin string, scope *urlnorm.Scope, depth int, detector *WildcardDetector, logger *slog.Logger) {
	target := prefix + word
	start := time.Now()
	res, err := p.Fetcher.Fetch(ctx, model.FetchRequest{URL: target, Method: "HEAD"})
	p.Metrics.ObserveFetch("dirprobe", time.Since(start), err)
	if err != nil {
		return
	}
	if res.Status == 405 {
		res, err = p.Fetcher.Fetch(ctx, model.FetchRequest{URL: target, Method: "GET"})
		if err != nil {
			return
		}
	}

	if !interestingStatus(p.StatusCodes, res.Status) {
		return
	}
	fp := CalculateFingerprint(res.Status, res.Body, res.ContentType)
	if detector.IsWildcard("HEAD", fp) || detector.IsWildcard("GET", fp) {
		return
	}

	dedupURL, err := urlnorm.Canonicalize(target, nil, p.NormOpts)
	if err != nil {
		return
	}
	if scope != nil && !scope.InScope(dedupURL) {
		p.deduped.Add(1)
		return
	}

	p.Aggregator.RecordEndpoint(model.Endpoint{
		URL:         dedupURL,
		Method:      "GET",
		Sources:     []model.EndpointSource{model.SourceDirScan},
		ContentType: res.ContentType,
		Status:      res.Status,
		Depth:       depth,
		Origin:      origin,
	})
	logger.Debug("dirprobe hit", "url", dedupURL, "status", res.Status)

	if strings.Contains(res.ContentType, "text/html") && depth < p.MaxDepth {
		out := extract.Extract(extract.Context{
			Depth:    depth,
			MaxDepth: p.MaxDepth,
			Scope:    scope,
			NormOpts: p.NormOpts,
			Filter:   p.Filter,
			Origin:   origin,
			Rejected: &p.deduped,
		}, model.FetchResult{FinalURL: dedupURL, Status: res.Status, Body: res.Body, ContentType: res.ContentType})

		for _, ep := range out.Endpoints {
			p.Aggregator.RecordEndpoint(ep)
		}
		for _, f := range out.Forms {
			p.Aggregator.RecordForm(f)
		}
		for _, ps := range out.Parameters {
			p.Aggregator.RecordParameterSet(ps)
		}
		for _, t := range out.NewTasks {
			childDedup, err := urlnorm.DedupKey(t.URL)
			if err != nil {
				continue
			}
			if !p.Frontier.Push(t, childDedup) {
				p.deduped.Add(1)
			}
		}
	}
}

// Prefix is one directory prefix discovered during the crawl, tagged with
// the Target host it was found under so ProbePrefix can dispatch it
// against the right Scope.
type Prefix struct {
	URL    string
	Origin string
}

// DirectoryPrefixes returns every URL among endpoints whose path ends in
// "/", suitable as ProbePrefix input.
func DirectoryPrefixes(endpoints []model.Endpoint) []Prefix {
	seen := make(map[string]bool)
	var prefixes []Prefix
	for _, ep := range endpoints {
		u, err := url.Parse(ep.URL)
		if err != nil || !strings.HasSuffix(u.Path, "/") {
			continue
		}
		if seen[ep.URL] {
			continue
		}
		seen[ep.URL] = true
		prefixes = append(prefixes, Prefix{URL: ep.URL, Origin: ep.Origin})
	}
	return prefixes
}
