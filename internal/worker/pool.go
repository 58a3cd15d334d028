// Package worker runs the fixed-size goroutine pool that drains the
// frontier: pop a task, fetch it through the politeness gate, extract new
// tasks and findings, push children back into the frontier, and record
// findings into the aggregator. Grounded on the teacher's crawler worker
// loop (pkg/crawler.Crawler.worker) and its fixed-pool sizing convention
// (pkg/workerpool.Pool), replaced here with a frontier-driven loop instead
// of a raw channel-drain loop so idle-shutdown detection is exact rather
// than poll-based.
package worker

import (
	"context"
	"log/slog"
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

// Fetcher is the capability the pool needs from the politeness-wrapped
// backend: one call that performs the entire fetch-with-retry sequence.
type Fetcher interface {
	Fetch(ctx context.Context, req model.FetchRequest) (model.FetchResult, error)
}

// Pool runs Concurrency workers against a shared Frontier until it drains
// or ctx is cancelled. Scopes is keyed by Target host (model.Task.Origin);
// every task is dispatched against its own origin's Scope rather than one
// shared predicate, so a multi-target run doesn't drop legitimate
// discoveries under targets other than the first.
type Pool struct {
	Concurrency int
	Fetcher     Fetcher
	Frontier    *frontier.Frontier
	Aggregator  *aggregator.Aggregator
	Scopes      map[string]*urlnorm.Scope
	NormOpts    urlnorm.Options
	Filter      extract.Filter
	MaxDepth    int
	Logger      *slog.Logger
	Metrics     *metrics.Recorder
	Backend     string // label attached to metrics, e.g. "static" or "dynamic"

	fetched atomic.Int64
	failed  atomic.Int64
	deduped atomic.Int64
}

// Run starts the pool and blocks until every worker exits: either the
// frontier drained naturally, or ctx was cancelled. On cancellation the
// frontier is closed at once so workers waiting in Pop return; a worker
// busy with a task finishes that task before it exits.
func (p *Pool) Run(ctx context.Context) model.Stats {
	if p.Concurrency <= 0 {
		p.Concurrency = defaults.Concurrency
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(p.Concurrency)

	go func() {
		<-ctx.Done()
		p.Frontier.Close()
	}()

	for i := 0; i < p.Concurrency; i++ {
		go func(id int) {
			defer wg.Done()
			p.runWorker(ctx, id, logger)
		}(i)
	}

	wg.Wait()

	return model.Stats{
		Fetched: int(p.fetched.Load()),
		Failed:  int(p.failed.Load()),
		Deduped: int(p.deduped.Load()),
		Elapsed: time.Since(start),
	}
}

// scopeFor returns the Scope registered for a task's origin, falling back
// to the first configured Scope if the origin is unrecognised (should not
// happen for tasks this pool itself produced, but guards external callers).
func (p *Pool) scopeFor(origin string) *urlnorm.Scope {
	if s, ok := p.Scopes[origin]; ok {
		return s
	}
	for _, s := range p.Scopes {
		return s
	}
	return nil
}

func (p *Pool) runWorker(ctx context.Context, id int, logger *slog.Logger) {
	for {
		task, ok := p.Frontier.Pop()
		if !ok {
			return
		}
		p.process(ctx, task, logger)
		p.Frontier.Done()

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (p *Pool) process(ctx context.Context, task model.Task, logger *slog.Logger) {
	fetchStart := time.Now()
	res, err := p.Fetcher.Fetch(ctx, model.FetchRequest{URL: task.URL, Method: task.Method})
	p.Metrics.ObserveFetch(p.Backend, time.Since(fetchStart), err)
	if err != nil {
		p.failed.Add(1)
		logger.Debug("fetch failed", "url", task.URL, "error", err)
		return
	}
	p.fetched.Add(1)

	scope := p.scopeFor(task.Origin)

	p.Aggregator.RecordEndpoint(model.Endpoint{
		URL:         res.FinalURL,
		Method:      task.Method,
		Sources:     []model.EndpointSource{},
		ContentType: res.ContentType,
		Status:      res.Status,
		Depth:       task.Depth,
		Truncated:   res.Truncated,
		Origin:      task.Origin,
	})

	out := extract.Extract(extract.Context{
		Depth:    task.Depth,
		MaxDepth: p.MaxDepth,
		Scope:    scope,
		NormOpts: p.NormOpts,
		Filter:   p.Filter,
		Origin:   task.Origin,
		Rejected: &p.deduped,
	}, res)

	if len(res.ObservedSubrequests) > 0 {
		netEndpoints := extract.BrowserNetworkEndpoints(extract.Context{
			Depth:    task.Depth,
			MaxDepth: p.MaxDepth,
			Scope:    scope,
			NormOpts: p.NormOpts,
			Filter:   p.Filter,
			Origin:   task.Origin,
			Rejected: &p.deduped,
		}, res.ObservedSubrequests)
		out.Endpoints = append(out.Endpoints, netEndpoints...)
	}

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
		dedupURL, err := urlnorm.DedupKey(t.URL)
		if err != nil {
			continue
		}
		if !p.Frontier.Push(t, dedupURL) {
			p.deduped.Add(1)
			p.Metrics.IncDeduped()
		}
	}
}
