package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/endabyss/endabyss/internal/aggregator"
	"github.com/endabyss/endabyss/internal/frontier"
	"github.com/endabyss/endabyss/internal/model"
	"github.com/endabyss/endabyss/internal/urlnorm"
)

type stubFetcher struct {
	pages map[string]model.FetchResult
}

func (s *stubFetcher) Fetch(_ context.Context, req model.FetchRequest) (model.FetchResult, error) {
	res, ok := s.pages[req.URL]
	if !ok {
		return model.FetchResult{}, errNotFound
	}
	return res, nil
}

var errNotFound = fetchNotFoundError{}

type fetchNotFoundError struct{}

func (fetchNotFoundError) Error() string { return "no stubbed page for url" }

func newTestScope(t *testing.T) *urlnorm.Scope {
	t.Helper()
	return urlnorm.NewScope(model.Target{
		Scheme: "https",
		Host:   "example.com",
		Scope:  model.ScopeSameHost,
	}, nil)
}

func TestPoolCrawlsLinkedPageWithinScopeAndDepth(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]model.FetchResult{
		"https://example.com/": {
			FinalURL:    "https://example.com/",
			Status:      200,
			ContentType: "text/html",
			Body:        []byte(`<html><body><a href="/child">child</a></body></html>`),
		},
		"https://example.com/child": {
			FinalURL:    "https://example.com/child",
			Status:      200,
			ContentType: "text/html",
			Body:        []byte(`<html><body>leaf</body></html>`),
		},
	}}

	fr := frontier.New()
	agg := aggregator.New()
	fr.Push(model.Task{URL: "https://example.com/", Method: "GET", Depth: 0}, "https://example.com/")

	pool := &Pool{
		Concurrency: 2,
		Fetcher:     fetcher,
		Frontier:    fr,
		Aggregator:  agg,
		Scopes:      map[string]*urlnorm.Scope{"example.com": newTestScope(t)},
		MaxDepth:    3,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stats := pool.Run(ctx)

	require.Equal(t, 2, stats.Fetched)
	require.Equal(t, 0, stats.Failed)

	endpoints, _, _ := agg.Finalise()
	urls := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		urls = append(urls, ep.URL)
	}
	require.Contains(t, urls, "https://example.com/")
	require.Contains(t, urls, "https://example.com/child")
}

func TestPoolDispatchesByTaskOriginScope(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]model.FetchResult{
		"https://a.example/": {
			FinalURL:    "https://a.example/",
			Status:      200,
			ContentType: "text/html",
			Body:        []byte(`<html><body><a href="https://a.example/child">a-child</a></body></html>`),
		},
		"https://b.example/": {
			FinalURL:    "https://b.example/",
			Status:      200,
			ContentType: "text/html",
			Body:        []byte(`<html><body><a href="https://b.example/child">b-child</a></body></html>`),
		},
	}}

	fr := frontier.New()
	agg := aggregator.New()
	fr.Push(model.Task{URL: "https://a.example/", Method: "GET", Depth: 0, Origin: "a.example"}, "https://a.example/")
	fr.Push(model.Task{URL: "https://b.example/", Method: "GET", Depth: 0, Origin: "b.example"}, "https://b.example/")

	scopeFor := func(host string) *urlnorm.Scope {
		return urlnorm.NewScope(model.Target{Scheme: "https", Host: host, Scope: model.ScopeSameHost}, nil)
	}

	pool := &Pool{
		Concurrency: 2,
		Fetcher:     fetcher,
		Frontier:    fr,
		Aggregator:  agg,
		Scopes: map[string]*urlnorm.Scope{
			"a.example": scopeFor("a.example"),
			"b.example": scopeFor("b.example"),
		},
		MaxDepth: 3,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pool.Run(ctx)

	endpoints, _, _ := agg.Finalise()
	urls := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		urls = append(urls, ep.URL)
	}
	// Each target's own child must survive its own same-host scope; a
	// shared single scope keyed on the first target would have dropped
	// b.example's child as out of scope.
	require.Contains(t, urls, "https://a.example/child")
	require.Contains(t, urls, "https://b.example/child")
}

func TestPoolStopsAtMaxDepth(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]model.FetchResult{
		"https://example.com/": {
			FinalURL:    "https://example.com/",
			Status:      200,
			ContentType: "text/html",
			Body:        []byte(`<html><body><a href="/child">child</a></body></html>`),
		},
	}}

	fr := frontier.New()
	agg := aggregator.New()
	fr.Push(model.Task{URL: "https://example.com/", Method: "GET", Depth: 0}, "https://example.com/")

	pool := &Pool{
		Concurrency: 1,
		Fetcher:     fetcher,
		Frontier:    fr,
		Aggregator:  agg,
		Scopes:      map[string]*urlnorm.Scope{"example.com": newTestScope(t)},
		MaxDepth:    0,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stats := pool.Run(ctx)

	require.Equal(t, 1, stats.Fetched)
	// The child link is recorded as a discovered endpoint even though it
	// was never fetched, since depth-clamping only stops enqueueing.
	endpoints, _, _ := agg.Finalise()
	require.Len(t, endpoints, 2)
	require.Equal(t, 0, endpoints[0].Depth)
	require.Equal(t, 1, endpoints[1].Depth)
}
