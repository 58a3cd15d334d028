package dirprobe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/endabyss/endabyss/internal/aggregator"
	"github.com/endabyss/endabyss/internal/frontier"
	"github.com/endabyss/endabyss/internal/model"
	"github.com/endabyss/endabyss/internal/urlnorm"
)

type fakeFetcher struct {
	responses map[string]model.FetchResult
}

func (f *fakeFetcher) Fetch(_ context.Context, req model.FetchRequest) (model.FetchResult, error) {
	if res, ok := f.responses[req.Method+" "+req.URL]; ok {
		return res, nil
	}
	// default soft-404 page every unmatched path gets, so the wildcard
	// baseline captures it.
	return model.FetchResult{Status: 200, ContentType: "text/html", Body: []byte("<html><title>Not Found</title>Nothing here.</html>")}, nil
}

func TestProbePrefixSkipsWildcardHitsAndRecordsRealOnes(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]model.FetchResult{
		"HEAD https://example.com/admin/config.json": {Status: 200, ContentType: "application/json", Body: []byte(`{"debug":true}`)},
	}}

	agg := aggregator.New()
	fr := frontier.New()
	prober := &Prober{
		Fetcher:     fetcher,
		Wordlist:    []string{"config.json", "does-not-exist-either"},
		Concurrency: 2,
		Frontier:    fr,
		Aggregator:  agg,
	}

	prober.ProbePrefix(context.Background(), "https://example.com/admin/", "", 0)

	endpoints, _, _ := agg.Finalise()
	require.Len(t, endpoints, 1)
	require.Equal(t, "https://example.com/admin/config.json", endpoints[0].URL)
	require.Equal(t, model.SourceDirScan, endpoints[0].Sources[0])
}

func TestProbePrefixHonoursCustomStatusCodeAllowlist(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]model.FetchResult{
		"HEAD https://example.com/admin/backup": {Status: 403, ContentType: "text/plain", Body: []byte("forbidden")},
	}}

	agg := aggregator.New()
	fr := frontier.New()
	prober := &Prober{
		Fetcher:     fetcher,
		Wordlist:    []string{"backup"},
		Concurrency: 1,
		Frontier:    fr,
		Aggregator:  agg,
		StatusCodes: []int{200}, // 403 excluded by an explicit narrower allowlist
	}

	prober.ProbePrefix(context.Background(), "https://example.com/admin/", "", 0)

	endpoints, _, _ := agg.Finalise()
	require.Empty(t, endpoints)
}

func TestDirectoryPrefixesOnlyReturnsTrailingSlashPaths(t *testing.T) {
	endpoints := []model.Endpoint{
		{URL: "https://example.com/admin/", Origin: "example.com"},
		{URL: "https://example.com/admin/config.json", Origin: "example.com"},
		{URL: "https://example.com/uploads/", Origin: "example.com"},
	}
	prefixes := DirectoryPrefixes(endpoints)
	var urls []string
	for _, p := range prefixes {
		urls = append(urls, p.URL)
		require.Equal(t, "example.com", p.Origin)
	}
	require.ElementsMatch(t, []string{"https://example.com/admin/", "https://example.com/uploads/"}, urls)
}

func TestProbePrefixDispatchesByOriginScope(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]model.FetchResult{
		"HEAD https://b.example/admin/secret": {Status: 200, ContentType: "text/plain", Body: []byte("hit")},
	}}

	agg := aggregator.New()
	fr := frontier.New()
	scopeA := urlnorm.NewScope(model.Target{Scheme: "https", Host: "a.example", Scope: model.ScopeSameHost}, nil)
	scopeB := urlnorm.NewScope(model.Target{Scheme: "https", Host: "b.example", Scope: model.ScopeSameHost}, nil)
	prober := &Prober{
		Fetcher:     fetcher,
		Wordlist:    []string{"secret"},
		Concurrency: 1,
		Frontier:    fr,
		Aggregator:  agg,
		Scopes:      map[string]*urlnorm.Scope{"a.example": scopeA, "b.example": scopeB},
	}

	// dispatched under b.example's own scope, not a.example's — a shared
	// single scope keyed on a.example would have rejected this as
	// out-of-scope.
	prober.ProbePrefix(context.Background(), "https://b.example/admin/", "b.example", 0)

	endpoints, _, _ := agg.Finalise()
	require.Len(t, endpoints, 1)
	require.Equal(t, "b.example", endpoints[0].Origin)
}
