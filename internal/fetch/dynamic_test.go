package fetch

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"
)

func requestEvent(url string) *network.EventRequestWillBeSent {
	return &network.EventRequestWillBeSent{
		Request: &network.Request{
			URL:     url,
			Method:  "GET",
			Headers: network.Headers{},
		},
	}
}

// TestTabStateIsolatedAcrossConcurrentFetches is a regression test for the
// shared-browserCtx bug: two "fetches" (one tabState each, the unit each
// Dynamic.Fetch call now owns) run concurrently and must never see each
// other's observed requests, matching the isolation worker.Pool relies on
// when it runs Concurrency workers against the same *Dynamic.
func TestTabStateIsolatedAcrossConcurrentFetches(t *testing.T) {
	const workers = 10
	var wg sync.WaitGroup
	results := make([][]string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			state := &tabState{}
			own := fmt.Sprintf("https://example.com/page-%d", i)
			for j := 0; j < 5; j++ {
				state.record(requestEvent(fmt.Sprintf("%s/sub-%d", own, j)))
			}
			subs := state.snapshot()
			urls := make([]string, len(subs))
			for k, s := range subs {
				urls[k] = s.URL
			}
			results[i] = urls
		}(i)
	}
	wg.Wait()

	for i, urls := range results {
		require.Len(t, urls, 5)
		own := fmt.Sprintf("https://example.com/page-%d/sub-", i)
		for _, u := range urls {
			require.Contains(t, u, own, "worker %d observed a request that belongs to a different tab", i)
		}
	}
}

func TestTabStateRecordConcurrentWritesAreRaceFree(t *testing.T) {
	state := &tabState{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			state.record(requestEvent(fmt.Sprintf("https://example.com/%d", i)))
		}(i)
	}
	wg.Wait()
	require.Len(t, state.snapshot(), 50)
}

func TestTabStateSinceLastSeenReportsIdle(t *testing.T) {
	state := &tabState{}
	if _, seen := state.sinceLastSeen(time.Now()); seen {
		t.Fatal("expected no lastSeen before any request is recorded")
	}
	state.record(requestEvent("https://example.com/"))
	since, seen := state.sinceLastSeen(time.Now())
	require.True(t, seen)
	require.GreaterOrEqual(t, since, time.Duration(0))
}
