package politeness

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/endabyss/endabyss/internal/model"
)

type fakeBackend struct {
	calls   atomic.Int32
	results []model.FetchResult
	errs    []error
}

func (f *fakeBackend) Fetch(ctx context.Context, req model.FetchRequest) (model.FetchResult, error) {
	i := f.calls.Add(1) - 1
	if int(i) < len(f.errs) && f.errs[i] != nil {
		return model.FetchResult{}, f.errs[i]
	}
	if int(i) < len(f.results) {
		return f.results[i], nil
	}
	return model.FetchResult{Status: 200}, nil
}

func TestGateRetriesFiveXX(t *testing.T) {
	be := &fakeBackend{results: []model.FetchResult{{Status: 500}, {Status: 500}, {Status: 200}}}
	g := NewGate(be, nil, RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Factor: 2, MaxDelay: 10 * time.Millisecond}, nil)

	res, err := g.Fetch(context.Background(), model.FetchRequest{URL: "http://h/"})
	require.NoError(t, err)
	require.Equal(t, 200, res.Status)
	require.EqualValues(t, 3, be.calls.Load())
}

func TestGateDoesNotRetryFourXX(t *testing.T) {
	be := &fakeBackend{results: []model.FetchResult{{Status: 404}}}
	g := NewGate(be, nil, RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}, nil)

	res, err := g.Fetch(context.Background(), model.FetchRequest{URL: "http://h/missing"})
	require.NoError(t, err)
	require.Equal(t, 404, res.Status)
	require.EqualValues(t, 1, be.calls.Load())
}

func TestGateExhaustsRetriesAndFails(t *testing.T) {
	be := &fakeBackend{results: []model.FetchResult{{Status: 500}, {Status: 500}, {Status: 500}}}
	g := NewGate(be, nil, RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, nil)

	_, err := g.Fetch(context.Background(), model.FetchRequest{URL: "http://h/"})
	require.Error(t, err)
	require.EqualValues(t, 3, be.calls.Load())
}

func TestRateLimiterBlocksUntilCancel(t *testing.T) {
	rl := NewRateLimiter(1, 1, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.NoError(t, rl.Wait(context.Background()))
	err := rl.Wait(ctx) // bucket now empty at rate 1/s, should block past the timeout
	require.Error(t, err)
}
