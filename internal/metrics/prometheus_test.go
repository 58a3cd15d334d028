package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveFetchIncrementsCountersAndHistogram(t *testing.T) {
	r := New()
	r.ObserveFetch("static", 10*time.Millisecond, nil)
	r.ObserveFetch("static", 20*time.Millisecond, errors.New("boom"))

	require.InDelta(t, 2, testutil.ToFloat64(r.fetchesTotal.WithLabelValues("static")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(r.failuresTotal.WithLabelValues("static")), 0)
}

func TestIncDedupedCountsCalls(t *testing.T) {
	r := New()
	r.IncDeduped()
	r.IncDeduped()
	require.InDelta(t, 2, testutil.ToFloat64(r.dedupedTotal), 0)
}

func TestSetEndpointsFoundOverwritesGauge(t *testing.T) {
	r := New()
	r.SetEndpointsFound("HTML_A", 3)
	r.SetEndpointsFound("HTML_A", 7)
	require.InDelta(t, 7, testutil.ToFloat64(r.endpointsFound.WithLabelValues("HTML_A")), 0)
}

func TestNilRecorderMethodsAreNoOps(t *testing.T) {
	var r *Recorder
	require.NotPanics(t, func() {
		r.ObserveFetch("static", time.Millisecond, nil)
		r.IncDeduped()
		r.SetEndpointsFound("HTML_A", 1)
		require.NoError(t, r.Close())
	})
}
