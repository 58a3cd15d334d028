// Package metrics exposes an optional Prometheus scrape endpoint for a
// running scan. Grounded on the teacher's pkg/output/hooks.PrometheusHook:
// a custom, unpolluted prometheus.Registry, CounterVec/GaugeVec/
// HistogramVec metrics, and an http.Server serving promhttp.HandlerFor.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/endabyss/endabyss/internal/defaults"
)

// Recorder tracks run-level counters and exposes them for scraping when
// started. A nil *Recorder is safe to call methods on: every method is a
// no-op, so components can hold a Recorder unconditionally and only pay
// for it when metrics are enabled.
type Recorder struct {
	server   *http.Server
	registry *prometheus.Registry

	fetchesTotal    *prometheus.CounterVec
	failuresTotal   *prometheus.CounterVec
	dedupedTotal    prometheus.Counter
	endpointsFound  *prometheus.GaugeVec
	fetchLatency    *prometheus.HistogramVec

	mu     sync.Mutex
	closed bool
}

// New builds a Recorder bound to its own registry. It does not start a
// server; call Serve to expose it.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	r := &Recorder{registry: registry}

	r.fetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "endabyss_fetches_total",
		Help: "Total number of fetch attempts, by backend.",
	}, []string{"backend"})

	r.failuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "endabyss_fetch_failures_total",
		Help: "Total number of fetch attempts that returned an error.",
	}, []string{"backend"})

	r.dedupedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "endabyss_deduped_total",
		Help: "Total number of tasks dropped as duplicates by the frontier.",
	})

	r.endpointsFound = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "endabyss_endpoints_found",
		Help: "Endpoints recorded so far, by source.",
	}, []string{"source"})

	r.fetchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "endabyss_fetch_latency_seconds",
		Help:    "Fetch latency distribution.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"backend"})

	for _, c := range []prometheus.Collector{
		r.fetchesTotal, r.failuresTotal, r.dedupedTotal, r.endpointsFound, r.fetchLatency,
	} {
		r.registry.MustRegister(c)
	}
	return r
}

// Serve starts the metrics HTTP server on addr. It runs until ctx is
// cancelled or Close is called.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if r == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle(defaults.MetricsPath, promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))

	r.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  defaults.MetricsReadTimeout,
		WriteTimeout: defaults.MetricsWriteTimeout,
	}

	go func() {
		<-ctx.Done()
		_ = r.Close()
	}()

	logger.Info("metrics server listening", "addr", addr, "path", defaults.MetricsPath)
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// ObserveFetch records the outcome and latency of one fetch attempt.
func (r *Recorder) ObserveFetch(backend string, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	r.fetchesTotal.WithLabelValues(backend).Inc()
	r.fetchLatency.WithLabelValues(backend).Observe(elapsed.Seconds())
	if err != nil {
		r.failuresTotal.WithLabelValues(backend).Inc()
	}
}

// IncDeduped records one task dropped by the frontier as a duplicate.
func (r *Recorder) IncDeduped() {
	if r == nil {
		return
	}
	r.dedupedTotal.Inc()
}

// SetEndpointsFound sets the current endpoint count for a source label.
func (r *Recorder) SetEndpointsFound(source string, count int) {
	if r == nil {
		return
	}
	r.endpointsFound.WithLabelValues(source).Set(float64(count))
}

// Close shuts down the metrics server, if running.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.server == nil {
		r.closed = true
		return nil
	}
	r.closed = true
	ctx, cancel := context.WithTimeout(context.Background(), defaults.MetricsShutdown)
	defer cancel()
	return r.server.Shutdown(ctx)
}
