package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/endabyss/endabyss/internal/config"
)

func TestRunCrawlsSeedAndLinkedPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><a href="/child">child</a></body></html>`))
	})
	mux.HandleFunc("/child", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>leaf page</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Targets = []string{srv.URL}
	cfg.Scope = "same-host"
	cfg.Concurrency = 2
	cfg.Depth = 2
	cfg.RunTimeout = 5 * time.Second

	result, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.False(t, result.Cancelled)
	require.GreaterOrEqual(t, result.Stats.Fetched, 2)

	urls := make([]string, 0, len(result.Endpoints))
	for _, ep := range result.Endpoints {
		urls = append(urls, ep.URL)
	}
	require.Contains(t, urls, srv.URL+"/")
	require.Contains(t, urls, srv.URL+"/child")
}

func TestRunRejectsEmptyTargets(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := Run(context.Background(), cfg, nil)
	require.Error(t, err)
}
