package fetch

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/endabyss/endabyss/internal/defaults"
	"github.com/endabyss/endabyss/internal/model"
)

// DynamicConfig configures the browser-driven backend.
type DynamicConfig struct {
	Timeout          time.Duration
	WaitTime         time.Duration // how long to wait for the network to settle after load
	NetworkIdleQuiet time.Duration // no new requests for this long counts as idle
	MaxBodyBytes     int64
	UserAgent        string
	Proxy            string // chromedp.ProxyServer wants "scheme://host:port"
	SkipTLSVerify    bool
	ChromiumPath     string
}

// Dynamic drives one headless Chrome instance via chromedp for pages that
// require JavaScript execution. One browser process is launched by
// NewDynamic and lives until Close; every Fetch call gets its own tab
// (a fresh chromedp browser context under that same process) so concurrent
// callers from worker.Pool don't share navigation state or attribute one
// page's ObservedSubrequests to a different call's result. Requests and
// responses observed on a tab are surfaced back as
// FetchResult.ObservedSubrequests, which the extractor turns into
// BROWSER_NET endpoints without re-fetching them.
type Dynamic struct {
	cfg           DynamicConfig
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewDynamic launches a headless Chrome instance and returns a Dynamic
// backend bound to it. The instance stays alive until Close is called.
func NewDynamic(ctx context.Context, cfg DynamicConfig) (*Dynamic, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.DynamicTimeout
	}
	if cfg.WaitTime <= 0 {
		cfg.WaitTime = defaults.DynamicWaitTime
	}
	if cfg.NetworkIdleQuiet <= 0 {
		cfg.NetworkIdleQuiet = defaults.NetworkIdleQuiet
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.DefaultUserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.ChromiumPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromiumPath))
	}
	if cfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.Proxy))
	}
	if cfg.SkipTLSVerify {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	d := &Dynamic{
		cfg:           cfg,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}

	if err := chromedp.Run(browserCtx); err != nil {
		d.cancelBrowser()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return d, nil
}

// tabState tracks the subrequests observed on one tab. Each Fetch call gets
// its own tabState alongside its own tab, so concurrent callers never
// contend on, or misattribute events to, a shared observed/lastSeen pair.
type tabState struct {
	mu       sync.Mutex
	observed []model.FetchRequest
	lastSeen time.Time
}

func (s *tabState) record(e *network.EventRequestWillBeSent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	headers := make(map[string]string, len(e.Request.Headers))
	for k, v := range e.Request.Headers {
		if str, ok := v.(string); ok {
			headers[k] = str
		}
	}
	s.observed = append(s.observed, model.FetchRequest{
		URL:     e.Request.URL,
		Method:  e.Request.Method,
		Headers: headers,
	})
}

func (s *tabState) sinceLastSeen(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSeen.IsZero() {
		return 0, false
	}
	return now.Sub(s.lastSeen), true
}

func (s *tabState) snapshot() []model.FetchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := make([]model.FetchRequest, len(s.observed))
	copy(subs, s.observed)
	return subs
}

// Fetch opens a fresh tab under the shared browser process, navigates it to
// req.URL, waits for the network to settle (or WaitTime to elapse,
// whichever comes first), and closes the tab before returning. Every call
// gets its own tab and its own tabState, so this is safe to call
// concurrently from every worker.Pool goroutine at once.
func (d *Dynamic) Fetch(ctx context.Context, req model.FetchRequest) (model.FetchResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = d.cfg.Timeout
	}

	tabCtx, tabCancel := chromedp.NewContext(d.browserCtx)
	defer tabCancel()

	navCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	state := &tabState{}
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if e, ok := ev.(*network.EventRequestWillBeSent); ok {
			state.record(e)
		}
	})

	var html string
	var pageURL string
	var status int64

	start := time.Now()
	err := chromedp.Run(navCtx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, _, _, _, _ = page.Navigate(req.URL).Do(ctx)
			return nil
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return model.FetchResult{}, fmt.Errorf("navigate %s: %w", req.URL, err)
	}

	d.waitForIdleOrTimeout(navCtx, state)

	if err := chromedp.Run(navCtx,
		chromedp.Location(&pageURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return model.FetchResult{}, fmt.Errorf("read page %s: %w", req.URL, err)
	}
	elapsed := time.Since(start)

	body := []byte(html)
	truncated := false
	if int64(len(body)) > d.cfg.MaxBodyBytes {
		body = body[:d.cfg.MaxBodyBytes]
		truncated = true
	}
	if status == 0 {
		status = 200 // chromedp does not surface the top-level navigation status directly
	}

	finalURL := pageURL
	if finalURL == "" {
		finalURL = req.URL
	}

	return model.FetchResult{
		FinalURL:            finalURL,
		Status:              int(status),
		Body:                body,
		ContentType:         "text/html",
		Elapsed:             elapsed,
		Truncated:           truncated,
		ObservedSubrequests: state.snapshot(),
	}, nil
}

// waitForIdleOrTimeout polls until NetworkIdleQuiet has elapsed since the
// last request state observed, or WaitTime total has elapsed, whichever
// first.
func (d *Dynamic) waitForIdleOrTimeout(ctx context.Context, state *tabState) {
	deadline := time.Now().Add(d.cfg.WaitTime)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if now.After(deadline) {
				return
			}
			if since, seen := state.sinceLastSeen(now); seen && since >= d.cfg.NetworkIdleQuiet {
				return
			}
		}
	}
}

// Close shuts the browser down within a 5 second grace period before
// force-killing the underlying process tree, matching the grace pattern
// used for cleaning up chromedp contexts elsewhere in this codebase.
func (d *Dynamic) Close() error {
	d.cancelBrowser()
	return nil
}

func (d *Dynamic) cancelBrowser() {
	var proc *os.Process
	if c := chromedp.FromContext(d.browserCtx); c != nil && c.Browser != nil {
		proc = c.Browser.Process()
	}

	done := make(chan struct{})
	go func() {
		d.browserCancel()
		d.allocCancel()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(defaults.BrowserCloseGrace):
		if proc != nil {
			_ = proc.Kill()
		}
	}
}
