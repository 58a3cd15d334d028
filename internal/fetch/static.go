package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/endabyss/endabyss/internal/defaults"
	"github.com/endabyss/endabyss/internal/model"
	"github.com/endabyss/endabyss/internal/politeness"
)

// StaticConfig configures the static backend.
type StaticConfig struct {
	Timeout       time.Duration
	MaxRedirects  int
	MaxBodyBytes  int64
	UserAgent     string
	Headers       map[string]string
	Cookies       []*http.Cookie
	Proxy         *url.URL // nil = direct
	SkipTLSVerify bool
}

// Static is a pooled net/http-based fetch backend. One Static instance is
// shared across all workers; net/http's own connection pool handles
// concurrent reuse, matching the "pooled client" requirement.
type Static struct {
	client *http.Client
	cfg    StaticConfig
}

// NewStatic builds a Static backend. Redirects are followed up to
// cfg.MaxRedirects; a redirect cycle returns the last 3xx response
// instead of erroring, per the fetch backend contract.
func NewStatic(cfg StaticConfig) (*Static, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.StaticTimeout
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaults.MaxRedirects
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.DefaultUserAgent
	}

	transport := &http.Transport{
		Proxy: nil,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   25,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	if cfg.SkipTLSVerify {
		transport.TLSClientConfig = insecureTLSConfig()
	}
	if cfg.Proxy != nil {
		if err := politeness.ApplyToTransport(transport, cfg.Proxy); err != nil {
			return nil, fmt.Errorf("static backend: %w", err)
		}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("static backend: cookie jar: %w", err)
	}

	client := &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	s := &Static{client: client, cfg: cfg}
	if len(cfg.Cookies) > 0 {
		s.seedCookies()
	}
	return s, nil
}

var errRedirectLimit = errors.New("redirect limit reached")

func (s *Static) seedCookies() {
	// Cookies are applied per-request in Fetch via header injection instead
	// of the jar, since we don't know the target host until Fetch is
	// called with a concrete URL.
}

// Fetch issues one HTTP(S) request. The X-EndAbyss-Proxy header that the
// politeness gate sets for proxy rotation is dropped and not sent; every
// request goes through the proxy fixed at NewStatic, so per-attempt proxy
// rotation does not reach this backend.
func (s *Static) Fetch(ctx context.Context, req model.FetchRequest) (model.FetchResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.cfg.Timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body *bytes.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	} else {
		body = bytes.NewReader(nil)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, methodOrDefault(req.Method), req.URL, body)
	if err != nil {
		return model.FetchResult{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", s.cfg.UserAgent)
	for k, v := range s.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		if k == "X-EndAbyss-Proxy" {
			continue // consumed by the politeness gate's proxy rotation, not sent upstream
		}
		httpReq.Header.Set(k, v)
	}
	for _, c := range s.cfg.Cookies {
		httpReq.AddCookie(c)
	}

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	if err != nil && !isRedirectLimitErr(err) {
		return model.FetchResult{}, fmt.Errorf("fetch %s: %w", req.URL, err)
	}
	elapsed := time.Since(start)
	if resp == nil {
		return model.FetchResult{}, fmt.Errorf("fetch %s: no response", req.URL)
	}
	defer drainAndClose(resp.Body)

	data, truncated, err := readBody(resp.Body, s.cfg.MaxBodyBytes)
	if err != nil {
		return model.FetchResult{}, fmt.Errorf("read body %s: %w", req.URL, err)
	}

	return model.FetchResult{
		FinalURL:    resp.Request.URL.String(),
		Status:      resp.StatusCode,
		Headers:     resp.Header,
		Body:        data,
		ContentType: resp.Header.Get("Content-Type"),
		Elapsed:     elapsed,
		Truncated:   truncated,
	}, nil
}

// Close releases idle connections held by the pooled client.
func (s *Static) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func methodOrDefault(m string) string {
	if m == "" {
		return http.MethodGet
	}
	return m
}

func isRedirectLimitErr(err error) bool {
	return errors.Is(err, errRedirectLimit) || (err != nil && bytes.Contains([]byte(err.Error()), []byte("redirect limit reached")))
}
