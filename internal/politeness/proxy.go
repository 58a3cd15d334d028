package politeness

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/net/proxy"
)

var supportedProxySchemes = map[string]bool{
	"http": true, "https": true, "socks4": true, "socks5": true, "socks5h": true,
}

// ProxyRotator round-robins across a configured proxy list, one selection
// per call to Next. It holds only the parsed URLs; Dialer and
// ApplyToTransport do the dialing setup (SOCKS4/5/5h via
// golang.org/x/net/proxy, HTTP/HTTPS via the transport's native ProxyURL).
type ProxyRotator struct {
	proxies []*url.URL
	next    atomic.Uint64
}

// NewProxyRotator parses each raw proxy URL, defaulting a bare "host:port"
// to an http:// scheme.
func NewProxyRotator(raw []string) (*ProxyRotator, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	pr := &ProxyRotator{}
	for _, r := range raw {
		u, err := parseProxyURL(r)
		if err != nil {
			return nil, err
		}
		pr.proxies = append(pr.proxies, u)
	}
	return pr, nil
}

func parseProxyURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		u, err = url.Parse("http://" + raw)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url %q: %w", raw, err)
		}
	}
	if !supportedProxySchemes[u.Scheme] {
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	return u, nil
}

// Next returns the next proxy URL in round-robin order; the position is
// shared by every caller.
func (pr *ProxyRotator) Next() *url.URL {
	if pr == nil || len(pr.proxies) == 0 {
		return nil
	}
	idx := pr.next.Add(1) - 1
	return pr.proxies[idx%uint64(len(pr.proxies))]
}

// Dialer builds a context dialer for proxyURL, using golang.org/x/net/proxy
// for SOCKS schemes (socks5h resolves remotely, so its DNS lookups happen
// on the far side of the proxy).
func Dialer(proxyURL *url.URL, forward *net.Dialer) (proxy.ContextDialer, error) {
	switch proxyURL.Scheme {
	case "socks4", "socks5", "socks5h":
		scheme := proxyURL.Scheme
		if scheme == "socks5h" {
			scheme = "socks5"
		}
		var auth *proxy.Auth
		if proxyURL.User != nil {
			auth = &proxy.Auth{User: proxyURL.User.Username()}
			if pw, ok := proxyURL.User.Password(); ok {
				auth.Password = pw
			}
		}
		d, err := proxy.SOCKS5(scheme, proxyURL.Host, auth, forward)
		if err != nil {
			return nil, err
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks dialer does not support context")
		}
		return cd, nil
	case "http", "https":
		// Handled via http.Transport.Proxy instead of a custom dialer.
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", proxyURL.Scheme)
	}
}

// ApplyToTransport configures t to route through proxyURL, whichever
// scheme it is.
func ApplyToTransport(t *http.Transport, proxyURL *url.URL) error {
	if proxyURL == nil {
		return nil
	}
	switch proxyURL.Scheme {
	case "http", "https":
		t.Proxy = http.ProxyURL(proxyURL)
		return nil
	case "socks4", "socks5", "socks5h":
		forward := &net.Dialer{Timeout: 10 * time.Second}
		d, err := Dialer(proxyURL, forward)
		if err != nil {
			return err
		}
		t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return d.DialContext(ctx, network, addr)
		}
		return nil
	default:
		return fmt.Errorf("unsupported proxy scheme %q", proxyURL.Scheme)
	}
}
