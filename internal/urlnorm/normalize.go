// Package urlnorm canonicalises URLs and decides scope membership.
//
// Canonicalisation follows the ordered rule list from the crawl engine's
// design: lowercase scheme/host, strip default ports, normalise
// percent-encoding, collapse path segments, drop fragments, and strip a
// configurable denylist of tracking query parameters. The same rules are
// used everywhere a URL crosses a component boundary so that every
// consumer can rely on canonical form without re-normalising.
package urlnorm

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ErrUnparseable is returned when a candidate string cannot be canonicalised
// at all; the caller must not enqueue it.
var ErrUnparseable = errors.New("unparseable")

// Options configures canonicalisation, primarily the tracking-parameter
// denylist.
type Options struct {
	TrackingDenylist []string // entries ending in "*" match by prefix
}

// Canonicalize applies the ordered rule list to raw against an optional
// base URL (for resolving relative references) and returns the canonical
// form. It never sorts the query string in the returned value — sorting
// is only used for dedup-key computation, see DedupKey.
func Canonicalize(raw string, base *url.URL, opts Options) (string, error) {
	u, err := parse(raw, base)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	normalizeSchemeHost(u)
	stripDefaultPort(u)
	normalizePercentEncoding(u)
	normalizePath(u)
	u.Fragment = ""
	stripTracking(u, opts.TrackingDenylist)

	return u.String(), nil
}

// DedupKey returns the string used as the visited-set key component for a
// canonical URL: same as Canonicalize's output but with query parameters
// sorted by name (values kept, but sorting is stable on name only per the
// dedup-key contract — this key is never stored as the displayed URL).
func DedupKey(canonicalURL string) (string, error) {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	q := u.Query()
	names := make([]string, 0, len(q))
	for k := range q {
		names = append(names, k)
	}
	sort.Strings(names)
	var sb strings.Builder
	for i, k := range names {
		if i > 0 {
			sb.WriteByte('&')
		}
		for _, v := range q[k] {
			sb.WriteString(k)
			sb.WriteByte('=')
			sb.WriteString(v)
		}
	}
	u2 := *u
	u2.RawQuery = sb.String()
	return u2.String(), nil
}

func parse(raw string, base *url.URL) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty URL")
	}
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "javascript:"),
		strings.HasPrefix(lower, "mailto:"),
		strings.HasPrefix(lower, "tel:"),
		strings.HasPrefix(lower, "data:"),
		strings.HasPrefix(lower, "about:"):
		return nil, fmt.Errorf("non-fetchable scheme")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if base != nil && !u.IsAbs() {
		u = base.ResolveReference(u)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("missing scheme or host")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return u, nil
}

func normalizeSchemeHost(u *url.URL) {
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
}

func stripDefaultPort(u *url.URL) {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		return
	}
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = host
	}
}

// normalizePercentEncoding decodes percent-escaped unreserved characters
// and uppercases the hex digits of everything that remains escaped, per
// RFC 3986 section 6.2.2.2.
func normalizePercentEncoding(u *url.URL) {
	u.RawPath = ""
	u.Path = normalizePctString(u.Path)
	if u.RawQuery != "" {
		u.RawQuery = normalizeQueryEncoding(u.RawQuery)
	}
}

func normalizePctString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err == nil && isUnreserved(byte(b)) {
				sb.WriteByte(byte(b))
				i += 2
				continue
			}
			sb.WriteByte('%')
			sb.WriteByte(toUpperHex(s[i+1]))
			sb.WriteByte(toUpperHex(s[i+2]))
			i += 2
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func normalizeQueryEncoding(raw string) string {
	// Query values may legitimately contain '+' for space; only touch
	// %XX escapes, leave structural characters (&, =, +) alone.
	pairs := strings.Split(raw, "&")
	for i, p := range pairs {
		pairs[i] = normalizePctString(p)
	}
	return strings.Join(pairs, "&")
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func toUpperHex(c byte) byte {
	if c >= 'a' && c <= 'f' {
		return c - 'a' + 'A'
	}
	return c
}

func isUnreserved(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') ||
		b == '-' || b == '.' || b == '_' || b == '~'
}

// normalizePath resolves "." and ".." segments, collapses duplicate
// slashes, and ensures an empty path becomes "/".
func normalizePath(u *url.URL) {
	path := u.Path
	if path == "" {
		u.Path = "/"
		return
	}

	segments := strings.Split(path, "/")
	var out []string
	for _, seg := range segments {
		switch seg {
		case "", ".":
			if len(out) == 0 {
				continue
			}
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
		}
	}
	newPath := "/" + strings.Join(out, "/")
	if strings.HasSuffix(path, "/") && newPath != "/" {
		newPath += "/"
	}
	u.Path = newPath
}

func stripTracking(u *url.URL, denylist []string) {
	if len(denylist) == 0 || u.RawQuery == "" {
		return
	}
	pairs := strings.Split(u.RawQuery, "&")
	kept := pairs[:0]
	for _, pair := range pairs {
		key := pair
		if idx := strings.IndexByte(pair, '='); idx >= 0 {
			key = pair[:idx]
		}
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}
		if !matchesDenylist(key, denylist) {
			kept = append(kept, pair)
		}
	}
	u.RawQuery = strings.Join(kept, "&")
}

func matchesDenylist(key string, denylist []string) bool {
	lk := strings.ToLower(key)
	for _, pattern := range denylist {
		lp := strings.ToLower(pattern)
		if strings.HasSuffix(lp, "*") {
			if strings.HasPrefix(lk, strings.TrimSuffix(lp, "*")) {
				return true
			}
			continue
		}
		if lk == lp {
			return true
		}
	}
	return false
}
