package extract

import (
	"strings"

	"github.com/endabyss/endabyss/internal/regexcache"
)

// jsURLPatterns are LinkFinder-style regexes matching quoted string
// literals that look like paths or URLs inside JavaScript source: absolute
// URLs, protocol-relative URLs, root-relative paths, and REST-style
// templates with a {name} segment.
var jsURLPatterns = []string{
	// Absolute http(s) URLs in any quote style.
	"(?i)[\"'`](https?://[^\\s\"'`<>]{4,1000})[\"'`]",
	// Protocol-relative //host/path
	"(?i)[\"'`](//[a-z0-9][a-z0-9.-]*\\.[a-z]{2,}(?:/[^\\s\"'`<>]*)?)[\"'`]",
	// Root-relative paths (leading slash), optionally with a query string.
	"[\"'`](/[a-zA-Z0-9_.\\-/{}%?=&]{1,1000})[\"'`]",
	// REST-style templates: /api/{resource}/{id}
	"[\"'`]([a-zA-Z0-9_\\-/]*\\{[a-zA-Z0-9_]+\\}[a-zA-Z0-9_\\-/{}]*)[\"'`]",
}

// jsParamPatterns extract apparent parameter names from call-site and
// template idioms.
var jsParamPatterns = []string{
	`[?&]([a-zA-Z_][a-zA-Z0-9_]*)=`,
	`\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*:`,
}

var mimeLikeSuffixes = []string{
	"image/png", "image/jpeg", "text/css", "text/plain", "application/octet-stream",
}

// ExtractJS applies the LinkFinder-style regex set to raw JavaScript
// source and returns candidate URL-like strings and inferred parameter
// names. It intentionally does not resolve or validate URLs — that is the
// caller's job, since resolution needs the response's final URL.
func ExtractJS(src string) (urls []string, params []string) {
	seenURLs := make(map[string]bool)
	for _, pattern := range jsURLPatterns {
		re := regexcache.MustGet(pattern)
		for _, m := range re.FindAllStringSubmatch(src, -1) {
			candidate := m[1]
			if !plausibleJSURL(candidate) {
				continue
			}
			if !seenURLs[candidate] {
				seenURLs[candidate] = true
				urls = append(urls, candidate)
			}
		}
	}

	seenParams := make(map[string]bool)
	for _, pattern := range jsParamPatterns {
		re := regexcache.MustGet(pattern)
		for _, m := range re.FindAllStringSubmatch(src, -1) {
			name := m[1]
			if !seenParams[name] {
				seenParams[name] = true
				params = append(params, name)
			}
		}
	}
	return urls, params
}

// plausibleJSURL rejects the classes of false positive called out in the
// design: bare MIME strings, single tokens without '/' or '.', and
// anything implausibly long.
func plausibleJSURL(s string) bool {
	if len(s) > 2048 || len(s) == 0 {
		return false
	}
	for _, mime := range mimeLikeSuffixes {
		if s == mime {
			return false
		}
	}
	if !strings.Contains(s, "/") && !strings.Contains(s, ".") {
		return false
	}
	return true
}
