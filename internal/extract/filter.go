package extract

import (
	"net/url"
	"strings"
)

// Filter is the extension/path allow-and-deny predicate applied to every
// candidate endpoint URL before it is recorded. Grounded on the original
// StaticParser._should_exclude: deny takes priority over allow, an include
// list makes everything not matching it excluded, and extension matching
// is on the lowercased final path segment.
type Filter struct {
	ExcludeExtensions []string
	IncludeExtensions []string
	ExcludePaths      []string
	IncludePaths      []string
}

// Allowed reports whether rawURL passes the configured filter. A zero
// Filter allows everything.
func (f Filter) Allowed(rawURL string) bool {
	if len(f.ExcludeExtensions) == 0 && len(f.IncludeExtensions) == 0 &&
		len(f.ExcludePaths) == 0 && len(f.IncludePaths) == 0 {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	path := strings.ToLower(u.Path)

	for _, excl := range f.ExcludePaths {
		if excl != "" && strings.Contains(path, strings.ToLower(excl)) {
			return false
		}
	}
	if len(f.IncludePaths) > 0 {
		matched := false
		for _, incl := range f.IncludePaths {
			if strings.Contains(path, strings.ToLower(incl)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	ext := ""
	seg := path[strings.LastIndexByte(path, '/')+1:]
	if idx := strings.LastIndexByte(seg, '.'); idx >= 0 {
		ext = seg[idx:]
	}
	for _, excl := range f.ExcludeExtensions {
		if ext == strings.ToLower(excl) {
			return false
		}
	}
	if len(f.IncludeExtensions) > 0 {
		matched := false
		for _, incl := range f.IncludeExtensions {
			if ext == strings.ToLower(incl) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}
