package urlnorm

import (
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"

	"github.com/endabyss/endabyss/internal/model"
)

// Scope decides whether a canonical URL belongs to a Target. It wraps the
// public-suffix lookup with a same-host fallback and logs the fallback
// once per Scope, matching the crawl engine's "record a warning
// once" requirement.
type Scope struct {
	target model.Target

	fallbackOnce sync.Once
	logger       *slog.Logger
}

// NewScope builds a Scope for the given target.
func NewScope(target model.Target, logger *slog.Logger) *Scope {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scope{target: target, logger: logger}
}

// InScope reports whether canonicalURL is within s.target's scope.
func (s *Scope) InScope(canonicalURL string) bool {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return false
	}

	switch s.target.Scope {
	case model.ScopeExactPrefix:
		return u.Scheme == s.target.Scheme && u.Host == s.target.Host &&
			strings.HasPrefix(u.Path, s.target.PathPrefix)
	case model.ScopeSameHost:
		return u.Host == s.target.Host
	case model.ScopeSameRegisteredDomain:
		return s.sameRegisteredDomain(u.Hostname())
	default:
		return u.Host == s.target.Host
	}
}

func (s *Scope) sameRegisteredDomain(host string) bool {
	targetHost := hostOnly(s.target.Host)

	targetDomain, err1 := publicsuffix.EffectiveTLDPlusOne(targetHost)
	candidateDomain, err2 := publicsuffix.EffectiveTLDPlusOne(host)
	if err1 != nil || err2 != nil {
		s.fallbackOnce.Do(func() {
			s.logger.Warn("public suffix lookup failed, falling back to same-host scope",
				"target_host", targetHost)
		})
		return host == targetHost
	}
	return targetDomain == candidateDomain
}

func hostOnly(hostport string) string {
	if idx := strings.LastIndex(hostport, ":"); idx != -1 {
		// only strip if what follows looks like a port, not IPv6
		if !strings.Contains(hostport[idx:], "]") {
			return hostport[:idx]
		}
	}
	return hostport
}
