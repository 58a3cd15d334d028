// Package config holds the run configuration accepted by the controller,
// modeled on the teacher's single-source-of-truth default constants
// (pkg/defaults, pkg/duration) plus its own config/preset YAML loading
// convention.
package config

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/endabyss/endabyss/internal/defaults"
	"github.com/endabyss/endabyss/internal/extract"
	"github.com/endabyss/endabyss/internal/model"
)

// Mode selects which fetch backend a run uses.
type Mode string

const (
	ModeStatic  Mode = "static"
	ModeDynamic Mode = "dynamic"
)

// Config is the core input every run is built from.
type Config struct {
	Targets []string `yaml:"targets"`
	Scope   string   `yaml:"scope_mode"` // same-registered-domain | same-host | exact-prefix

	Mode        Mode          `yaml:"mode"`
	Depth       int           `yaml:"depth"`
	Concurrency int           `yaml:"concurrency"`

	Delay            time.Duration `yaml:"delay"`
	RandomDelayRange time.Duration `yaml:"random_delay_range"`
	RateLimit        float64       `yaml:"rate_limit"`

	Proxies []string `yaml:"proxies"`

	Headers map[string]string `yaml:"headers"`
	Cookies []*http.Cookie    `yaml:"-"`

	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	Timeout      time.Duration `yaml:"timeout"` // zero uses the backend's default (static 10s, dynamic 30s)

	Headless bool          `yaml:"headless"`
	WaitTime time.Duration `yaml:"wait_time"`

	DirScan     bool     `yaml:"dirscan"`
	Wordlist    []string `yaml:"wordlist"`
	StatusCodes []int    `yaml:"status_codes"` // dirscan hit allowlist; empty uses defaults.DefaultDirScanStatusCodes

	TrackingDenylist []string `yaml:"tracking_denylist"`

	// ExcludeExtensions/IncludeExtensions filter candidate endpoints by
	// lowercased file extension (e.g. ".css"); ExcludePaths/IncludePaths
	// filter by substring match against the lowercased URL path. Deny
	// takes priority over allow, matching StaticParser._should_exclude.
	ExcludeExtensions []string `yaml:"exclude_extensions"`
	IncludeExtensions []string `yaml:"include_extensions"`
	ExcludePaths      []string `yaml:"exclude_paths"`
	IncludePaths      []string `yaml:"include_paths"`

	// MinParams suppresses parameter sets with fewer than this many
	// parameters from the final result. Zero keeps everything.
	MinParams int `yaml:"min_params"`

	RunTimeout time.Duration `yaml:"run_timeout"`

	MetricsAddr string `yaml:"metrics_addr"` // empty disables the prometheus exposition hook
}

// DefaultConfig returns a Config with every field set to the crawl
// engine's documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Scope:            "same-registered-domain",
		Mode:             ModeStatic,
		Depth:            defaults.MaxDepth,
		Concurrency:      defaults.Concurrency,
		RateLimit:        defaults.RateLimitDisabled,
		MaxBodyBytes:     defaults.MaxBodyBytes,
		WaitTime:         defaults.DynamicWaitTime,
		TrackingDenylist: append([]string(nil), defaults.DefaultTrackingDenylist...),
	}
}

// Load reads a YAML config file and overlays it onto DefaultConfig.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Filter builds the extension/path predicate applied to candidate
// endpoints during extraction.
func (c *Config) Filter() extract.Filter {
	return extract.Filter{
		ExcludeExtensions: c.ExcludeExtensions,
		IncludeExtensions: c.IncludeExtensions,
		ExcludePaths:      c.ExcludePaths,
		IncludePaths:      c.IncludePaths,
	}
}

// ScopeMode translates the string scope name into a model.ScopeMode.
func (c *Config) ScopeMode() model.ScopeMode {
	switch c.Scope {
	case "same-host":
		return model.ScopeSameHost
	case "exact-prefix":
		return model.ScopeExactPrefix
	default:
		return model.ScopeSameRegisteredDomain
	}
}
