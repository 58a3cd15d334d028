package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/endabyss/endabyss/internal/model"
)

func TestDefaultConfigIsUsable(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, ModeStatic, cfg.Mode)
	require.Greater(t, cfg.Depth, 0)
	require.Greater(t, cfg.Concurrency, 0)
	require.NotEmpty(t, cfg.TrackingDenylist)
}

func TestLoadOverlaysYAMLOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.yaml")
	yaml := `
targets:
  - https://example.com
mode: dynamic
depth: 2
dirscan: true
wordlist:
  - admin
  - backup
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com"}, cfg.Targets)
	require.Equal(t, ModeDynamic, cfg.Mode)
	require.Equal(t, 2, cfg.Depth)
	require.True(t, cfg.DirScan)
	require.Equal(t, []string{"admin", "backup"}, cfg.Wordlist)
	// Fields absent from the YAML keep their DefaultConfig value.
	require.Greater(t, cfg.Concurrency, 0)
}

func TestFilterBuildsExtractFilterFromConfigFields(t *testing.T) {
	cfg := &Config{
		ExcludeExtensions: []string{".css"},
		IncludeExtensions: []string{".php"},
		ExcludePaths:      []string{"/admin"},
		IncludePaths:      []string{"/api"},
	}
	f := cfg.Filter()
	require.False(t, f.Allowed("http://h/style.css"))
	require.False(t, f.Allowed("http://h/api/index.html"))
	require.True(t, f.Allowed("http://h/api/login.php"))
}

func TestScopeModeTranslatesStrings(t *testing.T) {
	cases := map[string]model.ScopeMode{
		"same-host":     model.ScopeSameHost,
		"exact-prefix":  model.ScopeExactPrefix,
		"":              model.ScopeSameRegisteredDomain,
		"garbage-value": model.ScopeSameRegisteredDomain,
	}
	for input, want := range cases {
		cfg := &Config{Scope: input}
		require.Equal(t, want, cfg.ScopeMode())
	}
}
