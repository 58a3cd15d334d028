package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterZeroValueAllowsEverything(t *testing.T) {
	var f Filter
	require.True(t, f.Allowed("http://h/anything.exe"))
}

func TestFilterExcludeExtensionWins(t *testing.T) {
	f := Filter{ExcludeExtensions: []string{".png"}}
	require.False(t, f.Allowed("http://h/logo.png"))
	require.True(t, f.Allowed("http://h/index.html"))
}

func TestFilterIncludeExtensionIsAllowlist(t *testing.T) {
	f := Filter{IncludeExtensions: []string{".php"}}
	require.True(t, f.Allowed("http://h/login.php"))
	require.False(t, f.Allowed("http://h/index.html"))
}

func TestFilterExcludePathBeatsIncludePath(t *testing.T) {
	f := Filter{ExcludePaths: []string{"/admin"}, IncludePaths: []string{"/"}}
	require.False(t, f.Allowed("http://h/admin/settings"))
}

func TestFilterIncludePathIsAllowlist(t *testing.T) {
	f := Filter{IncludePaths: []string{"/api/"}}
	require.True(t, f.Allowed("http://h/api/v1/users"))
	require.False(t, f.Allowed("http://h/static/logo.png"))
}
