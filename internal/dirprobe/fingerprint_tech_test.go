package dirprobe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectTechnologiesFromWordPressMarkers(t *testing.T) {
	headers := map[string][]string{"Server": {"Apache"}}
	body := []byte(`<html><link rel="stylesheet" href="/wp-content/themes/x/style.css"></html>`)
	techs := DetectTechnologies(headers, body)
	require.Contains(t, techs, "wordpress")
}

func TestDetectTechnologiesFromDjangoCookie(t *testing.T) {
	headers := map[string][]string{"Set-Cookie": {"csrftoken=abc123; Path=/"}}
	techs := DetectTechnologies(headers, nil)
	require.Contains(t, techs, "django")
}

func TestDetectTechnologiesNoMatchReturnsEmpty(t *testing.T) {
	techs := DetectTechnologies(map[string][]string{"Server": {"nginx"}}, []byte("<html>hello</html>"))
	require.Empty(t, techs)
}

func TestBuildWordlistMergesCommonAndFrameworkPaths(t *testing.T) {
	words := BuildWordlist([]string{"wordpress"})
	require.Contains(t, words, "admin")
	require.Contains(t, words, "wp-login.php")
}
