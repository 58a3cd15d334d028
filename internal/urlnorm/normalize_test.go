package urlnorm

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalizeDefaultPortAndCase(t *testing.T) {
	got, err := Canonicalize("HTTP://Example.COM:80/Foo", nil, Options{})
	require.NoError(t, err)
	require.Equal(t, "http://example.com/Foo", got)
}

func TestCanonicalizeEmptyPath(t *testing.T) {
	got, err := Canonicalize("http://h", nil, Options{})
	require.NoError(t, err)
	require.Equal(t, "http://h/", got)
}

func TestCanonicalizeDotSegments(t *testing.T) {
	got, err := Canonicalize("http://h/a/./b/../c", nil, Options{})
	require.NoError(t, err)
	require.Equal(t, "http://h/a/c", got)
}

func TestCanonicalizeStripsFragment(t *testing.T) {
	got, err := Canonicalize("http://h/a#section", nil, Options{})
	require.NoError(t, err)
	require.Equal(t, "http://h/a", got)
}

func TestCanonicalizeTrackingDenylist(t *testing.T) {
	got, err := Canonicalize("http://h/search?q=1&utm_source=x&fbclid=y", nil, Options{
		TrackingDenylist: []string{"utm_*", "fbclid"},
	})
	require.NoError(t, err)
	require.Equal(t, "http://h/search?q=1", got)
}

func TestCanonicalizeRelativeAgainstBase(t *testing.T) {
	base, _ := url.Parse("http://h/dir/page")
	got, err := Canonicalize("../other", base, Options{})
	require.NoError(t, err)
	require.Equal(t, "http://h/other", got)
}

func TestCanonicalizeRejectsNonFetchableScheme(t *testing.T) {
	_, err := Canonicalize("javascript:alert(1)", nil, Options{})
	require.ErrorIs(t, err, ErrUnparseable)

	_, err = Canonicalize("mailto:a@b.com", nil, Options{})
	require.ErrorIs(t, err, ErrUnparseable)
}

func TestCanonicalizeIdempotent(t *testing.T) {
	first, err := Canonicalize("http://h/a/b?x=1", nil, Options{})
	require.NoError(t, err)
	second, err := Canonicalize(first, nil, Options{})
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestDedupKeySortsQueryParams(t *testing.T) {
	a, err := DedupKey("http://h/x?b=2&a=1")
	require.NoError(t, err)
	b, err := DedupKey("http://h/x?a=1&b=2")
	require.NoError(t, err)
	require.Equal(t, a, b)
}
