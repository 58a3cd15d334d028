// Package regexcache caches compiled regular expressions behind a sync.Map
// so extractors that reuse the same small pattern set across thousands of
// fetch results, from many concurrent workers, never pay recompilation
// cost or contend on a mutex.
package regexcache

import (
	"regexp"
	"sync"
)

var cache sync.Map // pattern string -> *regexp.Regexp

// Get returns the compiled regexp for pattern, compiling and caching it on
// first use.
func Get(pattern string) (*regexp.Regexp, error) {
	if v, ok := cache.Load(pattern); ok {
		return v.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	actual, _ := cache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}

// MustGet returns the compiled regexp for pattern, compiling and caching it
// on first use. Panics if pattern is invalid — callers pass only
// compile-time constant patterns.
func MustGet(pattern string) *regexp.Regexp {
	re, err := Get(pattern)
	if err != nil {
		panic(err)
	}
	return re
}

// Size reports how many distinct patterns are currently cached, mostly
// useful from tests.
func Size() int {
	n := 0
	cache.Range(func(_, _ any) bool { n++; return true })
	return n
}
