// Package regexcache caches compiled regular expressions that are built at
// runtime from a template, such as the per-indicator auth patterns.
//
// Usage:
//
//	re := regexcache.MustGetFold(`\b` + regexp.QuoteMeta(word) + `\b`)
//	if re.MatchString(body) { ... }
package regexcache

import (
	"regexp"
	"sync"
)

var cache sync.Map

// Get returns the compiled regexp for pattern, compiling it on first use.
func Get(pattern string) (*regexp.Regexp, error) {
	if cached, ok := cache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	actual, _ := cache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}

// MustGet is Get that panics on an invalid pattern.
func MustGet(pattern string) *regexp.Regexp {
	re, err := Get(pattern)
	if err != nil {
		panic(err)
	}
	return re
}

// MustGetFold is MustGet with case-insensitive matching.
func MustGetFold(pattern string) *regexp.Regexp {
	return MustGet("(?i)" + pattern)
}

// Size returns the number of cached expressions.
func Size() int {
	n := 0
	cache.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
