// Package strutil provides shared string helpers.
package strutil

import (
	"strings"
	"unicode/utf8"
)

// Truncate cuts s to at most maxLen runes without a suffix. It never
// produces invalid UTF-8 and returns "" for maxLen <= 0.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}

// Ellipsis is Truncate with a trailing "..." counted inside maxLen.
func Ellipsis(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return Truncate(s, maxLen)
	}
	return Truncate(s, maxLen-3) + "..."
}

// ContainsAnyFold reports whether s contains any of tokens, ignoring case.
// Tokens are expected to be lower-case already.
func ContainsAnyFold(s string, tokens []string) bool {
	lower := strings.ToLower(s)
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// FirstN returns at most n leading elements of items.
func FirstN[T any](items []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(items) <= n {
		return items
	}
	return items[:n]
}
