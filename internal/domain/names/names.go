// Package names canonicalizes display names before they are compared.
package names

import "strings"

// MaxTokens is the number of leading whitespace tokens a name keeps.
const MaxTokens = 2

// Normalize returns the comparable form of a display name.
//
// A name that is one string written twice ("CaicedoCaicedo") collapses to a
// single occurrence, repeatedly until it is no longer doubled. The name then
// keeps its first two whitespace tokens joined by one space. Normalize is
// idempotent. A real name that happens to be doubled is collapsed too.
//
// Collapsed names are truncated as well, so "Kevin De BruyneKevin De Bruyne"
// becomes "Kevin De", the same as "Kevin De Bruyne". Skipping truncation
// after a collapse would make Normalize(Normalize(x)) differ from
// Normalize(x).
func Normalize(name string) string {
	n := collapse(strings.TrimSpace(name))
	parts := strings.Fields(n)
	if len(parts) < MaxTokens {
		return n
	}
	return strings.Join(parts[:MaxTokens], " ")
}

// collapse halves s while it equals a string concatenated with itself.
func collapse(s string) string {
	for len(s) > 0 && len(s)%2 == 0 && s[:len(s)/2] == s[len(s)/2:] {
		s = s[:len(s)/2]
	}
	return s
}
