// pkg/converter/text.go
package converter

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var nonASCII = runes.Predicate(func(r rune) bool {
	return r > unicode.MaxASCII
})

// StripNonASCII drops every rune outside the 7-bit ASCII range, keeping the
// order of the remaining characters
func StripNonASCII(s string) string {
	out, _, _ := transform.String(runes.Remove(nonASCII), s)
	return out
}

// KeepAlnumSpace removes every rune that is not an ASCII letter, an ASCII
// digit or whitespace, then trims surrounding whitespace. Stripping happens
// first so whitespace exposed by removed characters is trimmed as well.
func KeepAlnumSpace(s string) string {
	stripped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case unicode.IsSpace(r):
			return r
		default:
			return -1
		}
	}, s)
	return strings.TrimSpace(stripped)
}

// SplitLimited splits s on sep into at most n parts, trimming whitespace
// around each part. The result always has exactly n entries; parts the source
// does not provide are nil.
func SplitLimited(s, sep string, n int) []interface{} {
	parts := strings.SplitN(s, sep, n)
	out := make([]interface{}, n)
	for i := range out {
		if i < len(parts) {
			out[i] = strings.TrimSpace(parts[i])
		}
	}
	return out
}
