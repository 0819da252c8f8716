package resolve

import (
	"strings"
	"unicode"
)

// Normalize lowercases s, trims it and collapses whitespace runs.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// tokens splits a normalized string on whitespace, keeping tokens longer
// than one rune so separators like "-" drop out.
func tokens(normalized string) []string {
	fields := strings.Fields(normalized)
	out := fields[:0:0]
	for _, f := range fields {
		if len([]rune(f)) > 1 {
			out = append(out, f)
		}
	}
	return out
}

// pathTokens splits a definition path on any non-alphanumeric rune.
func pathTokens(path string) []string {
	return strings.FieldsFunc(strings.ToLower(path), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// wordTokens splits a normalized name on non-alphanumerics, so "qa-us"
// yields both "qa" and "us".
func wordTokens(normalized string) []string {
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenCovered(qt string, candidate []string) bool {
	for _, ct := range candidate {
		if ct == qt || strings.Contains(ct, qt) || strings.Contains(qt, ct) {
			return true
		}
	}
	return false
}

func containsToken(set []string, tok string) bool {
	for _, s := range set {
		if s == tok {
			return true
		}
	}
	return false
}
