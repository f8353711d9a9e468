// Package textutil holds the language-aware text helpers shared by intent
// detection, ranking and link resolution: tokenization, punctuation
// normalization and slug prettification.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// IsDash reports whether r is one of the Unicode hyphen/dash variants that
// are folded to an ASCII hyphen (U+2010..U+2015, minus sign, soft hyphen).
func IsDash(r rune) bool {
	return (r >= '\u2010' && r <= '\u2015') || r == '\u2212' || r == '\u00ad'
}

// IsNoBreakSpace reports whether r is a non-breaking space variant.
func IsNoBreakSpace(r rune) bool {
	return r == '\u00a0' || r == '\u202f' || r == '\u2007'
}

// NormalizePunctuation replaces non-breaking spaces with regular spaces and
// every dash variant with an ASCII hyphen. Everything else is untouched.
func NormalizePunctuation(s string) string {
	if !strings.ContainsFunc(s, func(r rune) bool { return IsDash(r) || IsNoBreakSpace(r) }) {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch {
		case IsNoBreakSpace(r):
			return ' '
		case IsDash(r):
			return '-'
		}
		return r
	}, s)
}

// NormalizeLabel prepares a free-text label for rule matching: punctuation
// normalized, lowercased, whitespace collapsed and trimmed.
func NormalizeLabel(s string) string {
	s = NormalizePunctuation(s)
	s = cases.Lower(language.Swedish).String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Fold lowercases s and strips diacritics ("Förbättra" -> "forbattra").
// Transformers are stateful, so a fresh chain is built per call.
func Fold(s string) string {
	lower := cases.Lower(language.Swedish).String(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, lower)
	if err != nil {
		return lower
	}
	return out
}
