package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var stopWords = foldedSet(
	"och", "att", "som", "för", "med", "en", "ett", "det", "den", "de", "vi", "ni", "jag",
	"hur", "varför", "tips", "om", "till", "på", "i", "av", "er", "era", "vår", "vårt", "våra",
	"din", "ditt", "dina", "han", "hon", "man", "min", "mitt", "mina", "deras", "från", "mer",
	"mindre", "utan", "eller", "så", "också", "kan", "ska", "få", "får", "var", "är", "bli",
	"blir", "nya", "ny",
)

func foldedSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[Fold(w)] = struct{}{}
	}
	return set
}

// IsStopWord reports whether the folded form of w is a stop word.
func IsStopWord(w string) bool {
	_, ok := stopWords[Fold(w)]
	return ok
}

// Tokenize lowercases text, strips diacritics, drops everything that is not
// a letter, digit, space or hyphen, splits on whitespace, slashes, dots,
// underscores and hyphens, and removes stop words and single-rune tokens.
// Token order follows the input.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) || r == '-' {
			return r
		}
		return ' '
	}, Fold(text))

	fields := strings.FieldsFunc(cleaned, func(r rune) bool {
		return unicode.IsSpace(r) || r == '/' || r == '.' || r == '_' || r == '-'
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) <= 1 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
