package textutil

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// brandWords restores casing that lowercasing destroys.
var brandWords = map[string]string{
	"seo":         "SEO",
	"wordpress":   "WordPress",
	"woocommerce": "WooCommerce",
	"gdpr":        "GDPR",
	"ai":          "AI",
	"google":      "Google",
}

// TitleFromSlug derives a display title from the last path segment of a URL:
// percent-decoded, hyphens to spaces, lowercased with the first letter
// capitalized and brand words recapitalized. Any parse failure returns the
// input unchanged.
func TitleFromSlug(rawURL string) string {
	slug, ok := LastSegment(rawURL)
	if !ok {
		return rawURL
	}

	words := strings.Fields(strings.ToLower(strings.ReplaceAll(slug, "-", " ")))
	if len(words) == 0 {
		return rawURL
	}
	for i, w := range words {
		if brand, ok := brandWords[w]; ok {
			words[i] = brand
		}
	}
	title := strings.Join(words, " ")
	r, size := utf8.DecodeRuneInString(title)
	return string(unicode.ToUpper(r)) + title[size:]
}

// LastSegment returns the percent-decoded last non-empty path segment of an
// absolute URL with common page extensions removed.
func LastSegment(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", false
	}

	var last string
	for _, seg := range strings.Split(u.EscapedPath(), "/") {
		if seg != "" {
			last = seg
		}
	}
	if last == "" {
		return "", false
	}
	decoded, err := url.PathUnescape(last)
	if err != nil {
		return "", false
	}
	for _, ext := range []string{".html", ".htm", ".php"} {
		decoded = strings.TrimSuffix(decoded, ext)
	}
	return decoded, decoded != ""
}
