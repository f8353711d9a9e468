package linker

import (
	"net/url"
	"strings"
)

// KnownURLs is the set of absolute URLs that are safe to emit as links.
// Membership ignores scheme case, a leading "www.", a trailing slash and
// fragments.
type KnownURLs struct {
	set map[string]struct{}
}

// NewKnownURLs builds a set from the given URLs, skipping anything that is
// not an absolute http(s) URL.
func NewKnownURLs(urls ...string) KnownURLs {
	k := KnownURLs{set: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		k.Add(u)
	}
	return k
}

// Add inserts a URL.
func (k *KnownURLs) Add(raw string) {
	key, ok := NormalizeURL(raw)
	if !ok {
		return
	}
	if k.set == nil {
		k.set = make(map[string]struct{})
	}
	k.set[key] = struct{}{}
}

// Contains reports whether raw is in the set.
func (k KnownURLs) Contains(raw string) bool {
	key, ok := NormalizeURL(raw)
	if !ok {
		return false
	}
	_, found := k.set[key]
	return found
}

// Len returns the number of URLs in the set.
func (k KnownURLs) Len() int { return len(k.set) }

// NormalizeURL returns the comparison key for an absolute http(s) URL.
func NormalizeURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	path := strings.TrimRight(u.EscapedPath(), "/")
	key := HostOf(raw) + path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key, true
}

// HostOf returns the lowercased host of raw without port or "www." prefix,
// or "" when raw is not an absolute URL.
func HostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// OnHost reports whether h is host or one of its subdomains. Both are
// expected in HostOf form.
func OnHost(h, host string) bool {
	return host != "" && (h == host || strings.HasSuffix(h, "."+host))
}

// SameURL reports whether two URLs are equal under the KnownURLs rules.
func SameURL(a, b string) bool {
	ka, okA := NormalizeURL(a)
	kb, okB := NormalizeURL(b)
	return okA && okB && ka == kb
}
