package site

import (
	"encoding/xml"
	"net/url"
	"strings"

	"sitechat_backend/internal/linker"
)

// sitemapDoc decodes both a <urlset> and a <sitemapindex>; the root element
// name is not checked.
type sitemapDoc struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// parseSitemap returns the page URLs and the child sitemap URLs of a
// sitemap document. Malformed XML yields nothing.
func parseSitemap(body string) (pages, children []string) {
	var doc sitemapDoc
	if err := xml.Unmarshal([]byte(body), &doc); err != nil {
		return nil, nil
	}
	for _, u := range doc.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			pages = append(pages, loc)
		}
	}
	for _, s := range doc.Sitemaps {
		if loc := strings.TrimSpace(s.Loc); loc != "" {
			children = append(children, loc)
		}
	}
	return pages, children
}

// filterHost keeps URLs on host or one of its subdomains, dropping
// duplicates and preserving order.
func filterHost(urls []string, host string) []string {
	if host == "" {
		return nil
	}
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if !linker.OnHost(linker.HostOf(u.String()), host) {
			continue
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		out = append(out, raw)
	}
	return out
}

func isPostSitemap(loc string) bool {
	return strings.Contains(strings.ToLower(loc), "post-sitemap")
}
