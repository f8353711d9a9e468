package reply

import (
	"net/url"
	"regexp"
	"strings"

	"sitechat_backend/internal/linker"
	"sitechat_backend/internal/textutil"
	"sitechat_backend/platform/sanitize"
)

var (
	anchorPattern = regexp.MustCompile(`(?is)<a\b[^>]*?\bhref\s*=\s*["']([^"']*)["'][^>]*>(.*?)</a\s*>`)
	bareDomain    = regexp.MustCompile(`(?i)^(www\.)?[a-z0-9-]+(\.[a-z0-9-]+)*\.[a-z]{2,12}(/\S*)?$`)
	pageFile      = regexp.MustCompile(`(?i)\.(html?|php|aspx?)$`)

	nestedLabel   = regexp.MustCompile(`\[([^\[\]\n]*)\[([^\[\]\n]+)\]([^\[\]\n]*)\]\((https?://[^\s()]+)\)`)
	unclosedLink  = regexp.MustCompile(`\[([^\[\]\n]+)\]\((https?://[^\s()]+)(\s|$)`)
	doubleWrapped = regexp.MustCompile(`\[\[([^\[\]\n]+)\]\((https?://[^\s()]+)\)\]\((https?://[^\s()]+)\)`)
	spacedLink    = regexp.MustCompile(`\[([^\[\]\n]+)\][ \t]+\((https?://[^\s()]+)\)`)
	parenLabelURL = regexp.MustCompile(`\(([^()\[\]\n]+)\)[ \t]*\((https?://[^\s()]+)\)`)
	parenURL      = regexp.MustCompile(`\((https?://[^\s()]+)\)`)

	duplicateURL = regexp.MustCompile(`\[([^\[\]\n]+)\]\((https?://[^\s()]+)\)[ \t]*(?:\n[ \t]*)?(https?://[^\s<>()\[\]"']+)`)

	emptyParens = regexp.MustCompile(`\(\s*\)`)
	innerSpaces = regexp.MustCompile(`(\S) {2,}`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
)

// normalizeAnchors rewrites HTML anchors to markdown and resolves relative
// link targets against the tenant base URL.
func (p *Pipeline) normalizeAnchors(s string) string {
	if strings.Contains(s, "<a") || strings.Contains(s, "<A") {
		s = anchorPattern.ReplaceAllStringFunc(s, func(m string) string {
			sub := anchorPattern.FindStringSubmatch(m)
			label := stripBrackets(sanitize.StripHTML(sub[2]))
			href, ok := p.resolveHref(sub[1])
			switch {
			case !ok:
				return label
			case label == "":
				return href
			}
			return markdownLink(label, href)
		})
	}
	return mdAnyLinkPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := mdAnyLinkPattern.FindStringSubmatch(m)
		if isAbsoluteHTTP(sub[2]) {
			return m
		}
		href, ok := p.resolveHref(sub[2])
		if !ok {
			return m
		}
		return markdownLink(sub[1], href)
	})
}

// resolveHref turns an href into an absolute http(s) URL. Fragments,
// mailto/tel links and relative hrefs without a base URL do not resolve.
func (p *Pipeline) resolveHref(href string) (string, bool) {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	switch {
	case href == "", strings.HasPrefix(href, "#"),
		strings.HasPrefix(lower, "mailto:"), strings.HasPrefix(lower, "tel:"), strings.HasPrefix(lower, "javascript:"):
		return "", false
	case isAbsoluteHTTP(href):
		return href, true
	case strings.HasPrefix(href, "//"):
		return "https:" + href, true
	}

	host, _, _ := strings.Cut(href, "/")
	if bareDomain.MatchString(href) && !pageFile.MatchString(host) {
		return "https://" + href, true
	}

	if p.opts.BaseURL == "" {
		return "", false
	}
	base, err := url.Parse(p.opts.BaseURL + "/")
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

func isAbsoluteHTTP(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// repairLinks fixes the recurring malformed link shapes, in order:
// [[L](u)](u), "[A [B]](u)", "[L](u" without its closing paren, "[L] (u)",
// "(L) (u)" and a bare "(u)".
func repairLinks(s string) string {
	s = doubleWrapped.ReplaceAllString(s, "[$1]($2)")
	s = nestedLabel.ReplaceAllString(s, "[$1$2$3]($4)")
	s = replaceSubmatches(s, unclosedLink, func(s string, loc []int) (string, bool) {
		u, tail := trimURL(s[loc[4]:loc[5]])
		return markdownLink(s[loc[2]:loc[3]], u) + tail + s[loc[6]:loc[7]], true
	})
	s = spacedLink.ReplaceAllString(s, "[$1]($2)")

	s = replaceSubmatches(s, parenLabelURL, func(s string, loc []int) (string, bool) {
		if loc[0] > 0 && s[loc[0]-1] == ']' {
			return "", false
		}
		label := strings.TrimSpace(s[loc[2]:loc[3]])
		if label == "" || isAbsoluteHTTP(label) {
			return "", false
		}
		return markdownLink(label, s[loc[4]:loc[5]]), true
	})

	return replaceSubmatches(s, parenURL, func(s string, loc []int) (string, bool) {
		if loc[0] > 0 && s[loc[0]-1] == ']' {
			return "", false
		}
		return s[loc[2]:loc[3]], true
	})
}

// replaceSubmatches replaces each match of re for which fn returns true.
func replaceSubmatches(s string, re *regexp.Regexp, fn func(s string, loc []int) (string, bool)) string {
	locs := re.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 {
		return s
	}
	var b strings.Builder
	prev := 0
	for _, loc := range locs {
		repl, ok := fn(s, loc)
		if !ok {
			continue
		}
		b.WriteString(s[prev:loc[0]])
		b.WriteString(repl)
		prev = loc[1]
	}
	b.WriteString(s[prev:])
	return b.String()
}

func normalizePunctuation(s string) string {
	return textutil.NormalizePunctuation(s)
}

// collapseDuplicateURLs drops a raw URL that repeats the target of the link
// right before it, on the same or the next line.
func collapseDuplicateURLs(s string) string {
	return duplicateURL.ReplaceAllStringFunc(s, func(m string) string {
		sub := duplicateURL.FindStringSubmatch(m)
		dup, tail := trimURL(sub[3])
		if !linker.SameURL(sub[2], dup) {
			return m
		}
		return "[" + sub[1] + "](" + sub[2] + ")" + tail
	})
}

// enforceURLPolicy unwraps markdown links the policy rejects and removes
// rejected raw URLs. Raw URLs that repeat a kept link target stay, as do
// internal ones, so label promotion can still attach to them.
func (p *Pipeline) enforceURLPolicy(s string) string {
	var wrapped []string
	s = mdAnyLinkPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := mdAnyLinkPattern.FindStringSubmatch(m)
		if !isAbsoluteHTTP(sub[2]) || !p.keepLink(sub[2]) {
			return sub[1]
		}
		wrapped = append(wrapped, sub[2])
		return m
	})

	return eachPlain(s, func(seg string) string {
		return replaceRawURLs(seg, func(u string) (string, bool) {
			for _, w := range wrapped {
				if linker.SameURL(w, u) {
					return u, true
				}
			}
			if p.keepLink(u) {
				return u, true
			}
			return "", false
		})
	})
}

// replaceRawURLs calls fn for every raw URL in seg. Rejected URLs are removed
// together with one preceding space; trailing punctuation is preserved.
func replaceRawURLs(seg string, fn func(u string) (string, bool)) string {
	locs := rawURLPattern.FindAllStringIndex(seg, -1)
	if len(locs) == 0 {
		return seg
	}
	var b strings.Builder
	prev := 0
	for _, loc := range locs {
		u, tail := trimURL(seg[loc[0]:loc[1]])
		before := seg[prev:loc[0]]
		repl, keep := fn(u)
		if !keep {
			b.WriteString(strings.TrimSuffix(before, " "))
			b.WriteString(tail)
		} else {
			b.WriteString(before)
			b.WriteString(repl)
			b.WriteString(tail)
		}
		prev = loc[1]
	}
	b.WriteString(seg[prev:])
	return b.String()
}

// cleanup removes empty parentheses and the whitespace left behind by
// earlier removals.
func cleanup(s string) string {
	s = emptyParens.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(innerSpaces.ReplaceAllString(line, "$1 "), " \t")
	}
	s = blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}
