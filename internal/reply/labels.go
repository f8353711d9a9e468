package reply

import (
	"regexp"
	"strings"
)

var (
	// bulletURLLine is "- Title: https://..." or "1. Title https://..." on one line.
	bulletURLLine = regexp.MustCompile(`^([ \t]*(?:[-*•]|\d+[.)])[ \t]+)(.+?)[ \t]*(?:[:-][ \t]*)?(https?://[^\s<>()\[\]"']+)[ \t]*$`)
	// bulletPrefix is a list marker at the start of a line.
	bulletPrefix = regexp.MustCompile(`^[ \t]*(?:[-*•]|\d+[.)])[ \t]+`)
	// loneURLLine is a line holding nothing but a URL.
	loneURLLine = regexp.MustCompile(`^[ \t]*(https?://[^\s<>()\[\]"']+)[ \t]*$`)
	// orphanPattern is a bracketed label; callers only see text outside links.
	orphanPattern = regexp.MustCompile(`\[([^\[\]\n]+)\]`)
)

const (
	maxBulletTitleWords = 8
	maxInlineLabelWords = 4
)

// promoteLabels fuses a label and the raw URL that follows it into one
// markdown link: list items ending in a URL, a label line followed by a line
// holding only a URL, and a topic label written right before a URL.
func (p *Pipeline) promoteLabels(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if fused, ok := p.fuseBulletLine(line); ok {
			out = append(out, fused)
			continue
		}
		if i+1 < len(lines) {
			if fused, ok := p.fuseNextLineURL(line, lines[i+1]); ok {
				out = append(out, fused)
				i++
				continue
			}
		}
		out = append(out, eachPlain(line, p.fuseInline))
	}
	return strings.Join(out, "\n")
}

func (p *Pipeline) fuseBulletLine(line string) (string, bool) {
	m := bulletURLLine.FindStringSubmatch(line)
	if m == nil || strings.Contains(m[2], "](") || strings.Contains(m[2], "://") {
		return "", false
	}
	u, tail := trimURL(m[3])
	title := cleanTitle(m[2])
	if title == "" || len(strings.Fields(title)) > maxBulletTitleWords || !p.keepLink(u) {
		return "", false
	}
	return m[1] + markdownLink(p.displayFor(title, u), u) + tail, true
}

func (p *Pipeline) fuseNextLineURL(line, next string) (string, bool) {
	m := loneURLLine.FindStringSubmatch(next)
	if m == nil || strings.TrimSpace(line) == "" || strings.Contains(line, "](") || strings.Contains(line, "://") {
		return "", false
	}
	u, tail := trimURL(m[1])
	if !p.keepLink(u) {
		return "", false
	}

	prefix := bulletPrefix.FindString(line)
	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	if prefix == "" {
		prefix = indent
	}
	title := cleanTitle(line[len(prefix):])
	if title == "" {
		return "", false
	}
	isBullet := bulletPrefix.MatchString(line)
	if !(isBullet && len(strings.Fields(title)) <= maxBulletTitleWords) && !p.resolver.IsTopicLabel(title) {
		return "", false
	}
	return prefix + markdownLink(p.displayFor(title, u), u) + tail, true
}

// fuseInline links a topic label written directly before a raw URL in
// running text, e.g. "läs om Lokal SEO: https://...".
func (p *Pipeline) fuseInline(seg string) string {
	locs := rawURLPattern.FindAllStringIndex(seg, -1)
	if len(locs) == 0 {
		return seg
	}
	var b strings.Builder
	prev := 0
	for _, loc := range locs {
		u, tail := trimURL(seg[loc[0]:loc[1]])
		before := seg[prev:loc[0]]
		if !p.keepLink(u) {
			b.WriteString(before + u + tail)
			prev = loc[1]
			continue
		}
		head, label, ok := p.trailingTopicLabel(before)
		if !ok {
			b.WriteString(before + u + tail)
			prev = loc[1]
			continue
		}
		b.WriteString(head + markdownLink(p.displayFor(label, u), u) + tail)
		prev = loc[1]
	}
	b.WriteString(seg[prev:])
	return b.String()
}

// trailingTopicLabel finds the longest run of up to maxInlineLabelWords
// words at the end of text that is exactly a topic label. The separator
// between label and URL must be whitespace, optionally with ":" or "-".
func (p *Pipeline) trailingTopicLabel(text string) (head, label string, ok bool) {
	trimmed := strings.TrimRight(text, " \t")
	if len(trimmed) == len(text) {
		return "", "", false
	}
	trimmed = strings.TrimRight(strings.TrimSuffix(strings.TrimSuffix(trimmed, ":"), " -"), " \t")

	words := strings.Fields(trimmed)
	for n := min(maxInlineLabelWords, len(words)); n >= 1; n-- {
		candidate := strings.Join(words[len(words)-n:], " ")
		if !strings.HasSuffix(trimmed, candidate) {
			continue
		}
		clean := cleanTitle(candidate)
		if clean == "" || !p.resolver.IsTopicLabel(clean) {
			continue
		}
		return trimmed[:len(trimmed)-len(candidate)], clean, true
	}
	return "", "", false
}

// displayFor picks the link text for a fused label.
func (p *Pipeline) displayFor(title, u string) string {
	if strings.EqualFold(title, "wordpress") && strings.Contains(strings.ToLower(u), "webbplatsunderhall") {
		return "WordPress-underhåll"
	}
	return title
}

func cleanTitle(s string) string {
	s = strings.NewReplacer("**", "", "__", "", "[", "", "]", "").Replace(s)
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ":-"))
}

// resolveOrphans links bracketed labels that resolve to a known URL and
// strips the brackets from everything else outside valid links.
func (p *Pipeline) resolveOrphans(s string) string {
	return eachPlain(s, func(seg string) string {
		locs := orphanPattern.FindAllStringSubmatchIndex(seg, -1)
		var b strings.Builder
		prev := 0
		for _, loc := range locs {
			b.WriteString(dropBrackets(seg[prev:loc[0]]))
			label := seg[loc[2]:loc[3]]
			if entry, ok := p.resolver.Link(label); ok {
				b.WriteString(markdownLink(entry.DisplayLabel, entry.URL))
			} else {
				b.WriteString(dropBrackets(label))
			}
			prev = loc[1]
		}
		b.WriteString(dropBrackets(seg[prev:]))
		return b.String()
	})
}

func dropBrackets(s string) string {
	if !strings.ContainsAny(s, "[]") {
		return s
	}
	return strings.NewReplacer("[", "", "]", "").Replace(s)
}
