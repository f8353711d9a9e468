// Package reply post-processes assistant output into safe, linked markdown:
// it repairs malformed links, enforces the URL policy, promotes topic labels
// to links and appends related content and a source footer.
package reply

import (
	"regexp"
	"strings"

	"sitechat_backend/internal/linker"
	"sitechat_backend/platform/logger"
)

var (
	// mdLinkPattern matches an absolute markdown link.
	mdLinkPattern = regexp.MustCompile(`\[([^\[\]\n]+)\]\((https?://[^\s()]+)\)`)
	// mdAnyLinkPattern matches a markdown link with any target.
	mdAnyLinkPattern = regexp.MustCompile(`\[([^\[\]\n]+)\]\(\s*([^()\s]+)\s*\)`)
	// rawURLPattern matches a bare URL; trailing punctuation is split off by trimURL.
	rawURLPattern = regexp.MustCompile(`https?://[^\s<>()\[\]"'` + "`" + `]+`)
)

// Stage is one string rewrite in the sanitizer pipeline.
type Stage struct {
	Name  string
	Apply func(string) string
}

// Options configures a Pipeline for one tenant.
type Options struct {
	BaseURL  string
	SiteName string
	// Strict drops every URL outside the known set, internal or not. It only
	// takes effect when known URLs were loaded.
	Strict bool
	Logger *logger.Logger
}

// Pipeline is the ordered sanitizer and augmenter for one tenant. It holds no
// mutable state and is safe for concurrent use.
type Pipeline struct {
	resolver *linker.Resolver
	opts     Options
	stages   []Stage
}

// New builds the default pipeline.
func New(resolver *linker.Resolver, opts Options) *Pipeline {
	if resolver == nil {
		resolver = linker.NewResolver(nil, nil, linker.NewKnownURLs(), opts.BaseURL)
	}
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	p := &Pipeline{resolver: resolver, opts: opts}
	p.stages = []Stage{
		{Name: "anchors", Apply: p.normalizeAnchors},
		{Name: "repair", Apply: repairLinks},
		{Name: "punctuation", Apply: normalizePunctuation},
		{Name: "duplicate_urls", Apply: collapseDuplicateURLs},
		{Name: "url_policy", Apply: p.enforceURLPolicy},
		{Name: "label_links", Apply: p.promoteLabels},
		{Name: "orphans", Apply: p.resolveOrphans},
		{Name: "cleanup", Apply: cleanup},
	}
	return p
}

// WithStages returns a copy of p running the given stages instead.
func (p *Pipeline) WithStages(stages ...Stage) *Pipeline {
	cp := *p
	cp.stages = append([]Stage(nil), stages...)
	return &cp
}

// Stages returns the stage list in execution order.
func (p *Pipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// Sanitize runs the rewrite stages over raw model output.
func (p *Pipeline) Sanitize(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	for _, st := range p.stages {
		text = p.run(st, text)
	}
	return text
}

// run applies one stage. A stage that panics leaves the text unchanged.
func (p *Pipeline) run(st Stage, in string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			if p.opts.Logger != nil {
				p.opts.Logger.Warn("reply stage panicked", "stage", st.Name, "panic", r)
			}
			out = in
		}
	}()
	return st.Apply(in)
}

// keepLink reports whether a markdown link to u survives the URL policy.
func (p *Pipeline) keepLink(u string) bool {
	if p.opts.Strict && p.resolver.HasKnownURLs() {
		return p.resolver.URLIsKnown(u)
	}
	return p.resolver.IsInternal(u) || p.resolver.URLIsKnown(u)
}

// trimURL splits trailing sentence punctuation off a matched URL.
func trimURL(m string) (string, string) {
	u := strings.TrimRight(m, ".,;:!?*_")
	return u, m[len(u):]
}

// eachPlain rewrites the parts of s that are outside absolute markdown links.
func eachPlain(s string, fn func(string) string) string {
	locs := mdLinkPattern.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return fn(s)
	}
	var b strings.Builder
	prev := 0
	for _, loc := range locs {
		b.WriteString(fn(s[prev:loc[0]]))
		b.WriteString(s[loc[0]:loc[1]])
		prev = loc[1]
	}
	b.WriteString(fn(s[prev:]))
	return b.String()
}

// linkedURLs returns the targets of every absolute markdown link in s.
func linkedURLs(s string) []string {
	var out []string
	for _, m := range mdLinkPattern.FindAllStringSubmatch(s, -1) {
		out = append(out, m[2])
	}
	return out
}

// containsURL reports whether u appears in s, linked or raw.
func containsURL(s, u string) bool {
	for _, m := range rawURLPattern.FindAllString(s, -1) {
		found, _ := trimURL(m)
		if linker.SameURL(found, u) {
			return true
		}
	}
	return false
}

func markdownLink(label, u string) string {
	return "[" + stripBrackets(label) + "](" + u + ")"
}

func stripBrackets(s string) string {
	return strings.TrimSpace(strings.NewReplacer("[", "", "]", "").Replace(s))
}
