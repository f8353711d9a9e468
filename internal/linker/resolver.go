// Package linker resolves topic labels in assistant replies to the tenant's
// own pages and decides which URLs are safe to emit.
package linker

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"

	"sitechat_backend/internal/textutil"
)

//go:embed topics.yaml
var defaultTopics []byte

type topicFile struct {
	Topics []struct {
		Key     string   `yaml:"key"`
		Display string   `yaml:"display"`
		Pattern string   `yaml:"pattern"`
		Pages   []string `yaml:"pages"`
		Links   []string `yaml:"links"`
	} `yaml:"topics"`
	ServiceSuffixes []string `yaml:"service_suffixes"`
}

type topicRule struct {
	key     string
	display string
	re      *regexp2.Regexp
	pages   []string
	links   []string
}

func (r topicRule) url(pages map[string]string, links Links) string {
	for _, name := range r.pages {
		if u := strings.TrimSpace(pages[name]); u != "" {
			return u
		}
	}
	for _, name := range r.links {
		if u := strings.TrimSpace(links.get(name)); u != "" {
			return u
		}
	}
	return ""
}

func (r topicRule) match(s string) (string, bool) {
	m, err := r.re.FindStringMatch(s)
	if err != nil || m == nil {
		return "", false
	}
	return m.String(), true
}

// Rules is the ordered topic rule set. It is immutable and safe to share.
type Rules struct {
	topics   []topicRule
	suffixes []string
}

// DefaultRules compiles the built-in topic table.
func DefaultRules() (*Rules, error) {
	return ParseRules(defaultTopics)
}

// MustDefaultRules panics if the built-in table does not compile.
func MustDefaultRules() *Rules {
	r, err := DefaultRules()
	if err != nil {
		panic(err)
	}
	return r
}

// ParseRules compiles a YAML topic document.
func ParseRules(doc []byte) (*Rules, error) {
	var f topicFile
	if err := yaml.Unmarshal(doc, &f); err != nil {
		return nil, fmt.Errorf("parse topic rules: %w", err)
	}
	rules := &Rules{}
	for i, t := range f.Topics {
		if t.Key == "" || t.Pattern == "" {
			return nil, fmt.Errorf("topic rule %d: key and pattern are required", i)
		}
		re, err := regexp2.Compile(t.Pattern, regexp2.IgnoreCase)
		if err != nil {
			return nil, fmt.Errorf("topic %q: %w", t.Key, err)
		}
		re.MatchTimeout = 50 * time.Millisecond
		display := t.Display
		if display == "" {
			display = t.Key
		}
		rules.topics = append(rules.topics, topicRule{
			key:     textutil.NormalizeLabel(t.Key),
			display: display,
			re:      re,
			pages:   t.Pages,
			links:   t.Links,
		})
	}
	for _, s := range f.ServiceSuffixes {
		if s = textutil.NormalizeLabel(s); s != "" {
			rules.suffixes = append(rules.suffixes, s)
		}
	}
	return rules, nil
}

// Resolver resolves labels against one tenant's link table and known URLs.
type Resolver struct {
	rules *Rules
	table *Table
	known KnownURLs
	host  string
}

// NewResolver binds rules to a tenant. baseURL determines which links count
// as internal.
func NewResolver(rules *Rules, table *Table, known KnownURLs, baseURL string) *Resolver {
	if table == nil {
		table = NewTable()
	}
	return &Resolver{rules: rules, table: table, known: known, host: HostOf(baseURL)}
}

// Table returns the tenant's link table.
func (r *Resolver) Table() *Table { return r.table }

// URLIsKnown reports whether u may be emitted as a link.
func (r *Resolver) URLIsKnown(u string) bool { return r.known.Contains(u) }

// HasKnownURLs reports whether any known URLs were loaded.
func (r *Resolver) HasKnownURLs() bool { return r.known.Len() > 0 }

// IsInternal reports whether u points at the tenant's host or a subdomain.
func (r *Resolver) IsInternal(u string) bool {
	return OnHost(HostOf(u), r.host)
}

// Topic returns the topic rule key a label matches, without consulting the
// link table.
func (r *Resolver) Topic(label string) (string, bool) {
	norm := textutil.NormalizeLabel(label)
	if norm == "" || r.rules == nil {
		return "", false
	}
	for _, rule := range r.rules.topics {
		if _, ok := rule.match(norm); ok {
			return rule.key, true
		}
	}
	return "", false
}

// IsTopicLabel reports whether label is exactly a topic name, optionally
// with a services suffix, rather than prose that mentions one.
func (r *Resolver) IsTopicLabel(label string) bool {
	norm := textutil.NormalizeLabel(label)
	if norm == "" || r.rules == nil {
		return false
	}
	base, _ := r.rules.splitSuffix(norm)
	for _, rule := range r.rules.topics {
		if whole, ok := rule.match(base); ok {
			return whole == base
		}
	}
	return false
}

// ResolveLabel maps a raw label to a link table entry. The first matching
// topic rule decides; if the table has no entry for it the label is
// unresolved. Labels that are exactly a topic name (optionally with a
// services suffix) get the canonical display form, other labels keep their
// own wording. Configured pages outside the rule set match only on their
// exact key.
func (r *Resolver) ResolveLabel(raw string) (LinkEntry, bool) {
	norm := textutil.NormalizeLabel(raw)
	if norm == "" {
		return LinkEntry{}, false
	}
	clean := cleanLabel(raw)

	if r.rules != nil {
		for _, rule := range r.rules.topics {
			if _, ok := rule.match(norm); !ok {
				continue
			}
			entry, ok := r.table.Lookup(rule.key)
			if !ok {
				return LinkEntry{}, false
			}
			base, suffix := r.rules.splitSuffix(norm)
			if whole, ok := rule.match(base); ok && whole == base {
				entry.DisplayLabel = rule.display
				if suffix != "" {
					entry.DisplayLabel += "-" + suffix
				}
			} else {
				entry.DisplayLabel = clean
			}
			return entry, true
		}
	}

	if entry, ok := r.table.Lookup(norm); ok {
		entry.DisplayLabel = clean
		return entry, true
	}
	return LinkEntry{}, false
}

// Link resolves a label and additionally requires its URL to be known.
func (r *Resolver) Link(raw string) (LinkEntry, bool) {
	entry, ok := r.ResolveLabel(raw)
	if !ok || !r.URLIsKnown(entry.URL) {
		return LinkEntry{}, false
	}
	return entry, true
}

func (r *Rules) splitSuffix(norm string) (string, string) {
	for _, s := range r.suffixes {
		for _, sep := range []string{"-", " "} {
			if base, ok := strings.CutSuffix(norm, sep+s); ok && strings.TrimSpace(base) != "" {
				return strings.TrimSpace(base), s
			}
		}
	}
	return norm, ""
}

func cleanLabel(raw string) string {
	return strings.Join(strings.Fields(textutil.NormalizePunctuation(raw)), " ")
}
