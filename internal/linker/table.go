package linker

import (
	"sort"
	"strings"

	"sitechat_backend/internal/textutil"
)

// LinkEntry maps a canonical topic to the page it links to.
type LinkEntry struct {
	Key          string
	DisplayLabel string
	URL          string
}

// Table is an ordered link table. The first entry for a key wins.
type Table struct {
	entries []LinkEntry
	byKey   map[string]int
}

// NewTable builds a table from entries, dropping blanks and later duplicates.
func NewTable(entries ...LinkEntry) *Table {
	t := &Table{byKey: make(map[string]int, len(entries))}
	for _, e := range entries {
		t.add(e)
	}
	return t
}

func (t *Table) add(e LinkEntry) {
	e.Key = textutil.NormalizeLabel(e.Key)
	e.URL = strings.TrimSpace(e.URL)
	if e.Key == "" || e.URL == "" {
		return
	}
	if _, dup := t.byKey[e.Key]; dup {
		return
	}
	t.byKey[e.Key] = len(t.entries)
	t.entries = append(t.entries, e)
}

// Lookup returns the entry for a topic key.
func (t *Table) Lookup(key string) (LinkEntry, bool) {
	if t == nil {
		return LinkEntry{}, false
	}
	i, ok := t.byKey[textutil.NormalizeLabel(key)]
	if !ok {
		return LinkEntry{}, false
	}
	return t.entries[i], true
}

// Entries returns the entries in table order.
func (t *Table) Entries() []LinkEntry {
	if t == nil {
		return nil
	}
	out := make([]LinkEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// URLs returns every URL in the table.
func (t *Table) URLs() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.URL)
	}
	return out
}

// Links are the well-known navigation links a site config may declare.
type Links struct {
	Services string
	Pricing  string
	Blog     string
	News     string
	Contact  string
}

func (l Links) get(name string) string {
	switch name {
	case "services":
		return l.Services
	case "pricing":
		return l.Pricing
	case "blog":
		return l.Blog
	case "news":
		return l.News
	case "contact":
		return l.Contact
	}
	return ""
}

// BuildTable assembles a tenant's link table: one entry per topic rule that
// has a configured page or link, followed by any remaining configured pages
// in key order, keyed by their page name.
func (r *Rules) BuildTable(pages map[string]string, links Links) *Table {
	t := NewTable()
	used := make(map[string]bool)
	for _, rule := range r.topics {
		for _, name := range rule.pages {
			used[name] = true
		}
		if u := rule.url(pages, links); u != "" {
			t.add(LinkEntry{Key: rule.key, DisplayLabel: rule.display, URL: u})
		}
	}

	extra := make([]string, 0, len(pages))
	for name := range pages {
		if !used[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		key := strings.ReplaceAll(name, "_", " ")
		t.add(LinkEntry{Key: key, DisplayLabel: textutil.TitleFromSlug(pages[name]), URL: pages[name]})
	}
	return t
}
