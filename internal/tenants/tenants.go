// Package tenants resolves tenant identifiers to the websites they serve.
// The registry is built once at startup and passed to the modules that
// need it; it is never mutated afterwards.
package tenants

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"sitechat_backend/platform/apperr"

	"gopkg.in/yaml.v3"
)

// Tenant is one customer website.
type Tenant struct {
	ID      string `yaml:"id"`
	BaseURL string `yaml:"base_url"`
	// Name overrides the site name when the remote config has none.
	Name string `yaml:"name"`
	// Origins are extra browser origins allowed to call the API for this
	// tenant, in addition to the base URL host and its subdomains.
	Origins []string `yaml:"origins"`
}

// Host returns the lowercased base URL host without a leading "www.".
func (t Tenant) Host() string {
	return hostOf(t.BaseURL)
}

// Registry is an immutable set of tenants.
type Registry struct {
	byID  map[string]Tenant
	order []string
}

type registryFile struct {
	Tenants []Tenant `yaml:"tenants"`
}

// New builds a registry. IDs must be unique and base URLs absolute.
func New(list ...Tenant) (*Registry, error) {
	r := &Registry{byID: make(map[string]Tenant, len(list))}
	for _, t := range list {
		t.ID = strings.TrimSpace(t.ID)
		t.BaseURL = strings.TrimRight(strings.TrimSpace(t.BaseURL), "/")
		if t.ID == "" {
			return nil, fmt.Errorf("tenant without id")
		}
		if _, dup := r.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate tenant %q", t.ID)
		}
		u, err := url.Parse(t.BaseURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("tenant %q: base_url must be an absolute http(s) URL", t.ID)
		}
		r.byID[t.ID] = t
		r.order = append(r.order, t.ID)
	}
	return r, nil
}

// Parse reads a YAML document of the form:
//
//	tenants:
//	  - id: acme
//	    base_url: https://acme.se
func Parse(doc []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(doc, &f); err != nil {
		return nil, fmt.Errorf("parse tenants: %w", err)
	}
	return New(f.Tenants...)
}

// ParseInline reads "id=https://site,id2=https://other".
func ParseInline(s string) (*Registry, error) {
	var list []Tenant
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, base, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("tenant entry %q: expected id=url", part)
		}
		list = append(list, Tenant{ID: id, BaseURL: base})
	}
	return New(list...)
}

// Load builds the registry from a YAML file, an inline list, or both. Inline
// entries are appended after the file's.
func Load(file, inline string) (*Registry, error) {
	var list []Tenant
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read tenants file: %w", err)
		}
		var f registryFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse tenants file: %w", err)
		}
		list = append(list, f.Tenants...)
	}
	if inline != "" {
		r, err := ParseInline(inline)
		if err != nil {
			return nil, err
		}
		list = append(list, r.All()...)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no tenants configured")
	}
	return New(list...)
}

// Get returns the tenant with the given id or an UnknownTenant error.
func (r *Registry) Get(id string) (Tenant, error) {
	t, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return Tenant{}, apperr.UnknownTenant(id)
	}
	return t, nil
}

// All returns every tenant in registration order.
func (r *Registry) All() []Tenant {
	out := make([]Tenant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// IDs returns the sorted tenant ids.
func (r *Registry) IDs() []string {
	ids := append([]string(nil), r.order...)
	sort.Strings(ids)
	return ids
}

// AllowsOrigin reports whether a browser origin belongs to any tenant: its
// host equals a tenant host or is a subdomain of one, or it is listed in the
// tenant's extra origins.
func (r *Registry) AllowsOrigin(origin string) bool {
	host := hostOf(origin)
	if host == "" {
		return false
	}
	for _, t := range r.byID {
		th := t.Host()
		if th != "" && (host == th || strings.HasSuffix(host, "."+th)) {
			return true
		}
		for _, o := range t.Origins {
			if strings.EqualFold(strings.TrimRight(o, "/"), strings.TrimRight(origin, "/")) {
				return true
			}
		}
	}
	return false
}

func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
