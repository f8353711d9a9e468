package site

import (
	"strings"

	"sitechat_backend/internal/catalog"
	"sitechat_backend/internal/events"
	"sitechat_backend/internal/intent"
	"sitechat_backend/internal/linker"
	"sitechat_backend/internal/tenants"
)

// Snapshot is everything loaded about a tenant's site for one request. Any
// field may be empty.
type Snapshot struct {
	Tenant      tenants.Tenant
	Config      *Config
	SitemapURLs []string
	PostURLs    []string
	LLMS        LLMS
	Products    []catalog.Product
}

// SiteName is the name used in the prompt and the source footer.
func (s *Snapshot) SiteName() string {
	if s.Config != nil && s.Config.Site.Name != "" {
		return s.Config.Site.Name.String()
	}
	if s.Tenant.Name != "" {
		return s.Tenant.Name
	}
	return defaultSiteName
}

// SiteBaseURL is the public base URL, preferring the config's own.
func (s *Snapshot) SiteBaseURL() string {
	if s.Config != nil {
		if u := absolute(s.Tenant.BaseURL, s.Config.Site.BaseURL.String()); u != "" {
			return strings.TrimRight(u, "/")
		}
	}
	return s.Tenant.BaseURL
}

// Pages returns the configured pages as absolute URLs.
func (s *Snapshot) Pages() map[string]string {
	return s.Config.pages(s.Tenant.BaseURL)
}

// Links returns the configured navigation links.
func (s *Snapshot) Links() linker.Links {
	return s.Config.links(s.Tenant.BaseURL)
}

// KnownURLs is the set of URLs confirmed to exist on the site: sitemap and
// post URLs, configured pages and links, and product permalinks.
func (s *Snapshot) KnownURLs(table *linker.Table) linker.KnownURLs {
	known := linker.NewKnownURLs(s.SitemapURLs...)
	for _, u := range s.PostURLs {
		known.Add(u)
	}
	for _, u := range table.URLs() {
		known.Add(u)
	}
	for _, p := range s.Products {
		known.Add(p.URL)
	}
	return known
}

// Resolver binds the link rules to this tenant.
func (s *Snapshot) Resolver(rules *linker.Rules) *linker.Resolver {
	var table *linker.Table
	if rules != nil {
		table = rules.BuildTable(s.Pages(), s.Links())
	}
	return linker.NewResolver(rules, table, s.KnownURLs(table), s.Tenant.BaseURL)
}

// LeadMagnets returns the configured lead magnets typed by c.
func (s *Snapshot) LeadMagnets(c *intent.Classifier) []intent.LeadMagnet {
	return c.NewLeadMagnets(s.Config.leadMagnets(s.Tenant.BaseURL))
}

// PrivacyURL picks the privacy policy link: explicit config fields first,
// then the "integritet" page, then the conventional path.
func (s *Snapshot) PrivacyURL() string {
	base := s.SiteBaseURL()
	if c := s.Config; c != nil {
		for _, v := range []FlexString{c.Privacy, c.PrivacyURL, c.Pages["integritet"]} {
			if u := absolute(base, v.String()); u != "" {
				return u
			}
		}
	}
	return base + privacyPath
}

// RefreshedEvent summarizes a freshly loaded snapshot.
func (s *Snapshot) RefreshedEvent() events.SiteRefreshed {
	return events.SiteRefreshed{
		BaseEvent:   events.NewBaseEvent(),
		TenantID:    s.Tenant.ID,
		HasConfig:   s.Config != nil,
		SitemapURLs: len(s.SitemapURLs),
		PostURLs:    len(s.PostURLs),
		Products:    len(s.Products),
	}
}
