package site

import (
	"encoding/json"
	"net/url"
	"strings"

	"sitechat_backend/internal/intent"
	"sitechat_backend/internal/linker"
)

const (
	configPath   = "/wp-json/wbs-ai/v1/config"
	llmsPath     = "/wp-json/wbs-ai/v1/llms"
	llmsFullPath = "/wp-json/wbs-ai/v1/llms-full"
	llmsSVPath   = "/wp-json/wbs-ai/v1/llms-full-sv"
	productsPath = "/wp-json/wc/store/v1/products?per_page=100"
	indexPath    = "/sitemap_index.xml"
	postsPath    = "/post-sitemap.xml"
	pagesPath    = "/page-sitemap.xml"
	privacyPath  = "/integritetspolicy/"

	defaultSiteName = "företaget"
)

// FlexString decodes a JSON string and treats any other JSON value as
// absent, so one malformed field does not invalidate the whole document.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*f = ""
		return nil
	}
	*f = FlexString(strings.TrimSpace(s))
	return nil
}

func (f FlexString) String() string { return string(f) }

// productsField accepts either "products": "<endpoint>" or
// "products": {"endpoint": "<endpoint>"}.
type productsField struct {
	Endpoint FlexString
}

func (p *productsField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.Endpoint = FlexString(strings.TrimSpace(s))
		return nil
	}
	var obj struct {
		Endpoint FlexString `json:"endpoint"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		p.Endpoint = obj.Endpoint
	}
	return nil
}

// Config is the tenant's remote site configuration document. Every field is
// optional.
type Config struct {
	Site struct {
		Name    FlexString `json:"name"`
		BaseURL FlexString `json:"base_url"`
	} `json:"site"`
	Pages map[string]FlexString `json:"pages"`
	Links struct {
		Services FlexString `json:"services"`
		Pricing  FlexString `json:"pricing"`
		Blog     FlexString `json:"blog"`
		News     FlexString `json:"news"`
		Contact  FlexString `json:"contact"`
	} `json:"links"`
	LLMS struct {
		Index  FlexString `json:"index"`
		Full   FlexString `json:"full"`
		FullSV FlexString `json:"full_sv"`
	} `json:"llms"`
	Sitemap struct {
		Index     FlexString   `json:"index"`
		Fallbacks []FlexString `json:"fallbacks"`
	} `json:"sitemap"`
	LeadMagnets []struct {
		Key   FlexString `json:"key"`
		URL   FlexString `json:"url"`
		Label FlexString `json:"label"`
	} `json:"lead_magnets"`
	Privacy          FlexString    `json:"privacy"`
	PrivacyURL       FlexString    `json:"privacy_url"`
	Products         productsField `json:"products"`
	ProductsEndpoint FlexString    `json:"products_endpoint"`
}

// endpoints are the resolved document locations for one tenant.
type endpoints struct {
	base      string
	index     string
	fallbacks []string
	llmsIndex string
	llmsFull  string
	llmsSV    string
	products  string
}

// resolveEndpoints applies the default path conventions to whatever the
// config leaves out. cfg may be nil.
func resolveEndpoints(base string, cfg *Config) endpoints {
	e := endpoints{
		base:      base,
		index:     base + indexPath,
		llmsIndex: base + llmsPath,
		llmsFull:  base + llmsFullPath,
		llmsSV:    base + llmsSVPath,
		products:  base + productsPath,
	}
	if cfg == nil {
		return e
	}
	pick := func(dst *string, v FlexString) {
		if u := absolute(base, v.String()); u != "" {
			*dst = u
		}
	}
	pick(&e.index, cfg.Sitemap.Index)
	pick(&e.llmsIndex, cfg.LLMS.Index)
	pick(&e.llmsFull, cfg.LLMS.Full)
	pick(&e.llmsSV, cfg.LLMS.FullSV)
	pick(&e.products, cfg.ProductsEndpoint)
	pick(&e.products, cfg.Products.Endpoint)
	for _, f := range cfg.Sitemap.Fallbacks {
		if u := absolute(base, f.String()); u != "" {
			e.fallbacks = append(e.fallbacks, u)
		}
	}
	return e
}

// sitemapFallbacks are used when the sitemap index cannot be fetched.
func (e endpoints) sitemapFallbacks() []string {
	if len(e.fallbacks) > 0 {
		return e.fallbacks
	}
	return []string{e.base + postsPath, e.base + pagesPath}
}

// postFallback is the post sitemap used when the index lists none.
func (e endpoints) postFallback() string {
	for _, f := range e.fallbacks {
		if isPostSitemap(f) {
			return f
		}
	}
	return e.base + postsPath
}

// absolute resolves ref against base. Only http(s) results are returned.
func absolute(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base + "/")
	if err != nil {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	u := b.ResolveReference(r)
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// pages returns the configured pages as absolute URLs.
func (c *Config) pages(base string) map[string]string {
	out := make(map[string]string)
	if c == nil {
		return out
	}
	for name, v := range c.Pages {
		if u := absolute(base, v.String()); u != "" {
			out[strings.TrimSpace(name)] = u
		}
	}
	return out
}

func (c *Config) links(base string) linker.Links {
	if c == nil {
		return linker.Links{}
	}
	return linker.Links{
		Services: absolute(base, c.Links.Services.String()),
		Pricing:  absolute(base, c.Links.Pricing.String()),
		Blog:     absolute(base, c.Links.Blog.String()),
		News:     absolute(base, c.Links.News.String()),
		Contact:  absolute(base, c.Links.Contact.String()),
	}
}

func (c *Config) leadMagnets(base string) []intent.LeadMagnet {
	if c == nil {
		return nil
	}
	out := make([]intent.LeadMagnet, 0, len(c.LeadMagnets))
	for _, m := range c.LeadMagnets {
		out = append(out, intent.LeadMagnet{
			Key:   m.Key.String(),
			URL:   absolute(base, m.URL.String()),
			Label: m.Label.String(),
		})
	}
	return out
}
