// Package site loads a tenant's remote documents (site config, sitemaps,
// the LLMS text bundle and the product list) through the cache. Every
// loader is fail-soft: a fetch or cache failure yields an empty value and
// a log line, never an error.
package site

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sitechat_backend/internal/catalog"
	"sitechat_backend/internal/tenants"
	"sitechat_backend/platform/cache"
	"sitechat_backend/platform/logger"
	"sitechat_backend/platform/metrics"
)

const (
	keyConfig   = "site:config"
	keySitemap  = "sitemap:urls"
	keyPosts    = "sitemap:posts"
	keyLLMS     = "llms:index"
	keyLLMSFull = "llms:full"
	keyLLMSSV   = "llms:full_sv"
	keyProducts = "products"

	// childSitemapConcurrency bounds parallel child sitemap fetches.
	childSitemapConcurrency = 4
)

// TTLs holds the cache lifetime of each document kind.
type TTLs struct {
	Config   time.Duration
	Sitemap  time.Duration
	LLMS     time.Duration
	Products time.Duration
}

// DefaultTTLs are used for any zero field.
var DefaultTTLs = TTLs{
	Config:   5 * time.Minute,
	Sitemap:  24 * time.Hour,
	LLMS:     12 * time.Hour,
	Products: 6 * time.Hour,
}

// LLMS is the tenant's machine-readable site summary.
type LLMS struct {
	Index  string
	Full   string
	FullSV string
}

// Loader is the cache-aside document loader. It is safe for concurrent use.
type Loader struct {
	fetch Fetcher
	cache *cache.Soft
	ttl   TTLs
	log   *logger.Logger
}

// NewLoader creates a loader. cache may be nil to always fetch.
func NewLoader(fetch Fetcher, c *cache.Soft, ttl TTLs, log *logger.Logger) *Loader {
	if ttl.Config <= 0 {
		ttl.Config = DefaultTTLs.Config
	}
	if ttl.Sitemap <= 0 {
		ttl.Sitemap = DefaultTTLs.Sitemap
	}
	if ttl.LLMS <= 0 {
		ttl.LLMS = DefaultTTLs.LLMS
	}
	if ttl.Products <= 0 {
		ttl.Products = DefaultTTLs.Products
	}
	return &Loader{fetch: fetch, cache: c, ttl: ttl, log: log}
}

// Keys returns every cache key the loader writes for a tenant.
func Keys(tenantID string) []string {
	suffixes := []string{keyConfig, keySitemap, keyPosts, keyLLMS, keyLLMSFull, keyLLMSSV, keyProducts}
	out := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		out = append(out, cache.Key(tenantID, s))
	}
	return out
}

// Invalidate drops a tenant's cached documents.
func (l *Loader) Invalidate(ctx context.Context, tenantID string) {
	l.cache.Delete(ctx, Keys(tenantID)...)
}

// cacheAside returns the cached value under key or calls load. load reports
// whether its result should be written back.
func cacheAside[T any](ctx context.Context, l *Loader, kind, key string, ttl time.Duration, load func(context.Context) (T, bool)) T {
	if raw, ok := l.cache.Get(ctx, key); ok {
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			metrics.DocumentFetches.WithLabelValues(kind, "cache").Inc()
			return v
		}
		if l.log != nil {
			l.log.Debug("discarding malformed cache entry", "key", key)
		}
	}

	v, ok := load(ctx)
	if !ok {
		metrics.DocumentFetches.WithLabelValues(kind, "failed").Inc()
		return v
	}
	metrics.DocumentFetches.WithLabelValues(kind, "remote").Inc()
	if data, err := json.Marshal(v); err == nil {
		l.cache.Set(ctx, key, string(data), ttl)
	}
	return v
}

func (l *Loader) fetchFailed(url string, err error) {
	if l.log != nil {
		l.log.FetchFailed(url, err)
	}
}

// Config returns the tenant's site config, or nil when it is unavailable.
func (l *Loader) Config(ctx context.Context, t tenants.Tenant) *Config {
	url := t.BaseURL + configPath
	raw := cacheAside(ctx, l, "config", cache.Key(t.ID, keyConfig), l.ttl.Config, func(ctx context.Context) (json.RawMessage, bool) {
		body, err := l.fetch.Text(ctx, url)
		if err != nil {
			l.fetchFailed(url, err)
			return nil, false
		}
		var probe Config
		if err := json.Unmarshal([]byte(body), &probe); err != nil {
			l.fetchFailed(url, err)
			return nil, false
		}
		return json.RawMessage(body), true
	})
	if len(raw) == 0 {
		return nil
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil
	}
	return &cfg
}

// SitemapURLs returns every page URL on the tenant's host (or subdomains)
// listed by the sitemap index and its child sitemaps. When the index
// cannot be fetched the fallback sitemaps are read instead.
func (l *Loader) SitemapURLs(ctx context.Context, t tenants.Tenant, cfg *Config) []string {
	ep := resolveEndpoints(t.BaseURL, cfg)
	return cacheAside(ctx, l, "sitemap", cache.Key(t.ID, keySitemap), l.ttl.Sitemap, func(ctx context.Context) ([]string, bool) {
		var sources []string
		body, err := l.fetch.Text(ctx, ep.index)
		if err != nil {
			l.fetchFailed(ep.index, err)
			sources = ep.sitemapFallbacks()
		} else {
			pages, children := parseSitemap(body)
			sources = children
			if len(children) == 0 && len(pages) > 0 {
				urls := filterHost(pages, t.Host())
				return urls, len(urls) > 0
			}
		}
		urls := filterHost(l.readSitemaps(ctx, sources), t.Host())
		return urls, len(urls) > 0
	})
}

// PostURLs returns the URLs listed in the tenant's post sitemaps.
func (l *Loader) PostURLs(ctx context.Context, t tenants.Tenant, cfg *Config) []string {
	ep := resolveEndpoints(t.BaseURL, cfg)
	return cacheAside(ctx, l, "posts", cache.Key(t.ID, keyPosts), l.ttl.Sitemap, func(ctx context.Context) ([]string, bool) {
		var sources []string
		if body, err := l.fetch.Text(ctx, ep.index); err != nil {
			l.fetchFailed(ep.index, err)
		} else {
			_, children := parseSitemap(body)
			for _, c := range children {
				if isPostSitemap(c) {
					sources = append(sources, c)
				}
			}
		}
		if len(sources) == 0 {
			sources = []string{ep.postFallback()}
		}
		urls := filterHost(l.readSitemaps(ctx, sources), t.Host())
		return urls, len(urls) > 0
	})
}

// readSitemaps fetches the given sitemaps concurrently and returns their
// page URLs in source order. Failed sitemaps contribute nothing.
func (l *Loader) readSitemaps(ctx context.Context, sources []string) []string {
	results := make([][]string, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(childSitemapConcurrency)
	for i, src := range sources {
		g.Go(func() error {
			body, err := l.fetch.Text(gctx, src)
			if err != nil {
				l.fetchFailed(src, err)
				return nil
			}
			results[i], _ = parseSitemap(body)
			return nil
		})
	}
	_ = g.Wait()

	var out []string
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// LLMS loads the three parts of the LLMS bundle concurrently.
func (l *Loader) LLMS(ctx context.Context, t tenants.Tenant, cfg *Config) LLMS {
	ep := resolveEndpoints(t.BaseURL, cfg)
	var out LLMS
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Index = l.text(gctx, "llms", cache.Key(t.ID, keyLLMS), ep.llmsIndex)
		return nil
	})
	g.Go(func() error {
		out.Full = l.text(gctx, "llms", cache.Key(t.ID, keyLLMSFull), ep.llmsFull)
		return nil
	})
	g.Go(func() error {
		out.FullSV = l.text(gctx, "llms", cache.Key(t.ID, keyLLMSSV), ep.llmsSV)
		return nil
	})
	_ = g.Wait()
	return out
}

func (l *Loader) text(ctx context.Context, kind, key, url string) string {
	return cacheAside(ctx, l, kind, key, l.ttl.LLMS, func(ctx context.Context) (string, bool) {
		body, err := l.fetch.Text(ctx, url)
		if err != nil {
			l.fetchFailed(url, err)
			return "", false
		}
		body = strings.TrimSpace(body)
		return body, body != ""
	})
}

// Products loads the tenant's store catalog. A 404 means the site has no
// store; that empty result is cached like any other.
func (l *Loader) Products(ctx context.Context, t tenants.Tenant, cfg *Config) []catalog.Product {
	ep := resolveEndpoints(t.BaseURL, cfg)
	return cacheAside(ctx, l, "products", cache.Key(t.ID, keyProducts), l.ttl.Products, func(ctx context.Context) ([]catalog.Product, bool) {
		body, err := l.fetch.Text(ctx, ep.products)
		if err != nil {
			l.fetchFailed(ep.products, err)
			var se *StatusError
			if errors.As(err, &se) && se.Status == http.StatusNotFound {
				return []catalog.Product{}, true
			}
			return nil, false
		}
		products, err := catalog.ParseStoreProducts([]byte(body))
		if err != nil {
			l.fetchFailed(ep.products, err)
			return nil, false
		}
		return products, true
	})
}

// Load builds a Snapshot: the site config first, then the remaining
// documents concurrently. It never fails.
func (l *Loader) Load(ctx context.Context, t tenants.Tenant) *Snapshot {
	snap := &Snapshot{Tenant: t}
	snap.Config = l.Config(ctx, t)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap.SitemapURLs = l.SitemapURLs(gctx, t, snap.Config)
		return nil
	})
	g.Go(func() error {
		snap.PostURLs = l.PostURLs(gctx, t, snap.Config)
		return nil
	})
	g.Go(func() error {
		snap.LLMS = l.LLMS(gctx, t, snap.Config)
		return nil
	})
	g.Go(func() error {
		snap.Products = l.Products(gctx, t, snap.Config)
		return nil
	})
	_ = g.Wait()
	return snap
}

// Refresh drops the tenant's cached documents and loads them again.
func (l *Loader) Refresh(ctx context.Context, t tenants.Tenant) *Snapshot {
	l.Invalidate(ctx, t.ID)
	return l.Load(ctx, t)
}
