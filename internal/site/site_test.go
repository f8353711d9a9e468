package site

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"sitechat_backend/internal/intent"
	"sitechat_backend/internal/linker"
	"sitechat_backend/internal/tenants"
	"sitechat_backend/platform/cache"
)

type fakeSite struct {
	mu     sync.Mutex
	hits   map[string]int
	routes map[string]string
	srv    *httptest.Server
}

func newFakeSite(t *testing.T) *fakeSite {
	t.Helper()
	fs := &fakeSite{hits: map[string]int{}, routes: map[string]string{}}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.hits[r.URL.Path]++
		body, ok := fs.routes[r.URL.Path]
		fs.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeSite) route(path, body string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.routes[path] = strings.ReplaceAll(body, "{base}", fs.srv.URL)
}

func (fs *fakeSite) count(path string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.hits[path]
}

func (fs *fakeSite) tenant() tenants.Tenant {
	return tenants.Tenant{ID: "acme", BaseURL: fs.srv.URL}
}

func newTestLoader(store cache.Store) *Loader {
	return NewLoader(NewHTTPFetcher(0, ""), cache.NewSoft(store, nil), TTLs{}, nil)
}

const indexXML = `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>{base}/post-sitemap.xml</loc></sitemap>
  <sitemap><loc>{base}/page-sitemap.xml</loc></sitemap>
</sitemapindex>`

const postsXML = `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{base}/blogg/seo-tips/</loc></url>
  <url><loc>https://elsewhere.se/blogg/stolen/</loc></url>
</urlset>`

const pagesXML = `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{base}/seo/</loc></url>
  <url><loc>{base}/priser/</loc></url>
</urlset>`

func TestSitemapURLsFollowsIndexAndFiltersHost(t *testing.T) {
	fs := newFakeSite(t)
	fs.route("/sitemap_index.xml", indexXML)
	fs.route("/post-sitemap.xml", postsXML)
	fs.route("/page-sitemap.xml", pagesXML)

	l := newTestLoader(cache.NewMemoryStore())
	got := l.SitemapURLs(context.Background(), fs.tenant(), nil)
	want := []string{fs.srv.URL + "/blogg/seo-tips/", fs.srv.URL + "/seo/", fs.srv.URL + "/priser/"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	posts := l.PostURLs(context.Background(), fs.tenant(), nil)
	if !slices.Equal(posts, []string{fs.srv.URL + "/blogg/seo-tips/"}) {
		t.Fatalf("unexpected posts %v", posts)
	}
}

func TestSitemapURLsUsesFallbacksWhenIndexMissing(t *testing.T) {
	fs := newFakeSite(t)
	fs.route("/page-sitemap.xml", pagesXML)

	l := newTestLoader(nil)
	got := l.SitemapURLs(context.Background(), fs.tenant(), nil)
	if len(got) != 2 {
		t.Fatalf("expected page sitemap fallback, got %v", got)
	}
	if fs.count("/post-sitemap.xml") != 1 {
		t.Fatal("expected post sitemap fallback to be tried")
	}
}

func TestSitemapURLsCachesResult(t *testing.T) {
	fs := newFakeSite(t)
	fs.route("/sitemap_index.xml", indexXML)
	fs.route("/post-sitemap.xml", postsXML)
	fs.route("/page-sitemap.xml", pagesXML)

	store := cache.NewMemoryStore()
	l := newTestLoader(store)
	first := l.SitemapURLs(context.Background(), fs.tenant(), nil)
	second := l.SitemapURLs(context.Background(), fs.tenant(), nil)
	if !slices.Equal(first, second) {
		t.Fatalf("cached result differs: %v vs %v", first, second)
	}
	if n := fs.count("/sitemap_index.xml"); n != 1 {
		t.Fatalf("expected one index fetch, got %d", n)
	}

	l.Invalidate(context.Background(), "acme")
	l.SitemapURLs(context.Background(), fs.tenant(), nil)
	if n := fs.count("/sitemap_index.xml"); n != 2 {
		t.Fatalf("expected refetch after invalidate, got %d", n)
	}
}

func TestEmptyResultsAreNotCached(t *testing.T) {
	fs := newFakeSite(t)
	l := newTestLoader(cache.NewMemoryStore())
	for i := 0; i < 2; i++ {
		if got := l.SitemapURLs(context.Background(), fs.tenant(), nil); len(got) != 0 {
			t.Fatalf("expected empty, got %v", got)
		}
	}
	if n := fs.count("/sitemap_index.xml"); n != 2 {
		t.Fatalf("expected failed loads to retry, got %d fetches", n)
	}
}

func TestConfigFailSoft(t *testing.T) {
	fs := newFakeSite(t)
	fs.route(configPath, `not json`)
	l := newTestLoader(cache.NewMemoryStore())
	if cfg := l.Config(context.Background(), fs.tenant()); cfg != nil {
		t.Fatalf("expected nil config, got %+v", cfg)
	}
}

const configJSON = `{
  "site": {"name": "Acme Webb", "base_url": "{base}"},
  "pages": {"seo": "/seo/", "priser": "{base}/priser/", "integritet": "/integritet/", "broken": 42},
  "links": {"blog": "/blogg/"},
  "llms": {"index": "/llms.txt"},
  "lead_magnets": [
    {"key": "seo-audit", "url": "/analys/", "label": "Gratis SEO-analys"},
    {"key": "", "label": "Utan nyckel"}
  ],
  "products": {"endpoint": "/shop.json"}
}`

func TestLoadSnapshot(t *testing.T) {
	fs := newFakeSite(t)
	fs.route(configPath, configJSON)
	fs.route("/sitemap_index.xml", indexXML)
	fs.route("/post-sitemap.xml", postsXML)
	fs.route("/page-sitemap.xml", pagesXML)
	fs.route("/llms.txt", "  # Acme\n")
	fs.route(llmsFullPath, "Full summary")
	fs.route("/shop.json", `[{"id": 1, "name": "SEO-paket", "permalink": "{base}/produkt/seo-paket/", "prices": {"price": "100000", "currency_code": "SEK", "currency_minor_unit": 2}}]`)

	l := newTestLoader(cache.NewMemoryStore())
	snap := l.Load(context.Background(), fs.tenant())

	if snap.Config == nil {
		t.Fatal("expected config")
	}
	if snap.SiteName() != "Acme Webb" {
		t.Fatalf("unexpected site name %q", snap.SiteName())
	}
	if snap.LLMS.Index != "# Acme" || snap.LLMS.Full != "Full summary" || snap.LLMS.FullSV != "" {
		t.Fatalf("unexpected llms %+v", snap.LLMS)
	}
	if len(snap.Products) != 1 || snap.Products[0].Name != "SEO-paket" {
		t.Fatalf("unexpected products %+v", snap.Products)
	}
	if got := snap.PrivacyURL(); got != fs.srv.URL+"/integritet/" {
		t.Fatalf("unexpected privacy url %q", got)
	}

	pages := snap.Pages()
	if pages["seo"] != fs.srv.URL+"/seo/" {
		t.Fatalf("expected relative page resolved, got %q", pages["seo"])
	}
	if _, ok := pages["broken"]; ok {
		t.Fatal("expected non-string page dropped")
	}

	r := snap.Resolver(linker.MustDefaultRules())
	entry, ok := r.Link("SEO")
	if !ok || entry.URL != fs.srv.URL+"/seo/" {
		t.Fatalf("expected SEO link, got %+v %v", entry, ok)
	}
	if !r.URLIsKnown(fs.srv.URL + "/produkt/seo-paket/") {
		t.Fatal("expected product permalink to be known")
	}
	if r.URLIsKnown("https://elsewhere.se/blogg/stolen/") {
		t.Fatal("foreign sitemap entry must not be known")
	}

	magnets := snap.LeadMagnets(intent.MustClassifier())
	if len(magnets) != 1 || magnets[0].Key != "seo-audit" || magnets[0].Type != intent.MagnetAction {
		t.Fatalf("unexpected magnets %+v", magnets)
	}
}

func TestSnapshotDefaultsWithoutConfig(t *testing.T) {
	snap := &Snapshot{Tenant: tenants.Tenant{ID: "acme", BaseURL: "https://acme.se"}}
	if snap.SiteName() != defaultSiteName {
		t.Fatalf("unexpected site name %q", snap.SiteName())
	}
	if got := snap.PrivacyURL(); got != "https://acme.se/integritetspolicy/" {
		t.Fatalf("unexpected privacy url %q", got)
	}
	if len(snap.LeadMagnets(intent.MustClassifier())) != 0 {
		t.Fatal("expected no magnets")
	}
	r := snap.Resolver(linker.MustDefaultRules())
	if r.HasKnownURLs() {
		t.Fatal("expected empty known set")
	}
}

func TestPrivacyURLPrecedence(t *testing.T) {
	cfg := &Config{Privacy: "https://acme.se/privacy/", PrivacyURL: "https://acme.se/other/"}
	snap := &Snapshot{Tenant: tenants.Tenant{BaseURL: "https://acme.se"}, Config: cfg}
	if got := snap.PrivacyURL(); got != "https://acme.se/privacy/" {
		t.Fatalf("expected privacy field first, got %q", got)
	}
}

func TestProductsNotFoundIsCachedEmpty(t *testing.T) {
	fs := newFakeSite(t)
	l := newTestLoader(cache.NewMemoryStore())
	for i := 0; i < 2; i++ {
		if got := l.Products(context.Background(), fs.tenant(), nil); len(got) != 0 {
			t.Fatalf("expected no products, got %v", got)
		}
	}
	if n := fs.count("/wp-json/wc/store/v1/products"); n != 1 {
		t.Fatalf("expected 404 to be cached, got %d fetches", n)
	}
}

func TestMalformedCacheEntryIsRefetched(t *testing.T) {
	fs := newFakeSite(t)
	fs.route(llmsPath, "index text")
	store := cache.NewMemoryStore()
	_ = store.Set(context.Background(), cache.Key("acme", keyLLMS), "{not json", 0)

	l := newTestLoader(store)
	got := l.LLMS(context.Background(), fs.tenant(), nil)
	if got.Index != "index text" {
		t.Fatalf("expected refetch, got %+v", got)
	}
}

func TestFilterHost(t *testing.T) {
	in := []string{
		"https://acme.se/a/",
		"https://www.acme.se/b/",
		"https://shop.acme.se/c/",
		"https://notacme.se/d/",
		"https://acme.se/a/",
		"::bad",
	}
	got := filterHost(in, "acme.se")
	want := []string{"https://acme.se/a/", "https://www.acme.se/b/", "https://shop.acme.se/c/"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestHTTPFetcherReportsStatus(t *testing.T) {
	fs := newFakeSite(t)
	_, err := NewHTTPFetcher(0, "").Text(context.Background(), fs.srv.URL+"/missing")
	se, ok := err.(*StatusError)
	if !ok || se.Status != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	if !strings.Contains(fmt.Sprint(err), "404") {
		t.Fatalf("unexpected message %q", err)
	}
}
