package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"sitechat_backend/internal/catalog"
	"sitechat_backend/internal/chat/transport"
	"sitechat_backend/internal/events"
	"sitechat_backend/internal/history"
	"sitechat_backend/internal/intent"
	"sitechat_backend/internal/linker"
	"sitechat_backend/internal/site"
	"sitechat_backend/internal/tenants"
	"sitechat_backend/platform/apperr"
	"sitechat_backend/platform/cache"
	"sitechat_backend/platform/config"
)

const baseURL = "https://example.se"

type fakeSites struct {
	cfg       *site.Config
	products  []catalog.Product
	refreshes int
}

func (f *fakeSites) snapshot(t tenants.Tenant) *site.Snapshot {
	return &site.Snapshot{
		Tenant:      t,
		Config:      f.cfg,
		SitemapURLs: []string{baseURL + "/seo/", baseURL + "/priser/"},
		Products:    f.products,
	}
}

func (f *fakeSites) Load(_ context.Context, t tenants.Tenant) *site.Snapshot {
	return f.snapshot(t)
}

func (f *fakeSites) Refresh(_ context.Context, t tenants.Tenant) *site.Snapshot {
	f.refreshes++
	return f.snapshot(t)
}

type fakeCompleter struct {
	reply      string
	err        error
	configured bool
	gotTurns   []history.Turn
	gotSystem  string
}

func (f *fakeCompleter) Configured() bool { return f.configured }

func (f *fakeCompleter) Complete(_ context.Context, system string, turns []history.Turn, _ string) (string, error) {
	f.gotSystem = system
	f.gotTurns = turns
	return f.reply, f.err
}

type fakeQueue struct {
	err     error
	tenants []string
}

func (f *fakeQueue) EnqueueSiteRefresh(_ context.Context, tenantID string) error {
	f.tenants = append(f.tenants, tenantID)
	return f.err
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventName())
	}
	return out
}

func mustSiteConfig(t *testing.T, doc string) *site.Config {
	t.Helper()
	var cfg site.Config
	if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
		t.Fatalf("decode site config: %v", err)
	}
	return &cfg
}

type fixture struct {
	svc       *Service
	sites     *fakeSites
	completer *fakeCompleter
	store     *cache.MemoryStore
	bus       *recordingBus
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	reg, err := tenants.New(tenants.Tenant{ID: "acme", BaseURL: baseURL, Name: "Acme"})
	if err != nil {
		t.Fatalf("tenants: %v", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	store := cache.NewMemoryStore()
	soft := cache.NewSoft(store, nil)
	f := &fixture{
		sites:     &fakeSites{},
		completer: &fakeCompleter{configured: true, reply: "Hej! Vi hjälper gärna till."},
		store:     store,
		bus:       &recordingBus{},
	}
	f.svc = New(Deps{
		Tenants:    reg,
		Sites:      f.sites,
		History:    history.New(soft, history.Options{}),
		Completer:  f.completer,
		Classifier: intent.MustClassifier(),
		Rules:      linker.MustDefaultRules(),
		Cache:      soft,
		Bus:        f.bus,
		Config:     cfg,
	})
	return f
}

func TestChatAppendsSinglePricingPointer(t *testing.T) {
	f := newFixture(t, nil)
	f.sites.cfg = mustSiteConfig(t, `{"links":{"pricing":"/priser/"}}`)
	f.completer.reply = "Det beror på omfattningen av projektet."

	resp, err := f.svc.Chat(context.Background(), transport.ChatRequest{
		Message:   "Vad kostar en ny hemsida?",
		SessionID: "s1",
		TenantID:  "acme",
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if n := strings.Count(resp.Reply, baseURL+"/priser/"); n != 1 {
		t.Fatalf("expected one pricing link, got %d in %q", n, resp.Reply)
	}
}

func TestChatWithoutLeadMagnetsHasNoLead(t *testing.T) {
	f := newFixture(t, nil)
	f.sites.cfg = mustSiteConfig(t, `{"lead_magnets":[]}`)

	resp, err := f.svc.Chat(context.Background(), transport.ChatRequest{
		Message:   "Kan ni göra en analys av vår sajt?",
		SessionID: "s1",
		TenantID:  "acme",
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.LeadIntent || resp.LeadKey != nil {
		t.Fatalf("expected no lead, got intent=%v key=%v", resp.LeadIntent, resp.LeadKey)
	}

	raw, _ := json.Marshal(resp)
	if !strings.Contains(string(raw), `"lead_key":null`) {
		t.Fatalf("expected explicit null lead_key in %s", raw)
	}
}

func TestChatOffersMatchingLeadMagnet(t *testing.T) {
	f := newFixture(t, nil)
	f.sites.cfg = mustSiteConfig(t, `{"lead_magnets":[{"key":"audit","label":"Gratis SEO-analys","url":"/analys/"}]}`)

	resp, err := f.svc.Chat(context.Background(), transport.ChatRequest{
		Message:   "Kan ni göra en analys av vår sajt?",
		SessionID: "s1",
		TenantID:  "acme",
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !resp.LeadIntent || resp.LeadKey == nil || *resp.LeadKey != "audit" {
		t.Fatalf("expected audit lead, got %+v", resp)
	}
}

func TestChatProductIntentWithoutCandidates(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.svc.Chat(context.Background(), transport.ChatRequest{
		Message:   "Vilka produkter har ni i lager?",
		SessionID: "s1",
		TenantID:  "acme",
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.ProductIntent || len(resp.ProductHits) != 0 {
		t.Fatalf("expected no product intent, got %+v", resp)
	}
	if strings.Contains(resp.Reply, "Produkter som kan passa") {
		t.Fatalf("unexpected product block in %q", resp.Reply)
	}
}

func TestChatStoresHistoryAndReplaysIt(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	req := transport.ChatRequest{Message: "Hej", SessionID: "s1", TenantID: "acme"}

	if _, err := f.svc.Chat(ctx, req); err != nil {
		t.Fatalf("first chat: %v", err)
	}
	if len(f.completer.gotTurns) != 0 {
		t.Fatalf("expected empty history on first turn, got %v", f.completer.gotTurns)
	}
	if _, err := f.svc.Chat(ctx, req); err != nil {
		t.Fatalf("second chat: %v", err)
	}
	if len(f.completer.gotTurns) != 2 || f.completer.gotTurns[0].Role != history.RoleUser {
		t.Fatalf("expected previous exchange replayed, got %v", f.completer.gotTurns)
	}
	if !strings.Contains(f.completer.gotSystem, "Acme") {
		t.Fatalf("expected tenant name in system prompt")
	}

	if _, err := f.svc.Clear(ctx, transport.ClearRequest{SessionID: "s1", TenantID: "acme"}); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := f.svc.Chat(ctx, req); err != nil {
		t.Fatalf("third chat: %v", err)
	}
	if len(f.completer.gotTurns) != 0 {
		t.Fatalf("expected cleared history, got %v", f.completer.gotTurns)
	}
	if got := f.bus.names(); len(got) != 3 || got[0] != "chat.completed" {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestChatUsesDefaultTenant(t *testing.T) {
	f := newFixture(t, &config.Config{DefaultTenant: "acme"})
	if _, err := f.svc.Chat(context.Background(), transport.ChatRequest{Message: "Hej", SessionID: "s1"}); err != nil {
		t.Fatalf("chat: %v", err)
	}
}

func TestChatRejectsUnknownTenant(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Chat(context.Background(), transport.ChatRequest{Message: "Hej", SessionID: "s1", TenantID: "nope"})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}

	_, err = f.svc.Chat(context.Background(), transport.ChatRequest{Message: "Hej", SessionID: "s1"})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request without tenant, got %v", err)
	}
}

func TestChatMissingCredential(t *testing.T) {
	f := newFixture(t, nil)
	f.completer.configured = false

	_, err := f.svc.Chat(context.Background(), transport.ChatRequest{Message: "Hej", SessionID: "s1", TenantID: "acme"})
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Message != "configuration error" {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if appErr.Public() {
		t.Fatal("configuration error must not be public")
	}
}

func TestChatCompletionFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.completer.err = errors.New("upstream 502")

	_, err := f.svc.Chat(context.Background(), transport.ChatRequest{Message: "Hej", SessionID: "s1", TenantID: "acme"})
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if got := f.bus.names(); len(got) != 1 || got[0] != "chat.failed" {
		t.Fatalf("expected chat.failed event, got %v", got)
	}
	if turns := history.New(cache.NewSoft(f.store, nil), history.Options{}).Recent(context.Background(), "acme", "s1"); len(turns) != 0 {
		t.Fatalf("failed exchange must not be stored, got %v", turns)
	}
}

func TestChatRendersHTML(t *testing.T) {
	f := newFixture(t, &config.Config{RenderHTML: true})
	f.completer.reply = "Läs mer om **SEO**."

	resp, err := f.svc.Chat(context.Background(), transport.ChatRequest{Message: "Hej", SessionID: "s1", TenantID: "acme"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !strings.Contains(resp.ReplyHTML, "<strong>SEO</strong>") {
		t.Fatalf("expected rendered html, got %q", resp.ReplyHTML)
	}
}

func TestKVDebug(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.svc.KVDebug(context.Background())
	if !resp.OK || resp.Backend != "memory" || resp.Value == "" {
		t.Fatalf("unexpected kv debug response %+v", resp)
	}

	empty := New(Deps{})
	if resp := empty.KVDebug(context.Background()); resp.OK || resp.Backend != "none" {
		t.Fatalf("expected failing response without cache, got %+v", resp)
	}
}

func TestRefreshSite(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	resp, err := f.svc.RefreshSite(ctx, "acme")
	if err != nil || !resp.Inline || f.sites.refreshes != 1 {
		t.Fatalf("expected inline refresh, got %+v err=%v", resp, err)
	}
	if got := f.bus.names(); len(got) != 1 || got[0] != "site.refreshed" {
		t.Fatalf("expected site.refreshed event, got %v", got)
	}

	q := &fakeQueue{}
	f.svc.deps.Queue = q
	resp, err = f.svc.RefreshSite(ctx, "acme")
	if err != nil || !resp.Queued || len(q.tenants) != 1 {
		t.Fatalf("expected queued refresh, got %+v err=%v", resp, err)
	}

	q.err = errors.New("redis down")
	if _, err := f.svc.RefreshSite(ctx, "acme"); !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, err := f.svc.RefreshSite(ctx, "nope"); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected unknown tenant, got %v", err)
	}
}
