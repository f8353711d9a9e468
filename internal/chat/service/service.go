// Package service orchestrates one chat exchange: tenant lookup, history
// and site document loading, the model call, reply post-processing and the
// lead and booking decisions.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sitechat_backend/internal/assistant"
	"sitechat_backend/internal/catalog"
	"sitechat_backend/internal/chat/transport"
	"sitechat_backend/internal/events"
	"sitechat_backend/internal/history"
	"sitechat_backend/internal/intent"
	"sitechat_backend/internal/linker"
	"sitechat_backend/internal/reply"
	"sitechat_backend/internal/site"
	"sitechat_backend/internal/tenants"
	"sitechat_backend/platform/apperr"
	"sitechat_backend/platform/cache"
	"sitechat_backend/platform/config"
	"sitechat_backend/platform/logger"
	"sitechat_backend/platform/markdown"
)

const kvDebugTTL = 60 * time.Second

// SiteLoader loads a tenant's site documents.
type SiteLoader interface {
	Load(ctx context.Context, t tenants.Tenant) *site.Snapshot
	Refresh(ctx context.Context, t tenants.Tenant) *site.Snapshot
}

// Completer produces the model reply.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, system string, turns []history.Turn, message string) (string, error)
}

// RefreshQueue schedules background site refreshes.
type RefreshQueue interface {
	EnqueueSiteRefresh(ctx context.Context, tenantID string) error
}

// Deps are the collaborators of the chat service.
type Deps struct {
	Tenants    *tenants.Registry
	Sites      SiteLoader
	History    *history.Store
	Completer  Completer
	Classifier *intent.Classifier
	Rules      *linker.Rules
	Cache      *cache.Soft
	Bus        events.Bus
	// Queue may be nil; refreshes then run inline.
	Queue  RefreshQueue
	Config config.ChatConfig
	Log    *logger.Logger
}

// Service handles chat requests.
type Service struct {
	deps     Deps
	markdown *markdown.Renderer
}

// New creates a chat service.
func New(deps Deps) *Service {
	s := &Service{deps: deps}
	if deps.Config != nil && deps.Config.GetRenderHTML() {
		s.markdown = markdown.New()
	}
	return s
}

// Tenant resolves a request tenant id, falling back to the default tenant.
func (s *Service) Tenant(id string) (tenants.Tenant, error) {
	id = strings.TrimSpace(id)
	if id == "" && s.deps.Config != nil {
		id = s.deps.Config.GetDefaultTenant()
	}
	if id == "" {
		return tenants.Tenant{}, apperr.BadRequest("Missing tenantId")
	}
	return s.deps.Tenants.Get(id)
}

// Chat answers one message.
func (s *Service) Chat(ctx context.Context, req transport.ChatRequest) (transport.ChatResponse, error) {
	start := time.Now()

	t, err := s.Tenant(req.TenantID)
	if err != nil {
		return transport.ChatResponse{}, err
	}
	if !s.deps.Completer.Configured() {
		return transport.ChatResponse{}, apperr.MissingCredential("OPENAI_API_KEY")
	}

	ctx = context.WithValue(ctx, logger.TenantIDKey, t.ID)
	ctx = context.WithValue(ctx, logger.SessionIDKey, req.SessionID)

	var (
		turns []history.Turn
		snap  *site.Snapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		turns = s.deps.History.Recent(gctx, t.ID, req.SessionID)
		return nil
	})
	g.Go(func() error {
		snap = s.deps.Sites.Load(gctx, t)
		return nil
	})
	_ = g.Wait()

	intents := s.deps.Classifier.Classify(req.Message)
	system := assistant.SystemPrompt(snap.SiteName(), snap.SiteBaseURL(), snap.LLMS)

	raw, err := s.deps.Completer.Complete(ctx, system, turns, req.Message)
	if err != nil {
		s.publishFailure(ctx, t.ID, err)
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return transport.ChatResponse{}, appErr
		}
		return transport.ChatResponse{}, apperr.Wrap(apperr.KindInternal, "completion failed", err).WithOp("chat.Complete")
	}

	pipeline := reply.New(snap.Resolver(s.deps.Rules), reply.Options{
		BaseURL:  t.BaseURL,
		SiteName: snap.SiteName(),
		Strict:   s.deps.Config != nil && s.deps.Config.GetStrictLinks(),
		Logger:   s.deps.Log,
	})
	result := pipeline.Process(reply.Input{
		Raw:      raw,
		Message:  req.Message,
		Intents:  intents,
		Posts:    snap.PostURLs,
		Products: snap.Products,
	})

	lead := intent.DecideLead(intents, snap.LeadMagnets(s.deps.Classifier))
	booking := s.deps.Classifier.DecideBooking(req.Message)

	s.deps.History.Append(ctx, t.ID, req.SessionID, req.Message, result.Reply)

	resp := transport.ChatResponse{
		Reply:         result.Reply,
		BookingIntent: booking,
		LeadIntent:    lead.Intent,
		PrivacyURL:    snap.PrivacyURL(),
		ProductIntent: result.ProductIntent,
		ProductHits:   toProductHits(result.ProductHits),
	}
	if lead.Intent {
		key := lead.Key
		resp.LeadKey = &key
	}
	if s.markdown != nil {
		resp.ReplyHTML = s.markdown.Render(result.Reply)
	}

	if s.deps.Bus != nil {
		s.deps.Bus.Publish(ctx, events.ChatCompleted{
			BaseEvent:     events.NewBaseEvent(),
			TenantID:      t.ID,
			SessionID:     req.SessionID,
			Latency:       time.Since(start),
			Intents:       intents.Names(),
			LeadIntent:    lead.Intent,
			LeadKey:       lead.Key,
			BookingIntent: booking,
			ProductIntent: result.ProductIntent,
		})
	}
	return resp, nil
}

func (s *Service) publishFailure(ctx context.Context, tenantID string, err error) {
	if s.deps.Log != nil {
		s.deps.Log.WithContext(ctx).Error("chat completion failed", "error", err)
	}
	if s.deps.Bus != nil {
		s.deps.Bus.Publish(ctx, events.ChatFailed{
			BaseEvent: events.NewBaseEvent(),
			TenantID:  tenantID,
			Reason:    "completion",
		})
	}
}

func toProductHits(products []catalog.Product) []transport.ProductHit {
	if len(products) == 0 {
		return nil
	}
	out := make([]transport.ProductHit, 0, len(products))
	for _, p := range products {
		out = append(out, transport.ProductHit{
			ID:       p.ID,
			Name:     p.Name,
			URL:      p.URL,
			Price:    p.Price.Decimal(),
			Currency: p.Price.Currency,
		})
	}
	return out
}

// Clear deletes a session's history.
func (s *Service) Clear(ctx context.Context, req transport.ClearRequest) (transport.ClearResponse, error) {
	t, err := s.Tenant(req.TenantID)
	if err != nil {
		return transport.ClearResponse{}, err
	}
	s.deps.History.Clear(ctx, t.ID, req.SessionID)
	return transport.ClearResponse{OK: true}, nil
}

// KVDebug writes and reads back a short-lived key to check the cache.
func (s *Service) KVDebug(ctx context.Context) transport.KVDebugResponse {
	store := s.deps.Cache.Store()
	key := "kv-debug:ping"
	resp := transport.KVDebugResponse{Key: key, Backend: backendName(store)}
	if store == nil {
		resp.Error = "no cache configured"
		return resp
	}

	want := time.Now().UTC().Format(time.RFC3339Nano)
	if err := store.Set(ctx, key, want, kvDebugTTL); err != nil {
		resp.Error = fmt.Sprintf("set: %v", err)
		return resp
	}
	got, err := store.Get(ctx, key)
	if err != nil {
		resp.Error = fmt.Sprintf("get: %v", err)
		return resp
	}
	resp.Value = got
	resp.OK = got == want
	return resp
}

func backendName(store cache.Store) string {
	switch store.(type) {
	case *cache.RedisStore:
		return "redis"
	case *cache.MemoryStore:
		return "memory"
	case nil:
		return "none"
	default:
		return fmt.Sprintf("%T", store)
	}
}

// RefreshSite queues a reload of a tenant's cached documents, or runs it
// inline when no queue is configured.
func (s *Service) RefreshSite(ctx context.Context, tenantID string) (transport.RefreshResponse, error) {
	t, err := s.deps.Tenants.Get(tenantID)
	if err != nil {
		return transport.RefreshResponse{}, err
	}
	if s.deps.Queue != nil {
		if err := s.deps.Queue.EnqueueSiteRefresh(ctx, t.ID); err != nil {
			return transport.RefreshResponse{}, apperr.Wrap(apperr.KindUnavailable, "refresh queue unavailable", err).WithOp("chat.RefreshSite")
		}
		return transport.RefreshResponse{TenantID: t.ID, Queued: true}, nil
	}

	snap := s.deps.Sites.Refresh(ctx, t)
	if s.deps.Bus != nil {
		s.deps.Bus.Publish(ctx, snap.RefreshedEvent())
	}
	return transport.RefreshResponse{TenantID: t.ID, Inline: true}, nil
}
