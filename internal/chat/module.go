// Package chat provides the customer-facing chat bounded context module.
package chat

import (
	"context"

	"sitechat_backend/internal/chat/handler"
	"sitechat_backend/internal/chat/service"
	"sitechat_backend/internal/events"
	apphttp "sitechat_backend/internal/http"
	"sitechat_backend/platform/logger"
	"sitechat_backend/platform/metrics"
	"sitechat_backend/platform/validator"
)

// Module is the chat bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	log     *logger.Logger
}

// NewModule creates the chat module.
func NewModule(deps service.Deps, val *validator.Validator) *Module {
	svc := service.New(deps)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		log:     deps.Log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "chat"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the widget endpoints under /api and the admin tools
// under /api/v1/admin.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.API.Group("")
	if ctx.ChatRateLimiter != nil {
		public.Use(ctx.ChatRateLimiter.RateLimit())
	}
	public.POST("/chat", m.handler.Chat)
	public.POST("/chat/clear", m.handler.Clear)
	public.POST("/clear", m.handler.Clear)

	ctx.Admin.GET("/kv-debug", m.handler.KVDebug)
	ctx.Admin.POST("/sites/:tenantId/refresh", m.handler.RefreshSite)
}

// RegisterHandlers subscribes the chat metrics recorder to domain events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ChatCompleted{}.EventName(), m)
	bus.Subscribe(events.ChatFailed{}.EventName(), m)
	bus.Subscribe(events.SiteRefreshed{}.EventName(), m)
}

// Handle records metrics and the completion log line for chat and site events.
func (m *Module) Handle(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ChatCompleted:
		metrics.ChatRequests.WithLabelValues(e.TenantID, "inline").Inc()
		metrics.ChatDuration.WithLabelValues(e.TenantID).Observe(e.Latency.Seconds())
		for _, name := range e.Intents {
			metrics.ChatIntents.WithLabelValues(e.TenantID, name).Inc()
		}
		if e.LeadIntent {
			metrics.ChatIntents.WithLabelValues(e.TenantID, "lead").Inc()
		}
		if m.log != nil {
			m.log.ChatCompleted(e.TenantID, e.Latency, e.LeadIntent, e.BookingIntent, e.ProductIntent)
		}
	case events.ChatFailed:
		metrics.ChatRequests.WithLabelValues(e.TenantID, "error").Inc()
	case events.SiteRefreshed:
		metrics.SiteRefreshes.WithLabelValues(e.TenantID, "inline").Inc()
	}
	return nil
}

var _ apphttp.Module = (*Module)(nil)
