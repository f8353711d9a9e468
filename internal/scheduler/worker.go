package scheduler

import (
	"context"
	"fmt"

	"sitechat_backend/internal/events"
	"sitechat_backend/internal/site"
	"sitechat_backend/internal/tenants"
	"sitechat_backend/platform/config"
	"sitechat_backend/platform/logger"
	"sitechat_backend/platform/metrics"

	"github.com/hibiken/asynq"
)

// SiteRefresher drops and reloads a tenant's cached site documents.
type SiteRefresher interface {
	Refresh(ctx context.Context, t tenants.Tenant) *site.Snapshot
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	tenants   *tenants.Registry
	refresher SiteRefresher
	bus       events.Bus
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, reg *tenants.Registry, refresher SiteRefresher, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 4
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := &Worker{
		server:    server,
		mux:       asynq.NewServeMux(),
		tenants:   reg,
		refresher: refresher,
		bus:       bus,
		log:       log,
	}
	w.mux.HandleFunc(TaskSiteRefresh, w.handleSiteRefresh)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleSiteRefresh(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSiteRefreshPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	t, err := w.tenants.Get(payload.TenantID)
	if err != nil {
		metrics.SiteRefreshes.WithLabelValues(payload.TenantID, "skipped").Inc()
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	snap := w.refresher.Refresh(ctx, t)
	metrics.SiteRefreshes.WithLabelValues(t.ID, "ok").Inc()

	event := snap.RefreshedEvent()
	if w.log != nil {
		w.log.WithTenant(t.ID).Info("site cache refreshed",
			"hasConfig", event.HasConfig,
			"sitemapUrls", event.SitemapURLs,
			"postUrls", event.PostURLs,
			"products", event.Products,
		)
	}
	// Subscribers finish inside the task; their errors do not undo the refresh.
	if w.bus != nil {
		if err := w.bus.PublishSync(ctx, event); err != nil && w.log != nil {
			w.log.WithTenant(t.ID).Warn("site refresh subscriber failed", "error", err)
		}
	}
	return nil
}
