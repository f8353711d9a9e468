package scheduler

import (
	"context"
	"fmt"
	"time"

	"sitechat_backend/internal/tenants"
	"sitechat_backend/platform/config"
	"sitechat_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Warmup periodically enqueues one site refresh per tenant so the chat
// path finds warm caches.
type Warmup struct {
	scheduler *asynq.Scheduler
	entries   []string
	log       *logger.Logger
}

// NewWarmup registers a refresh for every tenant on cfg's cron spec. An
// empty spec disables the warmup and returns nil.
func NewWarmup(cfg config.SchedulerConfig, reg *tenants.Registry, log *logger.Logger) (*Warmup, error) {
	spec := cfg.GetSiteWarmupCron()
	if spec == "" {
		return nil, nil
	}

	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	w := &Warmup{
		scheduler: asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC}),
		log:       log,
	}
	queue := queueName(cfg)
	for _, id := range reg.IDs() {
		task, err := NewSiteRefreshTask(SiteRefreshPayload{TenantID: id})
		if err != nil {
			return nil, err
		}
		entryID, err := w.scheduler.Register(spec, task, asynq.Queue(queue), asynq.Unique(refreshUniqueFor))
		if err != nil {
			return nil, fmt.Errorf("register warmup for %s: %w", id, err)
		}
		w.entries = append(w.entries, entryID)
	}
	return w, nil
}

// Entries returns the registered scheduler entry ids.
func (w *Warmup) Entries() []string {
	if w == nil {
		return nil
	}
	return w.entries
}

// Run starts the scheduler and blocks until ctx is done.
func (w *Warmup) Run(ctx context.Context) {
	if w == nil || w.scheduler == nil {
		return
	}
	if err := w.scheduler.Start(); err != nil {
		w.log.Error("warmup scheduler failed to start", "error", err)
		return
	}
	<-ctx.Done()
	w.scheduler.Shutdown()
}
