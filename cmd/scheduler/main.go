package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sitechat_backend/internal/events"
	"sitechat_backend/internal/scheduler"
	"sitechat_backend/internal/site"
	"sitechat_backend/internal/tenants"
	"sitechat_backend/platform/cache"
	"sitechat_backend/platform/config"
	"sitechat_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := tenants.Load(cfg.GetTenantsFile(), cfg.GetTenantsInline())
	if err != nil {
		log.Error("failed to load tenants", "error", err)
		panic("failed to load tenants: " + err.Error())
	}

	var store *cache.RedisStore
	if err := withRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
		s, err := cache.NewRedisStoreFromURL(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure(), cfg.GetCacheKeyPrefix())
		if err != nil {
			return err
		}
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return err
		}
		store = s
		return nil
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer func() { _ = store.Close() }()

	eventBus := events.NewInMemoryBus(log)

	loader := site.NewLoader(
		site.NewHTTPFetcher(cfg.GetFetchTimeout(), cfg.GetFetchUserAgent()),
		cache.NewSoft(store, log),
		site.TTLs{
			Config:   cfg.GetSiteConfigTTL(),
			Sitemap:  cfg.GetSitemapTTL(),
			LLMS:     cfg.GetLLMSTTL(),
			Products: cfg.GetProductsTTL(),
		},
		log,
	)

	warmup, err := scheduler.NewWarmup(cfg, registry, log)
	if err != nil {
		log.Error("failed to initialize warmup scheduler", "error", err)
		panic("failed to initialize warmup scheduler: " + err.Error())
	}
	if warmup != nil {
		log.Info("site warmup scheduled", "cron", cfg.GetSiteWarmupCron(), "tenants", len(warmup.Entries()))
		go warmup.Run(ctx)
	}

	worker, err := scheduler.NewWorker(cfg, registry, loader, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
