package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sitechat_backend/internal/assistant"
	"sitechat_backend/internal/chat"
	"sitechat_backend/internal/chat/service"
	"sitechat_backend/internal/events"
	"sitechat_backend/internal/history"
	apphttp "sitechat_backend/internal/http"
	"sitechat_backend/internal/http/router"
	"sitechat_backend/internal/intent"
	"sitechat_backend/internal/linker"
	"sitechat_backend/internal/scheduler"
	"sitechat_backend/internal/site"
	"sitechat_backend/internal/tenants"
	"sitechat_backend/platform/ai/openai"
	"sitechat_backend/platform/cache"
	"sitechat_backend/platform/config"
	"sitechat_backend/platform/logger"
	"sitechat_backend/platform/validator"

	"google.golang.org/adk/model"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	registry, err := tenants.Load(cfg.GetTenantsFile(), cfg.GetTenantsInline())
	if err != nil {
		log.Error("failed to load tenants", "error", err)
		panic("failed to load tenants: " + err.Error())
	}
	log.Info("tenants loaded", "tenants", registry.IDs())

	store := initCache(ctx, cfg, log)
	defer func() { _ = store.Close() }()
	softCache := cache.NewSoft(store, log)

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	refreshQueue, closeQueue := initRefreshQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	classifier, err := intent.NewClassifier()
	if err != nil {
		panic("failed to compile intent rules: " + err.Error())
	}
	rules, err := linker.DefaultRules()
	if err != nil {
		panic("failed to compile link rules: " + err.Error())
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	loader := site.NewLoader(
		site.NewHTTPFetcher(cfg.GetFetchTimeout(), cfg.GetFetchUserAgent()),
		softCache,
		site.TTLs{
			Config:   cfg.GetSiteConfigTTL(),
			Sitemap:  cfg.GetSitemapTTL(),
			LLMS:     cfg.GetLLMSTTL(),
			Products: cfg.GetProductsTTL(),
		},
		log,
	)

	chatModule := chat.NewModule(service.Deps{
		Tenants: registry,
		Sites:   loader,
		History: history.New(softCache, history.Options{
			Fetch:  cfg.GetHistoryFetch(),
			Window: cfg.GetHistoryWindow(),
			TTL:    cfg.GetHistoryTTL(),
		}),
		Completer:  assistant.NewCompleter(initLLM(cfg, log), cfg.GetLLMTemperature()),
		Classifier: classifier,
		Rules:      rules,
		Cache:      softCache,
		Bus:        eventBus,
		Queue:      refreshQueue,
		Config:     cfg,
		Log:        log,
	}, val)
	chatModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   store,
		Origins:  registry,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			chatModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initLLM returns nil when no API key is configured; chat requests then fail
// with a configuration error instead of the process refusing to start.
func initLLM(cfg config.LLMConfig, log *logger.Logger) model.LLM {
	if cfg.GetLLMAPIKey() == "" {
		log.Warn("OPENAI_API_KEY not configured; chat requests will fail")
		return nil
	}
	return openai.NewModel(openai.Config{
		APIKey:  cfg.GetLLMAPIKey(),
		BaseURL: cfg.GetLLMBaseURL(),
		Model:   cfg.GetLLMModel(),
		Timeout: cfg.GetLLMTimeout(),
	})
}

// initCache connects to Redis when configured and falls back to an
// in-process store otherwise.
func initCache(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) cache.Store {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; using in-memory cache")
		return cache.NewMemoryStore()
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
	log.Info("redis connection established")
	return store
}

func initRefreshQueue(cfg config.SchedulerConfig, log *logger.Logger) (service.RefreshQueue, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; site refreshes run inline")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
