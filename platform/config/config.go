// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSExtraOrigins() []string
	GetChatRateLimit() float64
	GetChatRateBurst() int
}

// JWTConfig provides JWT validation settings for the admin middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// RedisConfig provides settings for the key-value cache.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetCacheKeyPrefix() string
}

// LLMConfig provides settings for the completion provider.
type LLMConfig interface {
	GetLLMAPIKey() string
	GetLLMBaseURL() string
	GetLLMModel() string
	GetLLMTemperature() float32
	GetLLMTimeout() time.Duration
}

// ChatConfig provides settings for the chat module.
type ChatConfig interface {
	GetHistoryFetch() int
	GetHistoryWindow() int
	GetHistoryTTL() time.Duration
	GetStrictLinks() bool
	GetRenderHTML() bool
	GetDefaultTenant() string
}

// SiteConfig provides settings for remote site document loading.
type SiteConfig interface {
	GetSiteConfigTTL() time.Duration
	GetSitemapTTL() time.Duration
	GetLLMSTTL() time.Duration
	GetProductsTTL() time.Duration
	GetFetchTimeout() time.Duration
	GetFetchUserAgent() string
}

// TenantsConfig provides the tenant registry sources.
type TenantsConfig interface {
	GetTenantsFile() string
	GetTenantsInline() string
}

// SchedulerConfig provides settings for the background worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSiteWarmupCron() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env              string
	HTTPAddr         string
	CORSExtraOrigins []string
	ChatRateLimit    float64
	ChatRateBurst    int
	JWTAccessSecret  string

	RedisURL         string
	RedisTLSInsecure bool
	CacheKeyPrefix   string

	LLMAPIKey      string
	LLMBaseURL     string
	LLMModel       string
	LLMTemperature float32
	LLMTimeout     time.Duration

	HistoryFetch  int
	HistoryWindow int
	HistoryTTL    time.Duration
	StrictLinks   bool
	RenderHTML    bool
	DefaultTenant string

	SiteConfigTTL  time.Duration
	SitemapTTL     time.Duration
	LLMSTTL        time.Duration
	ProductsTTL    time.Duration
	FetchTimeout   time.Duration
	FetchUserAgent string

	TenantsFile   string
	TenantsInline string

	AsynqQueueName   string
	AsynqConcurrency int
	SiteWarmupCron   string
}

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string           { return c.HTTPAddr }
func (c *Config) GetCORSExtraOrigins() []string { return c.CORSExtraOrigins }
func (c *Config) GetChatRateLimit() float64     { return c.ChatRateLimit }
func (c *Config) GetChatRateBurst() int         { return c.ChatRateBurst }
func (c *Config) GetJWTAccessSecret() string    { return c.JWTAccessSecret }

// RedisConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetCacheKeyPrefix() string { return c.CacheKeyPrefix }

// LLMConfig implementation
func (c *Config) GetLLMAPIKey() string         { return c.LLMAPIKey }
func (c *Config) GetLLMBaseURL() string        { return c.LLMBaseURL }
func (c *Config) GetLLMModel() string          { return c.LLMModel }
func (c *Config) GetLLMTemperature() float32   { return c.LLMTemperature }
func (c *Config) GetLLMTimeout() time.Duration { return c.LLMTimeout }

// ChatConfig implementation
func (c *Config) GetHistoryFetch() int         { return c.HistoryFetch }
func (c *Config) GetHistoryWindow() int        { return c.HistoryWindow }
func (c *Config) GetHistoryTTL() time.Duration { return c.HistoryTTL }
func (c *Config) GetStrictLinks() bool         { return c.StrictLinks }
func (c *Config) GetRenderHTML() bool          { return c.RenderHTML }
func (c *Config) GetDefaultTenant() string     { return c.DefaultTenant }

// SiteConfig implementation
func (c *Config) GetSiteConfigTTL() time.Duration { return c.SiteConfigTTL }
func (c *Config) GetSitemapTTL() time.Duration    { return c.SitemapTTL }
func (c *Config) GetLLMSTTL() time.Duration       { return c.LLMSTTL }
func (c *Config) GetProductsTTL() time.Duration   { return c.ProductsTTL }
func (c *Config) GetFetchTimeout() time.Duration  { return c.FetchTimeout }
func (c *Config) GetFetchUserAgent() string       { return c.FetchUserAgent }

// TenantsConfig implementation
func (c *Config) GetTenantsFile() string   { return c.TenantsFile }
func (c *Config) GetTenantsInline() string { return c.TenantsInline }

// SchedulerConfig implementation
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) GetSiteWarmupCron() string { return c.SiteWarmupCron }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		CORSExtraOrigins: splitCSV(getEnv("CORS_EXTRA_ORIGINS", "")),
		ChatRateLimit:    mustFloat(getEnv("CHAT_RATE_LIMIT", "1")),
		ChatRateBurst:    mustInt(getEnv("CHAT_RATE_BURST", "10")),
		JWTAccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		CacheKeyPrefix:   getEnv("CACHE_KEY_PREFIX", ""),

		LLMAPIKey:      getEnv("OPENAI_API_KEY", ""),
		LLMBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		LLMModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		LLMTemperature: float32(mustFloat(getEnv("OPENAI_TEMPERATURE", "0.3"))),
		LLMTimeout:     mustDuration(getEnv("LLM_TIMEOUT", "30s")),

		HistoryFetch:  mustInt(getEnv("CHAT_HISTORY_FETCH", "40")),
		HistoryWindow: mustInt(getEnv("CHAT_HISTORY_WINDOW", "20")),
		HistoryTTL:    mustDuration(getEnv("CHAT_HISTORY_TTL", "24h")),
		StrictLinks:   strings.EqualFold(getEnv("CHAT_STRICT_LINKS", "false"), "true"),
		RenderHTML:    strings.EqualFold(getEnv("CHAT_RENDER_HTML", "false"), "true"),
		DefaultTenant: getEnv("DEFAULT_TENANT", ""),

		SiteConfigTTL:  mustDuration(getEnv("SITE_CONFIG_TTL", "5m")),
		SitemapTTL:     mustDuration(getEnv("SITEMAP_TTL", "24h")),
		LLMSTTL:        mustDuration(getEnv("LLMS_TTL", "12h")),
		ProductsTTL:    mustDuration(getEnv("PRODUCTS_TTL", "6h")),
		FetchTimeout:   mustDuration(getEnv("FETCH_TIMEOUT", "8s")),
		FetchUserAgent: getEnv("FETCH_USER_AGENT", "sitechat-backend/1.0"),

		TenantsFile:   getEnv("TENANTS_FILE", ""),
		TenantsInline: getEnv("TENANTS", ""),

		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "4")),
		SiteWarmupCron:   getEnv("SITE_WARMUP_CRON", "@every 6h"),
	}

	if cfg.TenantsFile == "" && cfg.TenantsInline == "" {
		return nil, fmt.Errorf("TENANTS_FILE or TENANTS is required")
	}
	if cfg.HistoryWindow < 1 || cfg.HistoryFetch < cfg.HistoryWindow {
		return nil, fmt.Errorf("CHAT_HISTORY_FETCH must be >= CHAT_HISTORY_WINDOW >= 1")
	}
	if cfg.LLMTimeout <= 0 || cfg.FetchTimeout <= 0 {
		return nil, fmt.Errorf("LLM_TIMEOUT and FETCH_TIMEOUT must be positive durations")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		results = append(results, trimmed)
	}
	return results
}
