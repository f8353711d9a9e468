// Package cache provides the key-value store used for chat history and for
// cached remote documents. Redis backs it in production; an in-memory store
// serves development and tests.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = errors.New("cache: miss")

// Store is the raw key-value contract. Every method may fail; callers that
// must keep working without a cache go through Soft.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	ListAppend(ctx context.Context, key string, values ...string) error
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// Key joins a tenant identifier and a suffix into a namespaced key.
func Key(tenantID, suffix string) string {
	return tenantID + ":" + suffix
}
