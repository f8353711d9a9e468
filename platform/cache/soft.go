package cache

import (
	"context"
	"errors"
	"time"

	"sitechat_backend/platform/logger"
)

// Soft wraps a Store so that every failure degrades to "absent". Reads
// return (value, ok); writes report nothing. A nil Store behaves as an
// always-empty cache.
type Soft struct {
	store Store
	log   *logger.Logger
}

// NewSoft wraps store. Either argument may be nil.
func NewSoft(store Store, log *logger.Logger) *Soft {
	return &Soft{store: store, log: log}
}

// Store returns the wrapped store (may be nil).
func (s *Soft) Store() Store {
	if s == nil {
		return nil
	}
	return s.store
}

func (s *Soft) report(op, key string, err error) {
	if err == nil || errors.Is(err, ErrCacheMiss) || s.log == nil {
		return
	}
	s.log.CacheError(op, key, err)
}

// Get returns the cached value and whether it was present and non-empty.
func (s *Soft) Get(ctx context.Context, key string) (string, bool) {
	if s == nil || s.store == nil {
		return "", false
	}
	val, err := s.store.Get(ctx, key)
	if err != nil {
		s.report("get", key, err)
		return "", false
	}
	return val, val != ""
}

// Set writes value with ttl, ignoring failures.
func (s *Soft) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if s == nil || s.store == nil {
		return
	}
	s.report("set", key, s.store.Set(ctx, key, value, ttl))
}

// ListAppend appends values, ignoring failures.
func (s *Soft) ListAppend(ctx context.Context, key string, values ...string) {
	if s == nil || s.store == nil {
		return
	}
	s.report("list_append", key, s.store.ListAppend(ctx, key, values...))
}

// ListRange returns the range or an empty slice on failure.
func (s *Soft) ListRange(ctx context.Context, key string, start, stop int64) []string {
	if s == nil || s.store == nil {
		return nil
	}
	vals, err := s.store.ListRange(ctx, key, start, stop)
	if err != nil {
		s.report("list_range", key, err)
		return nil
	}
	return vals
}

// Expire sets a TTL, ignoring failures.
func (s *Soft) Expire(ctx context.Context, key string, ttl time.Duration) {
	if s == nil || s.store == nil {
		return
	}
	s.report("expire", key, s.store.Expire(ctx, key, ttl))
}

// Delete removes keys, ignoring failures.
func (s *Soft) Delete(ctx context.Context, keys ...string) {
	if s == nil || s.store == nil || len(keys) == 0 {
		return
	}
	s.report("delete", keys[0], s.store.Delete(ctx, keys...))
}
