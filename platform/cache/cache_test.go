package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test:"), mr
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
	if err := s.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, err := s.Get(ctx, "k"); err != nil || got != "v" {
		t.Fatalf("get: %q %v", got, err)
	}

	if err := s.ListAppend(ctx, "l", "a", "b", "c", "d"); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := s.ListRange(ctx, "l", -2, -1)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 2 || got[0] != "c" || got[1] != "d" {
		t.Fatalf("unexpected tail: %#v", got)
	}
	all, _ := s.ListRange(ctx, "l", -40, -1)
	if len(all) != 4 {
		t.Fatalf("expected full list when range exceeds length, got %#v", all)
	}
	if err := s.Expire(ctx, "l", time.Hour); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if err := s.Delete(ctx, "k", "l"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
	empty, _ := s.ListRange(ctx, "l", 0, -1)
	if len(empty) != 0 {
		t.Fatalf("expected empty list after delete, got %#v", empty)
	}
}

func TestRedisStore(t *testing.T) {
	s, mr := newRedisStore(t)
	exerciseStore(t, s)

	_ = s.Set(context.Background(), "ttl", "x", 5*time.Second)
	if !mr.Exists("test:ttl") {
		t.Fatal("expected prefixed key in redis")
	}
	mr.FastForward(6 * time.Second)
	if _, err := s.Get(context.Background(), "ttl"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreExpiry(t *testing.T) {
	m := NewMemoryStore()
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }
	_ = m.Set(context.Background(), "k", "v", time.Second)
	now = now.Add(2 * time.Second)
	if _, err := m.Get(context.Background(), "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired key, got %v", err)
	}
}

type brokenStore struct{ MemoryStore }

var errDown = errors.New("down")

func (*brokenStore) Get(context.Context, string) (string, error) { return "", errDown }
func (*brokenStore) ListRange(context.Context, string, int64, int64) ([]string, error) {
	return nil, errDown
}

func TestSoftDegradesToAbsent(t *testing.T) {
	ctx := context.Background()
	soft := NewSoft(&brokenStore{}, nil)
	if _, ok := soft.Get(ctx, "k"); ok {
		t.Fatal("expected absent value from broken store")
	}
	if vals := soft.ListRange(ctx, "l", 0, -1); len(vals) != 0 {
		t.Fatalf("expected no values, got %#v", vals)
	}

	var nilSoft *Soft
	if _, ok := nilSoft.Get(ctx, "k"); ok {
		t.Fatal("nil soft cache must be empty")
	}
	nilSoft.Set(ctx, "k", "v", time.Second)
	nilSoft.Delete(ctx)

	absent := NewSoft(nil, nil)
	absent.ListAppend(ctx, "l", "x")
	if vals := absent.ListRange(ctx, "l", 0, -1); vals != nil {
		t.Fatalf("expected nil from absent store, got %#v", vals)
	}
}

func TestKey(t *testing.T) {
	if got := Key("acme", "chat:s1"); got != "acme:chat:s1" {
		t.Fatalf("unexpected key %q", got)
	}
}
