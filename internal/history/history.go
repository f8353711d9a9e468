// Package history stores per-session chat transcripts as append-only lists
// in the cache.
package history

import (
	"context"
	"encoding/json"
	"time"

	"sitechat_backend/platform/cache"
)

// Roles used in stored turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	defaultFetch  = 40
	defaultWindow = 20
	defaultTTL    = 24 * time.Hour
)

// Turn is one stored message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options bound how much history is read and how long it lives.
type Options struct {
	// Fetch is how many trailing list entries are read.
	Fetch int
	// Window is how many valid turns are kept from those read.
	Window int
	TTL    time.Duration
}

// Store reads and appends chat history. All operations are fail-soft.
type Store struct {
	cache *cache.Soft
	opts  Options
}

// New creates a history store.
func New(c *cache.Soft, opts Options) *Store {
	if opts.Fetch <= 0 {
		opts.Fetch = defaultFetch
	}
	if opts.Window <= 0 {
		opts.Window = defaultWindow
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	return &Store{cache: c, opts: opts}
}

// Key is the list key for one tenant session.
func Key(tenantID, sessionID string) string {
	return cache.Key(tenantID, "chat:"+sessionID)
}

// Recent returns the last Window turns, skipping malformed entries.
func (s *Store) Recent(ctx context.Context, tenantID, sessionID string) []Turn {
	raw := s.cache.ListRange(ctx, Key(tenantID, sessionID), -int64(s.opts.Fetch), -1)
	turns := make([]Turn, 0, len(raw))
	for _, r := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil || t.Content == "" {
			continue
		}
		if t.Role != RoleUser && t.Role != RoleAssistant {
			continue
		}
		turns = append(turns, t)
	}
	if len(turns) > s.opts.Window {
		turns = turns[len(turns)-s.opts.Window:]
	}
	return turns
}

// Append stores a user message and the reply to it and refreshes the TTL.
func (s *Store) Append(ctx context.Context, tenantID, sessionID, userMessage, reply string) {
	key := Key(tenantID, sessionID)
	u, _ := json.Marshal(Turn{Role: RoleUser, Content: userMessage})
	a, _ := json.Marshal(Turn{Role: RoleAssistant, Content: reply})
	s.cache.ListAppend(ctx, key, string(u), string(a))
	s.cache.Expire(ctx, key, s.opts.TTL)
}

// Clear deletes a session's history.
func (s *Store) Clear(ctx context.Context, tenantID, sessionID string) {
	s.cache.Delete(ctx, Key(tenantID, sessionID))
}
