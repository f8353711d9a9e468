// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"sitechat_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Chat Domain Events
// =============================================================================

// ChatCompleted is published after a reply was produced and stored.
type ChatCompleted struct {
	BaseEvent
	TenantID      string        `json:"tenantId"`
	SessionID     string        `json:"sessionId"`
	Latency       time.Duration `json:"latency"`
	Intents       []string      `json:"intents"`
	LeadIntent    bool          `json:"leadIntent"`
	LeadKey       string        `json:"leadKey,omitempty"`
	BookingIntent bool          `json:"bookingIntent"`
	ProductIntent bool          `json:"productIntent"`
}

func (e ChatCompleted) EventName() string { return "chat.completed" }

// ChatFailed is published when a chat request ends in a server error.
type ChatFailed struct {
	BaseEvent
	TenantID string `json:"tenantId"`
	Reason   string `json:"reason"`
}

func (e ChatFailed) EventName() string { return "chat.failed" }

// =============================================================================
// Site Domain Events
// =============================================================================

// SiteRefreshed is published after a tenant's cached documents were reloaded.
type SiteRefreshed struct {
	BaseEvent
	TenantID    string `json:"tenantId"`
	HasConfig   bool   `json:"hasConfig"`
	SitemapURLs int    `json:"sitemapUrls"`
	PostURLs    int    `json:"postUrls"`
	Products    int    `json:"products"`
}

func (e SiteRefreshed) EventName() string { return "site.refreshed" }
