package transport

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message   string `json:"message" validate:"required,max=4000"`
	SessionID string `json:"sessionId" validate:"required,sessionid"`
	// TenantID falls back to the configured default tenant when omitted.
	TenantID string `json:"tenantId,omitempty" validate:"omitempty,tenantid"`
}

// ProductHit is one product offered in a reply.
type ProductHit struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Price    string `json:"price,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// ChatResponse is the reply to POST /chat.
type ChatResponse struct {
	Reply         string       `json:"reply"`
	ReplyHTML     string       `json:"reply_html,omitempty"`
	BookingIntent bool         `json:"booking_intent"`
	LeadIntent    bool         `json:"lead_intent"`
	LeadKey       *string      `json:"lead_key"`
	PrivacyURL    string       `json:"privacy_url"`
	ProductIntent bool         `json:"product_intent"`
	ProductHits   []ProductHit `json:"product_hits,omitempty"`
}

// ClearRequest is the body of POST /chat/clear.
type ClearRequest struct {
	SessionID string `json:"sessionId" validate:"required,sessionid"`
	TenantID  string `json:"tenantId,omitempty" validate:"omitempty,tenantid"`
}

// ClearResponse acknowledges a cleared session.
type ClearResponse struct {
	OK bool `json:"ok"`
}

// KVDebugResponse reports a cache round trip.
type KVDebugResponse struct {
	OK      bool   `json:"ok"`
	Backend string `json:"backend"`
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RefreshResponse acknowledges a queued site refresh.
type RefreshResponse struct {
	TenantID string `json:"tenantId"`
	Queued   bool   `json:"queued"`
	// Inline is true when no queue is configured and the refresh ran in
	// the request.
	Inline bool `json:"inline"`
}
