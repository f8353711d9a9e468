package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sitechat_backend/internal/chat/service"
	"sitechat_backend/internal/chat/transport"
	"sitechat_backend/platform/apperr"
	"sitechat_backend/platform/httpkit"
	"sitechat_backend/platform/validator"
)

// Handler handles HTTP requests for the chat widget and its admin tools.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest = "invalid request"
	msgMissingFields  = "Missing message or sessionId"
	msgMissingSession = "Missing sessionId"
)

// New creates a new chat handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Chat answers one visitor message.
// POST /chat
func (h *Handler) Chat(c *gin.Context) {
	var req transport.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, invalidRequest(err, msgMissingFields))
		return
	}

	result, err := h.svc.Chat(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Clear deletes a session's history.
// POST /chat/clear
func (h *Handler) Clear(c *gin.Context) {
	var req transport.ClearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, invalidRequest(err, msgMissingSession))
		return
	}

	result, err := h.svc.Clear(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// invalidRequest names the failing field without exposing validator output.
// Missing required fields keep the endpoint's historical message.
func invalidRequest(err error, missing string) *apperr.Error {
	field, tag, ok := validator.FirstInvalid(err)
	if !ok {
		return apperr.Validation(msgInvalidRequest)
	}
	details := map[string]string{"field": field}
	switch {
	case tag == "required":
		return apperr.Validation(missing).WithDetails(details)
	case field == "message":
		return apperr.Validation("message too long").WithDetails(details)
	default:
		return apperr.Validation("invalid " + field).WithDetails(details)
	}
}

// KVDebug reports a cache write/read round trip.
// GET /api/v1/admin/kv-debug
func (h *Handler) KVDebug(c *gin.Context) {
	if httpkit.MustGetIdentity(c) == nil {
		return
	}
	result := h.svc.KVDebug(c.Request.Context())
	status := http.StatusOK
	if !result.OK {
		status = http.StatusServiceUnavailable
	}
	httpkit.JSON(c, status, result)
}

// RefreshSite reloads a tenant's cached site documents.
// POST /api/v1/admin/sites/:tenantId/refresh
func (h *Handler) RefreshSite(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID := c.Param("tenantId")
	if err := h.val.Var(tenantID, "required,tenantid"); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid tenantId", nil)
		return
	}

	result, err := h.svc.RefreshSite(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	status := http.StatusOK
	if result.Queued {
		status = http.StatusAccepted
	}
	httpkit.JSON(c, status, result)
}
