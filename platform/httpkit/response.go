// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"

	"sitechat_backend/platform/apperr"
	"sitechat_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// MsgServerError is the only body an unexpected failure ever produces.
const MsgServerError = "Server error"

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Error sends an error response with the given status code and message.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// HandleError maps domain errors to HTTP responses.
// Public *apperr.Error kinds keep their message and details. Internal,
// unavailable and untyped errors are logged and answered with a generic
// server error; only explicitly attached details (a reason code) are kept.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) && domainErr.Public() {
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{
			Error:   domainErr.Message,
			Details: domainErr.Details,
		})
		return true
	}

	status := http.StatusInternalServerError
	var details interface{}
	if domainErr != nil {
		status = domainErr.HTTPStatus()
		details = domainErr.Details
	}
	if log := loggerFrom(c); log != nil {
		log.WithContext(c.Request.Context()).HTTPError(c.Request.Method, c.Request.URL.Path, status, err, c.ClientIP())
	}
	c.JSON(status, ErrorResponse{Error: MsgServerError, Details: details})
	return true
}

// ContextLoggerKey is the gin context key under which RequestLogger stores
// the logger for HandleError.
const ContextLoggerKey = "logger"

func loggerFrom(c *gin.Context) *logger.Logger {
	v, ok := c.Get(ContextLoggerKey)
	if !ok {
		return nil
	}
	log, _ := v.(*logger.Logger)
	return log
}
