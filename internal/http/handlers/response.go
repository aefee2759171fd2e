// Package handlers serves the /agent HTTP API.
//
// Every failure leaves through fail, which writes the shared envelope
//
//	{"request_id": "...", "code": "admin_online", "message": "Admin is online; continue in chat."}
//
// and aborts the chain. Codes live in errors.go and never change meaning
// once published; the console and widget branch on them. Success bodies are
// plain DTOs, with OKResponse for writes that return nothing else.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-agent-backend/internal/http/middleware"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	// Same value as the X-Request-ID response header
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// One of the ErrCode constants
	Code string `json:"code" example:"not_found"`
	// Safe to show in the widget
	Message string `json:"message" example:"resource not found"`
}

// OKResponse acknowledges a write that has no resource to return.
type OKResponse struct {
	OK bool `json:"ok" example:"true"`
}

// fail writes the envelope and stops the chain. Statuses >= 500 are also
// logged on the request logger, since the client only sees the code.
func fail(c *gin.Context, status int, code, msg string) {
	rid := middleware.RequestIDFrom(c)
	if rid == "" {
		rid = c.Writer.Header().Get("X-Request-ID")
	}
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().Int("status", status).Str("code", code).Str("message", msg).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{RequestID: rid, Code: code, Message: msg})
}

// Fail lets the router answer NoRoute/NoMethod with the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
