// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides the request ID injector, the panic recovery handler and
// access to the request-scoped logger installed by RedactingLogger.
//
// Recommended order:
//  1. RequestID()
//  2. RedactingLogger(...)
//  3. Recovery()
//
// so that panics and errors include the correlation ID and are logged.
package middleware

import (
	"net/http"
	"regexp"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// requestIDHeader is the HTTP header used to propagate the correlation ID.
	requestIDHeader = "X-Request-ID"
	// loggerKey holds the request-scoped *zerolog.Logger.
	loggerKey = "logger"
	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
)

// Incoming IDs are echoed into headers and logs, so they are restricted.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._\-]{1,128}$`)

// RequestID attaches (or propagates) a correlation identifier per request.
// A well-formed incoming X-Request-ID is reused; anything else is replaced
// with a new UUID. The ID is echoed in the response header and stored in
// the Gin context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !requestIDPattern.MatchString(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// RequestIDFrom returns the correlation ID for c, or "".
func RequestIDFrom(c *gin.Context) string {
	rid, _ := c.Get(requestIDKey)
	return asString(rid)
}

// Recovery intercepts panics, logs a stack trace, and returns a JSON 500
// error when nothing has been written yet.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, RequestIDFrom(c))
			abortJSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger, or a logger carrying
// only the request ID when RedactingLogger is not installed. Callers can use
// the result without nil checks.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Str("request_id", RequestIDFrom(c)).Logger()
	return &l
}

// asString converts an arbitrary interface to a string, returning an empty
// string when the value is not a string. Used for context values.
func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate returns s unchanged when within limit bytes, otherwise it cuts s
// and appends an ellipsis. A limit <= 0 disables truncation.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
