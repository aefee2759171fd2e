// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, compression, security headers, idempotency, and rate limiting.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-agent-backend/docs"
	"github.com/tbourn/go-agent-backend/internal/config"
	"github.com/tbourn/go-agent-backend/internal/domain"
	"github.com/tbourn/go-agent-backend/internal/http/handlers"
	"github.com/tbourn/go-agent-backend/internal/http/middleware"
)

// maxBodyBytes caps request bodies; the largest legitimate payload is an
// inbox question.
const maxBodyBytes = 64 << 10

// Deps are the collaborators the HTTP layer needs. Transcripts may be nil
// when no mailer is configured.
type Deps struct {
	Presence    handlers.PresenceService
	Answers     handlers.AnswerService
	Inbox       handlers.InboxService
	Rooms       handlers.RoomService
	Transcripts handlers.TranscriptService
	Realtime    handlers.Acceptor
	Auth        *middleware.AdminAuth
	Idempotency IdempotencyReader
}

// IdempotencyReader returns the live record for (scope, key).
type IdempotencyReader interface {
	GetIdempotency(ctx context.Context, scope, key string, now time.Time) (*domain.Idempotency, error)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the agent API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Admin identification, then the rate limiter (per admin/IP)
//  9. CORS, security headers and compression
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	base := normalizeBase(cfg.APIBasePath)

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders:     []string{"X-API-Key"},
		MaskQueryParams: []string{"email"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(limitBody(maxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics("/metrics"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, scope, key string, now time.Time) (bool, error) {
			rec, err := deps.Idempotency.GetIdempotency(ctx, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per admin/IP
	r.Use(deps.Auth.Identify())
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByAdminOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (allow all if none configured)
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Websocket upgrades and scrapes must not be wrapped by the compressor.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{base + "/ws", "/metrics"})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = base
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(deps.Presence, deps.Answers, deps.Inbox, deps.Rooms, deps.Transcripts)
	ws := handlers.NewWSHandler(deps.Realtime, deps.Auth)

	api := groupWithPrefix(r, base)
	{
		// Public
		api.GET("/status", h.GetStatus)
		api.GET("/search", h.Search)
		api.POST("/inbox", h.SubmitInbox)
		api.GET("/ws", ws.Connect)
	}

	admin := api.Group("", deps.Auth.RequireAdmin())
	{
		admin.PUT("/status", h.SetStatus)

		admin.GET("/inbox", h.ListInbox)
		admin.PUT("/inbox/:id", h.UpdateInbox)

		admin.GET("/rooms", h.ListRooms)
		admin.GET("/rooms/:roomId/messages", h.ListRoomMessages)
		admin.DELETE("/rooms/:roomId", h.DeleteRoom)
		admin.POST("/rooms/:roomId/forward", h.ForwardTranscript)
	}
}

// corsMiddleware allows every origin when none are configured (without
// credentials) and otherwise only the listed origins, with credentials so
// the admin console can send its session cookie.
func corsMiddleware(origins []string) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{"X-Request-ID", "ETag", "Retry-After", "Idempotency-Replayed"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return cors.New(c)
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return cors.New(c)
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// normalizeBase maps "" and "/" to the root and strips a trailing slash.
func normalizeBase(p string) string {
	if p == "" || p == "/" {
		return ""
	}
	if p[len(p)-1] == '/' {
		return p[:len(p)-1]
	}
	return p
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
