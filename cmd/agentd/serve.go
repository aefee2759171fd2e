package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-agent-backend/internal/answer"
	"github.com/tbourn/go-agent-backend/internal/config"
	httpapi "github.com/tbourn/go-agent-backend/internal/http"
	"github.com/tbourn/go-agent-backend/internal/http/middleware"
	"github.com/tbourn/go-agent-backend/internal/mailer"
	"github.com/tbourn/go-agent-backend/internal/observability"
	"github.com/tbourn/go-agent-backend/internal/realtime"
	"github.com/tbourn/go-agent-backend/internal/repo"
	"github.com/tbourn/go-agent-backend/internal/services"
)

const (
	shutdownGrace  = 15 * time.Second
	purgeInterval  = time.Hour
	warmTimeout    = 30 * time.Second
	traceFlushWait = 5 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and websocket hub",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// backend is the persistence chosen by DB_DRIVER. db is nil for the memory
// store.
type backend struct {
	store services.Store
	db    *gorm.DB
}

func openBackend(c config.Config) (*backend, error) {
	if c.DB.Driver == repo.DriverMemory {
		return &backend{store: repo.NewMemoryStore()}, nil
	}
	db, err := repo.Open(c.DB.Driver, c.DB.Path, c.DB.URL)
	if err != nil {
		return nil, err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, err
	}
	return &backend{store: repo.NewGormStore(db), db: db}, nil
}

func (b *backend) close() {
	if b.db == nil {
		return
	}
	if sqlDB, err := b.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.Setup(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		if err := observability.ShutdownWithin(shutdownTracing, traceFlushWait); err != nil {
			logger.Warn().Err(err).Msg("trace flush failed")
		}
	}()

	be, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer be.close()
	logger.Info().Str("driver", cfg.DB.Driver).Msg("storage ready")

	// Answers
	site := answer.NewSiteSearcher(cfg.Search.SeedURLs, cfg.Search.CacheTTL, cfg.Search.Timeout, cfg.Search.MaxPages)
	if cfg.Search.RedisURL != "" {
		rc, err := answer.NewRedisCache(cfg.Search.RedisURL)
		if err != nil {
			return err
		}
		defer rc.Close()
		site.Cache = rc
	}
	resolver := answer.NewResolver(site)
	go func() {
		wctx, cancel := context.WithTimeout(ctx, warmTimeout)
		defer cancel()
		if err := site.Warm(wctx); err != nil {
			logger.Warn().Err(err).Msg("site cache warm-up incomplete")
		}
	}()

	// Presence, rooms, inbox, transcripts
	presence := services.NewPresenceService(be.store)
	online, err := presence.Init(ctx)
	if err != nil {
		return err
	}
	logger.Info().Bool("online", online).Msg("presence loaded")

	rooms := services.NewRoomService(be.store)
	inbox := services.NewInboxService(be.store, be.store, presence, cfg.IdempotencyTTL)

	var transcripts *services.TranscriptService
	if m := mailer.New(cfg.Email); m != nil {
		transcripts = &services.TranscriptService{Rooms: rooms, Mailer: m, Location: cfg.TranscriptLocation()}
	} else {
		logger.Warn().Msg("email not configured; transcript forwarding disabled")
	}

	// Realtime
	hub := realtime.NewHub(logger.With().Str("component", "hub").Logger())
	go hub.Run(ctx)
	presence.SetBroadcaster(hub)
	disp := realtime.NewDispatcher(hub, rooms, presence, logger.With().Str("component", "dispatcher").Logger())
	ws := realtime.NewServer(ctx, hub, disp, cfg.CORS.AllowedOrigins, realtime.Options{
		PingInterval:    cfg.WS.PingInterval,
		PongWait:        cfg.WS.PongWait,
		MaxMessageBytes: cfg.WS.MaxMessageBytes,
	}, logger.With().Str("component", "ws").Logger())

	if cfg.Auth.JWTSecret == "" {
		logger.Warn().Msg("JWT_SECRET is empty; admin endpoints will reject every request")
	}
	deps := httpapi.Deps{
		Presence:    presence,
		Answers:     resolver,
		Inbox:       inbox,
		Rooms:       rooms,
		Realtime:    ws,
		Auth:        middleware.NewAdminAuth(cfg.Auth.JWTSecret, cfg.Auth.JWTCookie),
		Idempotency: be.store,
	}
	if transcripts != nil {
		deps.Transcripts = transcripts
	}

	if be.db != nil {
		go purgeIdempotency(ctx, be.db)
	}

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, deps, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("base", cfg.APIBasePath).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	// Hijacked websocket connections are not tracked by Shutdown.
	hub.Stop()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// purgeIdempotency deletes expired idempotency records every purgeInterval
// until ctx is done.
func purgeIdempotency(ctx context.Context, db *gorm.DB) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				logger.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				logger.Debug().Int64("deleted", n).Msg("idempotency purge")
			}
		}
	}
}
