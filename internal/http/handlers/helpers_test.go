package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-agent-backend/internal/answer"
	"github.com/tbourn/go-agent-backend/internal/http/middleware"
	"github.com/tbourn/go-agent-backend/internal/repo"
	"github.com/tbourn/go-agent-backend/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

// env is a fully wired handler stack over a fresh in-memory SQLite database.
type env struct {
	store    *repo.GormStore
	presence *services.PresenceService
	rooms    *services.RoomService
	inbox    *services.InboxService
	h        *Handlers
	r        *gin.Engine
}

func newEnv(t *testing.T, transcripts TranscriptService) *env {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	e := &env{store: repo.NewGormStore(db)}
	e.presence = services.NewPresenceService(e.store)
	if _, err := e.presence.Init(context.Background()); err != nil {
		t.Fatalf("presence init: %v", err)
	}
	e.rooms = services.NewRoomService(e.store)
	clock := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	e.rooms.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	e.inbox = services.NewInboxService(e.store, e.store, e.presence, time.Hour)
	e.h = New(e.presence, answer.NewResolver(nil), e.inbox, e.rooms, transcripts)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{},
		func(ctx context.Context, scope, key string, now time.Time) (bool, error) {
			_, err := e.store.GetIdempotency(ctx, scope, key, now)
			return err == nil, nil
		}))
	r.GET("/agent/status", e.h.GetStatus)
	r.PUT("/agent/status", e.h.SetStatus)
	r.GET("/agent/search", e.h.Search)
	r.POST("/agent/inbox", e.h.SubmitInbox)
	r.GET("/agent/inbox", e.h.ListInbox)
	r.PUT("/agent/inbox/:id", e.h.UpdateInbox)
	r.GET("/agent/rooms", e.h.ListRooms)
	r.GET("/agent/rooms/:roomId/messages", e.h.ListRoomMessages)
	r.DELETE("/agent/rooms/:roomId", e.h.DeleteRoom)
	r.POST("/agent/rooms/:roomId/forward", e.h.ForwardTranscript)
	e.r = r
	return e
}

func (e *env) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = bytes.NewBufferString(b)
		default:
			raw, _ := json.Marshal(b)
			rd = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func wantError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d; want %d (body %s)", w.Code, status, w.Body.String())
	}
	er := decode[ErrorResponse](t, w)
	if er.Code != code || er.RequestID == "" {
		t.Fatalf("unexpected error body: %+v", er)
	}
	return er
}
