package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

func TestPresence_EnsureGetSet(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	if _, err := GetPresence(ctx, db); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before ensure, got %v", err)
	}

	rec, err := EnsurePresence(ctx, db)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if rec.Key != domain.PresenceKey || rec.Online {
		t.Fatalf("unexpected initial record: %+v", rec)
	}

	at := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	if _, err := SetPresence(ctx, db, true, at); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Ensure must not overwrite an existing row.
	rec, err = EnsurePresence(ctx, db)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if !rec.Online || !rec.UpdatedAt.Equal(at) {
		t.Fatalf("ensure clobbered record: %+v", rec)
	}

	if _, err := SetPresence(ctx, db, false, at.Add(time.Minute)); err != nil {
		t.Fatalf("set offline: %v", err)
	}
	rec, _ = GetPresence(ctx, db)
	if rec.Online {
		t.Fatalf("expected offline")
	}

	var rows int64
	db.Model(&domain.PresenceRecord{}).Count(&rows)
	if rows != 1 {
		t.Fatalf("presence rows = %d, want 1", rows)
	}
}

func TestSetPresence_WithoutEnsure(t *testing.T) {
	db := newRepoDB(t)

	rec, err := SetPresence(context.Background(), db, true, time.Now())
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !rec.Online {
		t.Fatalf("expected online")
	}
}
