package services

import (
	"context"
	"time"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

// PresenceStore persists the singleton presence record.
type PresenceStore interface {
	EnsurePresence(ctx context.Context) (*domain.PresenceRecord, error)
	GetPresence(ctx context.Context) (*domain.PresenceRecord, error)
	SetPresence(ctx context.Context, online bool, at time.Time) (*domain.PresenceRecord, error)
}

// RoomStore persists rooms and their message logs. AppendMessage must upsert
// the room atomically.
type RoomStore interface {
	AppendMessage(ctx context.Context, roomID string, role domain.Role, text string, at time.Time) (*domain.Message, error)
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	CountRooms(ctx context.Context, search string) (int64, error)
	ListRooms(ctx context.Context, search string, offset, limit int) ([]domain.Room, error)
	RoomsStats(ctx context.Context, search string) (int64, *time.Time, error)
	CountMessages(ctx context.Context, roomID string) (int64, error)
	ListMessages(ctx context.Context, roomID string, offset, limit int) ([]domain.Message, error)
	MarkRoomRead(ctx context.Context, roomID string) error
	DeleteRoom(ctx context.Context, roomID string) error
}

// InboxStore persists offline inbox items.
type InboxStore interface {
	CreateInboxItem(ctx context.Context, item *domain.InboxItem) error
	CountInbox(ctx context.Context, status domain.InboxStatus) (int64, error)
	ListInbox(ctx context.Context, status domain.InboxStatus, offset, limit int) ([]domain.InboxItem, error)
	UpdateInboxStatus(ctx context.Context, id string, status domain.InboxStatus) (*domain.InboxItem, error)
}

// IdempotencyStore records (scope, key) → resource mappings for safe retries.
type IdempotencyStore interface {
	GetIdempotency(ctx context.Context, scope, key string, now time.Time) (*domain.Idempotency, error)
	SaveIdempotency(ctx context.Context, scope, key, resourceID string, status int, ttl time.Duration) error
}

// Store is the full storage contract. repo.GormStore and repo.MemoryStore
// both satisfy it.
type Store interface {
	PresenceStore
	RoomStore
	InboxStore
	IdempotencyStore
}

// Page is one page of a listing, serialized as
// {items, page, limit, total, totalPages}.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}
