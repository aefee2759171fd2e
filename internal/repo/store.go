package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

// GormStore binds the repository free functions to a *gorm.DB so they can be
// consumed through the services.Store interface. It is the persistent
// counterpart of MemoryStore.
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore wraps db.
func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{DB: db} }

func (s *GormStore) EnsurePresence(ctx context.Context) (*domain.PresenceRecord, error) {
	return EnsurePresence(ctx, s.DB)
}

func (s *GormStore) GetPresence(ctx context.Context) (*domain.PresenceRecord, error) {
	return GetPresence(ctx, s.DB)
}

func (s *GormStore) SetPresence(ctx context.Context, online bool, at time.Time) (*domain.PresenceRecord, error) {
	return SetPresence(ctx, s.DB, online, at)
}

func (s *GormStore) AppendMessage(ctx context.Context, roomID string, role domain.Role, text string, at time.Time) (*domain.Message, error) {
	return AppendMessage(ctx, s.DB, roomID, role, text, at)
}

func (s *GormStore) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	return GetRoom(ctx, s.DB, roomID)
}

func (s *GormStore) CountRooms(ctx context.Context, search string) (int64, error) {
	return CountRooms(ctx, s.DB, search)
}

func (s *GormStore) ListRooms(ctx context.Context, search string, offset, limit int) ([]domain.Room, error) {
	return ListRoomsPage(ctx, s.DB, search, offset, limit)
}

func (s *GormStore) RoomsStats(ctx context.Context, search string) (int64, *time.Time, error) {
	return RoomsStats(ctx, s.DB, search)
}

func (s *GormStore) CountMessages(ctx context.Context, roomID string) (int64, error) {
	return CountMessages(ctx, s.DB, roomID)
}

func (s *GormStore) ListMessages(ctx context.Context, roomID string, offset, limit int) ([]domain.Message, error) {
	return ListMessagesPage(ctx, s.DB, roomID, offset, limit)
}

func (s *GormStore) MarkRoomRead(ctx context.Context, roomID string) error {
	return MarkRoomRead(ctx, s.DB, roomID)
}

func (s *GormStore) DeleteRoom(ctx context.Context, roomID string) error {
	return DeleteRoom(ctx, s.DB, roomID)
}

func (s *GormStore) CreateInboxItem(ctx context.Context, item *domain.InboxItem) error {
	return CreateInboxItem(ctx, s.DB, item)
}

func (s *GormStore) CountInbox(ctx context.Context, status domain.InboxStatus) (int64, error) {
	return CountInbox(ctx, s.DB, status)
}

func (s *GormStore) ListInbox(ctx context.Context, status domain.InboxStatus, offset, limit int) ([]domain.InboxItem, error) {
	return ListInboxPage(ctx, s.DB, status, offset, limit)
}

func (s *GormStore) UpdateInboxStatus(ctx context.Context, id string, status domain.InboxStatus) (*domain.InboxItem, error) {
	return UpdateInboxStatus(ctx, s.DB, id, status)
}

func (s *GormStore) GetIdempotency(ctx context.Context, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return GetIdempotency(ctx, s.DB, scope, key, now)
}

func (s *GormStore) SaveIdempotency(ctx context.Context, scope, key, resourceID string, status int, ttl time.Duration) error {
	_, err := CreateIdempotency(ctx, s.DB, scope, key, resourceID, status, ttl)
	return err
}
