// Package services – RoomService
//
// RoomService manages per-visitor conversation rooms: appending messages
// (with the unread-counter rules per role), admin listings, message history
// with implicit read receipts, and cascading deletes.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// the room id and pagination parameters where applicable.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-agent-backend/internal/domain"
	"github.com/tbourn/go-agent-backend/internal/repo"
	"github.com/tbourn/go-agent-backend/internal/utils"
)

// Pagination defaults for room listings and message history.
const (
	DefaultRoomsLimit    = 20
	MaxRoomsLimit        = 100
	DefaultMessagesLimit = 200
	MaxMessagesLimit     = 500
)

// RoomService coordinates room and message persistence.
type RoomService struct {
	Store RoomStore
	Now   func() time.Time

	// MaxTextRunes caps message text; zero disables the check.
	MaxTextRunes int
}

// NewRoomService returns a RoomService with a 4000 rune text cap.
func NewRoomService(store RoomStore) *RoomService {
	return &RoomService{Store: store, Now: time.Now, MaxTextRunes: 4000}
}

// Append stores a message in roomID, creating the room on first use.
// Visitor messages bump the unread counter, admin messages clear it, agent
// and system messages leave it unchanged. System messages may be empty.
func (s *RoomService) Append(ctx context.Context, roomID string, role domain.Role, text string) (*domain.Message, error) {
	ctx, span := otel.Tracer("services/RoomService").Start(ctx, "Append",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.String("message.role", string(role)),
		),
	)
	defer span.End()

	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, ErrRoomRequired
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	text = strings.TrimSpace(text)
	if text == "" && role != domain.RoleSystem {
		return nil, ErrEmptyText
	}
	if s.MaxTextRunes > 0 && utf8.RuneCountInString(text) > s.MaxTextRunes {
		return nil, ErrTextTooLong
	}

	return s.Store.AppendMessage(ctx, roomID, role, text, s.now())
}

// ListRooms returns a page of rooms, most recent activity first, optionally
// filtered by a case-insensitive substring of the room id.
func (s *RoomService) ListRooms(ctx context.Context, page, limit int, search string) (Page[domain.Room], error) {
	page, limit = utils.ClampPage(page, limit, DefaultRoomsLimit, MaxRoomsLimit)
	ctx, span := otel.Tracer("services/RoomService").Start(ctx, "ListRooms",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	out := Page[domain.Room]{Items: []domain.Room{}, Page: page, Limit: limit}
	total, err := s.Store.CountRooms(ctx, search)
	if err != nil {
		return out, err
	}
	out.Total = total
	out.TotalPages = utils.TotalPages(total, limit)
	if total == 0 {
		return out, nil
	}

	items, err := s.Store.ListRooms(ctx, search, utils.Offset(page, limit), limit)
	if err != nil {
		return out, err
	}
	out.Items = items
	return out, nil
}

// ListMessages returns a page of a room's history, oldest first, and marks
// the room as read.
func (s *RoomService) ListMessages(ctx context.Context, roomID string, page, limit int) (Page[domain.Message], error) {
	page, limit = utils.ClampPage(page, limit, DefaultMessagesLimit, MaxMessagesLimit)
	ctx, span := otel.Tracer("services/RoomService").Start(ctx, "ListMessages",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.Int("page", page),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	out := Page[domain.Message]{Items: []domain.Message{}, Page: page, Limit: limit}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return out, ErrRoomRequired
	}
	if _, err := s.Store.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return out, ErrRoomNotFound
		}
		return out, err
	}

	total, err := s.Store.CountMessages(ctx, roomID)
	if err != nil {
		return out, err
	}
	out.Total = total
	out.TotalPages = utils.TotalPages(total, limit)
	if total > 0 {
		items, err := s.Store.ListMessages(ctx, roomID, utils.Offset(page, limit), limit)
		if err != nil {
			return out, err
		}
		out.Items = items
	}

	if err := s.Store.MarkRoomRead(ctx, roomID); err != nil {
		return out, err
	}
	return out, nil
}

// History returns a room's full message log, oldest first, without touching
// the unread counter.
func (s *RoomService) History(ctx context.Context, roomID string) ([]domain.Message, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, ErrRoomRequired
	}
	return s.Store.ListMessages(ctx, roomID, 0, 0)
}

// DeleteRoom removes a room and its messages. Deleting an unknown room
// succeeds.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID string) error {
	ctx, span := otel.Tracer("services/RoomService").Start(ctx, "DeleteRoom",
		trace.WithAttributes(attribute.String("room.id", roomID)),
	)
	defer span.End()

	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return ErrRoomRequired
	}
	return s.Store.DeleteRoom(ctx, roomID)
}

// Stats returns the number of rooms matching search and the latest update
// time among them, for conditional GETs.
func (s *RoomService) Stats(ctx context.Context, search string) (int64, *time.Time, error) {
	return s.Store.RoomsStats(ctx, search)
}

func (s *RoomService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
