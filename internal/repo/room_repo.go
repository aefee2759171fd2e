// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for rooms.
//
// Rooms are never created explicitly. AppendMessage upserts the room row in
// the same transaction as the message insert using INSERT ... ON CONFLICT,
// so concurrent first messages to the same room id cannot create duplicates.
//
// Functions:
//
//   - AppendMessage(ctx, db, roomID, role, text, at) -> *domain.Message, error
//     Upserts the room (last_message_at, unread rule per role) and appends.
//
//   - GetRoom(ctx, db, roomID) -> *domain.Room, error
//     Fetches one room, or ErrNotFound.
//
//   - CountRooms / ListRoomsPage(ctx, db, search, ...)
//     Case-insensitive substring filter on room_id, newest activity first.
//
//   - MarkRoomRead(ctx, db, roomID) -> error
//     Resets unread_count to 0; a missing room is not an error.
//
//   - DeleteRoom(ctx, db, roomID) -> error
//     Deletes the room and all of its messages; missing rooms succeed.
package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound so the memory store and the GORM store
// report missing rows identically.
var ErrNotFound = gorm.ErrRecordNotFound

// UnreadOp describes how appending a message changes a room's unread count.
type UnreadOp int

const (
	UnreadKeep UnreadOp = iota
	UnreadIncrement
	UnreadReset
)

// UnreadOpFor maps a message role to its unread side effect: visitor
// messages count as unread, admin replies clear the counter, agent and
// system messages leave it alone.
func UnreadOpFor(role domain.Role) UnreadOp {
	switch role {
	case domain.RoleVisitor:
		return UnreadIncrement
	case domain.RoleAdmin:
		return UnreadReset
	default:
		return UnreadKeep
	}
}

// UpsertRoomActivity creates the room if unseen, otherwise refreshes
// last_message_at and applies op to unread_count, as one statement.
func UpsertRoomActivity(ctx context.Context, db *gorm.DB, roomID string, at time.Time, op UnreadOp) error {
	at = at.UTC()
	room := &domain.Room{
		RoomID:        roomID,
		LastMessageAt: at,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	set := map[string]any{
		"last_message_at": at,
		"updated_at":      at,
	}
	switch op {
	case UnreadIncrement:
		room.UnreadCount = 1
		set["unread_count"] = gorm.Expr(domain.Room{}.TableName() + ".unread_count + 1")
	case UnreadReset:
		set["unread_count"] = 0
	}

	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}},
			DoUpdates: clause.Assignments(set),
		}).
		Create(room).Error
}

// AppendMessage upserts the room and appends a message to its log inside a
// single transaction.
func AppendMessage(ctx context.Context, db *gorm.DB, roomID string, role domain.Role, text string, at time.Time) (*domain.Message, error) {
	msg := &domain.Message{
		RoomID:    roomID,
		Role:      role,
		Text:      text,
		CreatedAt: at.UTC(),
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := UpsertRoomActivity(ctx, tx, roomID, at, UnreadOpFor(role)); err != nil {
			return err
		}
		return tx.Create(msg).Error
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetRoom fetches a single room by id, or ErrNotFound.
func GetRoom(ctx context.Context, db *gorm.DB, roomID string) (*domain.Room, error) {
	var r domain.Room
	if err := db.WithContext(ctx).Where("room_id = ?", roomID).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// CountRooms returns the number of rooms whose id contains search
// (case-insensitive). An empty search counts every room.
func CountRooms(ctx context.Context, db *gorm.DB, search string) (int64, error) {
	var total int64
	err := roomSearch(db.WithContext(ctx).Model(&domain.Room{}), search).
		Count(&total).Error
	return total, err
}

// ListRoomsPage returns a page of rooms ordered by last activity descending.
func ListRoomsPage(ctx context.Context, db *gorm.DB, search string, offset, limit int) ([]domain.Room, error) {
	var out []domain.Room
	err := roomSearch(db.WithContext(ctx), search).
		Order("last_message_at desc").
		Order("room_id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkRoomRead resets the unread counter. Missing rooms are ignored.
func MarkRoomRead(ctx context.Context, db *gorm.DB, roomID string) error {
	return db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("room_id = ?", roomID).
		Updates(map[string]any{
			"unread_count": 0,
			"updated_at":   time.Now().UTC(),
		}).Error
}

// DeleteRoom removes a room and cascades to its messages.
func DeleteRoom(ctx context.Context, db *gorm.DB, roomID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("room_id = ?", roomID).Delete(&domain.Room{}).Error
	})
}

// roomSearch applies the case-insensitive room id filter.
func roomSearch(q *gorm.DB, search string) *gorm.DB {
	search = strings.TrimSpace(search)
	if search == "" {
		return q
	}
	return q.Where(`LOWER(room_id) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(search))+"%")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
