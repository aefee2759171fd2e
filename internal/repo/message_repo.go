// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read helpers for room messages; writes
// go through AppendMessage in room_repo.go.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

// CountMessages returns the number of messages stored for roomID.
func CountMessages(ctx context.Context, db *gorm.DB, roomID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("room_id = ?", roomID).
		Count(&total).Error
	return total, err
}

// ListMessagesPage returns a page of a room's messages, oldest first.
// Messages with the same timestamp keep their insertion order.
func ListMessagesPage(ctx context.Context, db *gorm.DB, roomID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at asc").
		Order("id asc").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
