// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for offline inbox
// items.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

// CreateInboxItem inserts item, filling ID, status and timestamps when unset.
func CreateInboxItem(ctx context.Context, db *gorm.DB, item *domain.InboxItem) error {
	prepareInboxItem(item, time.Now().UTC())
	return db.WithContext(ctx).Create(item).Error
}

// GetInboxItem fetches a single inbox item by id, or ErrNotFound.
func GetInboxItem(ctx context.Context, db *gorm.DB, id string) (*domain.InboxItem, error) {
	var it domain.InboxItem
	if err := db.WithContext(ctx).Where("id = ?", id).First(&it).Error; err != nil {
		return nil, err
	}
	return &it, nil
}

// CountInbox returns the number of items, optionally filtered by status.
func CountInbox(ctx context.Context, db *gorm.DB, status domain.InboxStatus) (int64, error) {
	var total int64
	err := inboxFilter(db.WithContext(ctx).Model(&domain.InboxItem{}), status).
		Count(&total).Error
	return total, err
}

// ListInboxPage returns a page of items, newest first.
func ListInboxPage(ctx context.Context, db *gorm.DB, status domain.InboxStatus, offset, limit int) ([]domain.InboxItem, error) {
	var out []domain.InboxItem
	err := inboxFilter(db.WithContext(ctx), status).
		Order("created_at desc").
		Order("id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateInboxStatus sets the status of item id and returns the updated row.
// It returns ErrNotFound when no row matches.
func UpdateInboxStatus(ctx context.Context, db *gorm.DB, id string, status domain.InboxStatus) (*domain.InboxItem, error) {
	res := db.WithContext(ctx).
		Model(&domain.InboxItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return GetInboxItem(ctx, db, id)
}

func inboxFilter(q *gorm.DB, status domain.InboxStatus) *gorm.DB {
	if status == "" {
		return q
	}
	return q.Where("status = ?", status)
}

func prepareInboxItem(item *domain.InboxItem, now time.Time) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Status == "" {
		item.Status = domain.InboxQueued
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}
}
