// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the singleton
// admin presence record.
//
// The record is always addressed by domain.PresenceKey, never by a looked-up
// identity, and every write is an upsert so callers never depend on the row
// already existing.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

// EnsurePresence inserts the singleton record (offline) when it is missing
// and returns the stored row. An existing row is left untouched.
func EnsurePresence(ctx context.Context, db *gorm.DB) (*domain.PresenceRecord, error) {
	rec := &domain.PresenceRecord{
		Key:       domain.PresenceKey,
		Online:    false,
		UpdatedAt: time.Now().UTC(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rec).Error
	if err != nil {
		return nil, err
	}
	return GetPresence(ctx, db)
}

// GetPresence returns the singleton record or ErrNotFound.
func GetPresence(ctx context.Context, db *gorm.DB) (*domain.PresenceRecord, error) {
	var rec domain.PresenceRecord
	err := db.WithContext(ctx).
		Where("key = ?", domain.PresenceKey).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SetPresence stores online for the singleton key in a single upsert.
func SetPresence(ctx context.Context, db *gorm.DB, online bool, at time.Time) (*domain.PresenceRecord, error) {
	rec := &domain.PresenceRecord{
		Key:       domain.PresenceKey,
		Online:    online,
		UpdatedAt: at.UTC(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"online", "updated_at"}),
		}).
		Create(rec).Error
	if err != nil {
		return nil, err
	}
	return rec, nil
}
