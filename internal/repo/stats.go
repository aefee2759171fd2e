// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (weak ETags) on admin listings.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

// RoomsStats returns the number of rooms matching search and the greatest
// UpdatedAt among them. Any upsert or read receipt bumps UpdatedAt, so the
// pair changes whenever the listing would.
//
// When nothing matches, count is 0 and maxUpdatedAt is nil.
func RoomsStats(ctx context.Context, db *gorm.DB, search string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := roomSearch(db.WithContext(ctx).Model(&domain.Room{}), search)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	q = roomSearch(db.WithContext(ctx).Model(&domain.Room{}), search)
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
