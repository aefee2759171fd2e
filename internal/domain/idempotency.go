package domain

import "time"

// Idempotency records the outcome of a completed write keyed by
// (scope, key), so a retried request with the same Idempotency-Key returns
// the original resource instead of creating a second one. Scope is chosen by
// the HTTP layer (client IP for public endpoints).
type Idempotency struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Scope      string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_key,priority:1"`
	Key        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_key,priority:2"`
	ResourceID string    `gorm:"type:TEXT NOT NULL"`
	Status     int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }

// Live reports whether the record can still be replayed at now.
func (i Idempotency) Live(now time.Time) bool { return now.Before(i.ExpiresAt) }
