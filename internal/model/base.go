package model

import (
	"time"
)

// Base contains common fields for persisted records
type Base struct {
	ID        int64      `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Deleted reports whether the record has been soft-deleted.
func (b Base) Deleted() bool {
	return b.DeletedAt != nil
}
