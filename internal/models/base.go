package models

import (
	"time"

	"gorm.io/gorm"

	"moneta/internal/uuid"
)

// Base contains common columns for all tables. Rows are hard-deleted: the
// ledger's uniqueness and reference rules apply to live rows only.
type Base struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}

// All lists every model, in dependency order, for schema auto-migration.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Account{},
		&Category{},
		&Transaction{},
		&Budget{},
		&Goal{},
		&GoalContribution{},
		&AuditLog{},
	}
}
