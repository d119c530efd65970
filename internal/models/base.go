package models

import (
	"time"

	"gorm.io/gorm"

	"ledgerd/internal/uuid"
)

// Base carries the id, timestamps and soft-delete marker shared by every
// ledger table. Deleted groups keep their row so funding history and group
// numbers stay intact.
type Base struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate assigns a UUIDv7 to new rows and stores preset ids in
// canonical form.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
		return nil
	}
	b.ID = uuid.Canonical(b.ID)
	return nil
}
