package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity is the embedded base for persisted domain records. The domain
// structs double as the GORM models here, so the identifier and timestamp
// columns are tagged explicitly rather than left to convention. IDs are
// assigned in the application, never by the database, so a record's identity
// is stable before its first insert.
type BaseEntity struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// NewBaseEntity creates a base entity with a fresh random ID and both
// timestamps set to the same instant.
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
