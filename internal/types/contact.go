package types

import (
	"time"
)

// Contact is one imported chat thread from the external message archive.
// The ID is the archive's thread identifier, not a generated UUID, so
// re-imports stay stable.
type Contact struct {
	ID          string    `gorm:"primaryKey;column:id" json:"contact_id"`
	DisplayName string    `gorm:"not null;column:display_name" json:"display_name"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Contact) TableName() string {
	return "contact"
}
