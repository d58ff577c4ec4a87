package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Message struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DiscussionID uuid.UUID      `gorm:"type:uuid;index;not null" json:"discussion_id"`
	Role         string         `gorm:"not null;column:role" json:"role"`
	Text         string         `gorm:"not null;column:text" json:"text"`
	Metadata     datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
}

func (Message) TableName() string {
	return "message"
}
