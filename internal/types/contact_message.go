package types

import (
	"time"

	"github.com/google/uuid"
)

type ContactMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ContactID string    `gorm:"index;not null;column:contact_id" json:"contact_id"`
	Direction string    `gorm:"not null;column:direction" json:"direction"`
	Sender    string    `gorm:"column:sender" json:"sender"`
	Text      string    `gorm:"not null;column:text" json:"text"`
	SentAt    time.Time `gorm:"index;column:sent_at" json:"sent_at"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ContactMessage) TableName() string {
	return "contact_message"
}
