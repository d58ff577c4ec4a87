package types

import (
	"time"

	"github.com/google/uuid"
)

type Discussion struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string    `gorm:"not null;column:title" json:"title"`
	Tags      string    `gorm:"column:tags" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Discussion) TableName() string {
	return "discussion"
}
