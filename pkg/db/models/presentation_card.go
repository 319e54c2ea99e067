package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PresentationCard is a shareable, expiring summary of a listing prepared for
// a prospective client.
type PresentationCard struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PropertyID uuid.UUID  `gorm:"column:property_id;type:uuid;not null"`
	ClientID   *uuid.UUID `gorm:"column:client_id;type:uuid"`
	CreatedBy  uuid.UUID  `gorm:"column:created_by;type:uuid;not null"`
	Title      string     `gorm:"column:title;not null"`
	Message    *string    `gorm:"column:message"`
	ShareToken string     `gorm:"column:share_token;not null;uniqueIndex"`
	ExpiresAt  time.Time  `gorm:"column:expires_at;not null"`
	ViewCount  int        `gorm:"column:view_count;not null"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *PresentationCard) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
