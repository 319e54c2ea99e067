package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExternalAgency is a partner organization whose staff register leads and
// earn commissions. Each agency is an isolation boundary.
type ExternalAgency struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	Slug         string    `gorm:"column:slug;not null;uniqueIndex"`
	ContactEmail *string   `gorm:"column:contact_email"`
	IsActive     bool      `gorm:"column:is_active;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ExternalAgency) TableName() string { return "external_agencies" }

func (a *ExternalAgency) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
