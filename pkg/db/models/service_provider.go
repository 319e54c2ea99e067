package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

type ServiceProvider struct {
	ID           uuid.UUID              `gorm:"type:uuid;primaryKey"`
	Name         string                 `gorm:"column:name;not null"`
	Category     enums.ProviderCategory `gorm:"column:category;type:provider_category;not null"`
	ContactName  *string                `gorm:"column:contact_name"`
	ContactEmail *string                `gorm:"column:contact_email"`
	ContactPhone *string                `gorm:"column:contact_phone"`
	IsActive     bool                   `gorm:"column:is_active;not null"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *ServiceProvider) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProviderService is an offering sold by a service provider.
type ProviderService struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey"`
	ProviderID  uuid.UUID        `gorm:"column:provider_id;type:uuid;not null"`
	Name        string           `gorm:"column:name;not null"`
	Description *string          `gorm:"column:description"`
	Price       *decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	Unit        *string          `gorm:"column:unit"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (ProviderService) TableName() string { return "services" }

func (s *ProviderService) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
