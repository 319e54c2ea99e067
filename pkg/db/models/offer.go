package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

type Offer struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey"`
	PropertyID    uuid.UUID         `gorm:"column:property_id;type:uuid;not null"`
	ClientID      uuid.UUID         `gorm:"column:client_id;type:uuid;not null"`
	CreatedBy     uuid.UUID         `gorm:"column:created_by;type:uuid;not null"`
	LeadID        *uuid.UUID        `gorm:"column:lead_id;type:uuid"`
	DealType      enums.DealType    `gorm:"column:deal_type;type:deal_type;not null"`
	Amount        decimal.Decimal   `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency      string            `gorm:"column:currency;not null"`
	Status        enums.OfferStatus `gorm:"column:status;type:offer_status;not null"`
	CounterAmount *decimal.Decimal  `gorm:"column:counter_amount;type:numeric(14,2)"`
	ExpiresAt     *time.Time        `gorm:"column:expires_at"`
	Notes         *string           `gorm:"column:notes"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Offer) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
