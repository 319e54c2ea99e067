package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

type Contract struct {
	ID           uuid.UUID            `gorm:"type:uuid;primaryKey"`
	PropertyID   uuid.UUID            `gorm:"column:property_id;type:uuid;not null"`
	LeadID       *uuid.UUID           `gorm:"column:lead_id;type:uuid"`
	OfferID      *uuid.UUID           `gorm:"column:offer_id;type:uuid"`
	ContractType enums.DealType       `gorm:"column:contract_type;type:deal_type;not null"`
	Status       enums.ContractStatus `gorm:"column:status;type:contract_status;not null"`
	Amount       decimal.Decimal      `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency     string               `gorm:"column:currency;not null"`
	Deposit      *decimal.Decimal     `gorm:"column:deposit;type:numeric(14,2)"`
	StartDate    *time.Time           `gorm:"column:start_date"`
	EndDate      *time.Time           `gorm:"column:end_date"`
	OwnerID      uuid.UUID            `gorm:"column:owner_id;type:uuid;not null"`
	ClientID     uuid.UUID            `gorm:"column:client_id;type:uuid;not null"`
	CreatedBy    uuid.UUID            `gorm:"column:created_by;type:uuid;not null"`
	SignedAt     *time.Time           `gorm:"column:signed_at"`
	DocumentKey  *string              `gorm:"column:document_key"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Contract) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
