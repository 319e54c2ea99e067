package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

// Lead is a prospective buyer or renter moving through a pipeline.
type Lead struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey"`
	OperationType    enums.DealType   `gorm:"column:operation_type;type:deal_type;not null"`
	Status           enums.LeadStatus `gorm:"column:status;type:lead_status;not null"`
	FullName         string           `gorm:"column:full_name;not null"`
	Email            *string          `gorm:"column:email"`
	Phone            *string          `gorm:"column:phone"`
	NormalizedEmail  *string          `gorm:"column:normalized_email"`
	NormalizedPhone  *string          `gorm:"column:normalized_phone"`
	PropertyID       *uuid.UUID       `gorm:"column:property_id;type:uuid"`
	Source           *string          `gorm:"column:source"`
	RegisteredByID   uuid.UUID        `gorm:"column:registered_by_id;type:uuid;not null"`
	ExternalAgencyID *uuid.UUID       `gorm:"column:external_agency_id;type:uuid"`
	AssignedToID     *uuid.UUID       `gorm:"column:assigned_to_id;type:uuid"`
	BudgetMin        *decimal.Decimal `gorm:"column:budget_min;type:numeric(14,2)"`
	BudgetMax        *decimal.Decimal `gorm:"column:budget_max;type:numeric(14,2)"`
	Notes            *string          `gorm:"column:notes"`
	LostReason       *string          `gorm:"column:lost_reason"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *Lead) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
