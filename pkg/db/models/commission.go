package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

// CommissionWindow is shared by every configuration tier.
type CommissionWindow struct {
	OperationType enums.DealType  `gorm:"column:operation_type;type:deal_type;not null"`
	Percentage    decimal.Decimal `gorm:"column:percentage;type:numeric(5,2);not null"`
	ActiveFrom    time.Time       `gorm:"column:active_from;not null"`
	ActiveTo      *time.Time      `gorm:"column:active_to"`
}

// ActiveAt reports whether the window covers t; the upper bound is exclusive.
func (w CommissionWindow) ActiveAt(t time.Time) bool {
	if t.Before(w.ActiveFrom) {
		return false
	}
	return w.ActiveTo == nil || t.Before(*w.ActiveTo)
}

// Overlaps reports whether two half-open windows share any instant.
func (w CommissionWindow) Overlaps(other CommissionWindow) bool {
	if w.ActiveTo != nil && !other.ActiveFrom.Before(*w.ActiveTo) {
		return false
	}
	if other.ActiveTo != nil && !w.ActiveFrom.Before(*other.ActiveTo) {
		return false
	}
	return true
}

type CommissionDefault struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`
	CommissionWindow
	CreatedBy *uuid.UUID `gorm:"column:created_by;type:uuid"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CommissionDefault) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

type CommissionRoleOverride struct {
	ID   uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Role enums.UserRole `gorm:"column:role;type:user_role;not null"`
	CommissionWindow
	CreatedBy *uuid.UUID `gorm:"column:created_by;type:uuid"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CommissionRoleOverride) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

type CommissionUserOverride struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	CommissionWindow
	CreatedBy *uuid.UUID `gorm:"column:created_by;type:uuid"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CommissionUserOverride) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CommissionLeadOverride applies to one lead; a nil UserID covers every
// participant of that lead.
type CommissionLeadOverride struct {
	ID     uuid.UUID  `gorm:"type:uuid;primaryKey"`
	LeadID uuid.UUID  `gorm:"column:lead_id;type:uuid;not null"`
	UserID *uuid.UUID `gorm:"column:user_id;type:uuid"`
	CommissionWindow
	CreatedBy *uuid.UUID `gorm:"column:created_by;type:uuid"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CommissionLeadOverride) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CommissionRecord is the ledger entry earned by one participant of a signed
// contract.
type CommissionRecord struct {
	ID               uuid.UUID              `gorm:"type:uuid;primaryKey"`
	ContractID       uuid.UUID              `gorm:"column:contract_id;type:uuid;not null"`
	UserID           uuid.UUID              `gorm:"column:user_id;type:uuid;not null"`
	ParticipantRole  string                 `gorm:"column:participant_role;not null"`
	ExternalAgencyID *uuid.UUID             `gorm:"column:external_agency_id;type:uuid"`
	LeadID           *uuid.UUID             `gorm:"column:lead_id;type:uuid"`
	OperationType    enums.DealType         `gorm:"column:operation_type;type:deal_type;not null"`
	BaseAmount       decimal.Decimal        `gorm:"column:base_amount;type:numeric(14,2);not null"`
	Percentage       decimal.Decimal        `gorm:"column:percentage;type:numeric(5,2);not null"`
	Amount           decimal.Decimal        `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency         string                 `gorm:"column:currency;not null"`
	SourceTier       enums.CommissionTier   `gorm:"column:source_tier;type:commission_tier;not null"`
	Status           enums.CommissionStatus `gorm:"column:status;type:commission_status;not null"`
	PeriodStart      time.Time              `gorm:"column:period_start;not null"`
	PeriodEnd        time.Time              `gorm:"column:period_end;not null"`
	PaymentID        *uuid.UUID             `gorm:"column:payment_id;type:uuid"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CommissionRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// ExternalPayment records a payout covering approved commission records for a
// single payee and period.
type ExternalPayment struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	ExternalAgencyID *uuid.UUID      `gorm:"column:external_agency_id;type:uuid"`
	PeriodStart      time.Time       `gorm:"column:period_start;not null"`
	PeriodEnd        time.Time       `gorm:"column:period_end;not null"`
	Amount           decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency         string          `gorm:"column:currency;not null"`
	Reference        *string         `gorm:"column:reference"`
	PaidAt           time.Time       `gorm:"column:paid_at;not null"`
	CreatedBy        uuid.UUID       `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (p *ExternalPayment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
