package commissions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/types"
)

// Config is the tier-agnostic view of one configuration row.
type Config struct {
	ID            uuid.UUID            `json:"id"`
	Tier          enums.CommissionTier `json:"tier"`
	Role          *enums.UserRole      `json:"role,omitempty"`
	UserID        *uuid.UUID           `json:"user_id,omitempty"`
	LeadID        *uuid.UUID           `json:"lead_id,omitempty"`
	OperationType enums.DealType       `json:"operation_type"`
	Percentage    decimal.Decimal      `json:"percentage"`
	ActiveFrom    time.Time            `json:"active_from"`
	ActiveTo      *time.Time           `json:"active_to,omitempty"`
	CreatedBy     *uuid.UUID           `json:"created_by,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

func (c Config) window() models.CommissionWindow {
	return models.CommissionWindow{
		OperationType: c.OperationType,
		Percentage:    c.Percentage,
		ActiveFrom:    c.ActiveFrom,
		ActiveTo:      c.ActiveTo,
	}
}

// Key identifies the subject a row targets within its tier.
type Key struct {
	Role   *enums.UserRole
	UserID *uuid.UUID
	LeadID *uuid.UUID
}

// CreateConfigInput describes a new configuration row.
type CreateConfigInput struct {
	Tier          enums.CommissionTier `json:"tier" validate:"required,enum"`
	Role          *enums.UserRole      `json:"role,omitempty"`
	UserID        *uuid.UUID           `json:"user_id,omitempty"`
	LeadID        *uuid.UUID           `json:"lead_id,omitempty"`
	OperationType enums.DealType       `json:"operation_type" validate:"required,enum"`
	Percentage    decimal.Decimal      `json:"percentage"`
	ActiveFrom    time.Time            `json:"active_from" validate:"required"`
	ActiveTo      *time.Time           `json:"active_to,omitempty"`
}

func (in CreateConfigInput) key() Key {
	return Key{Role: in.Role, UserID: in.UserID, LeadID: in.LeadID}
}

// UpdateConfigInput patches the mutable fields of a row. ActiveTo accepts an
// explicit null to reopen a window.
type UpdateConfigInput struct {
	Percentage *decimal.Decimal          `json:"percentage,omitempty"`
	ActiveFrom *time.Time                `json:"active_from,omitempty"`
	ActiveTo   types.Optional[time.Time] `json:"active_to"`
}

// ListFilter narrows ListConfigs; zero values match everything.
type ListFilter struct {
	Tier          enums.CommissionTier
	OperationType enums.DealType
	Role          *enums.UserRole
	UserID        *uuid.UUID
	LeadID        *uuid.UUID
	ActiveAt      *time.Time
}

// PreviewInput prices a hypothetical commission.
type PreviewInput struct {
	UserID     uuid.UUID       `json:"user_id" validate:"required"`
	LeadID     *uuid.UUID      `json:"lead_id,omitempty"`
	Operation  enums.DealType  `json:"operation_type" validate:"required,enum"`
	At         *time.Time      `json:"at,omitempty"`
	BaseAmount decimal.Decimal `json:"base_amount"`
}

type PreviewResult struct {
	Resolution
	UserID     uuid.UUID       `json:"user_id"`
	Role       enums.UserRole  `json:"role"`
	BaseAmount decimal.Decimal `json:"base_amount"`
	Amount     decimal.Decimal `json:"amount"`
	At         time.Time       `json:"at"`
}

// Participant is one user entitled to a share of a signed contract.
type Participant struct {
	UserID           uuid.UUID
	Role             enums.UserRole
	ExternalAgencyID *uuid.UUID
	ParticipantRole  string
}

const (
	ParticipantLeadRegistrant = "lead_registrant"
	ParticipantLeadAssignee   = "lead_assignee"
	ParticipantPropertySeller = "property_seller"
)

// GenerateInput drives commission record creation for a freshly signed
// contract.
type GenerateInput struct {
	Contract     models.Contract
	Participants []Participant
	SignedAt     time.Time
	Actor        *uuid.UUID
}

func fromDefault(m models.CommissionDefault) Config {
	return Config{
		ID: m.ID, Tier: enums.CommissionTierDefault,
		OperationType: m.OperationType, Percentage: m.Percentage,
		ActiveFrom: m.ActiveFrom, ActiveTo: m.ActiveTo,
		CreatedBy: m.CreatedBy, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

func fromRole(m models.CommissionRoleOverride) Config {
	role := m.Role
	return Config{
		ID: m.ID, Tier: enums.CommissionTierRole, Role: &role,
		OperationType: m.OperationType, Percentage: m.Percentage,
		ActiveFrom: m.ActiveFrom, ActiveTo: m.ActiveTo,
		CreatedBy: m.CreatedBy, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

func fromUser(m models.CommissionUserOverride) Config {
	userID := m.UserID
	return Config{
		ID: m.ID, Tier: enums.CommissionTierUser, UserID: &userID,
		OperationType: m.OperationType, Percentage: m.Percentage,
		ActiveFrom: m.ActiveFrom, ActiveTo: m.ActiveTo,
		CreatedBy: m.CreatedBy, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

func fromLead(m models.CommissionLeadOverride) Config {
	leadID := m.LeadID
	return Config{
		ID: m.ID, Tier: enums.CommissionTierLead, LeadID: &leadID, UserID: m.UserID,
		OperationType: m.OperationType, Percentage: m.Percentage,
		ActiveFrom: m.ActiveFrom, ActiveTo: m.ActiveTo,
		CreatedBy: m.CreatedBy, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}
