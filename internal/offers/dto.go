package offers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
)

type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) isAdmin() bool { return a.Role == enums.UserRoleAdmin }

func (a Actor) isBuyer() bool {
	return a.Role == enums.UserRoleClient || a.Role == enums.UserRoleTenant
}

type OfferDTO struct {
	ID            uuid.UUID         `json:"id"`
	PropertyID    uuid.UUID         `json:"property_id"`
	ClientID      uuid.UUID         `json:"client_id"`
	CreatedBy     uuid.UUID         `json:"created_by"`
	LeadID        *uuid.UUID        `json:"lead_id,omitempty"`
	DealType      enums.DealType    `json:"deal_type"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	Status        enums.OfferStatus `json:"status"`
	CounterAmount *decimal.Decimal  `json:"counter_amount,omitempty"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	Notes         *string           `json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func FromModel(m *models.Offer) OfferDTO {
	return OfferDTO{
		ID:            m.ID,
		PropertyID:    m.PropertyID,
		ClientID:      m.ClientID,
		CreatedBy:     m.CreatedBy,
		LeadID:        m.LeadID,
		DealType:      m.DealType,
		Amount:        m.Amount,
		Currency:      m.Currency,
		Status:        m.Status,
		CounterAmount: m.CounterAmount,
		ExpiresAt:     m.ExpiresAt,
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// MakeInput carries a new offer. ClientID is required when staff make the
// offer on a client's behalf and ignored for clients and tenants.
type MakeInput struct {
	PropertyID uuid.UUID       `json:"property_id" validate:"required"`
	ClientID   *uuid.UUID      `json:"client_id,omitempty"`
	LeadID     *uuid.UUID      `json:"lead_id,omitempty"`
	DealType   enums.DealType  `json:"deal_type" validate:"required,enum"`
	Amount     decimal.Decimal `json:"amount" validate:"positive_amount"`
	Currency   string          `json:"currency,omitempty"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
	Notes      *string         `json:"notes,omitempty"`
}

type CounterInput struct {
	Amount decimal.Decimal `json:"amount" validate:"positive_amount"`
	Notes  *string         `json:"notes,omitempty"`
}

type ListFilter struct {
	PropertyID *uuid.UUID
	Status     *enums.OfferStatus
	pagination.Params
}
