package contracts

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

func (a Actor) isStaff() bool {
	return a.Role == enums.UserRoleAdmin || a.Role == enums.UserRoleSeller
}

type ContractDTO struct {
	ID           uuid.UUID            `json:"id"`
	PropertyID   uuid.UUID            `json:"property_id"`
	LeadID       *uuid.UUID           `json:"lead_id,omitempty"`
	OfferID      *uuid.UUID           `json:"offer_id,omitempty"`
	ContractType enums.DealType       `json:"contract_type"`
	Status       enums.ContractStatus `json:"status"`
	Amount       decimal.Decimal      `json:"amount"`
	Currency     string               `json:"currency"`
	Deposit      *decimal.Decimal     `json:"deposit,omitempty"`
	StartDate    *time.Time           `json:"start_date,omitempty"`
	EndDate      *time.Time           `json:"end_date,omitempty"`
	OwnerID      uuid.UUID            `json:"owner_id"`
	ClientID     uuid.UUID            `json:"client_id"`
	CreatedBy    uuid.UUID            `json:"created_by"`
	SignedAt     *time.Time           `json:"signed_at,omitempty"`
	DocumentKey  *string              `json:"document_key,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

func FromModel(m *models.Contract) ContractDTO {
	return ContractDTO{
		ID:           m.ID,
		PropertyID:   m.PropertyID,
		LeadID:       m.LeadID,
		OfferID:      m.OfferID,
		ContractType: m.ContractType,
		Status:       m.Status,
		Amount:       m.Amount,
		Currency:     m.Currency,
		Deposit:      m.Deposit,
		StartDate:    m.StartDate,
		EndDate:      m.EndDate,
		OwnerID:      m.OwnerID,
		ClientID:     m.ClientID,
		CreatedBy:    m.CreatedBy,
		SignedAt:     m.SignedAt,
		DocumentKey:  m.DocumentKey,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// CreateInput drafts a contract. When OfferID points at an accepted offer the
// property, client, type and amount default to the offer's.
type CreateInput struct {
	PropertyID   *uuid.UUID       `json:"property_id,omitempty"`
	OfferID      *uuid.UUID       `json:"offer_id,omitempty"`
	LeadID       *uuid.UUID       `json:"lead_id,omitempty"`
	ClientID     *uuid.UUID       `json:"client_id,omitempty"`
	ContractType enums.DealType   `json:"contract_type,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Currency     string           `json:"currency,omitempty"`
	Deposit      *decimal.Decimal `json:"deposit,omitempty"`
	StartDate    *time.Time       `json:"start_date,omitempty"`
	EndDate      *time.Time       `json:"end_date,omitempty"`
}

type ListFilter struct {
	PropertyID *uuid.UUID
	Status     *enums.ContractStatus
	pagination.Params
}

// Document is a rendered contract PDF stored in object storage.
type Document struct {
	Key         string    `json:"document_key"`
	DownloadURL string    `json:"download_url,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}
