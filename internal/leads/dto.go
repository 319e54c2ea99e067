package leads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
)

// Actor is the authenticated caller. AgencyID is set for external agents.
type Actor struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	AgencyID *uuid.UUID
}

func (a Actor) isAdmin() bool { return a.Role == enums.UserRoleAdmin }

type LeadDTO struct {
	ID               uuid.UUID          `json:"id"`
	OperationType    enums.DealType     `json:"operation_type"`
	Status           enums.LeadStatus   `json:"status"`
	FullName         string             `json:"full_name"`
	Email            *string            `json:"email,omitempty"`
	Phone            *string            `json:"phone,omitempty"`
	PropertyID       *uuid.UUID         `json:"property_id,omitempty"`
	Source           *string            `json:"source,omitempty"`
	RegisteredByID   uuid.UUID          `json:"registered_by_id"`
	ExternalAgencyID *uuid.UUID         `json:"external_agency_id,omitempty"`
	AssignedToID     *uuid.UUID         `json:"assigned_to_id,omitempty"`
	BudgetMin        *decimal.Decimal   `json:"budget_min,omitempty"`
	BudgetMax        *decimal.Decimal   `json:"budget_max,omitempty"`
	Notes            *string            `json:"notes,omitempty"`
	LostReason       *string            `json:"lost_reason,omitempty"`
	NextStatuses     []enums.LeadStatus `json:"next_statuses"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func FromModel(m *models.Lead) LeadDTO {
	return LeadDTO{
		ID:               m.ID,
		OperationType:    m.OperationType,
		Status:           m.Status,
		FullName:         m.FullName,
		Email:            m.Email,
		Phone:            m.Phone,
		PropertyID:       m.PropertyID,
		Source:           m.Source,
		RegisteredByID:   m.RegisteredByID,
		ExternalAgencyID: m.ExternalAgencyID,
		AssignedToID:     m.AssignedToID,
		BudgetMin:        m.BudgetMin,
		BudgetMax:        m.BudgetMax,
		Notes:            m.Notes,
		LostReason:       m.LostReason,
		NextStatuses:     NextStatuses(m.OperationType, m.Status),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

type RegisterInput struct {
	OperationType enums.DealType   `json:"operation_type" validate:"required,enum"`
	FullName      string           `json:"full_name" validate:"required"`
	Email         *string          `json:"email,omitempty"`
	Phone         *string          `json:"phone,omitempty"`
	PropertyID    *uuid.UUID       `json:"property_id,omitempty"`
	Source        *string          `json:"source,omitempty"`
	AssignedToID  *uuid.UUID       `json:"assigned_to_id,omitempty"`
	BudgetMin     *decimal.Decimal `json:"budget_min,omitempty"`
	BudgetMax     *decimal.Decimal `json:"budget_max,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
}

type AdvanceInput struct {
	To     enums.LeadStatus `json:"to" validate:"required,enum"`
	Reason string           `json:"reason,omitempty"`
}

type ListFilter struct {
	Status        *enums.LeadStatus
	OperationType *enums.DealType
	AssignedToID  *uuid.UUID
	AgencyID      *uuid.UUID
	Query         string
	pagination.Params
}

// Duplicate describes the open lead that blocked a registration.
type Duplicate struct {
	LeadID     *uuid.UUID `json:"lead_id,omitempty"`
	MatchedOn  string     `json:"matched_on"`
	AgencyID   *uuid.UUID `json:"external_agency_id,omitempty"`
	AgencyName string     `json:"agency_name"`
	Since      time.Time  `json:"registered_at"`
}
