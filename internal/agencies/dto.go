package agencies

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
	"github.com/angelmondragon/propertyhub-backend/pkg/types"
)

// Actor is the authenticated caller. AgencyID is set for external agents.
type Actor struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	AgencyID *uuid.UUID
}

type AgencyDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	ContactEmail *string   `json:"contact_email,omitempty"`
	IsActive     bool      `json:"is_active"`
	StaffCount   *int64    `json:"staff_count,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func FromModel(m *models.ExternalAgency) AgencyDTO {
	return AgencyDTO{
		ID:           m.ID,
		Name:         m.Name,
		Slug:         m.Slug,
		ContactEmail: m.ContactEmail,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// StaffMember is the agency-scoped view of a user.
type StaffMember struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateInput struct {
	Name         string  `json:"name" validate:"required"`
	ContactEmail *string `json:"contact_email,omitempty" validate:"omitempty,email"`
}

// UpdateInput is a PATCH. The slug is assigned once and never follows renames.
type UpdateInput struct {
	Name         types.Optional[string] `json:"name"`
	ContactEmail types.Optional[string] `json:"contact_email"`
}

type ListFilter struct {
	Query  string
	Active *bool
	pagination.Params
}
