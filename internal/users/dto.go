package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
	"github.com/angelmondragon/propertyhub-backend/pkg/types"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID               uuid.UUID          `json:"id"`
	Email            string             `json:"email"`
	FirstName        string             `json:"first_name"`
	LastName         string             `json:"last_name"`
	Phone            *string            `json:"phone,omitempty"`
	Role             enums.UserRole     `json:"role"`
	ExternalAgencyID *uuid.UUID         `json:"external_agency_id,omitempty"`
	IsActive         bool               `json:"is_active"`
	LastLoginAt      *time.Time         `json:"last_login_at,omitempty"`
	Permissions      []enums.Permission `json:"permissions,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:               u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Phone:            u.Phone,
		Role:             u.Role,
		ExternalAgencyID: u.ExternalAgencyID,
		IsActive:         u.IsActive,
		LastLoginAt:      u.LastLoginAt,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// CreateInput is the admin payload for a new account. A blank Password
// makes the service generate a temporary one and return it once.
type CreateInput struct {
	Email            string         `json:"email" validate:"required,email"`
	Password         string         `json:"password,omitempty"`
	FirstName        string         `json:"first_name" validate:"required"`
	LastName         string         `json:"last_name"`
	Phone            *string        `json:"phone,omitempty"`
	Role             enums.UserRole `json:"role" validate:"required,enum"`
	ExternalAgencyID *uuid.UUID     `json:"external_agency_id,omitempty"`
}

// CreatedUser carries the temporary password when one was generated.
type CreatedUser struct {
	User         *UserDTO `json:"user"`
	TempPassword string   `json:"temp_password,omitempty"`
}

// UpdateInput is a PATCH: absent fields are left untouched.
type UpdateInput struct {
	FirstName        types.Optional[string]         `json:"first_name"`
	LastName         types.Optional[string]         `json:"last_name"`
	Phone            types.Optional[string]         `json:"phone"`
	Role             types.Optional[enums.UserRole] `json:"role"`
	ExternalAgencyID types.Optional[uuid.UUID]      `json:"external_agency_id"`
}

type ListFilter struct {
	Role     *enums.UserRole
	AgencyID *uuid.UUID
	Query    string
	Active   *bool
	pagination.Params
}
