package propertystaff

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

// Actor is the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

type AssignInput struct {
	UserID uuid.UUID       `json:"user_id" validate:"required"`
	Role   enums.StaffRole `json:"role" validate:"required,enum"`
}

// StaffMember is one assignment joined with the user it points at.
type StaffMember struct {
	ID         uuid.UUID       `json:"id"`
	PropertyID uuid.UUID       `json:"property_id"`
	UserID     uuid.UUID       `json:"user_id"`
	Role       enums.StaffRole `json:"role"`
	FullName   string          `json:"full_name"`
	Email      string          `json:"email"`
	UserRole   enums.UserRole  `json:"user_role"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Assignment is a property the user staffs, seen from the user side.
type Assignment struct {
	PropertyID     uuid.UUID            `json:"property_id"`
	Title          string               `json:"title"`
	Slug           string               `json:"slug"`
	ApprovalStatus enums.ApprovalStatus `json:"approval_status"`
	Role           enums.StaffRole      `json:"role"`
	AssignedAt     time.Time            `json:"assigned_at"`
}
