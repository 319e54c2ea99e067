package appointments

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
)

const (
	MinDurationMinutes = 15
	MaxDurationMinutes = 240
)

// Actor is the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) isAdmin() bool { return a.Role == enums.UserRoleAdmin }

// isBooker reports whether the role books visits on behalf of clients.
func (a Actor) isBooker() bool {
	return a.Role == enums.UserRoleAdmin || a.Role == enums.UserRoleSeller || a.Role == enums.UserRoleConcierge
}

type AppointmentDTO struct {
	ID              uuid.UUID               `json:"id"`
	PropertyID      uuid.UUID               `json:"property_id"`
	ClientID        uuid.UUID               `json:"client_id"`
	ConciergeID     *uuid.UUID              `json:"concierge_id,omitempty"`
	LeadID          *uuid.UUID              `json:"lead_id,omitempty"`
	ScheduledAt     time.Time               `json:"scheduled_at"`
	EndsAt          time.Time               `json:"ends_at"`
	DurationMinutes int                     `json:"duration_minutes"`
	Status          enums.AppointmentStatus `json:"status"`
	Notes           *string                 `json:"notes,omitempty"`
	ReminderSentAt  *time.Time              `json:"reminder_sent_at,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

func FromModel(m *models.Appointment) AppointmentDTO {
	return AppointmentDTO{
		ID:              m.ID,
		PropertyID:      m.PropertyID,
		ClientID:        m.ClientID,
		ConciergeID:     m.ConciergeID,
		LeadID:          m.LeadID,
		ScheduledAt:     m.ScheduledAt,
		EndsAt:          m.EndsAt(),
		DurationMinutes: m.DurationMinutes,
		Status:          m.Status,
		Notes:           m.Notes,
		ReminderSentAt:  m.ReminderSentAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

type ScheduleInput struct {
	PropertyID      uuid.UUID  `json:"property_id" validate:"required"`
	ClientID        *uuid.UUID `json:"client_id,omitempty"`
	ConciergeID     *uuid.UUID `json:"concierge_id,omitempty"`
	LeadID          *uuid.UUID `json:"lead_id,omitempty"`
	ScheduledAt     time.Time  `json:"scheduled_at" validate:"required"`
	DurationMinutes int        `json:"duration_minutes" validate:"required"`
	Notes           *string    `json:"notes,omitempty"`
}

type RescheduleInput struct {
	ScheduledAt     time.Time `json:"scheduled_at" validate:"required"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
}

type StatusInput struct {
	Reason string `json:"reason,omitempty"`
}

// ListFilter narrows appointment lists. From and To bound scheduled_at as a
// half-open range.
type ListFilter struct {
	PropertyID  *uuid.UUID
	ConciergeID *uuid.UUID
	ClientID    *uuid.UUID
	Status      *enums.AppointmentStatus
	From        *time.Time
	To          *time.Time
	pagination.Params
}
