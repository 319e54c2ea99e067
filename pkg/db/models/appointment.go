package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

type Appointment struct {
	ID              uuid.UUID               `gorm:"type:uuid;primaryKey"`
	PropertyID      uuid.UUID               `gorm:"column:property_id;type:uuid;not null"`
	ClientID        uuid.UUID               `gorm:"column:client_id;type:uuid;not null"`
	ConciergeID     *uuid.UUID              `gorm:"column:concierge_id;type:uuid"`
	LeadID          *uuid.UUID              `gorm:"column:lead_id;type:uuid"`
	ScheduledAt     time.Time               `gorm:"column:scheduled_at;not null"`
	DurationMinutes int                     `gorm:"column:duration_minutes;not null"`
	Status          enums.AppointmentStatus `gorm:"column:status;type:appointment_status;not null"`
	Notes           *string                 `gorm:"column:notes"`
	ReminderSentAt  *time.Time              `gorm:"column:reminder_sent_at"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Appointment) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// EndsAt returns the exclusive end of the visit.
func (a Appointment) EndsAt() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}
