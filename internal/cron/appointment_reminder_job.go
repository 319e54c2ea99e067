package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

const defaultReminderLead = 24 * time.Hour

type reminderSender interface {
	SendReminders(ctx context.Context, lead time.Duration) (int, error)
}

// AppointmentReminderJobParams configures the visit reminder sweep.
type AppointmentReminderJobParams struct {
	Logger       *logger.Logger
	Appointments reminderSender
	LeadTime     time.Duration
}

func NewAppointmentReminderJob(params AppointmentReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Appointments == nil {
		return nil, fmt.Errorf("appointments service required")
	}
	lead := params.LeadTime
	if lead <= 0 {
		lead = defaultReminderLead
	}
	return &appointmentReminderJob{
		logg:         params.Logger,
		appointments: params.Appointments,
		lead:         lead,
	}, nil
}

type appointmentReminderJob struct {
	logg         *logger.Logger
	appointments reminderSender
	lead         time.Duration
}

func (j *appointmentReminderJob) Name() string { return "appointment-reminders" }

func (j *appointmentReminderJob) Run(ctx context.Context) error {
	sent, err := j.appointments.SendReminders(ctx, j.lead)
	if err != nil {
		return fmt.Errorf("appointment reminders: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"lead_time":      j.lead.String(),
		"reminders_sent": sent,
	})
	j.logg.Info(logCtx, "appointment reminders queued")
	return nil
}
