package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
)

const reminderBatch = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service schedules property visits and drives their status machine.
type Service interface {
	Schedule(ctx context.Context, actor Actor, in ScheduleInput) (*AppointmentDTO, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*AppointmentDTO, error)
	List(ctx context.Context, actor Actor, f ListFilter) (*pagination.Page[AppointmentDTO], error)
	Confirm(ctx context.Context, actor Actor, id uuid.UUID) (*AppointmentDTO, error)
	Complete(ctx context.Context, actor Actor, id uuid.UUID) (*AppointmentDTO, error)
	Cancel(ctx context.Context, actor Actor, id uuid.UUID, in StatusInput) (*AppointmentDTO, error)
	MarkNoShow(ctx context.Context, actor Actor, id uuid.UUID) (*AppointmentDTO, error)
	Reschedule(ctx context.Context, actor Actor, id uuid.UUID, in RescheduleInput) (*AppointmentDTO, error)
	AssignConcierge(ctx context.Context, actor Actor, id, conciergeID uuid.UUID) (*AppointmentDTO, error)
	SendReminders(ctx context.Context, lead time.Duration) (int, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("appointments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox, now: func() time.Time { return time.Now().UTC() }}, nil
}

// allowed is the appointment status machine.
var allowed = map[enums.AppointmentStatus][]enums.AppointmentStatus{
	enums.AppointmentPending:   {enums.AppointmentConfirmed, enums.AppointmentCancelled},
	enums.AppointmentConfirmed: {enums.AppointmentCompleted, enums.AppointmentCancelled, enums.AppointmentNoShow},
}

func canMove(from, to enums.AppointmentStatus) bool {
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Overlaps reports whether two half-open ranges [aStart, aEnd) and
// [bStart, bEnd) share any instant. Back-to-back ranges do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func (s *service) Schedule(ctx context.Context, actor Actor, in ScheduleInput) (*AppointmentDTO, error) {
	start := in.ScheduledAt.UTC()
	if err := s.validateSlot(start, in.DurationMinutes); err != nil {
		return nil, err
	}

	clientID := actor.UserID
	switch {
	case actor.isBooker():
		if in.ClientID == nil {
			return nil, fieldError("client_id", "client_id is required when booking for someone else")
		}
		clientID = *in.ClientID
	case actor.Role == enums.UserRoleClient || actor.Role == enums.UserRoleTenant:
		if in.ClientID != nil && *in.ClientID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "clients can only book their own visits")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot book visits")
	}

	property, err := s.repo.FindProperty(ctx, in.PropertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load property")
	}
	if property.ApprovalStatus != enums.ApprovalApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "visits can only be booked on approved listings")
	}
	if clientID != actor.UserID {
		if _, err := s.loadUser(ctx, s.repo, clientID, "client_id"); err != nil {
			return nil, err
		}
	}

	appt := &models.Appointment{
		PropertyID:      property.ID,
		ClientID:        clientID,
		ConciergeID:     in.ConciergeID,
		LeadID:          in.LeadID,
		ScheduledAt:     start,
		DurationMinutes: in.DurationMinutes,
		Status:          enums.AppointmentPending,
		Notes:           trimmed(in.Notes),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if appt.ConciergeID != nil {
			if err := s.checkConcierge(ctx, repo, *appt.ConciergeID, start, appt.EndsAt(), nil); err != nil {
				return err
			}
		}
		if err := repo.Create(ctx, appt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create appointment")
		}
		return s.emitScheduled(ctx, tx, actor, appt)
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(appt)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*AppointmentDTO, error) {
	appt, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVisible(ctx, actor, appt); err != nil {
		return nil, err
	}
	dto := FromModel(appt)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor Actor, f ListFilter) (*pagination.Page[AppointmentDTO], error) {
	if f.Status != nil && !f.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}
	if f.Offset < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offset must not be negative")
	}
	rows, err := s.repo.List(ctx, actor, f, pagination.LimitWithBuffer(f.Limit), f.Offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list appointments")
	}
	items := make([]AppointmentDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	page := pagination.OffsetPage(items, f.Limit, f.Offset)
	return &page, nil
}

func (s *service) Confirm(ctx context.Context, actor Actor, id uuid.UUID) (*AppointmentDTO, error) {
	return s.transition(ctx, actor, id, enums.AppointmentConfirmed, "")
}

func (s *service) Complete(ctx context.Context, actor Actor, id uuid.UUID) (*AppointmentDTO, error) {
	return s.transition(ctx, actor, id, enums.AppointmentCompleted, "")
}

func (s *service) Cancel(ctx context.Context, actor Actor, id uuid.UUID, in StatusInput) (*AppointmentDTO, error) {
	return s.transition(ctx, actor, id, enums.AppointmentCancelled, in.Reason)
}

func (s *service) MarkNoShow(ctx context.Context, actor Actor, id uuid.UUID) (*AppointmentDTO, error) {
	return s.transition(ctx, actor, id, enums.AppointmentNoShow, "")
}

func (s *service) transition(ctx context.Context, actor Actor, id uuid.UUID, to enums.AppointmentStatus, reason string) (*AppointmentDTO, error) {
	var out AppointmentDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		appt, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if err := s.authorizeStatus(ctx, actor, appt, to); err != nil {
			return err
		}
		if !canMove(appt.Status, to) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move a %s appointment to %s", appt.Status, to).
				WithDetails(map[string]any{"status": appt.Status, "allowed": allowed[appt.Status]})
		}
		if (to == enums.AppointmentCompleted || to == enums.AppointmentNoShow) && s.now().Before(appt.ScheduledAt) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "the visit has not started yet")
		}
		cols := map[string]any{"status": to}
		if note := strings.TrimSpace(reason); note != "" {
			cols["notes"] = appendNote(appt.Notes, note)
		}
		if err := repo.UpdateColumns(ctx, appt.ID, cols); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update appointment")
		}
		if err := s.emit(ctx, tx, actor, enums.EventAppointmentStatusChanged, appt.ID, payloads.AppointmentStatusChangedEvent{
			AppointmentID: appt.ID,
			PropertyID:    appt.PropertyID,
			ClientID:      appt.ClientID,
			ConciergeID:   appt.ConciergeID,
			From:          appt.Status,
			To:            to,
			ScheduledAt:   appt.ScheduledAt,
		}); err != nil {
			return err
		}
		fresh, err := s.load(ctx, repo, appt.ID)
		if err != nil {
			return err
		}
		out = FromModel(fresh)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Reschedule moves a pending or confirmed visit. The visit returns to
// pending and its reminder is re-armed.
func (s *service) Reschedule(ctx context.Context, actor Actor, id uuid.UUID, in RescheduleInput) (*AppointmentDTO, error) {
	start := in.ScheduledAt.UTC()
	var out AppointmentDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		appt, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if err := s.ensureParticipant(ctx, actor, appt); err != nil {
			return err
		}
		if !appt.Status.BlocksSchedule() {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "a %s appointment cannot be rescheduled", appt.Status)
		}
		duration := appt.DurationMinutes
		if in.DurationMinutes != nil {
			duration = *in.DurationMinutes
		}
		if err := s.validateSlot(start, duration); err != nil {
			return err
		}
		end := start.Add(time.Duration(duration) * time.Minute)
		if appt.ConciergeID != nil {
			if err := s.checkConcierge(ctx, repo, *appt.ConciergeID, start, end, &appt.ID); err != nil {
				return err
			}
		}
		if err := repo.UpdateColumns(ctx, appt.ID, map[string]any{
			"scheduled_at":     start,
			"duration_minutes": duration,
			"status":           enums.AppointmentPending,
			"reminder_sent_at": nil,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reschedule appointment")
		}
		fresh, err := s.load(ctx, repo, appt.ID)
		if err != nil {
			return err
		}
		if err := s.emitScheduled(ctx, tx, actor, fresh); err != nil {
			return err
		}
		out = FromModel(fresh)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) AssignConcierge(ctx context.Context, actor Actor, id, conciergeID uuid.UUID) (*AppointmentDTO, error) {
	if !actor.isAdmin() && actor.Role != enums.UserRoleSeller {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to assign concierges")
	}
	var out AppointmentDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		appt, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if !appt.Status.BlocksSchedule() {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot assign a concierge to a %s appointment", appt.Status)
		}
		if appt.ConciergeID != nil && *appt.ConciergeID == conciergeID {
			out = FromModel(appt)
			return nil
		}
		if err := s.checkConcierge(ctx, repo, conciergeID, appt.ScheduledAt, appt.EndsAt(), &appt.ID); err != nil {
			return err
		}
		if err := repo.UpdateColumns(ctx, appt.ID, map[string]any{"concierge_id": conciergeID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign concierge")
		}
		fresh, err := s.load(ctx, repo, appt.ID)
		if err != nil {
			return err
		}
		if err := s.emitScheduled(ctx, tx, actor, fresh); err != nil {
			return err
		}
		out = FromModel(fresh)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SendReminders queues a reminder event for every visit starting within
// lead from now that has not been reminded yet.
func (s *service) SendReminders(ctx context.Context, lead time.Duration) (int, error) {
	now := s.now()
	due, err := s.repo.DueReminders(ctx, now, now.Add(lead), reminderBatch)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load due reminders")
	}
	sent := 0
	for i := range due {
		appt := due[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			claimed, err := s.repo.WithTx(tx).MarkReminded(ctx, appt.ID, now)
			if err != nil || !claimed {
				return err
			}
			sent++
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventAppointmentReminderDue,
				AggregateType: enums.AggregateAppointment,
				AggregateID:   appt.ID,
				Data: payloads.AppointmentReminderEvent{
					AppointmentID: appt.ID,
					PropertyID:    appt.PropertyID,
					ClientID:      appt.ClientID,
					ConciergeID:   appt.ConciergeID,
					ScheduledAt:   appt.ScheduledAt,
				},
			})
		})
		if err != nil {
			return sent, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue reminder")
		}
	}
	return sent, nil
}

func (s *service) validateSlot(start time.Time, duration int) error {
	if duration < MinDurationMinutes || duration > MaxDurationMinutes {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "duration must be between %d and %d minutes", MinDurationMinutes, MaxDurationMinutes).
			WithDetails(map[string]any{"field": "duration_minutes"})
	}
	if !start.After(s.now()) {
		return fieldError("scheduled_at", "visits must be scheduled in the future")
	}
	return nil
}

// checkConcierge validates the concierge account and rejects a slot that
// overlaps any other blocking appointment they hold.
func (s *service) checkConcierge(ctx context.Context, repo Repository, conciergeID uuid.UUID, start, end time.Time, exclude *uuid.UUID) error {
	user, err := s.loadUser(ctx, repo, conciergeID, "concierge_id")
	if err != nil {
		return err
	}
	if user.Role != enums.UserRoleConcierge {
		return fieldError("concierge_id", "user is not a concierge")
	}
	if err := repo.LockUser(ctx, conciergeID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock concierge calendar")
	}
	existing, err := repo.ConciergeWindow(ctx, conciergeID, start, end, exclude)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load concierge calendar")
	}
	for _, other := range existing {
		if Overlaps(start, end, other.ScheduledAt, other.EndsAt()) {
			return pkgerrors.New(pkgerrors.CodeConflict, "concierge already has a visit at that time").
				WithDetails(map[string]any{
					"appointment_id": other.ID,
					"scheduled_at":   other.ScheduledAt,
					"ends_at":        other.EndsAt(),
				})
		}
	}
	return nil
}

func (s *service) loadUser(ctx context.Context, repo Repository, id uuid.UUID, field string) (*models.User, error) {
	user, err := repo.FindUser(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fieldError(field, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive {
		return nil, fieldError(field, "user is deactivated")
	}
	return user, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Appointment, error) {
	appt, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "appointment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load appointment")
	}
	return appt, nil
}

// ensureVisible hides appointments from users unrelated to them.
func (s *service) ensureVisible(ctx context.Context, actor Actor, appt *models.Appointment) error {
	if actor.isAdmin() || actor.Role == enums.UserRoleSeller {
		return nil
	}
	if err := s.ensureParticipant(ctx, actor, appt); err != nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "appointment not found")
	}
	return nil
}

func (s *service) ensureParticipant(ctx context.Context, actor Actor, appt *models.Appointment) error {
	if actor.isAdmin() || actor.Role == enums.UserRoleSeller || appt.ClientID == actor.UserID {
		return nil
	}
	if appt.ConciergeID != nil && *appt.ConciergeID == actor.UserID {
		return nil
	}
	if actor.Role == enums.UserRoleOwner {
		p, err := s.repo.FindProperty(ctx, appt.PropertyID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load property")
		}
		if p.OwnerID == actor.UserID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not a participant of this appointment")
}

// authorizeStatus: clients may only cancel; completion and no-show belong to
// the assigned concierge and back office.
func (s *service) authorizeStatus(ctx context.Context, actor Actor, appt *models.Appointment, to enums.AppointmentStatus) error {
	if err := s.ensureParticipant(ctx, actor, appt); err != nil {
		return err
	}
	if to == enums.AppointmentCancelled || actor.isBooker() {
		return nil
	}
	if actor.Role == enums.UserRoleOwner && to == enums.AppointmentConfirmed {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeForbidden, "role %s cannot mark visits as %s", actor.Role, to)
}

func (s *service) emitScheduled(ctx context.Context, tx *gorm.DB, actor Actor, appt *models.Appointment) error {
	return s.emit(ctx, tx, actor, enums.EventAppointmentScheduled, appt.ID, payloads.AppointmentScheduledEvent{
		AppointmentID:   appt.ID,
		PropertyID:      appt.PropertyID,
		ClientID:        appt.ClientID,
		ConciergeID:     appt.ConciergeID,
		ScheduledAt:     appt.ScheduledAt,
		DurationMinutes: appt.DurationMinutes,
	})
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor Actor, event enums.OutboxEventType, id uuid.UUID, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     event,
		AggregateType: enums.AggregateAppointment,
		AggregateID:   id,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(event))
	}
	return nil
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"field": field})
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func appendNote(existing *string, note string) string {
	if existing == nil || *existing == "" {
		return note
	}
	return *existing + "\n" + note
}
