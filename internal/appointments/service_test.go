package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
)

var now = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2024, 5, 2, hour, minute, 0, 0, time.UTC)
}

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

type fixture struct {
	svc       *service
	conn      *gorm.DB
	events    *recordingOutbox
	property  models.Property
	owner     models.User
	client    models.User
	concierge models.User
	seller    Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	f := &fixture{conn: conn, events: &recordingOutbox{}}
	svc, err := NewService(NewRepository(conn), client, f.events)
	require.NoError(t, err)
	f.svc = svc.(*service)
	f.svc.now = func() time.Time { return now }

	f.owner = f.user(t, enums.UserRoleOwner)
	f.client = f.user(t, enums.UserRoleClient)
	f.concierge = f.user(t, enums.UserRoleConcierge)
	f.seller = Actor{UserID: f.user(t, enums.UserRoleSeller).ID, Role: enums.UserRoleSeller}
	f.property = models.Property{
		Title:          "Depto Condesa",
		Slug:           "depto-condesa",
		PropertyType:   enums.PropertyTypeApartment,
		OperationType:  enums.OperationRent,
		Currency:       "MXN",
		OwnerID:        f.owner.ID,
		ApprovalStatus: enums.ApprovalApproved,
	}
	require.NoError(t, conn.Create(&f.property).Error)
	return f
}

func (f *fixture) user(t *testing.T, role enums.UserRole) models.User {
	t.Helper()
	u := models.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		FirstName:    "Mario",
		LastName:     string(role),
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, f.conn.Create(&u).Error)
	return u
}

func (f *fixture) book(start time.Time, minutes int) (*AppointmentDTO, error) {
	return f.svc.Schedule(context.Background(), f.seller, ScheduleInput{
		PropertyID:      f.property.ID,
		ClientID:        &f.client.ID,
		ConciergeID:     &f.concierge.ID,
		ScheduledAt:     start,
		DurationMinutes: minutes,
	})
}

func TestOverlaps(t *testing.T) {
	require.True(t, Overlaps(at(10, 0), at(11, 0), at(10, 59), at(11, 30)))
	require.True(t, Overlaps(at(10, 0), at(11, 0), at(9, 0), at(10, 1)))
	require.True(t, Overlaps(at(10, 0), at(11, 0), at(10, 15), at(10, 45)))
	require.False(t, Overlaps(at(10, 0), at(11, 0), at(11, 0), at(12, 0)))
	require.False(t, Overlaps(at(10, 0), at(11, 0), at(9, 0), at(10, 0)))
}

func TestScheduleRejectsConciergeOverlap(t *testing.T) {
	f := newFixture(t)

	first, err := f.book(at(10, 0), 60)
	require.NoError(t, err)
	require.Equal(t, enums.AppointmentPending, first.Status)
	require.Equal(t, at(11, 0), first.EndsAt)
	require.Equal(t, enums.EventAppointmentScheduled, f.events.events[0].EventType)

	_, err = f.book(at(10, 30), 60)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	_, err = f.book(at(9, 30), 31)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "ends one minute into the visit")

	_, err = f.book(at(11, 0), 60)
	require.NoError(t, err, "back-to-back after")
	_, err = f.book(at(9, 0), 60)
	require.NoError(t, err, "back-to-back before")

	_, err = f.svc.Cancel(context.Background(), f.seller, first.ID, StatusInput{Reason: "client travelling"})
	require.NoError(t, err)
	_, err = f.book(at(10, 0), 60)
	require.NoError(t, err, "cancelled visits free the slot")
}

func TestFinishedVisitsStillHoldTheSlot(t *testing.T) {
	f := newFixture(t)

	for _, status := range []enums.AppointmentStatus{enums.AppointmentCompleted, enums.AppointmentNoShow} {
		a, err := f.book(at(10, 0), 60)
		require.NoError(t, err)
		require.NoError(t, f.conn.Model(&models.Appointment{}).Where("id = ?", a.ID).Update("status", status).Error)

		_, err = f.book(at(10, 30), 30)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "%s visit blocks", status)

		require.NoError(t, f.conn.Model(&models.Appointment{}).Where("id = ?", a.ID).Update("status", enums.AppointmentCancelled).Error)
	}
	_, err := f.book(at(10, 30), 30)
	require.NoError(t, err)
}

func TestScheduleValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.book(at(10, 0), 10)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.book(at(10, 0), 241)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.book(now.Add(-time.Hour), 30)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Schedule(ctx, f.seller, ScheduleInput{
		PropertyID: f.property.ID, ClientID: &f.client.ID, ConciergeID: &f.client.ID,
		ScheduledAt: at(10, 0), DurationMinutes: 30,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "not a concierge")

	require.NoError(t, f.conn.Model(&models.Property{}).Where("id = ?", f.property.ID).
		Update("approval_status", enums.ApprovalDraft).Error)
	_, err = f.book(at(10, 0), 30)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	self := Actor{UserID: f.client.ID, Role: enums.UserRoleClient}
	other := uuid.New()
	_, err = f.svc.Schedule(ctx, self, ScheduleInput{PropertyID: f.property.ID, ClientID: &other, ScheduledAt: at(10, 0), DurationMinutes: 30})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestStatusMachine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clientActor := Actor{UserID: f.client.ID, Role: enums.UserRoleClient}
	conciergeActor := Actor{UserID: f.concierge.ID, Role: enums.UserRoleConcierge}

	appt, err := f.book(at(10, 0), 60)
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, conciergeActor, appt.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "pending cannot complete")

	_, err = f.svc.Confirm(ctx, clientActor, appt.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	out, err := f.svc.Confirm(ctx, conciergeActor, appt.ID)
	require.NoError(t, err)
	require.Equal(t, enums.AppointmentConfirmed, out.Status)

	_, err = f.svc.Complete(ctx, conciergeActor, appt.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "visit not started")

	f.svc.now = func() time.Time { return at(11, 5) }
	out, err = f.svc.Complete(ctx, conciergeActor, appt.ID)
	require.NoError(t, err)
	require.Equal(t, enums.AppointmentCompleted, out.Status)

	_, err = f.svc.Cancel(ctx, clientActor, appt.ID, StatusInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "completed is terminal")

	last := f.events.events[len(f.events.events)-1]
	require.Equal(t, enums.EventAppointmentStatusChanged, last.EventType)
	changed := last.Data.(payloads.AppointmentStatusChangedEvent)
	require.Equal(t, enums.AppointmentConfirmed, changed.From)
	require.Equal(t, enums.AppointmentCompleted, changed.To)

	stranger := Actor{UserID: uuid.New(), Role: enums.UserRoleClient}
	_, err = f.svc.Get(ctx, stranger, appt.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRescheduleAndAssign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.user(t, enums.UserRoleConcierge)
	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}

	a, err := f.book(at(10, 0), 60)
	require.NoError(t, err)
	b, err := f.svc.Schedule(ctx, f.seller, ScheduleInput{
		PropertyID: f.property.ID, ClientID: &f.client.ID,
		ScheduledAt: at(12, 0), DurationMinutes: 60,
	})
	require.NoError(t, err)

	_, err = f.svc.Reschedule(ctx, f.seller, a.ID, RescheduleInput{ScheduledAt: at(10, 30)})
	require.NoError(t, err, "overlap with itself is ignored")

	_, err = f.svc.AssignConcierge(ctx, admin, b.ID, f.concierge.ID)
	require.NoError(t, err)
	_, err = f.svc.Reschedule(ctx, f.seller, b.ID, RescheduleInput{ScheduledAt: at(11, 0)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = f.svc.AssignConcierge(ctx, admin, b.ID, other.ID)
	require.NoError(t, err)
	out, err := f.svc.Reschedule(ctx, f.seller, b.ID, RescheduleInput{ScheduledAt: at(11, 0)})
	require.NoError(t, err)
	require.Equal(t, other.ID, *out.ConciergeID)

	_, err = f.svc.AssignConcierge(ctx, Actor{UserID: f.client.ID, Role: enums.UserRoleClient}, b.ID, other.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestListScopesAndRanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, h := range []int{9, 11, 13} {
		_, err := f.book(at(h, 0), 60)
		require.NoError(t, err)
	}

	from, to := at(10, 0), at(13, 0)
	page, err := f.svc.List(ctx, f.seller, ListFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.True(t, at(11, 0).Equal(page.Items[0].ScheduledAt))

	page, err = f.svc.List(ctx, Actor{UserID: f.owner.ID, Role: enums.UserRoleOwner}, ListFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)

	page, err = f.svc.List(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleClient}, ListFilter{})
	require.NoError(t, err)
	require.Empty(t, page.Items)

	page, err = f.svc.List(ctx, f.seller, ListFilter{Params: paramsWithLimit(2)})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotNil(t, page.NextOffset)
}

func TestSendReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.book(at(10, 0), 60)
	require.NoError(t, err)
	_, err = f.book(at(15, 0), 60)
	require.NoError(t, err)

	f.svc.now = func() time.Time { return at(8, 0) }
	f.events.events = nil
	sent, err := f.svc.SendReminders(ctx, 3*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	require.Equal(t, enums.EventAppointmentReminderDue, f.events.events[0].EventType)

	sent, err = f.svc.SendReminders(ctx, 3*time.Hour)
	require.NoError(t, err)
	require.Zero(t, sent, "already reminded")
}

func paramsWithLimit(limit int) pagination.Params {
	return pagination.Params{Limit: limit}
}
