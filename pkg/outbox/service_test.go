package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox/payloads"
)

func TestEmitStoresEnvelope(t *testing.T) {
	client, conn := dbtest.Client(t)
	svc := NewService(NewRepository(conn), nil)
	propertyID := uuid.New()
	actor := &ActorRef{UserID: uuid.New(), Role: string(enums.UserRoleAdmin)}

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventPropertyStatusChanged,
			AggregateType: enums.AggregateProperty,
			AggregateID:   propertyID,
			Actor:         actor,
			Data: payloads.PropertyStatusChangedEvent{
				PropertyID: propertyID,
				From:       enums.ApprovalPendingReview,
				To:         enums.ApprovalApproved,
			},
		})
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row).Error)
	require.Equal(t, propertyID, row.AggregateID)
	require.Nil(t, row.PublishedAt)

	envelope, err := DecodeEnvelope(row.Payload)
	require.NoError(t, err)
	require.Equal(t, 1, envelope.Version)
	require.NotEmpty(t, envelope.EventID)
	require.Equal(t, actor.UserID, envelope.Actor.UserID)
	require.Contains(t, string(envelope.Data), `"to":"approved"`)
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventLeadRegistered})
	require.Error(t, err)
}

func TestEmitIfNotExistsSkipsDuplicates(t *testing.T) {
	client, conn := dbtest.Client(t)
	svc := NewService(NewRepository(conn), nil)
	appointmentID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventAppointmentReminderDue,
		AggregateType: enums.AggregateAppointment,
		AggregateID:   appointmentID,
		Data:          payloads.AppointmentReminderEvent{AppointmentID: appointmentID},
	}

	for i, want := range []bool{true, false} {
		var queued bool
		err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
			var err error
			queued, err = svc.EmitIfNotExists(context.Background(), tx, event)
			return err
		})
		require.NoError(t, err)
		require.Equal(t, want, queued, "attempt %d", i)
	}

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	client, conn := dbtest.Client(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	ctx := context.Background()

	leadID := uuid.New()
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventLeadRegistered,
			AggregateType: enums.AggregateLead,
			AggregateID:   leadID,
			Data:          payloads.LeadRegisteredEvent{LeadID: leadID},
		})
	}))

	var fetched []models.OutboxEvent
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		fetched, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		if err != nil {
			return err
		}
		return repo.MarkFailedTx(tx, fetched[0].ID, errors.New("publish timeout"))
	}))
	require.Len(t, fetched, 1)

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row, "id = ?", fetched[0].ID).Error)
	require.Equal(t, 1, row.AttemptCount)
	require.NotNil(t, row.LastError)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return repo.MarkPublishedTx(tx, row.ID)
	}))
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.Empty(t, rows)
		return err
	}))
}

func TestDLQRepositoryTruncatesMessage(t *testing.T) {
	client, conn := dbtest.Client(t)
	dlq := NewDLQRepository(conn)
	eventID := uuid.New()
	long := make([]byte, maxDLQErrorLen+100)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)

	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return dlq.InsertTx(tx, models.OutboxDLQ{
			EventID:       eventID,
			EventType:     enums.EventPaymentRecorded,
			AggregateType: enums.AggregateExternalPayment,
			AggregateID:   uuid.New(),
			Payload:       []byte(`{}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			ErrorMessage:  &msg,
			AttemptCount:  10,
		})
	}))

	entry, err := dlq.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Len(t, *entry.ErrorMessage, maxDLQErrorLen)

	missing, err := dlq.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, missing)

	rows, err := dlq.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
