package router

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/propertyhub-backend/internal/analytics/types"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox/payloads"
)

func TestRouterUnsupportedEvent(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	env := types.Envelope{
		EventType: enums.EventAppointmentReminderDue,
		Payload:   []byte(`{"appointment_id":"x"}`),
	}
	err := router.Handle(context.Background(), env)
	if !errors.Is(err, ErrUnsupportedEventType) {
		t.Fatalf("expected unsupported error, got %v", err)
	}
}

func TestRouterRoutesToOverride(t *testing.T) {
	handler := &stubHandler{}
	router, writer := newTestRouter(t, map[enums.OutboxEventType]Handler{
		enums.EventLeadRegistered: handler,
	})
	data, _ := json.Marshal(payloads.LeadRegisteredEvent{LeadID: uuid.New(), OperationType: enums.DealSale})
	env := types.Envelope{EventType: enums.EventLeadRegistered, Payload: data}
	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handler.called {
		t.Fatalf("handler not invoked")
	}
	if len(writer.rows) != 0 {
		t.Fatalf("default handler should be replaced")
	}
}

func TestRouterRejectsBadPayload(t *testing.T) {
	router, writer := newTestRouter(t, nil)
	env := types.Envelope{EventType: enums.EventOfferMade, Payload: []byte(`{"amount":"lots"}`)}
	if err := router.Handle(context.Background(), env); err == nil {
		t.Fatal("expected decode error")
	}
	env.Payload = nil
	if err := router.Handle(context.Background(), env); err == nil {
		t.Fatal("expected empty payload error")
	}
	if len(writer.rows) != 0 {
		t.Fatalf("nothing should be written")
	}
}

func TestContractSignedRow(t *testing.T) {
	router, writer := newTestRouter(t, nil)
	signedAt := time.Date(2026, 4, 10, 18, 30, 0, 0, time.UTC)
	event := payloads.ContractSignedEvent{
		ContractID:   uuid.New(),
		PropertyID:   uuid.New(),
		OwnerID:      uuid.New(),
		ClientID:     uuid.New(),
		ContractType: enums.DealSale,
		Amount:       decimal.RequireFromString("2450000.505"),
		SignedAt:     signedAt,
	}
	data, _ := json.Marshal(event)
	env := types.Envelope{
		EventID:       uuid.NewString(),
		EventType:     enums.EventContractSigned,
		AggregateType: enums.AggregateContract,
		AggregateID:   event.ContractID.String(),
		OccurredAt:    signedAt.Add(time.Second),
		ActorUserID:   uuid.NewString(),
		Payload:       data,
	}
	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(writer.rows) != 1 {
		t.Fatalf("expected one row, got %d", len(writer.rows))
	}
	row := writer.rows[0]
	if row.AmountCents == nil || *row.AmountCents != 245000051 {
		t.Fatalf("unexpected amount cents %v", row.AmountCents)
	}
	if !row.OccurredAt.Equal(signedAt) {
		t.Fatalf("expected signed_at as occurrence, got %v", row.OccurredAt)
	}
	if row.PropertyID == nil || *row.PropertyID != event.PropertyID.String() {
		t.Fatalf("unexpected property id %v", row.PropertyID)
	}
	if row.OperationType == nil || *row.OperationType != "sale" {
		t.Fatalf("unexpected operation type %v", row.OperationType)
	}
	if row.ActorUserID == nil || *row.ActorUserID != env.ActorUserID {
		t.Fatalf("actor not carried")
	}
	if !row.Payload.Valid {
		t.Fatal("payload should be stored")
	}
}

func TestPaymentRowKeepsAgency(t *testing.T) {
	router, writer := newTestRouter(t, nil)
	agency := uuid.New()
	data, _ := json.Marshal(payloads.PaymentRecordedEvent{
		PaymentID:        uuid.New(),
		UserID:           uuid.New(),
		ExternalAgencyID: &agency,
		Amount:           decimal.RequireFromString("1500"),
	})
	env := types.Envelope{EventID: "evt", EventType: enums.EventPaymentRecorded, Payload: data}
	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row := writer.rows[0]
	if row.AgencyID == nil || *row.AgencyID != agency.String() {
		t.Fatalf("unexpected agency %v", row.AgencyID)
	}
	if *row.AmountCents != 150000 {
		t.Fatalf("unexpected cents %d", *row.AmountCents)
	}
}

func TestLeadStatusRow(t *testing.T) {
	router, writer := newTestRouter(t, nil)
	data, _ := json.Marshal(payloads.LeadStatusChangedEvent{
		LeadID: uuid.New(),
		From:   enums.LeadOfferMade,
		To:     enums.LeadWon,
	})
	env := types.Envelope{EventID: "evt", EventType: enums.EventLeadStatusChanged, Payload: data}
	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row := writer.rows[0]
	if *row.FromStatus != "offer_made" || *row.ToStatus != "won" {
		t.Fatalf("unexpected transition %s -> %s", *row.FromStatus, *row.ToStatus)
	}
	if row.SubjectUserID != nil {
		t.Fatal("unassigned lead has no subject")
	}
}

func newTestRouter(t *testing.T, overrides map[enums.OutboxEventType]Handler) (*Router, *stubWriter) {
	t.Helper()
	writer := &stubWriter{}
	router, err := NewRouter(writer, logger.New(logger.Options{ServiceName: "router-test"}), overrides)
	if err != nil {
		t.Fatalf("construct router: %v", err)
	}
	return router, writer
}

type stubHandler struct {
	called bool
}

func (s *stubHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	s.called = true
	return nil
}

type stubWriter struct {
	rows []types.PlatformEventRow
}

func (s *stubWriter) InsertPlatformEvent(_ context.Context, row types.PlatformEventRow) error {
	s.rows = append(s.rows, row)
	return nil
}
