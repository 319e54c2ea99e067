package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/propertyhub-backend/internal/analytics/types"
	analyticswriter "github.com/angelmondragon/propertyhub-backend/internal/analytics/writer"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox/payloads"
)

// rowBuilder fills the event-specific columns of row from the decoded payload.
type rowBuilder func(row *types.PlatformEventRow, payload any) error

type platformHandler struct {
	writer Writer
	logg   *logger.Logger
	build  rowBuilder
}

func (h *platformHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":   envelope.EventType,
		"aggregate_id": envelope.AggregateID,
	})

	row, err := baseRow(envelope, payload)
	if err != nil {
		h.logg.Error(logCtx, "failed to build platform row", err)
		return err
	}
	if err := h.build(&row, payload); err != nil {
		h.logg.Error(logCtx, "failed to build platform row", err)
		return err
	}
	if err := h.writer.InsertPlatformEvent(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert platform row", err)
		return err
	}
	return nil
}

func baseRow(envelope types.Envelope, payload any) (types.PlatformEventRow, error) {
	payloadJSON, err := analyticswriter.EncodeJSON(payload)
	if err != nil {
		return types.PlatformEventRow{}, fmt.Errorf("encode payload json: %w", err)
	}
	return types.PlatformEventRow{
		EventID:       envelope.EventID,
		EventType:     string(envelope.EventType),
		AggregateType: string(envelope.AggregateType),
		AggregateID:   envelope.AggregateID,
		OccurredAt:    envelope.OccurredAt.UTC(),
		ActorUserID:   stringPtr(envelope.ActorUserID),
		AgencyID:      stringPtr(envelope.ActorAgencyID),
		Payload:       payloadJSON,
	}, nil
}

func invalid(payload any) error {
	return fmt.Errorf("invalid payload type %T", payload)
}

func propertyCreatedRow(row *types.PlatformEventRow, payload any) error {
	event, ok := payload.(*payloads.PropertyCreatedEvent)
	if !ok {
		return invalid(payload)
	}
	row.PropertyID = uuidPtr(event.PropertyID)
	row.SubjectUserID = uuidPtr(event.OwnerID)
	return nil
}

func propertyUpdatedRow(row *types.PlatformEventRow, payload any) error {
	event, ok := payload.(*payloads.PropertyUpdatedEvent)
	if !ok {
		return invalid(payload)
	}
	row.PropertyID = uuidPtr(event.PropertyID)
	return nil
}

func propertyStatusRow(row *types.PlatformEventRow, payload any) error {
	event, ok := payload.(*payloads.PropertyStatusChangedEvent)
	if !ok {
		return invalid(payload)
	}
	row.PropertyID = uuidPtr(event.PropertyID)
	row.SubjectUserID = uuidPtr(event.OwnerID)
	row.FromStatus = stringPtr(string(event.From))
	row.ToStatus = stringPtr(string(event.To))
	return nil
}

func appointmentScheduledRow(row *types.PlatformEventRow, payload any) error {
	event, ok := payload.(*payloads.AppointmentScheduledEvent)
	if !ok {
		return invalid(payload)
	}
	row.PropertyID = uuidPtr(event.PropertyID)
	row.SubjectUserID = uuidPtr(event.ClientID)
	return nil
}

func appointmentStatusRow(row *types.PlatformEventRow, payload any) error {
	event, ok := payload.(*payloads.AppointmentStatusChangedEvent)
	if !ok {
		return invalid(payload)
	}
	row.PropertyID = uuidPtr(event.PropertyID)
	row.SubjectUserID = uuidPtr(event.ClientID)
	row.FromStatus = stringPtr(string(event.From))
	row.ToStatus = stringPtr(string(event.To))
	return nil
}

func leadRegisteredRow(row *types.PlatformEventRow, payload any) error {
	event, ok := payload.(*payloads.LeadRegisteredEvent)
	if !ok {
		return invalid(payload)
	}
	row.SubjectUserID = optionalUUID(event.AssignedToID)
	row.OperationType = stringPtr(string(event.OperationType))
	if event.ExternalAgencyID != nil {
		row.AgencyID = optionalUUID(event.ExternalAgencyID)
	}
	return nil
}

func leadStatusRow(row *types.PlatformEventRow, payload any) error {
	event, ok := payload.(*payloads.LeadStatusChangedEvent)
	if !ok {
		return invalid(payload)
	}
	row.SubjectUserID = optionalUUID(event.AssignedToID)
	row.FromStatus = stringPtr(string(event.From))
	row.ToStatus = stringPtr(string(event.To))
	return nil
}

func offerMadeRow(row *types.PlatformEventRow, payload any) error {
	event, ok := payload.(*payloads.OfferMadeEvent)
	if !ok {
		return invalid(payload)
	}
	row.PropertyID = uuidPtr(event.PropertyID)
	row.SubjectUserID = uuidPtr(event.ClientID)
	row.OperationType = stringPtr(string(event.DealType))
	row.AmountCents = cents(event.Amount)
	row.Currency = stringPtr(strings.ToUpper(event.Currency))
	return nil
}

func offerStatusRow(row *types.PlatformEventRow, payload any) error {
	event, ok := payload.(*payloads.OfferStatusChangedEvent)
	if !ok {
		return invalid(payload)
	}
	row.PropertyID = uuidPtr(event.PropertyID)
	row.SubjectUserID = uuidPtr(event.ClientID)
	row.FromStatus = stringPtr(string(event.From))
	row.ToStatus = stringPtr(string(event.To))
	return nil
}

func contractSignedRow(row *types.PlatformEventRow, payload any) error {
	event, ok := payload.(*payloads.ContractSignedEvent)
	if !ok {
		return invalid(payload)
	}
	row.PropertyID = uuidPtr(event.PropertyID)
	row.SubjectUserID = uuidPtr(event.ClientID)
	row.OperationType = stringPtr(string(event.ContractType))
	row.AmountCents = cents(event.Amount)
	if !event.SignedAt.IsZero() {
		row.OccurredAt = event.SignedAt.UTC()
	}
	return nil
}

func contractStatusRow(row *types.PlatformEventRow, payload any) error {
	event, ok := payload.(*payloads.ContractStatusChangedEvent)
	if !ok {
		return invalid(payload)
	}
	row.FromStatus = stringPtr(string(event.From))
	row.ToStatus = stringPtr(string(event.To))
	return nil
}

func commissionGeneratedRow(row *types.PlatformEventRow, payload any) error {
	event, ok := payload.(*payloads.CommissionGeneratedEvent)
	if !ok {
		return invalid(payload)
	}
	row.SubjectUserID = uuidPtr(event.UserID)
	row.AmountCents = cents(event.Amount)
	return nil
}

func paymentRecordedRow(row *types.PlatformEventRow, payload any) error {
	event, ok := payload.(*payloads.PaymentRecordedEvent)
	if !ok {
		return invalid(payload)
	}
	row.SubjectUserID = uuidPtr(event.UserID)
	row.AgencyID = optionalUUID(event.ExternalAgencyID)
	row.AmountCents = cents(event.Amount)
	return nil
}

func cardViewedRow(row *types.PlatformEventRow, payload any) error {
	event, ok := payload.(*payloads.CardViewedEvent)
	if !ok {
		return invalid(payload)
	}
	row.PropertyID = uuidPtr(event.PropertyID)
	return nil
}
