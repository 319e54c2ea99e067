package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/propertyhub-backend/internal/analytics/types"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox/payloads"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer delivers BigQuery rows produced by analytics handlers.
type Writer interface {
	InsertPlatformEvent(ctx context.Context, row types.PlatformEventRow) error
}

// Handler receives an envelope plus a decoded event payload.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

type handlerEntry struct {
	factory func() any
	handler Handler
}

// Router dispatches analytics envelopes to the configured handler per event type.
type Router struct {
	handlers map[enums.OutboxEventType]handlerEntry
	logg     *logger.Logger
}

// NewRouter wires the default handlers and allows overrides for specific events.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	row := func(build rowBuilder) Handler {
		return &platformHandler{writer: writer, logg: logg, build: build}
	}
	entries := map[enums.OutboxEventType]handlerEntry{
		enums.EventPropertyCreated: {
			factory: func() any { return &payloads.PropertyCreatedEvent{} },
			handler: row(propertyCreatedRow),
		},
		enums.EventPropertyUpdated: {
			factory: func() any { return &payloads.PropertyUpdatedEvent{} },
			handler: row(propertyUpdatedRow),
		},
		enums.EventPropertyStatusChanged: {
			factory: func() any { return &payloads.PropertyStatusChangedEvent{} },
			handler: row(propertyStatusRow),
		},
		enums.EventAppointmentScheduled: {
			factory: func() any { return &payloads.AppointmentScheduledEvent{} },
			handler: row(appointmentScheduledRow),
		},
		enums.EventAppointmentStatusChanged: {
			factory: func() any { return &payloads.AppointmentStatusChangedEvent{} },
			handler: row(appointmentStatusRow),
		},
		enums.EventLeadRegistered: {
			factory: func() any { return &payloads.LeadRegisteredEvent{} },
			handler: row(leadRegisteredRow),
		},
		enums.EventLeadStatusChanged: {
			factory: func() any { return &payloads.LeadStatusChangedEvent{} },
			handler: row(leadStatusRow),
		},
		enums.EventOfferMade: {
			factory: func() any { return &payloads.OfferMadeEvent{} },
			handler: row(offerMadeRow),
		},
		enums.EventOfferStatusChanged: {
			factory: func() any { return &payloads.OfferStatusChangedEvent{} },
			handler: row(offerStatusRow),
		},
		enums.EventContractSigned: {
			factory: func() any { return &payloads.ContractSignedEvent{} },
			handler: row(contractSignedRow),
		},
		enums.EventContractStatusChanged: {
			factory: func() any { return &payloads.ContractStatusChangedEvent{} },
			handler: row(contractStatusRow),
		},
		enums.EventCommissionGenerated: {
			factory: func() any { return &payloads.CommissionGeneratedEvent{} },
			handler: row(commissionGeneratedRow),
		},
		enums.EventPaymentRecorded: {
			factory: func() any { return &payloads.PaymentRecordedEvent{} },
			handler: row(paymentRecordedRow),
		},
		enums.EventCardViewed: {
			factory: func() any { return &payloads.CardViewedEvent{} },
			handler: row(cardViewedRow),
		},
	}

	for event, custom := range overrides {
		entry, ok := entries[event]
		if !ok || custom == nil {
			continue
		}
		entry.handler = custom
		entries[event] = entry
	}

	return &Router{
		handlers: entries,
		logg:     logg,
	}, nil
}

// Handle dispatches the incoming envelope to the configured handler.
// Reminder events are operational and intentionally have no entry.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	entry, ok := r.handlers[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	payload := entry.factory()
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	if err := json.Unmarshal(envelope.Payload, payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}

	return entry.handler.Handle(ctx, envelope, payload)
}
