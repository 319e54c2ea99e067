package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/propertyhub-backend/pkg/config"
	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry. Every domain event goes to the single
// domain topic; consumers filter on the event_type attribute.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.DomainTopic == "" {
		return nil, fmt.Errorf("domain topic is required")
	}
	topic := cfg.DomainTopic

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventPropertyCreated,
			AggregateType:  enums.AggregateProperty,
			PayloadFactory: func() interface{} { return &payloads.PropertyCreatedEvent{} },
		},
		{
			EventType:      enums.EventPropertyUpdated,
			AggregateType:  enums.AggregateProperty,
			PayloadFactory: func() interface{} { return &payloads.PropertyUpdatedEvent{} },
		},
		{
			EventType:      enums.EventPropertyStatusChanged,
			AggregateType:  enums.AggregateProperty,
			PayloadFactory: func() interface{} { return &payloads.PropertyStatusChangedEvent{} },
		},
		{
			EventType:      enums.EventAppointmentScheduled,
			AggregateType:  enums.AggregateAppointment,
			PayloadFactory: func() interface{} { return &payloads.AppointmentScheduledEvent{} },
		},
		{
			EventType:      enums.EventAppointmentStatusChanged,
			AggregateType:  enums.AggregateAppointment,
			PayloadFactory: func() interface{} { return &payloads.AppointmentStatusChangedEvent{} },
		},
		{
			EventType:      enums.EventAppointmentReminderDue,
			AggregateType:  enums.AggregateAppointment,
			PayloadFactory: func() interface{} { return &payloads.AppointmentReminderEvent{} },
		},
		{
			EventType:      enums.EventLeadRegistered,
			AggregateType:  enums.AggregateLead,
			PayloadFactory: func() interface{} { return &payloads.LeadRegisteredEvent{} },
		},
		{
			EventType:      enums.EventLeadStatusChanged,
			AggregateType:  enums.AggregateLead,
			PayloadFactory: func() interface{} { return &payloads.LeadStatusChangedEvent{} },
		},
		{
			EventType:      enums.EventOfferMade,
			AggregateType:  enums.AggregateOffer,
			PayloadFactory: func() interface{} { return &payloads.OfferMadeEvent{} },
		},
		{
			EventType:      enums.EventOfferStatusChanged,
			AggregateType:  enums.AggregateOffer,
			PayloadFactory: func() interface{} { return &payloads.OfferStatusChangedEvent{} },
		},
		{
			EventType:      enums.EventContractSigned,
			AggregateType:  enums.AggregateContract,
			PayloadFactory: func() interface{} { return &payloads.ContractSignedEvent{} },
		},
		{
			EventType:      enums.EventContractStatusChanged,
			AggregateType:  enums.AggregateContract,
			PayloadFactory: func() interface{} { return &payloads.ContractStatusChangedEvent{} },
		},
		{
			EventType:      enums.EventCommissionGenerated,
			AggregateType:  enums.AggregateCommissionRecord,
			PayloadFactory: func() interface{} { return &payloads.CommissionGeneratedEvent{} },
		},
		{
			EventType:      enums.EventPaymentRecorded,
			AggregateType:  enums.AggregateExternalPayment,
			PayloadFactory: func() interface{} { return &payloads.PaymentRecordedEvent{} },
		},
		{
			EventType:      enums.EventCardViewed,
			AggregateType:  enums.AggregatePresentationCard,
			PayloadFactory: func() interface{} { return &payloads.CardViewedEvent{} },
		},
	} {
		desc.Topic = topic
		reg.register(desc)
	}

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Descriptor returns the descriptor registered for eventType.
func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	payload, err := r.DecodePayload(event.EventType, envelope.Data)
	if err != nil {
		return nil, err
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// DecodePayload turns envelope data into the typed payload registered for
// eventType. Consumers use it on message bodies pulled from Pub/Sub.
func (r *EventRegistry) DecodePayload(eventType enums.OutboxEventType, data json.RawMessage) (interface{}, error) {
	desc, ok := r.entries[eventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", eventType))
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", eventType))
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", eventType, err))
	}
	return payload, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
