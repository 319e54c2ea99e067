package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateProperty         OutboxAggregateType = "property"
	AggregateAppointment      OutboxAggregateType = "appointment"
	AggregateLead             OutboxAggregateType = "lead"
	AggregateOffer            OutboxAggregateType = "offer"
	AggregateContract         OutboxAggregateType = "contract"
	AggregateCommissionRecord OutboxAggregateType = "commission_record"
	AggregateExternalPayment  OutboxAggregateType = "external_payment"
	AggregatePresentationCard OutboxAggregateType = "presentation_card"
	AggregateUser             OutboxAggregateType = "user"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateProperty,
	AggregateAppointment,
	AggregateLead,
	AggregateOffer,
	AggregateContract,
	AggregateCommissionRecord,
	AggregateExternalPayment,
	AggregatePresentationCard,
	AggregateUser,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventPropertyCreated          OutboxEventType = "property_created"
	EventPropertyUpdated          OutboxEventType = "property_updated"
	EventPropertyStatusChanged    OutboxEventType = "property_status_changed"
	EventAppointmentScheduled     OutboxEventType = "appointment_scheduled"
	EventAppointmentStatusChanged OutboxEventType = "appointment_status_changed"
	EventAppointmentReminderDue   OutboxEventType = "appointment_reminder_due"
	EventLeadRegistered           OutboxEventType = "lead_registered"
	EventLeadStatusChanged        OutboxEventType = "lead_status_changed"
	EventOfferMade                OutboxEventType = "offer_made"
	EventOfferStatusChanged       OutboxEventType = "offer_status_changed"
	EventContractSigned           OutboxEventType = "contract_signed"
	EventContractStatusChanged    OutboxEventType = "contract_status_changed"
	EventCommissionGenerated      OutboxEventType = "commission_generated"
	EventPaymentRecorded          OutboxEventType = "payment_recorded"
	EventCardViewed               OutboxEventType = "presentation_card_viewed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPropertyCreated,
	EventPropertyUpdated,
	EventPropertyStatusChanged,
	EventAppointmentScheduled,
	EventAppointmentStatusChanged,
	EventAppointmentReminderDue,
	EventLeadRegistered,
	EventLeadStatusChanged,
	EventOfferMade,
	EventOfferStatusChanged,
	EventContractSigned,
	EventContractStatusChanged,
	EventCommissionGenerated,
	EventPaymentRecorded,
	EventCardViewed,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
