package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

// PropertyCreatedEvent is emitted when an owner or seller starts a listing.
type PropertyCreatedEvent struct {
	PropertyID uuid.UUID `json:"property_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
}

// PropertyUpdatedEvent lists the columns a PATCH actually changed.
type PropertyUpdatedEvent struct {
	PropertyID    uuid.UUID `json:"property_id"`
	ChangedFields []string  `json:"changed_fields"`
	WizardStep    *int      `json:"wizard_step,omitempty"`
}

type PropertyStatusChangedEvent struct {
	PropertyID uuid.UUID            `json:"property_id"`
	OwnerID    uuid.UUID            `json:"owner_id"`
	Title      string               `json:"title"`
	From       enums.ApprovalStatus `json:"from"`
	To         enums.ApprovalStatus `json:"to"`
	Note       string               `json:"note,omitempty"`
}

type AppointmentScheduledEvent struct {
	AppointmentID   uuid.UUID  `json:"appointment_id"`
	PropertyID      uuid.UUID  `json:"property_id"`
	ClientID        uuid.UUID  `json:"client_id"`
	ConciergeID     *uuid.UUID `json:"concierge_id,omitempty"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	DurationMinutes int        `json:"duration_minutes"`
}

type AppointmentStatusChangedEvent struct {
	AppointmentID uuid.UUID               `json:"appointment_id"`
	PropertyID    uuid.UUID               `json:"property_id"`
	ClientID      uuid.UUID               `json:"client_id"`
	ConciergeID   *uuid.UUID              `json:"concierge_id,omitempty"`
	From          enums.AppointmentStatus `json:"from"`
	To            enums.AppointmentStatus `json:"to"`
	ScheduledAt   time.Time               `json:"scheduled_at"`
}

// AppointmentReminderEvent is queued by the cron worker ahead of a visit.
type AppointmentReminderEvent struct {
	AppointmentID uuid.UUID  `json:"appointment_id"`
	PropertyID    uuid.UUID  `json:"property_id"`
	ClientID      uuid.UUID  `json:"client_id"`
	ConciergeID   *uuid.UUID `json:"concierge_id,omitempty"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
}

type LeadRegisteredEvent struct {
	LeadID           uuid.UUID      `json:"lead_id"`
	OperationType    enums.DealType `json:"operation_type"`
	RegisteredByID   uuid.UUID      `json:"registered_by_id"`
	AssignedToID     *uuid.UUID     `json:"assigned_to_id,omitempty"`
	ExternalAgencyID *uuid.UUID     `json:"external_agency_id,omitempty"`
	ContactName      string         `json:"contact_name"`
}

type LeadStatusChangedEvent struct {
	LeadID       uuid.UUID        `json:"lead_id"`
	AssignedToID *uuid.UUID       `json:"assigned_to_id,omitempty"`
	From         enums.LeadStatus `json:"from"`
	To           enums.LeadStatus `json:"to"`
	Reason       string           `json:"reason,omitempty"`
}

type OfferMadeEvent struct {
	OfferID    uuid.UUID       `json:"offer_id"`
	PropertyID uuid.UUID       `json:"property_id"`
	OwnerID    uuid.UUID       `json:"owner_id"`
	ClientID   uuid.UUID       `json:"client_id"`
	DealType   enums.DealType  `json:"deal_type"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
}

type OfferStatusChangedEvent struct {
	OfferID    uuid.UUID         `json:"offer_id"`
	PropertyID uuid.UUID         `json:"property_id"`
	ClientID   uuid.UUID         `json:"client_id"`
	From       enums.OfferStatus `json:"from"`
	To         enums.OfferStatus `json:"to"`
}

type ContractSignedEvent struct {
	ContractID          uuid.UUID       `json:"contract_id"`
	PropertyID          uuid.UUID       `json:"property_id"`
	OwnerID             uuid.UUID       `json:"owner_id"`
	ClientID            uuid.UUID       `json:"client_id"`
	ContractType        enums.DealType  `json:"contract_type"`
	Amount              decimal.Decimal `json:"amount"`
	SignedAt            time.Time       `json:"signed_at"`
	CommissionRecordIDs []uuid.UUID     `json:"commission_record_ids"`
}

type ContractStatusChangedEvent struct {
	ContractID uuid.UUID            `json:"contract_id"`
	From       enums.ContractStatus `json:"from"`
	To         enums.ContractStatus `json:"to"`
}

type CommissionGeneratedEvent struct {
	RecordID    uuid.UUID            `json:"record_id"`
	ContractID  uuid.UUID            `json:"contract_id"`
	UserID      uuid.UUID            `json:"user_id"`
	Amount      decimal.Decimal      `json:"amount"`
	Percentage  decimal.Decimal      `json:"percentage"`
	SourceTier  enums.CommissionTier `json:"source_tier"`
	PeriodStart time.Time            `json:"period_start"`
	PeriodEnd   time.Time            `json:"period_end"`
}

type PaymentRecordedEvent struct {
	PaymentID        uuid.UUID       `json:"payment_id"`
	UserID           uuid.UUID       `json:"user_id"`
	ExternalAgencyID *uuid.UUID      `json:"external_agency_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	RecordIDs        []uuid.UUID     `json:"record_ids"`
}

type CardViewedEvent struct {
	CardID     uuid.UUID `json:"card_id"`
	PropertyID uuid.UUID `json:"property_id"`
	ViewCount  int       `json:"view_count"`
}
