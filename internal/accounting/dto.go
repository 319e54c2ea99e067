package accounting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
	"github.com/angelmondragon/propertyhub-backend/pkg/period"
)

// Viewer describes who is reading the ledger. External agents only ever see
// their agency; other callers without All only see their own rows.
type Viewer struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	AgencyID *uuid.UUID
	All      bool
}

type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortAmount    SortField = "amount"
	SortUser      SortField = "user"
)

// RecordFilter narrows ledger queries.
type RecordFilter struct {
	Period   *period.Period
	Status   enums.CommissionStatus
	UserID   *uuid.UUID
	AgencyID *uuid.UUID
	Sort     SortField
	Desc     bool
	pagination.Params
}

// RecordRow is a commission record joined with its payee.
type RecordRow struct {
	ID               uuid.UUID              `json:"id"`
	ContractID       uuid.UUID              `json:"contract_id"`
	UserID           uuid.UUID              `json:"user_id"`
	UserName         string                 `json:"user_name"`
	UserEmail        string                 `json:"user_email"`
	ParticipantRole  string                 `json:"participant_role"`
	ExternalAgencyID *uuid.UUID             `json:"external_agency_id,omitempty"`
	LeadID           *uuid.UUID             `json:"lead_id,omitempty"`
	OperationType    enums.DealType         `json:"operation_type"`
	BaseAmount       decimal.Decimal        `json:"base_amount"`
	Percentage       decimal.Decimal        `json:"percentage"`
	Amount           decimal.Decimal        `json:"amount"`
	Currency         string                 `json:"currency"`
	SourceTier       enums.CommissionTier   `json:"source_tier"`
	Status           enums.CommissionStatus `json:"status"`
	PeriodStart      time.Time              `json:"period_start"`
	PeriodEnd        time.Time              `json:"period_end"`
	PaymentID        *uuid.UUID             `json:"payment_id,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

// Summary aggregates one period of the ledger.
type Summary struct {
	Period   period.Period   `json:"period"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
	ByStatus []Bucket        `json:"by_status"`
	ByUser   []Bucket        `json:"by_user"`
	ByAgency []Bucket        `json:"by_agency"`
}

// Bucket is one aggregation line of a Summary.
type Bucket struct {
	Key    string          `json:"key"`
	Label  string          `json:"label,omitempty"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// RecordPaymentInput pays a set of approved records for one payee and period.
type RecordPaymentInput struct {
	UserID    uuid.UUID   `json:"user_id" validate:"required"`
	Period    string      `json:"period" validate:"required"`
	RecordIDs []uuid.UUID `json:"record_ids" validate:"required,min=1"`
	Reference *string     `json:"reference,omitempty"`
	PaidAt    *time.Time  `json:"paid_at,omitempty"`
}

type PaymentFilter struct {
	Period   *period.Period
	UserID   *uuid.UUID
	AgencyID *uuid.UUID
	pagination.Params
}

type Payment struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	ExternalAgencyID *uuid.UUID      `json:"external_agency_id,omitempty"`
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Reference        *string         `json:"reference,omitempty"`
	PaidAt           time.Time       `json:"paid_at"`
	CreatedBy        uuid.UUID       `json:"created_by"`
	RecordIDs        []uuid.UUID     `json:"record_ids,omitempty"`
}

// CloseResult reports what ClosePeriod changed.
type CloseResult struct {
	Period   period.Period `json:"period"`
	Approved int           `json:"approved"`
}
