package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// PlatformEventRow mirrors the platform_events BigQuery schema. Every domain
// event lands as one row; dimension columns are filled when the event carries
// them.
type PlatformEventRow struct {
	EventID       string             `bigquery:"event_id"`
	EventType     string             `bigquery:"event_type"`
	AggregateType string             `bigquery:"aggregate_type"`
	AggregateID   string             `bigquery:"aggregate_id"`
	OccurredAt    time.Time          `bigquery:"occurred_at"`
	ActorUserID   *string            `bigquery:"actor_user_id"`
	AgencyID      *string            `bigquery:"agency_id"`
	PropertyID    *string            `bigquery:"property_id"`
	SubjectUserID *string            `bigquery:"subject_user_id"`
	OperationType *string            `bigquery:"operation_type"`
	FromStatus    *string            `bigquery:"from_status"`
	ToStatus      *string            `bigquery:"to_status"`
	AmountCents   *int64             `bigquery:"amount_cents"`
	Currency      *string            `bigquery:"currency"`
	Payload       cbigquery.NullJSON `bigquery:"payload"`
}
