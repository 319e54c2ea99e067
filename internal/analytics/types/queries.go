package types

import "time"

// DashboardQueryRequest scopes the admin dashboard to a time range and,
// optionally, one external agency.
type DashboardQueryRequest struct {
	AgencyID string
	Start    time.Time
	End      time.Time
}

// TimeSeriesPoint describes a single date/value pair returned by the query service.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// LabelValue represents a top-N entry such as a property or event type.
type LabelValue struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// DashboardQueryResponse wraps the platform KPIs for the admin dashboard.
type DashboardQueryResponse struct {
	LeadsSeries       []TimeSeriesPoint `json:"leads"`
	ContractsSeries   []TimeSeriesPoint `json:"contracts_signed"`
	CommissionsSeries []TimeSeriesPoint `json:"commissions_cents"`
	PaymentsSeries    []TimeSeriesPoint `json:"payments_cents"`
	TopViewedCards    []LabelValue      `json:"top_viewed_properties"`
	EventsByType      []LabelValue      `json:"events_by_type"`
	LeadConversion    float64           `json:"lead_conversion"`
}
