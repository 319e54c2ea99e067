package enums

import "fmt"

// LeadStatus maps to the lead_status enum in Postgres.
type LeadStatus string

const (
	LeadNew                  LeadStatus = "new"
	LeadContacted            LeadStatus = "contacted"
	LeadQualified            LeadStatus = "qualified"
	LeadVisitScheduled       LeadStatus = "visit_scheduled"
	LeadOfferMade            LeadStatus = "offer_made"
	LeadApplicationSubmitted LeadStatus = "application_submitted"
	LeadApproved             LeadStatus = "approved"
	LeadWon                  LeadStatus = "won"
	LeadLost                 LeadStatus = "lost"
)

var validLeadStatuss = []LeadStatus{
	LeadNew,
	LeadContacted,
	LeadQualified,
	LeadVisitScheduled,
	LeadOfferMade,
	LeadApplicationSubmitted,
	LeadApproved,
	LeadWon,
	LeadLost,
}

// String implements fmt.Stringer.
func (l LeadStatus) String() string {
	return string(l)
}

// IsValid reports whether the value matches the canonical lead_status enum.
func (l LeadStatus) IsValid() bool {
	for _, candidate := range validLeadStatuss {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLeadStatus converts raw input into LeadStatus.
func ParseLeadStatus(value string) (LeadStatus, error) {
	for _, candidate := range validLeadStatuss {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lead status %q", value)
}

// IsOpen reports whether the lead is still in a pipeline.
func (l LeadStatus) IsOpen() bool {
	return l != LeadWon && l != LeadLost
}
