package leads

import (
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

var salePipeline = []enums.LeadStatus{
	enums.LeadNew,
	enums.LeadContacted,
	enums.LeadQualified,
	enums.LeadVisitScheduled,
	enums.LeadOfferMade,
	enums.LeadWon,
}

var rentPipeline = []enums.LeadStatus{
	enums.LeadNew,
	enums.LeadContacted,
	enums.LeadVisitScheduled,
	enums.LeadApplicationSubmitted,
	enums.LeadApproved,
	enums.LeadWon,
}

// Pipeline returns the ordered stages of a deal type.
func Pipeline(op enums.DealType) []enums.LeadStatus {
	if op == enums.DealRent {
		return rentPipeline
	}
	return salePipeline
}

// NextStatuses lists the statuses an open lead may move to: the following
// stage of its pipeline, or lost. Closed leads have none.
func NextStatuses(op enums.DealType, from enums.LeadStatus) []enums.LeadStatus {
	if !from.IsOpen() {
		return []enums.LeadStatus{}
	}
	stages := Pipeline(op)
	for i, stage := range stages {
		if stage == from && i+1 < len(stages) {
			return []enums.LeadStatus{stages[i+1], enums.LeadLost}
		}
	}
	return []enums.LeadStatus{enums.LeadLost}
}

// CanAdvance reports whether from -> to is a single pipeline step or a loss.
func CanAdvance(op enums.DealType, from, to enums.LeadStatus) bool {
	for _, next := range NextStatuses(op, from) {
		if next == to {
			return true
		}
	}
	return false
}
