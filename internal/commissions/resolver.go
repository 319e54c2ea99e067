package commissions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

// Resolution is the percentage that applies to a participant and the tier it
// came from.
type Resolution struct {
	Percentage decimal.Decimal      `json:"percentage"`
	Tier       enums.CommissionTier `json:"source_tier"`
	ConfigID   uuid.UUID            `json:"config_id"`
}

// ResolveInput identifies whose commission is being priced and when.
type ResolveInput struct {
	UserID    uuid.UUID
	Role      enums.UserRole
	LeadID    *uuid.UUID
	Operation enums.DealType
	At        time.Time
}

// Candidates carries every configuration row that could apply to one
// ResolveInput, grouped by tier.
type Candidates struct {
	Lead     []models.CommissionLeadOverride
	User     []models.CommissionUserOverride
	Role     []models.CommissionRoleOverride
	Defaults []models.CommissionDefault
}

type candidate struct {
	id        uuid.UUID
	window    models.CommissionWindow
	createdAt time.Time
}

// pick returns the active row with the latest active_from, breaking ties on
// created_at.
func pick(rows []candidate, op enums.DealType, at time.Time) (candidate, bool) {
	var (
		best  candidate
		found bool
	)
	for _, row := range rows {
		if row.window.OperationType != op || !row.window.ActiveAt(at) {
			continue
		}
		if !found ||
			row.window.ActiveFrom.After(best.window.ActiveFrom) ||
			(row.window.ActiveFrom.Equal(best.window.ActiveFrom) && row.createdAt.After(best.createdAt)) {
			best = row
			found = true
		}
	}
	return best, found
}

// Resolve applies lead > user > role > default precedence over c. Within the
// lead tier a row targeting the user beats a lead-wide row.
func Resolve(c Candidates, in ResolveInput) (Resolution, bool) {
	if in.LeadID != nil {
		var specific, wide []candidate
		for _, row := range c.Lead {
			if row.LeadID != *in.LeadID {
				continue
			}
			cand := candidate{id: row.ID, window: row.CommissionWindow, createdAt: row.CreatedAt}
			switch {
			case row.UserID == nil:
				wide = append(wide, cand)
			case *row.UserID == in.UserID:
				specific = append(specific, cand)
			}
		}
		if hit, ok := pick(specific, in.Operation, in.At); ok {
			return resolution(hit, enums.CommissionTierLead), true
		}
		if hit, ok := pick(wide, in.Operation, in.At); ok {
			return resolution(hit, enums.CommissionTierLead), true
		}
	}

	users := make([]candidate, 0, len(c.User))
	for _, row := range c.User {
		if row.UserID == in.UserID {
			users = append(users, candidate{id: row.ID, window: row.CommissionWindow, createdAt: row.CreatedAt})
		}
	}
	if hit, ok := pick(users, in.Operation, in.At); ok {
		return resolution(hit, enums.CommissionTierUser), true
	}

	roles := make([]candidate, 0, len(c.Role))
	for _, row := range c.Role {
		if row.Role == in.Role {
			roles = append(roles, candidate{id: row.ID, window: row.CommissionWindow, createdAt: row.CreatedAt})
		}
	}
	if hit, ok := pick(roles, in.Operation, in.At); ok {
		return resolution(hit, enums.CommissionTierRole), true
	}

	defaults := make([]candidate, 0, len(c.Defaults))
	for _, row := range c.Defaults {
		defaults = append(defaults, candidate{id: row.ID, window: row.CommissionWindow, createdAt: row.CreatedAt})
	}
	if hit, ok := pick(defaults, in.Operation, in.At); ok {
		return resolution(hit, enums.CommissionTierDefault), true
	}
	return Resolution{}, false
}

func resolution(c candidate, tier enums.CommissionTier) Resolution {
	return Resolution{Percentage: c.window.Percentage, Tier: tier, ConfigID: c.id}
}
