package enums

import "fmt"

// CommissionTier maps to the commission_tier enum in Postgres.
type CommissionTier string

const (
	CommissionTierDefault CommissionTier = "default"
	CommissionTierRole    CommissionTier = "role"
	CommissionTierUser    CommissionTier = "user"
	CommissionTierLead    CommissionTier = "lead"
)

var validCommissionTiers = []CommissionTier{
	CommissionTierDefault,
	CommissionTierRole,
	CommissionTierUser,
	CommissionTierLead,
}

// String implements fmt.Stringer.
func (c CommissionTier) String() string {
	return string(c)
}

// IsValid reports whether the value matches the canonical commission_tier enum.
func (c CommissionTier) IsValid() bool {
	for _, candidate := range validCommissionTiers {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommissionTier converts raw input into CommissionTier.
func ParseCommissionTier(value string) (CommissionTier, error) {
	for _, candidate := range validCommissionTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission tier %q", value)
}

// CommissionStatus maps to the commission_status enum in Postgres.
type CommissionStatus string

const (
	CommissionPending   CommissionStatus = "pending"
	CommissionApproved  CommissionStatus = "approved"
	CommissionPaid      CommissionStatus = "paid"
	CommissionCancelled CommissionStatus = "cancelled"
)

var validCommissionStatuss = []CommissionStatus{
	CommissionPending,
	CommissionApproved,
	CommissionPaid,
	CommissionCancelled,
}

// String implements fmt.Stringer.
func (c CommissionStatus) String() string {
	return string(c)
}

// IsValid reports whether the value matches the canonical commission_status enum.
func (c CommissionStatus) IsValid() bool {
	for _, candidate := range validCommissionStatuss {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommissionStatus converts raw input into CommissionStatus.
func ParseCommissionStatus(value string) (CommissionStatus, error) {
	for _, candidate := range validCommissionStatuss {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission status %q", value)
}

// Rank orders tiers by precedence; higher wins.
func (c CommissionTier) Rank() int {
	switch c {
	case CommissionTierLead:
		return 4
	case CommissionTierUser:
		return 3
	case CommissionTierRole:
		return 2
	case CommissionTierDefault:
		return 1
	}
	return 0
}
