package enums

import "fmt"

// ProviderCategory maps to the provider_category enum in Postgres.
type ProviderCategory string

const (
	ProviderMaintenance ProviderCategory = "maintenance"
	ProviderCleaning    ProviderCategory = "cleaning"
	ProviderLegal       ProviderCategory = "legal"
	ProviderMoving      ProviderCategory = "moving"
	ProviderPhotography ProviderCategory = "photography"
	ProviderInsurance   ProviderCategory = "insurance"
	ProviderOther       ProviderCategory = "other"
)

var validProviderCategorys = []ProviderCategory{
	ProviderMaintenance,
	ProviderCleaning,
	ProviderLegal,
	ProviderMoving,
	ProviderPhotography,
	ProviderInsurance,
	ProviderOther,
}

// String implements fmt.Stringer.
func (p ProviderCategory) String() string {
	return string(p)
}

// IsValid reports whether the value matches the canonical provider_category enum.
func (p ProviderCategory) IsValid() bool {
	for _, candidate := range validProviderCategorys {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProviderCategory converts raw input into ProviderCategory.
func ParseProviderCategory(value string) (ProviderCategory, error) {
	for _, candidate := range validProviderCategorys {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid provider category %q", value)
}
