package enums

import "fmt"

// DealType maps to the deal_type enum in Postgres.
type DealType string

const (
	DealSale DealType = "sale"
	DealRent DealType = "rent"
)

var validDealTypes = []DealType{
	DealSale,
	DealRent,
}

// String implements fmt.Stringer.
func (d DealType) String() string {
	return string(d)
}

// IsValid reports whether the value matches the canonical deal_type enum.
func (d DealType) IsValid() bool {
	for _, candidate := range validDealTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDealType converts raw input into DealType.
func ParseDealType(value string) (DealType, error) {
	for _, candidate := range validDealTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deal type %q", value)
}
