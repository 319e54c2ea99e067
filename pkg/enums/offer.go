package enums

import "fmt"

// OfferStatus maps to the offer_status enum in Postgres.
type OfferStatus string

const (
	OfferPending   OfferStatus = "pending"
	OfferCountered OfferStatus = "countered"
	OfferAccepted  OfferStatus = "accepted"
	OfferRejected  OfferStatus = "rejected"
	OfferWithdrawn OfferStatus = "withdrawn"
	OfferExpired   OfferStatus = "expired"
)

var validOfferStatuss = []OfferStatus{
	OfferPending,
	OfferCountered,
	OfferAccepted,
	OfferRejected,
	OfferWithdrawn,
	OfferExpired,
}

// String implements fmt.Stringer.
func (o OfferStatus) String() string {
	return string(o)
}

// IsValid reports whether the value matches the canonical offer_status enum.
func (o OfferStatus) IsValid() bool {
	for _, candidate := range validOfferStatuss {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOfferStatus converts raw input into OfferStatus.
func ParseOfferStatus(value string) (OfferStatus, error) {
	for _, candidate := range validOfferStatuss {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid offer status %q", value)
}

// IsOpen reports whether the offer can still be acted upon.
func (o OfferStatus) IsOpen() bool {
	return o == OfferPending || o == OfferCountered
}
