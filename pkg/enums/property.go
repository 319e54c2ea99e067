package enums

import "fmt"

// PropertyType maps to the property_type enum in Postgres.
type PropertyType string

const (
	PropertyTypeHouse      PropertyType = "house"
	PropertyTypeApartment  PropertyType = "apartment"
	PropertyTypeLand       PropertyType = "land"
	PropertyTypeCommercial PropertyType = "commercial"
	PropertyTypeOffice     PropertyType = "office"
)

var validPropertyTypes = []PropertyType{
	PropertyTypeHouse,
	PropertyTypeApartment,
	PropertyTypeLand,
	PropertyTypeCommercial,
	PropertyTypeOffice,
}

// String implements fmt.Stringer.
func (p PropertyType) String() string {
	return string(p)
}

// IsValid reports whether the value matches the canonical property_type enum.
func (p PropertyType) IsValid() bool {
	for _, candidate := range validPropertyTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePropertyType converts raw input into PropertyType.
func ParsePropertyType(value string) (PropertyType, error) {
	for _, candidate := range validPropertyTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid property type %q", value)
}

// OperationType maps to the operation_type enum in Postgres.
type OperationType string

const (
	OperationSale        OperationType = "sale"
	OperationRent        OperationType = "rent"
	OperationSaleAndRent OperationType = "sale_and_rent"
)

var validOperationTypes = []OperationType{
	OperationSale,
	OperationRent,
	OperationSaleAndRent,
}

// String implements fmt.Stringer.
func (o OperationType) String() string {
	return string(o)
}

// IsValid reports whether the value matches the canonical operation_type enum.
func (o OperationType) IsValid() bool {
	for _, candidate := range validOperationTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOperationType converts raw input into OperationType.
func ParseOperationType(value string) (OperationType, error) {
	for _, candidate := range validOperationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid operation type %q", value)
}

// ApprovalStatus maps to the approval_status enum in Postgres.
type ApprovalStatus string

const (
	ApprovalDraft            ApprovalStatus = "draft"
	ApprovalPendingReview    ApprovalStatus = "pending_review"
	ApprovalChangesRequested ApprovalStatus = "changes_requested"
	ApprovalApproved         ApprovalStatus = "approved"
	ApprovalRejected         ApprovalStatus = "rejected"
	ApprovalArchived         ApprovalStatus = "archived"
)

var validApprovalStatuss = []ApprovalStatus{
	ApprovalDraft,
	ApprovalPendingReview,
	ApprovalChangesRequested,
	ApprovalApproved,
	ApprovalRejected,
	ApprovalArchived,
}

// String implements fmt.Stringer.
func (a ApprovalStatus) String() string {
	return string(a)
}

// IsValid reports whether the value matches the canonical approval_status enum.
func (a ApprovalStatus) IsValid() bool {
	for _, candidate := range validApprovalStatuss {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseApprovalStatus converts raw input into ApprovalStatus.
func ParseApprovalStatus(value string) (ApprovalStatus, error) {
	for _, candidate := range validApprovalStatuss {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid approval status %q", value)
}

// Supports reports whether a listing with this operation can close a deal of
// the given type.
func (o OperationType) Supports(deal DealType) bool {
	switch o {
	case OperationSaleAndRent:
		return deal.IsValid()
	case OperationSale:
		return deal == DealSale
	case OperationRent:
		return deal == DealRent
	}
	return false
}
