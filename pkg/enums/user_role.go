package enums

import "fmt"

// UserRole maps to the user_role enum in Postgres.
type UserRole string

const (
	UserRoleAdmin         UserRole = "admin"
	UserRoleOwner         UserRole = "owner"
	UserRoleSeller        UserRole = "seller"
	UserRoleConcierge     UserRole = "concierge"
	UserRoleExternalAgent UserRole = "external_agent"
	UserRoleTenant        UserRole = "tenant"
	UserRoleClient        UserRole = "client"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleOwner,
	UserRoleSeller,
	UserRoleConcierge,
	UserRoleExternalAgent,
	UserRoleTenant,
	UserRoleClient,
}

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsValid reports whether the value matches the canonical user_role enum.
func (u UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}

// RequiresAgency reports whether users with this role must belong to an
// external agency.
func (u UserRole) RequiresAgency() bool {
	return u == UserRoleExternalAgent
}

// EarnsCommission reports whether the role can appear as a commission payee.
func (u UserRole) EarnsCommission() bool {
	switch u {
	case UserRoleSeller, UserRoleExternalAgent, UserRoleConcierge, UserRoleAdmin:
		return true
	}
	return false
}
