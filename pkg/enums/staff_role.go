package enums

import "fmt"

// StaffRole maps to the staff_role enum in Postgres.
type StaffRole string

const (
	StaffRoleManager      StaffRole = "manager"
	StaffRoleSeller       StaffRole = "seller"
	StaffRoleConcierge    StaffRole = "concierge"
	StaffRolePhotographer StaffRole = "photographer"
)

var validStaffRoles = []StaffRole{
	StaffRoleManager,
	StaffRoleSeller,
	StaffRoleConcierge,
	StaffRolePhotographer,
}

// String implements fmt.Stringer.
func (s StaffRole) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical staff_role enum.
func (s StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStaffRole converts raw input into StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}
