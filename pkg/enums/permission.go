package enums

import "fmt"

// Permission names a grant from the fixed permission catalog.
type Permission string

const (
	PermissionPropertiesApprove  Permission = "properties:approve"
	PermissionCommissionsManage  Permission = "commissions:manage"
	PermissionAccountingView     Permission = "accounting:view"
	PermissionAccountingExport   Permission = "accounting:export"
	PermissionAccountingPay      Permission = "accounting:pay"
	PermissionAppointmentsAssign Permission = "appointments:assign"
	PermissionLeadsManage        Permission = "leads:manage"
	PermissionUsersManage        Permission = "users:manage"
	PermissionContractsManage    Permission = "contracts:manage"
)

var permissionCatalog = []Permission{
	PermissionPropertiesApprove,
	PermissionCommissionsManage,
	PermissionAccountingView,
	PermissionAccountingExport,
	PermissionAccountingPay,
	PermissionAppointmentsAssign,
	PermissionLeadsManage,
	PermissionUsersManage,
	PermissionContractsManage,
}

// PermissionCatalog returns a copy of every grantable permission.
func PermissionCatalog() []Permission {
	out := make([]Permission, len(permissionCatalog))
	copy(out, permissionCatalog)
	return out
}

func (p Permission) String() string {
	return string(p)
}

func (p Permission) IsValid() bool {
	for _, candidate := range permissionCatalog {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePermission converts raw input into Permission.
func ParsePermission(value string) (Permission, error) {
	for _, candidate := range permissionCatalog {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid permission %q", value)
}
