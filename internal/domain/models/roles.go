package models

// Roles, in increasing order of privilege.
const (
	RoleMember     = "member"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super-admin"
)

var roleRank = map[string]int{
	RoleMember:     1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

// RoleRank returns the privilege rank of role, or 0 for unknown roles.
func RoleRank(role string) int {
	return roleRank[role]
}

// RoleAtLeast reports whether role carries at least the privilege of min.
// Unknown roles never satisfy any minimum.
func RoleAtLeast(role, min string) bool {
	r := roleRank[role]
	return r > 0 && r >= roleRank[min]
}
