package auth

import "github.com/warp/fuel-engine/fuel"

// RoleAtLeast returns true when role satisfies required role.
func RoleAtLeast(role, required fuel.Role) bool {
	return roleRank(role) >= roleRank(required)
}

func roleRank(role fuel.Role) int {
	switch role {
	case fuel.RoleUser:
		return 1
	case fuel.RoleAdmin:
		return 2
	case fuel.RoleSuperAdmin:
		return 3
	default:
		return 0
	}
}
