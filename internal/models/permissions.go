package models

// Permission codes checked by the authorization gate.
const (
	PermResearchCreate  = "research:create"
	PermResearchReadAll = "research:read_all"
	PermResearchReview  = "research:review"
	PermAuditRead       = "audit:read"
	PermRBACManage      = "rbac:manage"
	PermUserManage      = "user:manage"
)

var defaultPermissions = []Permission{
	{Code: PermResearchCreate, Name: "Create research items", Module: "research"},
	{Code: PermResearchReadAll, Name: "Read all research items", Module: "research"},
	{Code: PermResearchReview, Name: "Review research items", Module: "research"},
	{Code: PermAuditRead, Name: "Read audit logs", Module: "audit"},
	{Code: PermRBACManage, Name: "Manage roles and permissions", Module: "rbac"},
	{Code: PermUserManage, Name: "Manage users", Module: "user"},
}

var defaultRoles = []Role{
	{Code: RoleSysAdmin, Name: "System Administrator", Description: "Full access", IsSystem: true},
	{Code: RoleResearchAdmin, Name: "Research Administrator", Description: "Reviews research submissions", IsSystem: true},
	{Code: RoleTeacher, Name: "Teacher", Description: "Submits research items", IsSystem: true},
}

// Role-based permission mappings
var rolePermissions = map[string][]string{
	RoleSysAdmin: {
		PermResearchCreate, PermResearchReadAll, PermResearchReview,
		PermAuditRead, PermRBACManage, PermUserManage,
	},
	RoleResearchAdmin: {
		PermResearchCreate, PermResearchReadAll, PermResearchReview, PermAuditRead,
	},
	RoleTeacher: {
		PermResearchCreate,
	},
}

// DefaultRolePermissions returns the seeded permission codes of a system role.
func DefaultRolePermissions(roleCode string) []string {
	codes := rolePermissions[roleCode]
	out := make([]string, len(codes))
	copy(out, codes)
	return out
}

// rolePriority orders role codes for primary-role selection. Lower wins.
var rolePriority = map[string]int{
	RoleSysAdmin:      0,
	RoleResearchAdmin: 1,
	RoleTeacher:       2,
}

// RolePriority ranks a role code; unknown codes rank after every seeded role.
func RolePriority(code string) int {
	if p, ok := rolePriority[code]; ok {
		return p
	}
	return len(rolePriority)
}
