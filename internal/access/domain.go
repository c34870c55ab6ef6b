// Package access implements role-based access control for the platform.
//
// Roles map names to permission sets; users carry an ordered set of role
// names. All queries are deny-by-default: boolean checks return false for
// anything unknown and never fail, only the Require* helpers return errors.
package access

// Permission strings follow a verb:resource convention.
const (
	// PermAdmin is the blanket permission that authorizes any modify-class
	// check regardless of resource.
	PermAdmin = "admin"

	verbAccess = "access"
	verbModify = "modify"
)

// RoleAdmin is the role name checked by IsAdmin. This is a name check,
// distinct from the permission-based checks.
const RoleAdmin = "Admin"

// Role groups a named set of permissions. Roles are created once and never
// mutated afterwards.
type Role struct {
	Name        string
	permissions map[string]struct{}
	ordered     []string
}

func newRole(name string, permissions []string) Role {
	r := Role{Name: name, permissions: make(map[string]struct{}, len(permissions))}
	for _, p := range permissions {
		if _, ok := r.permissions[p]; ok {
			continue
		}
		r.permissions[p] = struct{}{}
		r.ordered = append(r.ordered, p)
	}
	return r
}

// Grants reports whether the role contains the exact permission string.
// Stored wildcards such as "access:*" match only a literal "access:*" query;
// no pattern expansion happens here.
func (r Role) Grants(permission string) bool {
	_, ok := r.permissions[permission]
	return ok
}

// Permissions returns the role's permission strings in insertion order.
func (r Role) Permissions() []string {
	return append([]string(nil), r.ordered...)
}

// defaultRoles are seeded at construction.
func defaultRoles() []Role {
	return []Role{
		newRole(RoleAdmin, []string{
			PermAdmin,
			"access:*",
			"modify:*",
			"delete:*",
			"manage:users",
			"manage:roles",
			"view:audit",
		}),
		newRole("Manager", []string{
			"access:budgets",
			"access:accounts",
			"access:reports",
			"modify:budgets",
			"modify:accounts",
			"view:reports",
		}),
		newRole("Accountant", []string{
			"access:budgets",
			"access:accounts",
			"access:reports",
			"view:reports",
		}),
		newRole("Viewer", []string{
			"access:dashboard",
			"view:reports",
		}),
	}
}
