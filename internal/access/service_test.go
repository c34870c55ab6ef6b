package access

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-gov/meridian/internal/events"
	"github.com/meridian-gov/meridian/internal/shared"
)

func newTestService() *Service {
	return NewService(nil, nil, nil)
}

func TestHasPermissionUnknownUser(t *testing.T) {
	svc := newTestService()
	require.False(t, svc.HasPermission("nobody", "access:budgets"))
}

func TestAssignUnknownRoleLeavesUserUnchanged(t *testing.T) {
	svc := newTestService()
	svc.AssignRole("alice", "NoSuchRole")
	require.Empty(t, svc.GetUserRoles("alice"))
}

func TestGetUserRolesIsOrderedCopy(t *testing.T) {
	svc := newTestService()
	svc.AssignRole("alice", "Viewer")
	svc.AssignRole("alice", "Accountant")
	svc.AssignRole("alice", "Viewer") // idempotent

	roles := svc.GetUserRoles("alice")
	require.Equal(t, []string{"Viewer", "Accountant"}, roles)

	roles[0] = "mutated"
	require.Equal(t, []string{"Viewer", "Accountant"}, svc.GetUserRoles("alice"))

	require.NotNil(t, svc.GetUserRoles("nobody"))
	require.Empty(t, svc.GetUserRoles("nobody"))
}

func TestCreateRoleIsIdempotent(t *testing.T) {
	svc := newTestService()
	svc.CreateRole("Auditor", []string{"view:audit"})
	svc.CreateRole("Auditor", []string{"modify:everything"})

	role, ok := svc.GetRole("Auditor")
	require.True(t, ok)
	require.Equal(t, []string{"view:audit"}, role.Permissions())
}

func TestBlanketAdminAuthorizesModify(t *testing.T) {
	svc := newTestService()
	svc.AssignRole("adminUser", RoleAdmin)

	// Admin's permission set has no literal modify:budgets; the blanket
	// admin permission carries the check.
	require.False(t, svc.HasPermission("adminUser", "modify:budgets"))
	require.True(t, svc.CanModifyResource("adminUser", "budgets"))
}

func TestWildcardPermissionsAreLiteralStrings(t *testing.T) {
	svc := newTestService()
	svc.AssignRole("adminUser", RoleAdmin)

	// Stored "access:*" is not expanded against concrete resources; only
	// the literal string matches. Intentionally pinned, not fixed.
	require.False(t, svc.CanAccessResource("adminUser", "budgets"))
	require.True(t, svc.HasPermission("adminUser", "access:*"))
}

func TestCanAccessResource(t *testing.T) {
	svc := newTestService()
	svc.AssignRole("bob", "Manager")

	require.True(t, svc.CanAccessResource("bob", "budgets"))
	require.True(t, svc.CanModifyResource("bob", "accounts"))
	require.False(t, svc.CanModifyResource("bob", "users"))
}

func TestIsAdminChecksRoleNameNotPermissions(t *testing.T) {
	svc := newTestService()
	svc.CreateRole("SuperUser", []string{PermAdmin})
	svc.AssignRole("carol", "SuperUser")
	svc.AssignRole("dave", RoleAdmin)

	require.False(t, svc.IsAdmin("carol"))
	require.True(t, svc.IsAdmin("dave"))
}

func TestRemoveRole(t *testing.T) {
	svc := newTestService()
	svc.AssignRole("alice", "Viewer")
	svc.RemoveRole("alice", "Viewer")
	require.Empty(t, svc.GetUserRoles("alice"))

	// Missing user or assignment is a no-op.
	svc.RemoveRole("alice", "Viewer")
	svc.RemoveRole("nobody", "Viewer")
}

func TestStaleRoleAssignmentIsSkipped(t *testing.T) {
	svc := newTestService()
	svc.CreateRole("Temp", []string{"access:reports"})
	svc.AssignRole("eve", "Temp")
	require.True(t, svc.HasPermission("eve", "access:reports"))

	svc.mu.Lock()
	delete(svc.roles, "Temp")
	svc.mu.Unlock()

	require.False(t, svc.HasPermission("eve", "access:reports"))
	require.Equal(t, []string{"Temp"}, svc.GetUserRoles("eve"))
}

func TestRequireHelpers(t *testing.T) {
	svc := newTestService()
	svc.AssignRole("alice", "Viewer")

	require.NoError(t, svc.RequirePermission("alice", "view:reports"))
	require.NoError(t, svc.RequireRole("alice", "Viewer"))

	err := svc.RequirePermission("alice", "modify:budgets")
	require.ErrorIs(t, err, shared.ErrForbidden)
	require.ErrorIs(t, svc.RequireRole("alice", RoleAdmin), shared.ErrForbidden)
}

func TestRoleEventsPublishedOnAssignment(t *testing.T) {
	bus := events.NewBus(nil, nil)
	svc := NewService(nil, bus, nil)

	var assigned []events.RoleAssigned
	var revoked []events.RoleRevoked
	events.Subscribe(bus, func(e events.RoleAssigned) { assigned = append(assigned, e) })
	events.Subscribe(bus, func(e events.RoleRevoked) { revoked = append(revoked, e) })

	svc.AssignRole("alice", "Viewer")
	svc.AssignRole("alice", "Viewer") // idempotent: no second event
	svc.RemoveRole("alice", "Viewer")

	require.Equal(t, []events.RoleAssigned{{UserID: "alice", Role: "Viewer"}}, assigned)
	require.Equal(t, []events.RoleRevoked{{UserID: "alice", Role: "Viewer"}}, revoked)
}
