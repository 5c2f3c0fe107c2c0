package grant

import (
	"context"

	"github.com/xraph/grantor/id"
)

// Store defines persistence operations for grant edges.
//
// Every Set* method is a wholesale replace: all existing edges of the
// owner are deleted and the supplied set inserted in one transaction, so
// a concurrent reader observes either the old set or the new one.
type Store interface {
	// SetRolePermissions replaces every grant of a role.
	SetRolePermissions(ctx context.Context, roleID id.RoleID, grants []*RolePermission) error

	// AttachRolePermission inserts g unless the role already has a grant
	// for the permission. It reports whether a row was inserted.
	AttachRolePermission(ctx context.Context, g *RolePermission) (bool, error)

	// ListRolePermissions returns a role's grants with permissions attached.
	ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]*RolePermissionGrant, error)

	// SetUserRoles replaces every role assignment of a user.
	SetUserRoles(ctx context.Context, userID string, assignments []*UserRole) error

	// ListUserRoles returns the raw role assignments of a user.
	ListUserRoles(ctx context.Context, userID string) ([]*UserRole, error)

	// SetUserPermissions replaces every direct grant of a user.
	SetUserPermissions(ctx context.Context, userID string, grants []*UserPermission) error

	// ListUserPermissions returns the raw direct grants of a user.
	ListUserPermissions(ctx context.Context, userID string) ([]*UserPermission, error)

	// ListRoleAssignments returns a user's role assignments, each with its
	// role and the role's grants (with permissions) attached.
	ListRoleAssignments(ctx context.Context, userID string) ([]*RoleAssignment, error)

	// ListDirectGrants returns a user's direct grants with permissions attached.
	ListDirectGrants(ctx context.Context, userID string) ([]*DirectGrant, error)
}
