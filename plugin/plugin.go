// Package plugin defines the plugin system for grantor.
// Plugins are notified of lifecycle events (permission created, user roles
// replaced, permissions resolved, etc.) and can react with logging,
// metrics or cache warming.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/permission"
	"github.com/xraph/grantor/role"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Resolve lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeResolve is called before a user's effective permissions are computed.
type BeforeResolve interface {
	OnBeforeResolve(ctx context.Context, userID string) error
}

// AfterResolve is called after a resolve completes, successfully or not.
// The result parameter is *grantor.EffectivePermissions (passed as any to
// avoid an import cycle) and is nil when err is non-nil.
type AfterResolve interface {
	OnAfterResolve(ctx context.Context, userID string, result any, err error, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Permission lifecycle hooks
// ──────────────────────────────────────────────────

// PermissionCreated is called after a permission is created.
type PermissionCreated interface {
	OnPermissionCreated(ctx context.Context, p *permission.Permission) error
}

// PermissionUpdated is called after a permission is updated.
type PermissionUpdated interface {
	OnPermissionUpdated(ctx context.Context, p *permission.Permission) error
}

// PermissionDeleted is called after a permission is deleted.
type PermissionDeleted interface {
	OnPermissionDeleted(ctx context.Context, permID id.PermissionID) error
}

// ──────────────────────────────────────────────────
// Role lifecycle hooks
// ──────────────────────────────────────────────────

// RoleCreated is called after a role is created.
type RoleCreated interface {
	OnRoleCreated(ctx context.Context, r *role.Role) error
}

// RoleUpdated is called after a role is updated.
type RoleUpdated interface {
	OnRoleUpdated(ctx context.Context, r *role.Role) error
}

// RoleDeleted is called after a role is deleted.
type RoleDeleted interface {
	OnRoleDeleted(ctx context.Context, roleID id.RoleID) error
}

// RolePermissionsReplaced is called after a role's grant set is replaced.
type RolePermissionsReplaced interface {
	OnRolePermissionsReplaced(ctx context.Context, roleID id.RoleID, grants []*grant.RolePermission) error
}

// ──────────────────────────────────────────────────
// User grant lifecycle hooks
// ──────────────────────────────────────────────────

// UserRolesReplaced is called after a user's role assignments are replaced.
type UserRolesReplaced interface {
	OnUserRolesReplaced(ctx context.Context, userID string, assignments []*grant.UserRole) error
}

// UserPermissionsReplaced is called after a user's direct grants are replaced.
type UserPermissionsReplaced interface {
	OnUserPermissionsReplaced(ctx context.Context, userID string, grants []*grant.UserPermission) error
}

// ──────────────────────────────────────────────────
// Bootstrap and shutdown hooks
// ──────────────────────────────────────────────────

// BaselineEnsured is called after the system baseline has been seeded.
// The report parameter is *grantor.BaselineReport.
type BaselineEnsured interface {
	OnBaselineEnsured(ctx context.Context, report any) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
