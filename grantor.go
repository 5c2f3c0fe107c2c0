// Package grantor computes the effective permissions of a user in a
// role-based access control model.
//
// Permissions are (resource, action, scope) capabilities. Roles bundle
// permissions through allow or deny grants. Users receive roles and
// individual permissions, each with an allow or deny effect. Resolve folds
// those edges into one deduplicated permission set under a single rule:
// a deny from any source vetoes the permission, whatever allows it.
//
// Role priority and the parent hierarchy are informational. Neither is
// consulted when resolving.
//
// All operations are reached through an Engine:
//
//	eng, err := grantor.NewEngine(grantor.WithStore(memory.New()))
//	perm, err := eng.Catalog().Create(ctx, &grantor.CreatePermissionInput{...})
//	res, err := eng.Resolver().Resolve(ctx, "user-1")
package grantor

import (
	"time"

	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/permission"
	"github.com/xraph/grantor/role"
)

// EffectivePermissions is the resolved permission set of one user. It is
// computed on demand and never persisted.
type EffectivePermissions struct {
	UserID string `json:"user_id"`

	// RoleAssignments is the user's role assignments after hygiene
	// filtering, each with its role and the role's grants attached.
	RoleAssignments []*grant.RoleAssignment `json:"role_assignments"`

	// DirectPermissions is the user's direct grants after hygiene filtering.
	DirectPermissions []*grant.DirectGrant `json:"direct_permissions"`

	// Permissions is the deduplicated set the user may exercise.
	Permissions []*permission.Permission `json:"effective_permissions"`

	// DeniedPermissionIDs lists every vetoed permission, sorted.
	DeniedPermissionIDs []id.PermissionID `json:"denied_permission_ids"`

	Summary Summary `json:"summary"`
}

// Summary holds the counters of a resolve.
type Summary struct {
	AllowedDirectCount         int       `json:"allowed_direct_count"`
	DeniedCount                int       `json:"denied_count"`
	AllowedRoleAssignmentCount int       `json:"allowed_role_assignment_count"`
	EffectiveCount             int       `json:"effective_count"`
	ComputedAt                 time.Time `json:"computed_at"`
}

// Allows reports whether permID is in the effective set.
func (ep *EffectivePermissions) Allows(permID id.PermissionID) bool {
	for _, p := range ep.Permissions {
		if p.ID == permID {
			return true
		}
	}
	return false
}

// Denies reports whether permID was vetoed.
func (ep *EffectivePermissions) Denies(permID id.PermissionID) bool {
	for _, d := range ep.DeniedPermissionIDs {
		if d == permID {
			return true
		}
	}
	return false
}

// Grants reports whether any effective permission covers resource and
// action. A permission whose resource or action is "*" covers any value.
func (ep *EffectivePermissions) Grants(resource, action string) bool {
	for _, p := range ep.Permissions {
		if matchPermission(p, resource, action) {
			return true
		}
	}
	return false
}

// RoleDetail is a role with its permission grants and immediate children.
type RoleDetail struct {
	*role.Role
	Permissions []*grant.RolePermissionGrant `json:"permissions"`
	Children    []*role.Role                 `json:"children,omitempty"`
}

// Page selects a zero-based page of search results.
type Page struct {
	Index int `json:"page" validate:"gte=0"`
	Size  int `json:"page_size" validate:"gte=0"`
}

// PermissionPage is one page of a permission search.
type PermissionPage struct {
	Items []*permission.Permission `json:"items"`
	Total int64                    `json:"total"`
	Page  Page                     `json:"page"`
}

// RolePage is one page of a role search.
type RolePage struct {
	Items []*role.Role `json:"items"`
	Total int64        `json:"total"`
	Page  Page         `json:"page"`
}
