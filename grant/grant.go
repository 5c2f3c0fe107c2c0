// Package grant defines the grant edges of the RBAC graph: role to
// permission, user to role and user to permission, each carrying an
// allow/deny effect, and the joined views the resolver reads.
package grant

import (
	"time"

	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/permission"
	"github.com/xraph/grantor/role"
)

// Effect is the outcome an edge contributes: allow or deny.
type Effect string

const (
	// EffectAllow grants the target.
	EffectAllow Effect = "allow"

	// EffectDeny vetoes the target regardless of any allow.
	EffectDeny Effect = "deny"
)

// Valid reports whether e is allow or deny.
func (e Effect) Valid() bool {
	return e == EffectAllow || e == EffectDeny
}

// RolePermission links a role to a permission.
type RolePermission struct {
	RoleID       id.RoleID       `json:"role_id" db:"role_id"`
	PermissionID id.PermissionID `json:"permission_id" db:"permission_id"`
	Effect       Effect          `json:"effect" db:"effect"`
	Conditions   map[string]any  `json:"conditions,omitempty" db:"conditions"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// UserRole assigns a role to a user.
type UserRole struct {
	UserID     string         `json:"user_id" db:"user_id"`
	RoleID     id.RoleID      `json:"role_id" db:"role_id"`
	Effect     Effect         `json:"effect" db:"effect"`
	Scope      *string        `json:"scope,omitempty" db:"scope"`
	Conditions map[string]any `json:"conditions,omitempty" db:"conditions"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// UserPermission grants or denies a permission to a user directly,
// bypassing roles.
type UserPermission struct {
	UserID       string          `json:"user_id" db:"user_id"`
	PermissionID id.PermissionID `json:"permission_id" db:"permission_id"`
	Effect       Effect          `json:"effect" db:"effect"`
	Scope        *string         `json:"scope,omitempty" db:"scope"`
	Conditions   map[string]any  `json:"conditions,omitempty" db:"conditions"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty" db:"expires_at"`
	Reason       string          `json:"reason,omitempty" db:"reason"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Expired reports whether expiresAt is set and not after now.
func Expired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && !expiresAt.After(now)
}

// RolePermissionGrant is a role grant with its permission attached.
// Permission is nil when the referenced row no longer exists.
type RolePermissionGrant struct {
	RolePermission
	Permission *permission.Permission `json:"permission,omitempty"`
}

// RoleAssignment is a user's role assignment with the role and the
// role's full grant list attached.
type RoleAssignment struct {
	UserRole
	Role        *role.Role             `json:"role,omitempty"`
	Permissions []*RolePermissionGrant `json:"permissions"`
}

// DirectGrant is a user's direct permission grant with its permission
// attached.
type DirectGrant struct {
	UserPermission
	Permission *permission.Permission `json:"permission,omitempty"`
}
