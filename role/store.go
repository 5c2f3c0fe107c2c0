package role

import (
	"context"

	"github.com/xraph/grantor/id"
)

// Store defines persistence operations for roles.
type Store interface {
	// CreateRole persists a new role together with one allow grant per
	// permission ID, in a single transaction.
	CreateRole(ctx context.Context, r *Role, permIDs []id.PermissionID) error

	// GetRole retrieves a role by ID.
	GetRole(ctx context.Context, roleID id.RoleID) (*Role, error)

	// GetRoleByName retrieves a role by its unique name.
	GetRoleByName(ctx context.Context, name string) (*Role, error)

	// UpdateRole persists changes to a role.
	UpdateRole(ctx context.Context, r *Role) error

	// DeleteRole removes a role and every grant edge that references it.
	// Child roles keep their ParentID.
	DeleteRole(ctx context.Context, roleID id.RoleID) error

	// EnsureRole inserts r unless a role with the same name exists, and
	// returns the stored row either way.
	EnsureRole(ctx context.Context, r *Role) (*Role, error)

	// ListRoles returns roles matching the filter.
	ListRoles(ctx context.Context, filter *ListFilter) ([]*Role, error)

	// CountRoles returns the number of roles matching the filter,
	// ignoring Limit and Offset.
	CountRoles(ctx context.Context, filter *ListFilter) (int64, error)

	// ListChildRoles returns direct child roles of a parent.
	ListChildRoles(ctx context.Context, parentID id.RoleID) ([]*Role, error)
}
