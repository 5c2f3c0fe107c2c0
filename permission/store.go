package permission

import (
	"context"

	"github.com/xraph/grantor/id"
)

// Store defines persistence operations for permissions.
type Store interface {
	// CreatePermission persists a new permission.
	CreatePermission(ctx context.Context, p *Permission) error

	// GetPermission retrieves a permission by ID.
	GetPermission(ctx context.Context, permID id.PermissionID) (*Permission, error)

	// GetPermissionByKey retrieves a permission by its (resource, action, scope) triple.
	GetPermissionByKey(ctx context.Context, key Key) (*Permission, error)

	// UpdatePermission persists changes to a permission.
	UpdatePermission(ctx context.Context, p *Permission) error

	// DeletePermission removes a permission and every grant edge that references it.
	DeletePermission(ctx context.Context, permID id.PermissionID) error

	// EnsurePermission inserts p unless a permission with the same key
	// exists, and returns the stored row either way.
	EnsurePermission(ctx context.Context, p *Permission) (*Permission, error)

	// ListPermissions returns permissions matching the filter.
	ListPermissions(ctx context.Context, filter *ListFilter) ([]*Permission, error)

	// CountPermissions returns the number of permissions matching the filter,
	// ignoring Limit and Offset.
	CountPermissions(ctx context.Context, filter *ListFilter) (int64, error)
}
