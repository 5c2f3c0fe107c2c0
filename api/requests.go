package api

import "time"

// ──────────────────────────────────────────────────
// Permission requests
// ──────────────────────────────────────────────────

// CreatePermissionRequest is the body for creating a permission.
type CreatePermissionRequest struct {
	Name        string         `json:"name" description:"Permission name (e.g. user.read)"`
	DisplayName string         `json:"display_name,omitempty" description:"Display name (defaults to name)"`
	Description string         `json:"description,omitempty" description:"Human-readable description"`
	Resource    string         `json:"resource" description:"Resource the permission applies to"`
	Action      string         `json:"action" description:"Action name"`
	Scope       *string        `json:"scope,omitempty" description:"Optional scope qualifier"`
	Category    string         `json:"category,omitempty" description:"Grouping category (defaults to resource)"`
	Conditions  map[string]any `json:"conditions,omitempty" description:"Opaque conditions payload"`
	Metadata    map[string]any `json:"metadata,omitempty" description:"Custom metadata"`
	IsSystem    bool           `json:"is_system,omitempty" description:"System permission flag"`
	IsActive    *bool          `json:"is_active,omitempty" description:"Active flag (default: true)"`
}

// UpdatePermissionRequest is the body for updating a permission.
type UpdatePermissionRequest struct {
	Name        *string        `json:"name,omitempty" description:"Permission name"`
	DisplayName *string        `json:"display_name,omitempty" description:"Display name"`
	Description *string        `json:"description,omitempty" description:"Description"`
	Resource    *string        `json:"resource,omitempty" description:"Resource"`
	Action      *string        `json:"action,omitempty" description:"Action"`
	Scope       *string        `json:"scope,omitempty" description:"Scope"`
	ClearScope  bool           `json:"clear_scope,omitempty" description:"Remove the scope"`
	Category    *string        `json:"category,omitempty" description:"Category"`
	Conditions  map[string]any `json:"conditions,omitempty" description:"Conditions"`
	Metadata    map[string]any `json:"metadata,omitempty" description:"Metadata"`
	IsActive    *bool          `json:"is_active,omitempty" description:"Active flag"`
}

// GetPermissionRequest is the path parameter for getting a permission.
type GetPermissionRequest struct {
	PermissionID string `path:"permissionId" description:"Permission ID"`
}

// ListPermissionsRequest holds query parameters.
type ListPermissionsRequest struct {
	Search   string `query:"search" description:"Case-insensitive text search on name, display name and description"`
	Resource string `query:"resource" description:"Filter by resource"`
	Action   string `query:"action" description:"Filter by action"`
	Category string `query:"category" description:"Filter by category"`
	IsActive *bool  `query:"is_active" description:"Filter by active flag"`
	SortBy   string `query:"sort_by" description:"Sort field (name, resource, action, category, created_at)"`
	SortDesc bool   `query:"sort_desc" description:"Sort descending"`
	Page     int    `query:"page" description:"Zero-based page index"`
	PageSize int    `query:"page_size" description:"Page size"`
}

// ──────────────────────────────────────────────────
// Role requests
// ──────────────────────────────────────────────────

// CreateRoleRequest is the body for creating a role.
type CreateRoleRequest struct {
	Name          string         `json:"name" description:"Unique role name"`
	DisplayName   string         `json:"display_name,omitempty" description:"Display name (defaults to name)"`
	Description   string         `json:"description,omitempty" description:"Human-readable description"`
	ParentID      string         `json:"parent_id,omitempty" description:"Parent role ID (informational)"`
	Priority      int            `json:"priority,omitempty" description:"Listing priority (informational)"`
	PermissionIDs []string       `json:"permission_ids,omitempty" description:"Permissions granted with allow"`
	Metadata      map[string]any `json:"metadata,omitempty" description:"Custom metadata"`
	IsSystem      bool           `json:"is_system,omitempty" description:"System role flag"`
	IsActive      *bool          `json:"is_active,omitempty" description:"Active flag (default: true)"`
}

// UpdateRoleRequest is the body for updating a role.
type UpdateRoleRequest struct {
	Name        *string        `json:"name,omitempty" description:"Role name"`
	DisplayName *string        `json:"display_name,omitempty" description:"Display name"`
	Description *string        `json:"description,omitempty" description:"Description"`
	ParentID    string         `json:"parent_id,omitempty" description:"Parent role ID"`
	ClearParent bool           `json:"clear_parent,omitempty" description:"Detach from the parent role"`
	Priority    *int           `json:"priority,omitempty" description:"Priority"`
	IsActive    *bool          `json:"is_active,omitempty" description:"Active flag"`
	Metadata    map[string]any `json:"metadata,omitempty" description:"Metadata"`
}

// GetRoleRequest is the path parameter for getting a role.
type GetRoleRequest struct {
	RoleID string `path:"roleId" description:"Role ID"`
}

// ListRolesRequest holds query parameters for listing roles.
type ListRolesRequest struct {
	Search   string `query:"search" description:"Case-insensitive text search on name, display name and description"`
	IsActive *bool  `query:"is_active" description:"Filter by active flag"`
	ParentID string `query:"parent_id" description:"Filter by parent role ID"`
	SortBy   string `query:"sort_by" description:"Sort field (name, priority, created_at)"`
	SortDesc bool   `query:"sort_desc" description:"Sort descending"`
	Page     int    `query:"page" description:"Zero-based page index"`
	PageSize int    `query:"page_size" description:"Page size"`
}

// SetRolePermissionsRequest replaces every grant of a role.
type SetRolePermissionsRequest struct {
	PermissionIDs []string       `json:"permission_ids" description:"Permission IDs (empty clears the role)"`
	Effect        string         `json:"effect,omitempty" description:"allow (default) or deny"`
	Conditions    map[string]any `json:"conditions,omitempty" description:"Opaque conditions payload"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty" description:"Expiration time (RFC3339)"`
}

// ──────────────────────────────────────────────────
// User requests
// ──────────────────────────────────────────────────

// UserRequest is the path parameter for user routes.
type UserRequest struct {
	UserID string `path:"userId" description:"User ID"`
}

// SetUserRolesRequest replaces every role assignment of a user.
type SetUserRolesRequest struct {
	RoleIDs    []string       `json:"role_ids" description:"Role IDs (empty clears the user's roles)"`
	Effect     string         `json:"effect,omitempty" description:"allow (default) or deny"`
	Scope      *string        `json:"scope,omitempty" description:"Opaque scope"`
	Conditions map[string]any `json:"conditions,omitempty" description:"Opaque conditions payload"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty" description:"Expiration time (RFC3339)"`
}

// SetUserPermissionsRequest replaces every direct grant of a user.
type SetUserPermissionsRequest struct {
	PermissionIDs []string       `json:"permission_ids" description:"Permission IDs (empty clears the user's grants)"`
	Effect        string         `json:"effect,omitempty" description:"allow (default) or deny"`
	Scope         *string        `json:"scope,omitempty" description:"Opaque scope"`
	Conditions    map[string]any `json:"conditions,omitempty" description:"Opaque conditions payload"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty" description:"Expiration time (RFC3339)"`
	Reason        string         `json:"reason,omitempty" description:"Audit reason"`
}

// CheckRequest asks whether a user holds a permission.
type CheckRequest struct {
	UserID   string `json:"user_id" description:"User ID"`
	Resource string `json:"resource" description:"Resource"`
	Action   string `json:"action" description:"Action"`
}
