package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/permission"
	"github.com/xraph/grantor/role"
)

// ──────────────────────────────────────────────────
// Permission model
// ──────────────────────────────────────────────────

type permissionModel struct {
	grove.BaseModel `grove:"table:grantor_permissions"`
	ID              string         `grove:"id,pk"`
	Name            string         `grove:"name,notnull"`
	DisplayName     string         `grove:"display_name,notnull"`
	Description     string         `grove:"description"`
	Resource        string         `grove:"resource,notnull"`
	Action          string         `grove:"action,notnull"`
	Scope           *string        `grove:"scope"`
	Category        string         `grove:"category,notnull"`
	Conditions      map[string]any `grove:"conditions,type:jsonb"`
	Metadata        map[string]any `grove:"metadata,type:jsonb"`
	IsSystem        bool           `grove:"is_system,notnull"`
	IsActive        bool           `grove:"is_active,notnull"`
	CreatedAt       time.Time      `grove:"created_at,notnull"`
	UpdatedAt       time.Time      `grove:"updated_at,notnull"`
}

func permissionToModel(p *permission.Permission) *permissionModel {
	return &permissionModel{
		ID:          p.ID.String(),
		Name:        p.Name,
		DisplayName: p.DisplayName,
		Description: p.Description,
		Resource:    p.Resource,
		Action:      p.Action,
		Scope:       p.Scope,
		Category:    p.Category,
		Conditions:  p.Conditions,
		Metadata:    p.Metadata,
		IsSystem:    p.IsSystem,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func permissionFromModel(m *permissionModel) *permission.Permission {
	pid, _ := id.ParsePermissionID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &permission.Permission{
		ID:          pid,
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Description: m.Description,
		Resource:    m.Resource,
		Action:      m.Action,
		Scope:       m.Scope,
		Category:    m.Category,
		Conditions:  m.Conditions,
		Metadata:    m.Metadata,
		IsSystem:    m.IsSystem,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Role model
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel `grove:"table:grantor_roles"`
	ID              string         `grove:"id,pk"`
	Name            string         `grove:"name,notnull"`
	DisplayName     string         `grove:"display_name,notnull"`
	Description     string         `grove:"description"`
	ParentID        *string        `grove:"parent_id"`
	Priority        int            `grove:"priority,notnull"`
	IsSystem        bool           `grove:"is_system,notnull"`
	IsActive        bool           `grove:"is_active,notnull"`
	Metadata        map[string]any `grove:"metadata,type:jsonb"`
	CreatedAt       time.Time      `grove:"created_at,notnull"`
	UpdatedAt       time.Time      `grove:"updated_at,notnull"`
}

func roleToModel(r *role.Role) *roleModel {
	m := &roleModel{
		ID:          r.ID.String(),
		Name:        r.Name,
		DisplayName: r.DisplayName,
		Description: r.Description,
		Priority:    r.Priority,
		IsSystem:    r.IsSystem,
		IsActive:    r.IsActive,
		Metadata:    r.Metadata,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.ParentID != nil {
		s := r.ParentID.String()
		m.ParentID = &s
	}
	return m
}

func roleFromModel(m *roleModel) *role.Role {
	rid, _ := id.ParseRoleID(m.ID) //nolint:errcheck // stored IDs are always valid
	r := &role.Role{
		ID:          rid,
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Description: m.Description,
		Priority:    m.Priority,
		IsSystem:    m.IsSystem,
		IsActive:    m.IsActive,
		Metadata:    m.Metadata,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.ParentID != nil {
		pid, err := id.ParseRoleID(*m.ParentID)
		if err == nil {
			r.ParentID = &pid
		}
	}
	return r
}

// ──────────────────────────────────────────────────
// Edge models
// ──────────────────────────────────────────────────

type rolePermissionModel struct {
	grove.BaseModel `grove:"table:grantor_role_permissions"`
	RoleID          string         `grove:"role_id,pk"`
	PermissionID    string         `grove:"permission_id,pk"`
	Effect          string         `grove:"effect,notnull"`
	Conditions      map[string]any `grove:"conditions,type:jsonb"`
	ExpiresAt       *time.Time     `grove:"expires_at"`
	CreatedAt       time.Time      `grove:"created_at,notnull"`
}

func rolePermissionToModel(g *grant.RolePermission) rolePermissionModel {
	return rolePermissionModel{
		RoleID:       g.RoleID.String(),
		PermissionID: g.PermissionID.String(),
		Effect:       string(g.Effect),
		Conditions:   g.Conditions,
		ExpiresAt:    g.ExpiresAt,
		CreatedAt:    g.CreatedAt,
	}
}

func rolePermissionFromModel(m *rolePermissionModel) *grant.RolePermission {
	rid, _ := id.ParseRoleID(m.RoleID)             //nolint:errcheck // stored IDs are always valid
	pid, _ := id.ParsePermissionID(m.PermissionID) //nolint:errcheck // stored IDs are always valid
	return &grant.RolePermission{
		RoleID:       rid,
		PermissionID: pid,
		Effect:       grant.Effect(m.Effect),
		Conditions:   m.Conditions,
		ExpiresAt:    m.ExpiresAt,
		CreatedAt:    m.CreatedAt,
	}
}

type userRoleModel struct {
	grove.BaseModel `grove:"table:grantor_user_roles"`
	UserID          string         `grove:"user_id,pk"`
	RoleID          string         `grove:"role_id,pk"`
	Effect          string         `grove:"effect,notnull"`
	Scope           *string        `grove:"scope"`
	Conditions      map[string]any `grove:"conditions,type:jsonb"`
	ExpiresAt       *time.Time     `grove:"expires_at"`
	CreatedAt       time.Time      `grove:"created_at,notnull"`
}

func userRoleToModel(a *grant.UserRole) userRoleModel {
	return userRoleModel{
		UserID:     a.UserID,
		RoleID:     a.RoleID.String(),
		Effect:     string(a.Effect),
		Scope:      a.Scope,
		Conditions: a.Conditions,
		ExpiresAt:  a.ExpiresAt,
		CreatedAt:  a.CreatedAt,
	}
}

func userRoleFromModel(m *userRoleModel) *grant.UserRole {
	rid, _ := id.ParseRoleID(m.RoleID) //nolint:errcheck // stored IDs are always valid
	return &grant.UserRole{
		UserID:     m.UserID,
		RoleID:     rid,
		Effect:     grant.Effect(m.Effect),
		Scope:      m.Scope,
		Conditions: m.Conditions,
		ExpiresAt:  m.ExpiresAt,
		CreatedAt:  m.CreatedAt,
	}
}

type userPermissionModel struct {
	grove.BaseModel `grove:"table:grantor_user_permissions"`
	UserID          string         `grove:"user_id,pk"`
	PermissionID    string         `grove:"permission_id,pk"`
	Effect          string         `grove:"effect,notnull"`
	Scope           *string        `grove:"scope"`
	Conditions      map[string]any `grove:"conditions,type:jsonb"`
	ExpiresAt       *time.Time     `grove:"expires_at"`
	Reason          string         `grove:"reason"`
	CreatedAt       time.Time      `grove:"created_at,notnull"`
}

func userPermissionToModel(g *grant.UserPermission) userPermissionModel {
	return userPermissionModel{
		UserID:       g.UserID,
		PermissionID: g.PermissionID.String(),
		Effect:       string(g.Effect),
		Scope:        g.Scope,
		Conditions:   g.Conditions,
		ExpiresAt:    g.ExpiresAt,
		Reason:       g.Reason,
		CreatedAt:    g.CreatedAt,
	}
}

func userPermissionFromModel(m *userPermissionModel) *grant.UserPermission {
	pid, _ := id.ParsePermissionID(m.PermissionID) //nolint:errcheck // stored IDs are always valid
	return &grant.UserPermission{
		UserID:       m.UserID,
		PermissionID: pid,
		Effect:       grant.Effect(m.Effect),
		Scope:        m.Scope,
		Conditions:   m.Conditions,
		ExpiresAt:    m.ExpiresAt,
		Reason:       m.Reason,
		CreatedAt:    m.CreatedAt,
	}
}
