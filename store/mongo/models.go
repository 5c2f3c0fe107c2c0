package mongo

import (
	"fmt"
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
	ID              string         `grove:"id,pk"        bson:"_id"`
	Name            string         `grove:"name"         bson:"name"`
	DisplayName     string         `grove:"display_name" bson:"display_name"`
	Description     string         `grove:"description"  bson:"description"`
	Resource        string         `grove:"resource"     bson:"resource"`
	Action          string         `grove:"action"       bson:"action"`
	Scope           *string        `grove:"scope"        bson:"scope,omitempty"`
	Category        string         `grove:"category"     bson:"category"`
	Conditions      map[string]any `grove:"conditions"   bson:"conditions,omitempty"`
	Metadata        map[string]any `grove:"metadata"     bson:"metadata,omitempty"`
	IsSystem        bool           `grove:"is_system"    bson:"is_system"`
	IsActive        bool           `grove:"is_active"    bson:"is_active"`
	CreatedAt       time.Time      `grove:"created_at"   bson:"created_at"`
	UpdatedAt       time.Time      `grove:"updated_at"   bson:"updated_at"`
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

func permissionFromModel(m *permissionModel) (*permission.Permission, error) {
	pid, err := id.ParsePermissionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("permission %q: %w", m.ID, err)
	}
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
	}, nil
}

// ──────────────────────────────────────────────────
// Role model
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel `grove:"table:grantor_roles"`
	ID              string         `grove:"id,pk"        bson:"_id"`
	Name            string         `grove:"name"         bson:"name"`
	DisplayName     string         `grove:"display_name" bson:"display_name"`
	Description     string         `grove:"description"  bson:"description"`
	ParentID        *string        `grove:"parent_id"    bson:"parent_id,omitempty"`
	Priority        int            `grove:"priority"     bson:"priority"`
	IsSystem        bool           `grove:"is_system"    bson:"is_system"`
	IsActive        bool           `grove:"is_active"    bson:"is_active"`
	Metadata        map[string]any `grove:"metadata"     bson:"metadata,omitempty"`
	CreatedAt       time.Time      `grove:"created_at"   bson:"created_at"`
	UpdatedAt       time.Time      `grove:"updated_at"   bson:"updated_at"`
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

func roleFromModel(m *roleModel) (*role.Role, error) {
	rid, err := id.ParseRoleID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("role %q: %w", m.ID, err)
	}
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
		if err != nil {
			return nil, fmt.Errorf("role %q parent: %w", m.ID, err)
		}
		r.ParentID = &pid
	}
	return r, nil
}

// ──────────────────────────────────────────────────
// Edge documents
//
// Each owner's edge set lives in one document so that a wholesale
// replace is a single atomic write.
// ──────────────────────────────────────────────────

type rolePermissionEntry struct {
	PermissionID string         `bson:"permission_id"`
	Effect       string         `bson:"effect"`
	Conditions   map[string]any `bson:"conditions,omitempty"`
	ExpiresAt    *time.Time     `bson:"expires_at,omitempty"`
	CreatedAt    time.Time      `bson:"created_at"`
}

// roleGrantsModel holds every grant of one role.
type roleGrantsModel struct {
	grove.BaseModel `grove:"table:grantor_role_permissions"`
	RoleID          string                `grove:"id,pk"  bson:"_id"`
	Grants          []rolePermissionEntry `grove:"grants" bson:"grants"`
}

type userRoleEntry struct {
	RoleID     string         `bson:"role_id"`
	Effect     string         `bson:"effect"`
	Scope      *string        `bson:"scope,omitempty"`
	Conditions map[string]any `bson:"conditions,omitempty"`
	ExpiresAt  *time.Time     `bson:"expires_at,omitempty"`
	CreatedAt  time.Time      `bson:"created_at"`
}

// userRolesModel holds every role assignment of one user.
type userRolesModel struct {
	grove.BaseModel `grove:"table:grantor_user_roles"`
	UserID          string          `grove:"id,pk" bson:"_id"`
	Roles           []userRoleEntry `grove:"roles" bson:"roles"`
}

type userPermissionEntry struct {
	PermissionID string         `bson:"permission_id"`
	Effect       string         `bson:"effect"`
	Scope        *string        `bson:"scope,omitempty"`
	Conditions   map[string]any `bson:"conditions,omitempty"`
	ExpiresAt    *time.Time     `bson:"expires_at,omitempty"`
	Reason       string         `bson:"reason,omitempty"`
	CreatedAt    time.Time      `bson:"created_at"`
}

// userPermissionsModel holds every direct grant of one user.
type userPermissionsModel struct {
	grove.BaseModel `grove:"table:grantor_user_permissions"`
	UserID          string                `grove:"id,pk"  bson:"_id"`
	Grants          []userPermissionEntry `grove:"grants" bson:"grants"`
}

func rolePermissionToEntry(g *grant.RolePermission) rolePermissionEntry {
	return rolePermissionEntry{
		PermissionID: g.PermissionID.String(),
		Effect:       string(g.Effect),
		Conditions:   g.Conditions,
		ExpiresAt:    g.ExpiresAt,
		CreatedAt:    g.CreatedAt,
	}
}

func rolePermissionFromEntry(roleID id.RoleID, e *rolePermissionEntry) (*grant.RolePermission, error) {
	pid, err := id.ParsePermissionID(e.PermissionID)
	if err != nil {
		return nil, fmt.Errorf("role %s grant: %w", roleID, err)
	}
	return &grant.RolePermission{
		RoleID:       roleID,
		PermissionID: pid,
		Effect:       grant.Effect(e.Effect),
		Conditions:   e.Conditions,
		ExpiresAt:    e.ExpiresAt,
		CreatedAt:    e.CreatedAt,
	}, nil
}

func userRoleToEntry(a *grant.UserRole) userRoleEntry {
	return userRoleEntry{
		RoleID:     a.RoleID.String(),
		Effect:     string(a.Effect),
		Scope:      a.Scope,
		Conditions: a.Conditions,
		ExpiresAt:  a.ExpiresAt,
		CreatedAt:  a.CreatedAt,
	}
}

func userRoleFromEntry(userID string, e *userRoleEntry) (*grant.UserRole, error) {
	rid, err := id.ParseRoleID(e.RoleID)
	if err != nil {
		return nil, fmt.Errorf("user %s role: %w", userID, err)
	}
	return &grant.UserRole{
		UserID:     userID,
		RoleID:     rid,
		Effect:     grant.Effect(e.Effect),
		Scope:      e.Scope,
		Conditions: e.Conditions,
		ExpiresAt:  e.ExpiresAt,
		CreatedAt:  e.CreatedAt,
	}, nil
}

func userPermissionToEntry(g *grant.UserPermission) userPermissionEntry {
	return userPermissionEntry{
		PermissionID: g.PermissionID.String(),
		Effect:       string(g.Effect),
		Scope:        g.Scope,
		Conditions:   g.Conditions,
		ExpiresAt:    g.ExpiresAt,
		Reason:       g.Reason,
		CreatedAt:    g.CreatedAt,
	}
}

func userPermissionFromEntry(userID string, e *userPermissionEntry) (*grant.UserPermission, error) {
	pid, err := id.ParsePermissionID(e.PermissionID)
	if err != nil {
		return nil, fmt.Errorf("user %s grant: %w", userID, err)
	}
	return &grant.UserPermission{
		UserID:       userID,
		PermissionID: pid,
		Effect:       grant.Effect(e.Effect),
		Scope:        e.Scope,
		Conditions:   e.Conditions,
		ExpiresAt:    e.ExpiresAt,
		Reason:       e.Reason,
		CreatedAt:    e.CreatedAt,
	}, nil
}
