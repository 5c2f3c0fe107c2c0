package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/permission"
	"github.com/xraph/grantor/role"
)

// marshalJSON encodes an opaque payload as JSON text. A nil map is stored
// as NULL so it round-trips as nil.
func marshalJSON(v map[string]any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func unmarshalJSON(s *string) (map[string]any, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(*s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// ──────────────────────────────────────────────────
// Permission model
// ──────────────────────────────────────────────────

type permissionModel struct {
	grove.BaseModel `grove:"table:grantor_permissions"`
	ID              string    `grove:"id,pk"`
	Name            string    `grove:"name,notnull"`
	DisplayName     string    `grove:"display_name,notnull"`
	Description     string    `grove:"description"`
	Resource        string    `grove:"resource,notnull"`
	Action          string    `grove:"action,notnull"`
	Scope           *string   `grove:"scope"`
	Category        string    `grove:"category,notnull"`
	Conditions      *string   `grove:"conditions"` // JSON text
	Metadata        *string   `grove:"metadata"`   // JSON text
	IsSystem        bool      `grove:"is_system,notnull"`
	IsActive        bool      `grove:"is_active,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func permissionToModel(p *permission.Permission) (*permissionModel, error) {
	conditions, err := marshalJSON(p.Conditions)
	if err != nil {
		return nil, fmt.Errorf("marshal permission conditions: %w", err)
	}
	metadata, err := marshalJSON(p.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal permission metadata: %w", err)
	}
	return &permissionModel{
		ID:          p.ID.String(),
		Name:        p.Name,
		DisplayName: p.DisplayName,
		Description: p.Description,
		Resource:    p.Resource,
		Action:      p.Action,
		Scope:       p.Scope,
		Category:    p.Category,
		Conditions:  conditions,
		Metadata:    metadata,
		IsSystem:    p.IsSystem,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

func permissionFromModel(m *permissionModel) (*permission.Permission, error) {
	pid, _ := id.ParsePermissionID(m.ID) //nolint:errcheck // stored IDs are always valid
	conditions, err := unmarshalJSON(m.Conditions)
	if err != nil {
		return nil, fmt.Errorf("unmarshal permission conditions: %w", err)
	}
	metadata, err := unmarshalJSON(m.Metadata)
	if err != nil {
		return nil, fmt.Errorf("unmarshal permission metadata: %w", err)
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
		Conditions:  conditions,
		Metadata:    metadata,
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
	ID              string    `grove:"id,pk"`
	Name            string    `grove:"name,notnull"`
	DisplayName     string    `grove:"display_name,notnull"`
	Description     string    `grove:"description"`
	ParentID        *string   `grove:"parent_id"`
	Priority        int       `grove:"priority,notnull"`
	IsSystem        bool      `grove:"is_system,notnull"`
	IsActive        bool      `grove:"is_active,notnull"`
	Metadata        *string   `grove:"metadata"` // JSON text
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func roleToModel(r *role.Role) (*roleModel, error) {
	metadata, err := marshalJSON(r.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal role metadata: %w", err)
	}
	m := &roleModel{
		ID:          r.ID.String(),
		Name:        r.Name,
		DisplayName: r.DisplayName,
		Description: r.Description,
		Priority:    r.Priority,
		IsSystem:    r.IsSystem,
		IsActive:    r.IsActive,
		Metadata:    metadata,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.ParentID != nil {
		s := r.ParentID.String()
		m.ParentID = &s
	}
	return m, nil
}

func roleFromModel(m *roleModel) (*role.Role, error) {
	rid, _ := id.ParseRoleID(m.ID) //nolint:errcheck // stored IDs are always valid
	metadata, err := unmarshalJSON(m.Metadata)
	if err != nil {
		return nil, fmt.Errorf("unmarshal role metadata: %w", err)
	}
	r := &role.Role{
		ID:          rid,
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Description: m.Description,
		Priority:    m.Priority,
		IsSystem:    m.IsSystem,
		IsActive:    m.IsActive,
		Metadata:    metadata,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.ParentID != nil {
		pid, err := id.ParseRoleID(*m.ParentID)
		if err == nil {
			r.ParentID = &pid
		}
	}
	return r, nil
}

// ──────────────────────────────────────────────────
// Edge models
// ──────────────────────────────────────────────────

type rolePermissionModel struct {
	grove.BaseModel `grove:"table:grantor_role_permissions"`
	RoleID          string     `grove:"role_id,pk"`
	PermissionID    string     `grove:"permission_id,pk"`
	Effect          string     `grove:"effect,notnull"`
	Conditions      *string    `grove:"conditions"` // JSON text
	ExpiresAt       *time.Time `grove:"expires_at"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
}

func rolePermissionToModel(g *grant.RolePermission) (rolePermissionModel, error) {
	conditions, err := marshalJSON(g.Conditions)
	if err != nil {
		return rolePermissionModel{}, fmt.Errorf("marshal role grant conditions: %w", err)
	}
	return rolePermissionModel{
		RoleID:       g.RoleID.String(),
		PermissionID: g.PermissionID.String(),
		Effect:       string(g.Effect),
		Conditions:   conditions,
		ExpiresAt:    g.ExpiresAt,
		CreatedAt:    g.CreatedAt,
	}, nil
}

func rolePermissionFromModel(m *rolePermissionModel) (*grant.RolePermission, error) {
	rid, _ := id.ParseRoleID(m.RoleID)             //nolint:errcheck // stored IDs are always valid
	pid, _ := id.ParsePermissionID(m.PermissionID) //nolint:errcheck // stored IDs are always valid
	conditions, err := unmarshalJSON(m.Conditions)
	if err != nil {
		return nil, fmt.Errorf("unmarshal role grant conditions: %w", err)
	}
	return &grant.RolePermission{
		RoleID:       rid,
		PermissionID: pid,
		Effect:       grant.Effect(m.Effect),
		Conditions:   conditions,
		ExpiresAt:    m.ExpiresAt,
		CreatedAt:    m.CreatedAt,
	}, nil
}

type userRoleModel struct {
	grove.BaseModel `grove:"table:grantor_user_roles"`
	UserID          string     `grove:"user_id,pk"`
	RoleID          string     `grove:"role_id,pk"`
	Effect          string     `grove:"effect,notnull"`
	Scope           *string    `grove:"scope"`
	Conditions      *string    `grove:"conditions"` // JSON text
	ExpiresAt       *time.Time `grove:"expires_at"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
}

func userRoleToModel(a *grant.UserRole) (userRoleModel, error) {
	conditions, err := marshalJSON(a.Conditions)
	if err != nil {
		return userRoleModel{}, fmt.Errorf("marshal user role conditions: %w", err)
	}
	return userRoleModel{
		UserID:     a.UserID,
		RoleID:     a.RoleID.String(),
		Effect:     string(a.Effect),
		Scope:      a.Scope,
		Conditions: conditions,
		ExpiresAt:  a.ExpiresAt,
		CreatedAt:  a.CreatedAt,
	}, nil
}

func userRoleFromModel(m *userRoleModel) (*grant.UserRole, error) {
	rid, _ := id.ParseRoleID(m.RoleID) //nolint:errcheck // stored IDs are always valid
	conditions, err := unmarshalJSON(m.Conditions)
	if err != nil {
		return nil, fmt.Errorf("unmarshal user role conditions: %w", err)
	}
	return &grant.UserRole{
		UserID:     m.UserID,
		RoleID:     rid,
		Effect:     grant.Effect(m.Effect),
		Scope:      m.Scope,
		Conditions: conditions,
		ExpiresAt:  m.ExpiresAt,
		CreatedAt:  m.CreatedAt,
	}, nil
}

type userPermissionModel struct {
	grove.BaseModel `grove:"table:grantor_user_permissions"`
	UserID          string     `grove:"user_id,pk"`
	PermissionID    string     `grove:"permission_id,pk"`
	Effect          string     `grove:"effect,notnull"`
	Scope           *string    `grove:"scope"`
	Conditions      *string    `grove:"conditions"` // JSON text
	ExpiresAt       *time.Time `grove:"expires_at"`
	Reason          string     `grove:"reason"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
}

func userPermissionToModel(g *grant.UserPermission) (userPermissionModel, error) {
	conditions, err := marshalJSON(g.Conditions)
	if err != nil {
		return userPermissionModel{}, fmt.Errorf("marshal user permission conditions: %w", err)
	}
	return userPermissionModel{
		UserID:       g.UserID,
		PermissionID: g.PermissionID.String(),
		Effect:       string(g.Effect),
		Scope:        g.Scope,
		Conditions:   conditions,
		ExpiresAt:    g.ExpiresAt,
		Reason:       g.Reason,
		CreatedAt:    g.CreatedAt,
	}, nil
}

func userPermissionFromModel(m *userPermissionModel) (*grant.UserPermission, error) {
	pid, _ := id.ParsePermissionID(m.PermissionID) //nolint:errcheck // stored IDs are always valid
	conditions, err := unmarshalJSON(m.Conditions)
	if err != nil {
		return nil, fmt.Errorf("unmarshal user permission conditions: %w", err)
	}
	return &grant.UserPermission{
		UserID:       m.UserID,
		PermissionID: pid,
		Effect:       grant.Effect(m.Effect),
		Scope:        m.Scope,
		Conditions:   conditions,
		ExpiresAt:    m.ExpiresAt,
		Reason:       m.Reason,
		CreatedAt:    m.CreatedAt,
	}, nil
}
