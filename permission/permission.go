// Package permission defines the Permission entity and its store interface.
package permission

import (
	"strings"
	"time"

	"github.com/xraph/grantor/id"
)

// Permission is a named capability: an action on a resource, optionally
// narrowed by a scope. Conditions and Metadata are opaque and never
// interpreted by the engine.
type Permission struct {
	ID          id.PermissionID `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	DisplayName string          `json:"display_name" db:"display_name"`
	Description string          `json:"description,omitempty" db:"description"`
	Resource    string          `json:"resource" db:"resource"`
	Action      string          `json:"action" db:"action"`
	Scope       *string         `json:"scope,omitempty" db:"scope"`
	Category    string          `json:"category" db:"category"`
	Conditions  map[string]any  `json:"conditions,omitempty" db:"conditions"`
	Metadata    map[string]any  `json:"metadata,omitempty" db:"metadata"`
	IsSystem    bool            `json:"is_system" db:"is_system"`
	IsActive    bool            `json:"is_active" db:"is_active"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Key returns the uniqueness key of the permission.
func (p *Permission) Key() Key {
	return NewKey(p.Resource, p.Action, p.Scope)
}

// Live reports whether the permission is present and not soft-deleted.
func (p *Permission) Live() bool {
	return p != nil && p.Name != ""
}

// Key is the (resource, action, scope) triple that identifies a permission.
// A nil scope is a distinct value: two keys with nil scopes are equal.
type Key struct {
	Resource string
	Action   string
	Scope    string
	HasScope bool
}

// NewKey builds a Key from its parts.
func NewKey(resource, action string, scope *string) Key {
	k := Key{Resource: resource, Action: action}
	if scope != nil {
		k.Scope = *scope
		k.HasScope = true
	}
	return k
}

// ScopePtr returns the scope as a nullable string.
func (k Key) ScopePtr() *string {
	if !k.HasScope {
		return nil
	}
	s := k.Scope
	return &s
}

// String renders the key as "resource:action" or "resource:action@scope".
func (k Key) String() string {
	if !k.HasScope {
		return k.Resource + ":" + k.Action
	}
	return k.Resource + ":" + k.Action + "@" + k.Scope
}

// SortField names a column permissions can be ordered by.
type SortField string

// Sortable permission fields.
const (
	SortByName      SortField = "name"
	SortByResource  SortField = "resource"
	SortByAction    SortField = "action"
	SortByCategory  SortField = "category"
	SortByCreatedAt SortField = "created_at"
)

// Valid reports whether f is a known sort field.
func (f SortField) Valid() bool {
	switch f {
	case SortByName, SortByResource, SortByAction, SortByCategory, SortByCreatedAt:
		return true
	}
	return false
}

// ListFilter contains filters for listing permissions.
type ListFilter struct {
	Search   string    `json:"search,omitempty"`
	Resource string    `json:"resource,omitempty"`
	Action   string    `json:"action,omitempty"`
	Category string    `json:"category,omitempty"`
	IsActive *bool     `json:"is_active,omitempty"`
	IsSystem *bool     `json:"is_system,omitempty"`
	SortBy   SortField `json:"sort_by,omitempty"`
	SortDesc bool      `json:"sort_desc,omitempty"`
	Limit    int       `json:"limit,omitempty"`
	Offset   int       `json:"offset,omitempty"`
}

// Matches reports whether p passes every non-pagination criterion of f.
// Backends without a query language use it to filter in process.
func (f *ListFilter) Matches(p *Permission) bool {
	if f == nil {
		return true
	}
	if f.Resource != "" && p.Resource != f.Resource {
		return false
	}
	if f.Action != "" && p.Action != f.Action {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.IsActive != nil && p.IsActive != *f.IsActive {
		return false
	}
	if f.IsSystem != nil && p.IsSystem != *f.IsSystem {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.DisplayName), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	return true
}

// OrderBy returns the effective sort field, defaulting to name.
func (f *ListFilter) OrderBy() SortField {
	if f == nil || !f.SortBy.Valid() {
		return SortByName
	}
	return f.SortBy
}
