// Package role defines the Role entity and its store interface.
package role

import (
	"strings"
	"time"

	"github.com/xraph/grantor/id"
)

// Role is a named collection of permissions that can be assigned to users.
//
// ParentID records a hierarchy for display purposes only; effective
// permission resolution never walks it. Priority orders roles in listings
// and does not influence resolution either.
type Role struct {
	ID          id.RoleID      `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	DisplayName string         `json:"display_name" db:"display_name"`
	Description string         `json:"description,omitempty" db:"description"`
	ParentID    *id.RoleID     `json:"parent_id,omitempty" db:"parent_id"`
	Priority    int            `json:"priority" db:"priority"`
	IsSystem    bool           `json:"is_system" db:"is_system"`
	IsActive    bool           `json:"is_active" db:"is_active"`
	Metadata    map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// SortField names a column roles can be ordered by.
type SortField string

// Sortable role fields.
const (
	SortByName      SortField = "name"
	SortByPriority  SortField = "priority"
	SortByCreatedAt SortField = "created_at"
)

// Valid reports whether f is a known sort field.
func (f SortField) Valid() bool {
	switch f {
	case SortByName, SortByPriority, SortByCreatedAt:
		return true
	}
	return false
}

// ListFilter contains filters for listing roles.
type ListFilter struct {
	Search   string     `json:"search,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
	IsSystem *bool      `json:"is_system,omitempty"`
	ParentID *id.RoleID `json:"parent_id,omitempty"`
	SortBy   SortField  `json:"sort_by,omitempty"`
	SortDesc bool       `json:"sort_desc,omitempty"`
	Limit    int        `json:"limit,omitempty"`
	Offset   int        `json:"offset,omitempty"`
}

// Matches reports whether r passes every non-pagination criterion of f.
func (f *ListFilter) Matches(r *Role) bool {
	if f == nil {
		return true
	}
	if f.IsActive != nil && r.IsActive != *f.IsActive {
		return false
	}
	if f.IsSystem != nil && r.IsSystem != *f.IsSystem {
		return false
	}
	if f.ParentID != nil && (r.ParentID == nil || *r.ParentID != *f.ParentID) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.Name), q) &&
			!strings.Contains(strings.ToLower(r.DisplayName), q) &&
			!strings.Contains(strings.ToLower(r.Description), q) {
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
