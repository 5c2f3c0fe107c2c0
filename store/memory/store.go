// Package memory provides an in-memory implementation of the grantor
// composite store. It is intended for testing and development.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/permission"
	"github.com/xraph/grantor/role"
	"github.com/xraph/grantor/store"
)

// Compile-time interface checks.
var (
	_ permission.Store = (*Store)(nil)
	_ role.Store       = (*Store)(nil)
	_ grant.Store      = (*Store)(nil)
	_ store.Store      = (*Store)(nil)
)

// Store is a thread-safe in-memory store for all grantor entities.
//
// Every mutation runs inside one write-lock critical section, so the
// wholesale replace operations are atomic with respect to readers.
type Store struct {
	mu sync.RWMutex

	permissions     map[string]*permission.Permission
	roles           map[string]*role.Role
	rolePermissions map[string][]*grant.RolePermission // roleID -> grants, insertion order
	userRoles       map[string][]*grant.UserRole       // userID -> assignments
	userPermissions map[string][]*grant.UserPermission // userID -> direct grants
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		permissions:     make(map[string]*permission.Permission),
		roles:           make(map[string]*role.Role),
		rolePermissions: make(map[string][]*grant.RolePermission),
		userRoles:       make(map[string][]*grant.UserRole),
		userPermissions: make(map[string][]*grant.UserPermission),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Permission Store
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(_ context.Context, p *permission.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing := s.permissionByKeyLocked(p.Key()); existing != nil {
		return fmt.Errorf("permission %s: %w", p.Key(), store.ErrConflict)
	}
	s.permissions[p.ID.String()] = copyPermission(p)
	return nil
}

func (s *Store) GetPermission(_ context.Context, permID id.PermissionID) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.permissions[permID.String()]
	if !ok {
		return nil, fmt.Errorf("permission %s: %w", permID, store.ErrNotFound)
	}
	return copyPermission(p), nil
}

func (s *Store) GetPermissionByKey(_ context.Context, key permission.Key) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.permissionByKeyLocked(key)
	if p == nil {
		return nil, fmt.Errorf("permission %s: %w", key, store.ErrNotFound)
	}
	return copyPermission(p), nil
}

func (s *Store) UpdatePermission(_ context.Context, p *permission.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.permissions[p.ID.String()]; !ok {
		return fmt.Errorf("permission %s: %w", p.ID, store.ErrNotFound)
	}
	if other := s.permissionByKeyLocked(p.Key()); other != nil && other.ID != p.ID {
		return fmt.Errorf("permission %s: %w", p.Key(), store.ErrConflict)
	}
	s.permissions[p.ID.String()] = copyPermission(p)
	return nil
}

func (s *Store) DeletePermission(_ context.Context, permID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pk := permID.String()
	if _, ok := s.permissions[pk]; !ok {
		return fmt.Errorf("permission %s: %w", permID, store.ErrNotFound)
	}
	delete(s.permissions, pk)
	for rk, grants := range s.rolePermissions {
		s.rolePermissions[rk] = slices.DeleteFunc(grants, func(g *grant.RolePermission) bool {
			return g.PermissionID == permID
		})
	}
	for uk, grants := range s.userPermissions {
		s.userPermissions[uk] = slices.DeleteFunc(grants, func(g *grant.UserPermission) bool {
			return g.PermissionID == permID
		})
	}
	return nil
}

func (s *Store) EnsurePermission(_ context.Context, p *permission.Permission) (*permission.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing := s.permissionByKeyLocked(p.Key()); existing != nil {
		return copyPermission(existing), nil
	}
	s.permissions[p.ID.String()] = copyPermission(p)
	return copyPermission(p), nil
}

func (s *Store) ListPermissions(_ context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := s.filterPermissionsLocked(filter)
	sortPermissions(result, filter)
	return applyPagination(result, paginationOptsPerm(filter)), nil
}

func (s *Store) CountPermissions(_ context.Context, filter *permission.ListFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filterPermissionsLocked(filter))), nil
}

func (s *Store) filterPermissionsLocked(filter *permission.ListFilter) []*permission.Permission {
	result := make([]*permission.Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		if filter.Matches(p) {
			result = append(result, copyPermission(p))
		}
	}
	return result
}

func (s *Store) permissionByKeyLocked(key permission.Key) *permission.Permission {
	for _, p := range s.permissions {
		if p.Key() == key {
			return p
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Role Store
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(_ context.Context, r *role.Role, permIDs []id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roleByNameLocked(r.Name) != nil {
		return fmt.Errorf("role %q: %w", r.Name, store.ErrConflict)
	}
	for _, pid := range permIDs {
		if _, ok := s.permissions[pid.String()]; !ok {
			return fmt.Errorf("permission %s: %w", pid, store.ErrNotFound)
		}
	}
	s.roles[r.ID.String()] = copyRole(r)
	grants := make([]*grant.RolePermission, 0, len(permIDs))
	for _, pid := range permIDs {
		if containsRoleGrant(grants, pid) {
			continue
		}
		grants = append(grants, &grant.RolePermission{
			RoleID:       r.ID,
			PermissionID: pid,
			Effect:       grant.EffectAllow,
			CreatedAt:    r.CreatedAt,
		})
	}
	s.rolePermissions[r.ID.String()] = grants
	return nil
}

func (s *Store) GetRole(_ context.Context, roleID id.RoleID) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID.String()]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}
	return copyRole(r), nil
}

func (s *Store) GetRoleByName(_ context.Context, name string) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.roleByNameLocked(name)
	if r == nil {
		return nil, fmt.Errorf("role %q: %w", name, store.ErrNotFound)
	}
	return copyRole(r), nil
}

func (s *Store) UpdateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[r.ID.String()]; !ok {
		return fmt.Errorf("role %s: %w", r.ID, store.ErrNotFound)
	}
	if other := s.roleByNameLocked(r.Name); other != nil && other.ID != r.ID {
		return fmt.Errorf("role %q: %w", r.Name, store.ErrConflict)
	}
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) DeleteRole(_ context.Context, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rk := roleID.String()
	if _, ok := s.roles[rk]; !ok {
		return fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}
	delete(s.roles, rk)
	delete(s.rolePermissions, rk)
	for uk, assignments := range s.userRoles {
		s.userRoles[uk] = slices.DeleteFunc(assignments, func(a *grant.UserRole) bool {
			return a.RoleID == roleID
		})
	}
	return nil
}

func (s *Store) EnsureRole(_ context.Context, r *role.Role) (*role.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing := s.roleByNameLocked(r.Name); existing != nil {
		return copyRole(existing), nil
	}
	s.roles[r.ID.String()] = copyRole(r)
	return copyRole(r), nil
}

func (s *Store) ListRoles(_ context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := s.filterRolesLocked(filter)
	sortRoles(result, filter)
	return applyPagination(result, paginationOpts(filter)), nil
}

func (s *Store) CountRoles(_ context.Context, filter *role.ListFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filterRolesLocked(filter))), nil
}

func (s *Store) ListChildRoles(_ context.Context, parentID id.RoleID) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*role.Role
	for _, r := range s.roles {
		if r.ParentID != nil && *r.ParentID == parentID {
			result = append(result, copyRole(r))
		}
	}
	sortRoles(result, nil)
	return result, nil
}

func (s *Store) filterRolesLocked(filter *role.ListFilter) []*role.Role {
	result := make([]*role.Role, 0, len(s.roles))
	for _, r := range s.roles {
		if filter.Matches(r) {
			result = append(result, copyRole(r))
		}
	}
	return result
}

func (s *Store) roleByNameLocked(name string) *role.Role {
	for _, r := range s.roles {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Grant Store
// ──────────────────────────────────────────────────

func (s *Store) SetRolePermissions(ctx context.Context, roleID id.RoleID, grants []*grant.RolePermission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[roleID.String()]; !ok {
		return fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}
	next := make([]*grant.RolePermission, 0, len(grants))
	for _, g := range grants {
		if _, ok := s.permissions[g.PermissionID.String()]; !ok {
			return fmt.Errorf("permission %s: %w", g.PermissionID, store.ErrNotFound)
		}
		if containsRoleGrant(next, g.PermissionID) {
			return fmt.Errorf("role %s permission %s: %w", roleID, g.PermissionID, store.ErrConflict)
		}
		c := copyRolePermission(g)
		c.RoleID = roleID
		next = append(next, c)
	}
	s.rolePermissions[roleID.String()] = next
	return nil
}

func (s *Store) AttachRolePermission(_ context.Context, g *grant.RolePermission) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rk := g.RoleID.String()
	if _, ok := s.roles[rk]; !ok {
		return false, fmt.Errorf("role %s: %w", g.RoleID, store.ErrNotFound)
	}
	if _, ok := s.permissions[g.PermissionID.String()]; !ok {
		return false, fmt.Errorf("permission %s: %w", g.PermissionID, store.ErrNotFound)
	}
	if containsRoleGrant(s.rolePermissions[rk], g.PermissionID) {
		return false, nil
	}
	s.rolePermissions[rk] = append(s.rolePermissions[rk], copyRolePermission(g))
	return true, nil
}

func (s *Store) ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]*grant.RolePermissionGrant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roleGrantsLocked(roleID.String()), nil
}

func (s *Store) SetUserRoles(ctx context.Context, userID string, assignments []*grant.UserRole) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]*grant.UserRole, 0, len(assignments))
	seen := make(map[id.RoleID]struct{}, len(assignments))
	for _, a := range assignments {
		if _, ok := s.roles[a.RoleID.String()]; !ok {
			return fmt.Errorf("role %s: %w", a.RoleID, store.ErrNotFound)
		}
		if _, dup := seen[a.RoleID]; dup {
			return fmt.Errorf("user %s role %s: %w", userID, a.RoleID, store.ErrConflict)
		}
		seen[a.RoleID] = struct{}{}
		c := copyUserRole(a)
		c.UserID = userID
		next = append(next, c)
	}
	if len(next) == 0 {
		delete(s.userRoles, userID)
		return nil
	}
	s.userRoles[userID] = next
	return nil
}

func (s *Store) ListUserRoles(ctx context.Context, userID string) ([]*grant.UserRole, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.userRoles[userID]
	result := make([]*grant.UserRole, 0, len(src))
	for _, a := range src {
		result = append(result, copyUserRole(a))
	}
	return result, nil
}

func (s *Store) SetUserPermissions(ctx context.Context, userID string, grants []*grant.UserPermission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]*grant.UserPermission, 0, len(grants))
	seen := make(map[id.PermissionID]struct{}, len(grants))
	for _, g := range grants {
		if _, ok := s.permissions[g.PermissionID.String()]; !ok {
			return fmt.Errorf("permission %s: %w", g.PermissionID, store.ErrNotFound)
		}
		if _, dup := seen[g.PermissionID]; dup {
			return fmt.Errorf("user %s permission %s: %w", userID, g.PermissionID, store.ErrConflict)
		}
		seen[g.PermissionID] = struct{}{}
		c := copyUserPermission(g)
		c.UserID = userID
		next = append(next, c)
	}
	if len(next) == 0 {
		delete(s.userPermissions, userID)
		return nil
	}
	s.userPermissions[userID] = next
	return nil
}

func (s *Store) ListUserPermissions(ctx context.Context, userID string) ([]*grant.UserPermission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.userPermissions[userID]
	result := make([]*grant.UserPermission, 0, len(src))
	for _, g := range src {
		result = append(result, copyUserPermission(g))
	}
	return result, nil
}

func (s *Store) ListRoleAssignments(ctx context.Context, userID string) ([]*grant.RoleAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.userRoles[userID]
	result := make([]*grant.RoleAssignment, 0, len(src))
	for _, a := range src {
		ra := &grant.RoleAssignment{UserRole: *copyUserRole(a)}
		if r, ok := s.roles[a.RoleID.String()]; ok {
			ra.Role = copyRole(r)
		}
		ra.Permissions = s.roleGrantsLocked(a.RoleID.String())
		result = append(result, ra)
	}
	return result, nil
}

func (s *Store) ListDirectGrants(ctx context.Context, userID string) ([]*grant.DirectGrant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.userPermissions[userID]
	result := make([]*grant.DirectGrant, 0, len(src))
	for _, g := range src {
		dg := &grant.DirectGrant{UserPermission: *copyUserPermission(g)}
		if p, ok := s.permissions[g.PermissionID.String()]; ok {
			dg.Permission = copyPermission(p)
		}
		result = append(result, dg)
	}
	return result, nil
}

func (s *Store) roleGrantsLocked(roleKey string) []*grant.RolePermissionGrant {
	src := s.rolePermissions[roleKey]
	result := make([]*grant.RolePermissionGrant, 0, len(src))
	for _, g := range src {
		rg := &grant.RolePermissionGrant{RolePermission: *copyRolePermission(g)}
		if p, ok := s.permissions[g.PermissionID.String()]; ok {
			rg.Permission = copyPermission(p)
		}
		result = append(result, rg)
	}
	return result
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func containsRoleGrant(grants []*grant.RolePermission, permID id.PermissionID) bool {
	return slices.ContainsFunc(grants, func(g *grant.RolePermission) bool {
		return g.PermissionID == permID
	})
}

func copyPermission(p *permission.Permission) *permission.Permission {
	c := *p
	if p.Scope != nil {
		scope := *p.Scope
		c.Scope = &scope
	}
	c.Conditions = copyMap(p.Conditions)
	c.Metadata = copyMap(p.Metadata)
	return &c
}

func copyRole(r *role.Role) *role.Role {
	c := *r
	if r.ParentID != nil {
		parent := *r.ParentID
		c.ParentID = &parent
	}
	c.Metadata = copyMap(r.Metadata)
	return &c
}

func copyRolePermission(g *grant.RolePermission) *grant.RolePermission {
	c := *g
	c.Conditions = copyMap(g.Conditions)
	return &c
}

func copyUserRole(a *grant.UserRole) *grant.UserRole {
	c := *a
	c.Conditions = copyMap(a.Conditions)
	return &c
}

func copyUserPermission(g *grant.UserPermission) *grant.UserPermission {
	c := *g
	c.Conditions = copyMap(g.Conditions)
	return &c
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func sortPermissions(items []*permission.Permission, f *permission.ListFilter) {
	field := f.OrderBy()
	desc := f != nil && f.SortDesc
	slices.SortStableFunc(items, func(a, b *permission.Permission) int {
		var c int
		switch field {
		case permission.SortByResource:
			c = strings.Compare(a.Resource, b.Resource)
		case permission.SortByAction:
			c = strings.Compare(a.Action, b.Action)
		case permission.SortByCategory:
			c = strings.Compare(a.Category, b.Category)
		case permission.SortByCreatedAt:
			c = a.CreatedAt.Compare(b.CreatedAt)
		default:
			c = strings.Compare(a.Name, b.Name)
		}
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		if desc {
			return -c
		}
		return c
	})
}

func sortRoles(items []*role.Role, f *role.ListFilter) {
	field := f.OrderBy()
	desc := f != nil && f.SortDesc
	slices.SortStableFunc(items, func(a, b *role.Role) int {
		var c int
		switch field {
		case role.SortByPriority:
			c = cmp.Compare(a.Priority, b.Priority)
		case role.SortByCreatedAt:
			c = a.CreatedAt.Compare(b.CreatedAt)
		default:
			c = strings.Compare(a.Name, b.Name)
		}
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		if desc {
			return -c
		}
		return c
	})
}

// Pagination helpers for each entity type.
type pagOpts struct{ limit, offset int }

func paginationOpts(f *role.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsPerm(f *permission.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func applyPagination[T any](items []*T, p pagOpts) []*T {
	if p.offset > 0 && p.offset < len(items) {
		items = items[p.offset:]
	} else if p.offset > 0 && p.offset >= len(items) {
		return nil
	}
	if p.limit > 0 && p.limit < len(items) {
		items = items[:p.limit]
	}
	return items
}
