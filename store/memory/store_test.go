package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/permission"
	"github.com/xraph/grantor/role"
	"github.com/xraph/grantor/store"
)

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func newPerm(name, resource, action string) *permission.Permission {
	now := time.Now().UTC()
	return &permission.Permission{
		ID:        id.NewPermissionID(),
		Name:      name,
		Resource:  resource,
		Action:    action,
		Category:  resource,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newRole(name string) *role.Role {
	now := time.Now().UTC()
	return &role.Role{
		ID:        id.NewRoleID(),
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPermissionCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := newPerm("read-docs", "document", "read")
	require.NoError(t, s.CreatePermission(ctx, p))

	got, err := s.GetPermission(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "read-docs", got.Name)

	got, err = s.GetPermissionByKey(ctx, permission.NewKey("document", "read", nil))
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	p.DisplayName = "Read documents"
	require.NoError(t, s.UpdatePermission(ctx, p))
	got, err = s.GetPermission(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Read documents", got.DisplayName)

	require.NoError(t, s.DeletePermission(ctx, p.ID))
	_, err = s.GetPermission(ctx, p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeletePermission(ctx, p.ID), store.ErrNotFound)
}

func TestPermissionKeyUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreatePermission(ctx, newPerm("a", "user", "read")))
	err := s.CreatePermission(ctx, newPerm("b", "user", "read"))
	assert.ErrorIs(t, err, store.ErrConflict)

	// A scoped permission is a different key.
	scoped := newPerm("c", "user", "read")
	scoped.Scope = strPtr("own")
	require.NoError(t, s.CreatePermission(ctx, scoped))

	// Moving an existing permission onto a taken key is rejected.
	other := newPerm("d", "user", "write")
	require.NoError(t, s.CreatePermission(ctx, other))
	other.Action = "read"
	assert.ErrorIs(t, s.UpdatePermission(ctx, other), store.ErrConflict)
}

func TestEnsurePermission(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, err := s.EnsurePermission(ctx, newPerm("user:create", "user", "create"))
	require.NoError(t, err)

	second, err := s.EnsurePermission(ctx, newPerm("user:create", "user", "create"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	n, err := s.CountPermissions(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestListPermissionsFilterSortPaginate(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, p := range []*permission.Permission{
		newPerm("charlie", "user", "read"),
		newPerm("alpha", "user", "create"),
		newPerm("bravo", "course", "read"),
	} {
		require.NoError(t, s.CreatePermission(ctx, p))
	}
	inactive := newPerm("delta", "user", "delete")
	inactive.IsActive = false
	require.NoError(t, s.CreatePermission(ctx, inactive))

	all, err := s.ListPermissions(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "delta", all[3].Name)

	users, err := s.ListPermissions(ctx, &permission.ListFilter{Resource: "user", IsActive: boolPtr(true)})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	desc, err := s.ListPermissions(ctx, &permission.ListFilter{SortBy: permission.SortByName, SortDesc: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, "delta", desc[0].Name)
	assert.Equal(t, "charlie", desc[1].Name)

	page, err := s.ListPermissions(ctx, &permission.ListFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "charlie", page[0].Name)

	empty, err := s.ListPermissions(ctx, &permission.ListFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)

	search, err := s.ListPermissions(ctx, &permission.ListFilter{Search: "BRA"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, "bravo", search[0].Name)

	n, err := s.CountPermissions(ctx, &permission.ListFilter{Resource: "user", Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestRoleCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := newPerm("read", "user", "read")
	require.NoError(t, s.CreatePermission(ctx, p))

	r := newRole("editor")
	require.NoError(t, s.CreateRole(ctx, r, []id.PermissionID{p.ID, p.ID}))

	got, err := s.GetRoleByName(ctx, "editor")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	grants, err := s.ListRolePermissions(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, grant.EffectAllow, grants[0].Effect)
	require.NotNil(t, grants[0].Permission)
	assert.Equal(t, "read", grants[0].Permission.Name)

	assert.ErrorIs(t, s.CreateRole(ctx, newRole("editor"), nil), store.ErrConflict)

	r.Description = "edits things"
	require.NoError(t, s.UpdateRole(ctx, r))
	got, err = s.GetRole(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "edits things", got.Description)

	require.NoError(t, s.DeleteRole(ctx, r.ID))
	_, err = s.GetRole(ctx, r.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	grants, err = s.ListRolePermissions(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestCreateRoleIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.CreateRole(ctx, newRole("ghost"), []id.PermissionID{id.NewPermissionID()})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetRoleByName(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRoleRenameConflict(t *testing.T) {
	ctx := context.Background()
	s := New()

	a := newRole("a")
	b := newRole("b")
	require.NoError(t, s.CreateRole(ctx, a, nil))
	require.NoError(t, s.CreateRole(ctx, b, nil))

	b.Name = "a"
	assert.ErrorIs(t, s.UpdateRole(ctx, b), store.ErrConflict)
}

func TestChildRolesSurviveParentDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	parent := newRole("parent")
	require.NoError(t, s.CreateRole(ctx, parent, nil))
	child := newRole("child")
	child.ParentID = &parent.ID
	require.NoError(t, s.CreateRole(ctx, child, nil))

	children, err := s.ListChildRoles(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)

	require.NoError(t, s.DeleteRole(ctx, parent.ID))
	got, err := s.GetRole(ctx, child.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, parent.ID, *got.ParentID)
}

func TestListRolesSortByPriority(t *testing.T) {
	ctx := context.Background()
	s := New()

	for name, prio := range map[string]int{"low": 1, "high": 100, "mid": 50} {
		r := newRole(name)
		r.Priority = prio
		require.NoError(t, s.CreateRole(ctx, r, nil))
	}

	list, err := s.ListRoles(ctx, &role.ListFilter{SortBy: role.SortByPriority, SortDesc: true})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"high", "mid", "low"}, []string{list[0].Name, list[1].Name, list[2].Name})
}

func TestSetRolePermissionsReplaces(t *testing.T) {
	ctx := context.Background()
	s := New()

	p1 := newPerm("p1", "user", "read")
	p2 := newPerm("p2", "user", "update")
	require.NoError(t, s.CreatePermission(ctx, p1))
	require.NoError(t, s.CreatePermission(ctx, p2))

	r := newRole("r")
	require.NoError(t, s.CreateRole(ctx, r, []id.PermissionID{p1.ID}))

	require.NoError(t, s.SetRolePermissions(ctx, r.ID, []*grant.RolePermission{
		{PermissionID: p2.ID, Effect: grant.EffectDeny},
	}))
	grants, err := s.ListRolePermissions(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, p2.ID, grants[0].PermissionID)
	assert.Equal(t, grant.EffectDeny, grants[0].Effect)
	assert.Equal(t, r.ID, grants[0].RoleID)

	require.NoError(t, s.SetRolePermissions(ctx, r.ID, nil))
	grants, err = s.ListRolePermissions(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, grants)

	err = s.SetRolePermissions(ctx, r.ID, []*grant.RolePermission{{PermissionID: id.NewPermissionID()}})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAttachRolePermission(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := newPerm("p", "user", "read")
	require.NoError(t, s.CreatePermission(ctx, p))
	r := newRole("r")
	require.NoError(t, s.CreateRole(ctx, r, nil))

	g := &grant.RolePermission{RoleID: r.ID, PermissionID: p.ID, Effect: grant.EffectAllow}
	inserted, err := s.AttachRolePermission(ctx, g)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.AttachRolePermission(ctx, g)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestUserEdgesAndJoinedReads(t *testing.T) {
	ctx := context.Background()
	s := New()

	p1 := newPerm("p1", "user", "read")
	p2 := newPerm("p2", "user", "update")
	require.NoError(t, s.CreatePermission(ctx, p1))
	require.NoError(t, s.CreatePermission(ctx, p2))
	r := newRole("viewer")
	require.NoError(t, s.CreateRole(ctx, r, []id.PermissionID{p1.ID}))

	require.NoError(t, s.SetUserRoles(ctx, "u1", []*grant.UserRole{
		{RoleID: r.ID, Effect: grant.EffectAllow},
	}))
	require.NoError(t, s.SetUserPermissions(ctx, "u1", []*grant.UserPermission{
		{PermissionID: p2.ID, Effect: grant.EffectDeny, Reason: "suspended"},
	}))

	assignments, err := s.ListRoleAssignments(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "u1", assignments[0].UserID)
	require.NotNil(t, assignments[0].Role)
	assert.Equal(t, "viewer", assignments[0].Role.Name)
	require.Len(t, assignments[0].Permissions, 1)
	assert.Equal(t, p1.ID, assignments[0].Permissions[0].Permission.ID)

	direct, err := s.ListDirectGrants(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, direct, 1)
	assert.Equal(t, "suspended", direct[0].Reason)
	require.NotNil(t, direct[0].Permission)
	assert.Equal(t, p2.ID, direct[0].Permission.ID)

	// Deleting a permission cascades to every edge that references it.
	require.NoError(t, s.DeletePermission(ctx, p2.ID))
	direct, err = s.ListDirectGrants(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, direct)

	// Deleting a role cascades to user assignments.
	require.NoError(t, s.DeleteRole(ctx, r.ID))
	assignments, err = s.ListRoleAssignments(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, assignments)
}

func TestSetUserRolesRejectsUnknownRole(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := newRole("r")
	require.NoError(t, s.CreateRole(ctx, r, nil))
	require.NoError(t, s.SetUserRoles(ctx, "u1", []*grant.UserRole{{RoleID: r.ID, Effect: grant.EffectAllow}}))

	err := s.SetUserRoles(ctx, "u1", []*grant.UserRole{
		{RoleID: r.ID, Effect: grant.EffectDeny},
		{RoleID: id.NewRoleID(), Effect: grant.EffectAllow},
	})
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The failed replace left the previous set untouched.
	roles, err := s.ListUserRoles(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, grant.EffectAllow, roles[0].Effect)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New()

	_, err := s.ListRoleAssignments(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.ListDirectGrants(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.SetUserRoles(ctx, "u1", nil), context.Canceled)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := newPerm("p", "user", "read")
	p.Metadata = map[string]any{"k": "v"}
	require.NoError(t, s.CreatePermission(ctx, p))

	got, err := s.GetPermission(ctx, p.ID)
	require.NoError(t, err)
	got.Name = "mutated"
	got.Metadata["k"] = "mutated"

	again, err := s.GetPermission(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "p", again.Name)
	assert.Equal(t, "v", again.Metadata["k"])
}

func TestConcurrentReplaceIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := New()

	var perms []*permission.Permission
	for _, action := range []string{"a", "b", "c", "d"} {
		p := newPerm(action, "x", action)
		require.NoError(t, s.CreatePermission(ctx, p))
		perms = append(perms, p)
	}
	setA := []*grant.UserPermission{
		{PermissionID: perms[0].ID, Effect: grant.EffectAllow},
		{PermissionID: perms[1].ID, Effect: grant.EffectAllow},
	}
	setB := []*grant.UserPermission{
		{PermissionID: perms[2].ID, Effect: grant.EffectAllow},
		{PermissionID: perms[3].ID, Effect: grant.EffectAllow},
	}
	require.NoError(t, s.SetUserPermissions(ctx, "u", setA))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			next := setA
			if i%2 == 0 {
				next = setB
			}
			_ = s.SetUserPermissions(ctx, "u", next)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			got, err := s.ListDirectGrants(ctx, "u")
			if err != nil {
				t.Error(err)
				return
			}
			if len(got) != 2 {
				t.Errorf("observed partial set of %d grants", len(got))
				return
			}
			pair := got[0].PermissionID == perms[0].ID && got[1].PermissionID == perms[1].ID ||
				got[0].PermissionID == perms[2].ID && got[1].PermissionID == perms[3].ID
			if !pair {
				t.Error("observed a mixed grant set")
				return
			}
		}
	}()
	wg.Wait()
}
