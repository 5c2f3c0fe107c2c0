// Package storetest holds the behavior every grantor store backend must
// share. Backend tests call Run with a constructor for a fresh, migrated
// store.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/grantor"
	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/permission"
	"github.com/xraph/grantor/role"
	"github.com/xraph/grantor/store"
)

// Factory returns an empty, migrated store. It registers its own cleanup.
type Factory func(t *testing.T) store.Store

// Run exercises s against the shared store contract. Every subtest gets
// a fresh store from newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"PermissionRoundTrip", testPermissionRoundTrip},
		{"PermissionKeyConflict", testPermissionKeyConflict},
		{"EnsurePermission", testEnsurePermission},
		{"ListPermissions", testListPermissions},
		{"RoleWithGrants", testRoleWithGrants},
		{"EnsureRole", testEnsureRole},
		{"SetRolePermissionsReplaces", testSetRolePermissionsReplaces},
		{"AttachRolePermission", testAttachRolePermission},
		{"UserEdgesAndJoinedReads", testUserEdgesAndJoinedReads},
		{"DeleteRemovesEdges", testDeleteRemovesEdges},
		{"EngineScenarios", testEngineScenarios},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// fixtureTime is whole seconds in UTC so every backend round-trips it.
var fixtureTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newPermission(name, resource, action string) *permission.Permission {
	return &permission.Permission{
		ID:        id.NewPermissionID(),
		Name:      name,
		Resource:  resource,
		Action:    action,
		Category:  resource,
		IsActive:  true,
		CreatedAt: fixtureTime,
		UpdatedAt: fixtureTime,
	}
}

func newRole(name string) *role.Role {
	return &role.Role{
		ID:        id.NewRoleID(),
		Name:      name,
		IsActive:  true,
		CreatedAt: fixtureTime,
		UpdatedAt: fixtureTime,
	}
}

func mustCreatePermissions(t *testing.T, s store.Store, ps ...*permission.Permission) {
	t.Helper()
	for _, p := range ps {
		require.NoError(t, s.CreatePermission(context.Background(), p))
	}
}

func grantIDs(gs []*grant.RolePermissionGrant) []id.PermissionID {
	out := make([]id.PermissionID, 0, len(gs))
	for _, g := range gs {
		out = append(out, g.PermissionID)
	}
	return out
}

func testPermissionRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	scope := "tenant"
	p := newPermission("reports.export", "report", "export")
	p.Scope = &scope
	p.Metadata = map[string]any{"owner": "finance"}
	mustCreatePermissions(t, s, p)

	got, err := s.GetPermission(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	require.NotNil(t, got.Scope)
	assert.Equal(t, scope, *got.Scope)
	assert.Equal(t, "finance", got.Metadata["owner"])
	assert.True(t, got.CreatedAt.Equal(fixtureTime), "created_at %v", got.CreatedAt)

	got, err = s.GetPermissionByKey(ctx, p.Key())
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = s.GetPermissionByKey(ctx, permission.NewKey("report", "export", nil))
	require.ErrorIs(t, err, store.ErrNotFound)

	p.Scope = nil
	p.DisplayName = "Export reports"
	p.UpdatedAt = fixtureTime.Add(time.Hour)
	require.NoError(t, s.UpdatePermission(ctx, p))
	got, err = s.GetPermission(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Scope)
	assert.Equal(t, "Export reports", got.DisplayName)
	assert.True(t, got.UpdatedAt.Equal(p.UpdatedAt))

	require.NoError(t, s.DeletePermission(ctx, p.ID))
	_, err = s.GetPermission(ctx, p.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.DeletePermission(ctx, p.ID), store.ErrNotFound)
}

func testPermissionKeyConflict(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreatePermissions(t, s, newPermission("user.read", "user", "read"))

	err := s.CreatePermission(ctx, newPermission("user.read.again", "user", "read"))
	require.ErrorIs(t, err, store.ErrConflict)

	scope := "self"
	scoped := newPermission("user.read.self", "user", "read")
	scoped.Scope = &scope
	require.NoError(t, s.CreatePermission(ctx, scoped))
}

func testEnsurePermission(t *testing.T, s store.Store) {
	ctx := context.Background()
	first, err := s.EnsurePermission(ctx, newPermission("role.read", "role", "read"))
	require.NoError(t, err)

	second, err := s.EnsurePermission(ctx, newPermission("role.read", "role", "read"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	n, err := s.CountPermissions(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testListPermissions(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreatePermissions(t, s,
		newPermission("c-doc-read", "doc", "read"),
		newPermission("a-doc-write", "doc", "write"),
		newPermission("b-user-read", "user", "read"),
	)

	all, err := s.ListPermissions(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a-doc-write", all[0].Name)

	docs, err := s.ListPermissions(ctx, &permission.ListFilter{Resource: "doc", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "c-doc-read", docs[0].Name)

	n, err := s.CountPermissions(ctx, &permission.ListFilter{Resource: "doc", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	found, err := s.ListPermissions(ctx, &permission.ListFilter{Search: "USER"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "b-user-read", found[0].Name)
}

func testRoleWithGrants(t *testing.T, s store.Store) {
	ctx := context.Background()
	read := newPermission("doc.read", "doc", "read")
	write := newPermission("doc.write", "doc", "write")
	mustCreatePermissions(t, s, read, write)

	parent := newRole("staff")
	require.NoError(t, s.CreateRole(ctx, parent, nil))

	r := newRole("editor")
	r.ParentID = &parent.ID
	r.Priority = 10
	require.NoError(t, s.CreateRole(ctx, r, []id.PermissionID{read.ID, write.ID}))

	got, err := s.GetRole(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "editor", got.Name)
	assert.Equal(t, 10, got.Priority)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, parent.ID, *got.ParentID)

	byName, err := s.GetRoleByName(ctx, "editor")
	require.NoError(t, err)
	assert.Equal(t, r.ID, byName.ID)

	grants, err := s.ListRolePermissions(ctx, r.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []id.PermissionID{read.ID, write.ID}, grantIDs(grants))
	for _, g := range grants {
		require.NotNil(t, g.Permission)
		assert.Equal(t, grant.EffectAllow, g.Effect)
	}

	children, err := s.ListChildRoles(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, r.ID, children[0].ID)

	err = s.CreateRole(ctx, newRole("editor"), nil)
	require.ErrorIs(t, err, store.ErrConflict)
}

func testEnsureRole(t *testing.T, s store.Store) {
	ctx := context.Background()
	first, err := s.EnsureRole(ctx, newRole("admin"))
	require.NoError(t, err)
	second, err := s.EnsureRole(ctx, newRole("admin"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	n, err := s.CountRoles(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testSetRolePermissionsReplaces(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newPermission("a", "doc", "a")
	b := newPermission("b", "doc", "b")
	c := newPermission("c", "doc", "c")
	mustCreatePermissions(t, s, a, b, c)
	r := newRole("r")
	require.NoError(t, s.CreateRole(ctx, r, []id.PermissionID{a.ID, b.ID}))

	require.NoError(t, s.SetRolePermissions(ctx, r.ID, []*grant.RolePermission{
		{RoleID: r.ID, PermissionID: c.ID, Effect: grant.EffectDeny, CreatedAt: fixtureTime},
	}))
	grants, err := s.ListRolePermissions(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, c.ID, grants[0].PermissionID)
	assert.Equal(t, grant.EffectDeny, grants[0].Effect)

	require.NoError(t, s.SetRolePermissions(ctx, r.ID, nil))
	grants, err = s.ListRolePermissions(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func testAttachRolePermission(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := newPermission("p", "doc", "p")
	mustCreatePermissions(t, s, p)
	r := newRole("r")
	require.NoError(t, s.CreateRole(ctx, r, nil))

	g := &grant.RolePermission{RoleID: r.ID, PermissionID: p.ID, Effect: grant.EffectAllow, CreatedAt: fixtureTime}
	added, err := s.AttachRolePermission(ctx, g)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AttachRolePermission(ctx, g)
	require.NoError(t, err)
	assert.False(t, added)

	grants, err := s.ListRolePermissions(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func testUserEdgesAndJoinedReads(t *testing.T, s store.Store) {
	ctx := context.Background()
	read := newPermission("doc.read", "doc", "read")
	write := newPermission("doc.write", "doc", "write")
	del := newPermission("doc.delete", "doc", "delete")
	mustCreatePermissions(t, s, read, write, del)
	viewer := newRole("viewer")
	editor := newRole("editor")
	require.NoError(t, s.CreateRole(ctx, viewer, []id.PermissionID{read.ID}))
	require.NoError(t, s.CreateRole(ctx, editor, []id.PermissionID{read.ID, write.ID}))

	expires := fixtureTime.Add(24 * time.Hour)
	require.NoError(t, s.SetUserRoles(ctx, "u1", []*grant.UserRole{
		{UserID: "u1", RoleID: viewer.ID, Effect: grant.EffectAllow, CreatedAt: fixtureTime},
		{UserID: "u1", RoleID: editor.ID, Effect: grant.EffectDeny, ExpiresAt: &expires, CreatedAt: fixtureTime.Add(time.Second)},
	}))
	require.NoError(t, s.SetUserPermissions(ctx, "u1", []*grant.UserPermission{
		{UserID: "u1", PermissionID: write.ID, Effect: grant.EffectAllow, Reason: "on call", CreatedAt: fixtureTime},
		{UserID: "u1", PermissionID: del.ID, Effect: grant.EffectDeny, CreatedAt: fixtureTime.Add(time.Second)},
	}))

	assignments, err := s.ListRoleAssignments(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	byRole := map[id.RoleID]*grant.RoleAssignment{}
	for _, a := range assignments {
		require.NotNil(t, a.Role)
		byRole[a.RoleID] = a
	}
	assert.ElementsMatch(t, []id.PermissionID{read.ID}, grantIDs(byRole[viewer.ID].Permissions))
	assert.ElementsMatch(t, []id.PermissionID{read.ID, write.ID}, grantIDs(byRole[editor.ID].Permissions))
	assert.Equal(t, grant.EffectDeny, byRole[editor.ID].Effect)
	require.NotNil(t, byRole[editor.ID].ExpiresAt)
	assert.True(t, byRole[editor.ID].ExpiresAt.Equal(expires))

	direct, err := s.ListDirectGrants(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, direct, 2)
	reasons := map[id.PermissionID]string{}
	for _, d := range direct {
		require.NotNil(t, d.Permission)
		assert.Equal(t, d.PermissionID, d.Permission.ID)
		reasons[d.PermissionID] = d.Reason
	}
	assert.Equal(t, "on call", reasons[write.ID])

	// Wholesale replace: the new set fully supersedes the old one.
	require.NoError(t, s.SetUserRoles(ctx, "u1", []*grant.UserRole{
		{UserID: "u1", RoleID: editor.ID, Effect: grant.EffectAllow, CreatedAt: fixtureTime},
	}))
	roles, err := s.ListUserRoles(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, editor.ID, roles[0].RoleID)

	require.NoError(t, s.SetUserPermissions(ctx, "u1", nil))
	perms, err := s.ListUserPermissions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, perms)

	none, err := s.ListRoleAssignments(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testDeleteRemovesEdges(t *testing.T, s store.Store) {
	ctx := context.Background()
	read := newPermission("doc.read", "doc", "read")
	write := newPermission("doc.write", "doc", "write")
	mustCreatePermissions(t, s, read, write)
	viewer := newRole("viewer")
	require.NoError(t, s.CreateRole(ctx, viewer, []id.PermissionID{read.ID, write.ID}))
	require.NoError(t, s.SetUserRoles(ctx, "u1", []*grant.UserRole{
		{UserID: "u1", RoleID: viewer.ID, Effect: grant.EffectAllow, CreatedAt: fixtureTime},
	}))
	require.NoError(t, s.SetUserPermissions(ctx, "u1", []*grant.UserPermission{
		{UserID: "u1", PermissionID: write.ID, Effect: grant.EffectAllow, CreatedAt: fixtureTime},
	}))

	require.NoError(t, s.DeletePermission(ctx, write.ID))
	grants, err := s.ListRolePermissions(ctx, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, []id.PermissionID{read.ID}, grantIDs(grants))
	direct, err := s.ListUserPermissions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, direct)

	require.NoError(t, s.DeleteRole(ctx, viewer.ID))
	roles, err := s.ListUserRoles(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, roles)
	require.ErrorIs(t, s.DeleteRole(ctx, viewer.ID), store.ErrNotFound)
}

// testEngineScenarios drives the engine end to end on the backend.
func testEngineScenarios(t *testing.T, s store.Store) {
	ctx := context.Background()
	eng, err := grantor.NewEngine(grantor.WithStore(s))
	require.NoError(t, err)

	report, err := eng.Seeder().EnsureSystemBaseline(ctx)
	require.NoError(t, err)
	assert.Positive(t, report.GrantsAdded)
	again, err := eng.Seeder().EnsureSystemBaseline(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.GrantsAdded)

	_, err = eng.Catalog().Create(ctx, &grantor.CreatePermissionInput{Name: "user.read.dup", Resource: "user", Action: "read"})
	require.True(t, errors.Is(err, grantor.ErrConflict), "got %v", err)

	var userRead, userUpdate *permission.Permission
	for _, p := range report.Permissions {
		switch p.Key() {
		case permission.NewKey("user", "read", nil):
			userRead = p
		case permission.NewKey("user", "update", nil):
			userUpdate = p
		}
	}
	require.NotNil(t, userRead)
	require.NotNil(t, userUpdate)

	editor, err := eng.Directory().Create(ctx, &grantor.CreateRoleInput{
		Name:          "editor",
		PermissionIDs: []id.PermissionID{userRead.ID, userUpdate.ID},
	})
	require.NoError(t, err)
	detail, err := eng.Directory().Get(ctx, editor.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Permissions, 2)

	_, err = eng.Grants().AssignRoles(ctx, "u1", &grantor.AssignRolesInput{RoleIDs: []id.RoleID{editor.ID}})
	require.NoError(t, err)
	ep, err := eng.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ep.Allows(userRead.ID))
	assert.True(t, ep.Allows(userUpdate.ID))

	_, err = eng.Grants().AssignPermissions(ctx, "u1", &grantor.AssignPermissionsInput{
		PermissionIDs: []id.PermissionID{userUpdate.ID},
		Effect:        grant.EffectDeny,
	})
	require.NoError(t, err)
	ep, err = eng.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ep.Allows(userRead.ID))
	assert.True(t, ep.Denies(userUpdate.ID))
	assert.Equal(t, 1, ep.Summary.EffectiveCount)
}
