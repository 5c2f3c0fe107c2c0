package grantor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/permission"
	"github.com/xraph/grantor/role"
	"github.com/xraph/grantor/store/memory"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *memory.Store) {
	t.Helper()
	s := memory.New()
	opts = append([]Option{WithStore(s), WithClock(func() time.Time { return testNow })}, opts...)
	eng, err := NewEngine(opts...)
	require.NoError(t, err)
	return eng, s
}

func mustPermission(t *testing.T, eng *Engine, resource, action string) *permission.Permission {
	t.Helper()
	p, err := eng.Catalog().Create(context.Background(), &CreatePermissionInput{
		Name:     resource + "." + action,
		Resource: resource,
		Action:   action,
	})
	require.NoError(t, err)
	return p
}

func mustRole(t *testing.T, eng *Engine, name string, perms ...*permission.Permission) *RoleDetail {
	t.Helper()
	ids := make([]id.PermissionID, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}
	r, err := eng.Directory().Create(context.Background(), &CreateRoleInput{Name: name, PermissionIDs: ids})
	require.NoError(t, err)
	return r
}

func permIDs(ps []*permission.Permission) []id.PermissionID {
	out := make([]id.PermissionID, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestNewEngine_RequiresStore(t *testing.T) {
	_, err := NewEngine()
	require.Error(t, err)
}

// ──────────────────────────────────────────────────
// End-to-end scenarios
// ──────────────────────────────────────────────────

func TestResolve_AllowRoleGrantsItsPermissions(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	read := mustPermission(t, eng, "user", "read")
	viewer := mustRole(t, eng, "viewer", read)

	_, err := eng.Grants().AssignRoles(ctx, "user1", &AssignRolesInput{RoleIDs: []id.RoleID{viewer.ID}, Effect: grant.EffectAllow})
	require.NoError(t, err)

	ep, err := eng.Resolve(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, []id.PermissionID{read.ID}, permIDs(ep.Permissions))
	assert.Empty(t, ep.DeniedPermissionIDs)
	assert.Equal(t, Summary{
		AllowedDirectCount:         0,
		DeniedCount:                0,
		AllowedRoleAssignmentCount: 1,
		EffectiveCount:             1,
		ComputedAt:                 testNow,
	}, ep.Summary)
	require.Len(t, ep.RoleAssignments, 1)
	assert.Equal(t, "viewer", ep.RoleAssignments[0].Role.Name)
}

func TestResolve_DirectDenyVetoesRolePermission(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	read := mustPermission(t, eng, "user", "read")
	viewer := mustRole(t, eng, "viewer", read)
	_, err := eng.Grants().AssignRoles(ctx, "user1", &AssignRolesInput{RoleIDs: []id.RoleID{viewer.ID}})
	require.NoError(t, err)
	_, err = eng.Grants().AssignPermissions(ctx, "user1", &AssignPermissionsInput{
		PermissionIDs: []id.PermissionID{read.ID},
		Effect:        grant.EffectDeny,
		Reason:        "suspended",
	})
	require.NoError(t, err)

	ep, err := eng.Resolve(ctx, "user1")
	require.NoError(t, err)
	assert.Empty(t, ep.Permissions)
	assert.Equal(t, []id.PermissionID{read.ID}, ep.DeniedPermissionIDs)
	assert.True(t, ep.Denies(read.ID))
	assert.False(t, ep.Allows(read.ID))
	assert.Equal(t, 1, ep.Summary.DeniedCount)
	assert.Equal(t, 0, ep.Summary.AllowedDirectCount)
}

func TestResolve_DenyRoleVetoesEverythingItCarries(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	read := mustPermission(t, eng, "user", "read")
	viewer := mustRole(t, eng, "viewer", read)
	_, err := eng.Grants().AssignRoles(ctx, "user1", &AssignRolesInput{RoleIDs: []id.RoleID{viewer.ID}, Effect: grant.EffectDeny})
	require.NoError(t, err)

	ep, err := eng.Resolve(ctx, "user1")
	require.NoError(t, err)
	assert.Empty(t, ep.Permissions)
	assert.Equal(t, []id.PermissionID{read.ID}, ep.DeniedPermissionIDs)
	assert.Equal(t, 0, ep.Summary.AllowedRoleAssignmentCount)
}

func TestResolve_SuperAdminHoldsEverySystemPermission(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	report, err := eng.Seeder().EnsureSystemBaseline(ctx)
	require.NoError(t, err)
	require.Len(t, report.Permissions, 6)

	_, err = eng.Grants().AssignRoles(ctx, "root", &AssignRolesInput{RoleIDs: []id.RoleID{report.SuperAdmin.ID}})
	require.NoError(t, err)

	ep, err := eng.Resolve(ctx, "root")
	require.NoError(t, err)
	for _, p := range report.Permissions {
		assert.True(t, ep.Allows(p.ID), "missing %s", p.Key())
	}
	assert.True(t, ep.Grants("permission", "manage"))
}

// ──────────────────────────────────────────────────
// Deny supremacy
// ──────────────────────────────────────────────────

func TestResolve_DenyRoleBeatsDirectAllow(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	read := mustPermission(t, eng, "post", "read")
	write := mustPermission(t, eng, "post", "write")
	banned := mustRole(t, eng, "banned", write)

	_, err := eng.Grants().AssignRoles(ctx, "u1", &AssignRolesInput{RoleIDs: []id.RoleID{banned.ID}, Effect: grant.EffectDeny})
	require.NoError(t, err)
	_, err = eng.Grants().AssignPermissions(ctx, "u1", &AssignPermissionsInput{PermissionIDs: []id.PermissionID{read.ID, write.ID}})
	require.NoError(t, err)

	ep, err := eng.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []id.PermissionID{read.ID}, permIDs(ep.Permissions))
	assert.True(t, ep.Denies(write.ID))
	assert.Equal(t, 2, ep.Summary.AllowedDirectCount)
}

func TestResolve_DenyGrantInsideAllowRoleVetoes(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	read := mustPermission(t, eng, "invoice", "read")
	pay := mustPermission(t, eng, "invoice", "pay")
	clerk := mustRole(t, eng, "clerk", read)
	auditor := mustRole(t, eng, "auditor")

	_, err := eng.Directory().AssignPermissions(ctx, auditor.ID, &AssignRolePermissionsInput{
		PermissionIDs: []id.PermissionID{pay.ID},
		Effect:        grant.EffectDeny,
	})
	require.NoError(t, err)
	_, err = eng.Grants().AssignRoles(ctx, "u1", &AssignRolesInput{RoleIDs: []id.RoleID{clerk.ID, auditor.ID}})
	require.NoError(t, err)
	_, err = eng.Grants().AssignPermissions(ctx, "u1", &AssignPermissionsInput{PermissionIDs: []id.PermissionID{pay.ID}})
	require.NoError(t, err)

	ep, err := eng.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []id.PermissionID{read.ID}, permIDs(ep.Permissions))
	assert.Equal(t, []id.PermissionID{pay.ID}, ep.DeniedPermissionIDs)
}

func TestResolve_PriorityDoesNotAffectOutcome(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	read := mustPermission(t, eng, "doc", "read")
	high, err := eng.Directory().Create(ctx, &CreateRoleInput{Name: "high", Priority: 1000, PermissionIDs: []id.PermissionID{read.ID}})
	require.NoError(t, err)

	_, err = eng.Grants().AssignRoles(ctx, "u1", &AssignRolesInput{RoleIDs: []id.RoleID{high.ID}})
	require.NoError(t, err)
	_, err = eng.Grants().AssignPermissions(ctx, "u1", &AssignPermissionsInput{PermissionIDs: []id.PermissionID{read.ID}, Effect: grant.EffectDeny})
	require.NoError(t, err)

	ok, err := eng.Has(ctx, "u1", "doc", "read")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolve_HierarchyIsNotWalked(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	read := mustPermission(t, eng, "doc", "read")
	parent := mustRole(t, eng, "parent", read)
	child, err := eng.Directory().Create(ctx, &CreateRoleInput{Name: "child", ParentID: &parent.ID})
	require.NoError(t, err)

	_, err = eng.Grants().AssignRoles(ctx, "u1", &AssignRolesInput{RoleIDs: []id.RoleID{child.ID}})
	require.NoError(t, err)

	ep, err := eng.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, ep.Permissions)
}

// ──────────────────────────────────────────────────
// Replace semantics and deduplication
// ──────────────────────────────────────────────────

func TestAssignRoles_IdempotentReplace(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)

	read := mustPermission(t, eng, "doc", "read")
	viewer := mustRole(t, eng, "viewer", read)
	in := &AssignRolesInput{RoleIDs: []id.RoleID{viewer.ID, viewer.ID}}

	_, err := eng.Grants().AssignRoles(ctx, "u1", in)
	require.NoError(t, err)
	first, err := eng.Resolve(ctx, "u1")
	require.NoError(t, err)

	_, err = eng.Grants().AssignRoles(ctx, "u1", in)
	require.NoError(t, err)
	second, err := eng.Resolve(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, permIDs(first.Permissions), permIDs(second.Permissions))
	edges, err := s.ListUserRoles(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestAssignPermissions_EmptyListClears(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	a := mustPermission(t, eng, "doc", "read")
	b := mustPermission(t, eng, "doc", "write")
	_, err := eng.Grants().AssignPermissions(ctx, "u1", &AssignPermissionsInput{PermissionIDs: []id.PermissionID{a.ID, b.ID}})
	require.NoError(t, err)

	_, err = eng.Grants().AssignPermissions(ctx, "u1", &AssignPermissionsInput{PermissionIDs: []id.PermissionID{b.ID}})
	require.NoError(t, err)
	ep, err := eng.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []id.PermissionID{b.ID}, permIDs(ep.Permissions))

	_, err = eng.Grants().AssignPermissions(ctx, "u1", &AssignPermissionsInput{})
	require.NoError(t, err)
	ep, err = eng.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, ep.Permissions)
	assert.Empty(t, ep.DirectPermissions)
}

func TestResolve_DeduplicatesAcrossSources(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	read := mustPermission(t, eng, "doc", "read")
	r1 := mustRole(t, eng, "r1", read)
	r2 := mustRole(t, eng, "r2", read)

	_, err := eng.Grants().AssignRoles(ctx, "u1", &AssignRolesInput{RoleIDs: []id.RoleID{r1.ID, r2.ID}})
	require.NoError(t, err)
	_, err = eng.Grants().AssignPermissions(ctx, "u1", &AssignPermissionsInput{PermissionIDs: []id.PermissionID{read.ID}})
	require.NoError(t, err)

	ep, err := eng.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, ep.Permissions, 1)
	assert.Equal(t, 1, ep.Summary.EffectiveCount)
	assert.Equal(t, 2, ep.Summary.AllowedRoleAssignmentCount)
}

func TestDirectoryAssignPermissions_ReplacesRoleGrants(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	a := mustPermission(t, eng, "doc", "read")
	b := mustPermission(t, eng, "doc", "write")
	editor := mustRole(t, eng, "editor", a)

	grants, err := eng.Directory().AssignPermissions(ctx, editor.ID, &AssignRolePermissionsInput{PermissionIDs: []id.PermissionID{b.ID, b.ID}})
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, b.ID, grants[0].PermissionID)
	assert.Equal(t, grant.EffectAllow, grants[0].Effect)

	detail, err := eng.Directory().Get(ctx, editor.ID)
	require.NoError(t, err)
	require.Len(t, detail.Permissions, 1)
	assert.Equal(t, b.ID, detail.Permissions[0].Permission.ID)
}

// ──────────────────────────────────────────────────
// System protection and uniqueness
// ──────────────────────────────────────────────────

func TestSystemEntitiesAreProtected(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	report, err := eng.Seeder().EnsureSystemBaseline(ctx)
	require.NoError(t, err)
	sysPerm := report.Permissions[0]

	err = eng.Catalog().Delete(ctx, sysPerm.ID)
	require.ErrorIs(t, err, ErrForbidden)

	off := false
	_, err = eng.Catalog().Update(ctx, sysPerm.ID, &UpdatePermissionInput{IsActive: &off})
	require.ErrorIs(t, err, ErrForbidden)

	desc := "edited"
	updated, err := eng.Catalog().Update(ctx, sysPerm.ID, &UpdatePermissionInput{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Description)
	assert.True(t, updated.IsActive)

	err = eng.Directory().Delete(ctx, report.SuperAdmin.ID)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = eng.Directory().Update(ctx, report.Admin.ID, &UpdateRoleInput{IsActive: &off})
	require.ErrorIs(t, err, ErrForbidden)

	custom := mustPermission(t, eng, "doc", "read")
	require.NoError(t, eng.Catalog().Delete(ctx, custom.ID))
	_, err = eng.Catalog().Get(ctx, custom.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogCreate_KeyConflict(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	mustPermission(t, eng, "user", "read")

	_, err := eng.Catalog().Create(ctx, &CreatePermissionInput{Name: "other", Resource: "user", Action: "read"})
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), `key="user:read"`)

	empty := ""
	_, err = eng.Catalog().Create(ctx, &CreatePermissionInput{Name: "empty", Resource: "user", Action: "read", Scope: &empty})
	require.ErrorIs(t, err, ErrConflict)

	own := "own"
	scoped, err := eng.Catalog().Create(ctx, &CreatePermissionInput{Name: "user.read.own", Resource: "user", Action: "read", Scope: &own})
	require.NoError(t, err)
	assert.Equal(t, "user", scoped.Category)
	assert.Equal(t, "user.read.own", scoped.DisplayName)
}

func TestCatalogUpdate_KeyChangeRechecksUniqueness(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	mustPermission(t, eng, "doc", "read")
	write := mustPermission(t, eng, "doc", "write")

	action := "read"
	_, err := eng.Catalog().Update(ctx, write.ID, &UpdatePermissionInput{Action: &action})
	require.ErrorIs(t, err, ErrConflict)

	_, err = eng.Catalog().Update(ctx, id.NewPermissionID(), &UpdatePermissionInput{Action: &action})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDirectory_RoleNameConflict(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	mustRole(t, eng, "editor")
	viewer := mustRole(t, eng, "viewer")

	_, err := eng.Directory().Create(ctx, &CreateRoleInput{Name: "editor"})
	require.ErrorIs(t, err, ErrConflict)

	name := "editor"
	_, err = eng.Directory().Update(ctx, viewer.ID, &UpdateRoleInput{Name: &name})
	require.ErrorIs(t, err, ErrConflict)
}

// ──────────────────────────────────────────────────
// Reference validation
// ──────────────────────────────────────────────────

func TestDirectoryCreate_InvalidPermissionWritesNothing(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	read := mustPermission(t, eng, "doc", "read")
	missing := id.NewPermissionID()

	_, err := eng.Directory().Create(ctx, &CreateRoleInput{Name: "editor", PermissionIDs: []id.PermissionID{read.ID, missing}})
	require.ErrorIs(t, err, ErrInvalidReference)
	require.ErrorIs(t, err, ErrNotFound)

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, missing.String(), gerr.Value)

	_, err = eng.Directory().GetByName(ctx, "editor")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDirectory_ParentValidation(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	missing := id.NewRoleID()
	_, err := eng.Directory().Create(ctx, &CreateRoleInput{Name: "orphan", ParentID: &missing})
	require.ErrorIs(t, err, ErrInvalidReference)

	r := mustRole(t, eng, "self")
	_, err = eng.Directory().Update(ctx, r.ID, &UpdateRoleInput{ParentID: &r.ID})
	require.ErrorIs(t, err, ErrInvalidInput)

	parent := mustRole(t, eng, "parent")
	updated, err := eng.Directory().Update(ctx, r.ID, &UpdateRoleInput{ParentID: &parent.ID})
	require.NoError(t, err)
	require.NotNil(t, updated.ParentID)
	assert.Equal(t, parent.ID, *updated.ParentID)

	detail, err := eng.Directory().Get(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, detail.Children, 1)
	assert.Equal(t, r.ID, detail.Children[0].ID)

	updated, err = eng.Directory().Update(ctx, r.ID, &UpdateRoleInput{ClearParent: true})
	require.NoError(t, err)
	assert.Nil(t, updated.ParentID)
}

func TestDirectoryDelete_LeavesChildrenDangling(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	parent := mustRole(t, eng, "parent")
	child, err := eng.Directory().Create(ctx, &CreateRoleInput{Name: "child", ParentID: &parent.ID})
	require.NoError(t, err)

	require.NoError(t, eng.Directory().Delete(ctx, parent.ID))

	got, err := eng.Directory().Get(ctx, child.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, parent.ID, *got.ParentID)

	err = eng.Directory().Delete(ctx, parent.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAssignRoles_UnknownRoleKeepsPreviousSet(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)

	viewer := mustRole(t, eng, "viewer")
	_, err := eng.Grants().AssignRoles(ctx, "u1", &AssignRolesInput{RoleIDs: []id.RoleID{viewer.ID}})
	require.NoError(t, err)

	_, err = eng.Grants().AssignRoles(ctx, "u1", &AssignRolesInput{RoleIDs: []id.RoleID{id.NewRoleID()}})
	require.ErrorIs(t, err, ErrInvalidReference)

	edges, err := s.ListUserRoles(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, viewer.ID, edges[0].RoleID)
}

func TestAssign_RejectsEmptyUserID(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	_, err := eng.Grants().AssignRoles(ctx, " ", &AssignRolesInput{})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = eng.Resolve(ctx, "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidation_ReportsField(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	_, err := eng.Catalog().Create(ctx, &CreatePermissionInput{Name: "x", Action: "read"})
	require.ErrorIs(t, err, ErrInvalidInput)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "resource", gerr.Field)

	_, err = eng.Grants().AssignRoles(ctx, "u1", &AssignRolesInput{Effect: "maybe"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

// ──────────────────────────────────────────────────
// Expiry
// ──────────────────────────────────────────────────

func TestResolve_ExpiredGrantsAreDropped(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	read := mustPermission(t, eng, "doc", "read")
	write := mustPermission(t, eng, "doc", "write")
	past := testNow.Add(-time.Hour)
	future := testNow.Add(time.Hour)

	_, err := eng.Grants().AssignPermissions(ctx, "u1", &AssignPermissionsInput{PermissionIDs: []id.PermissionID{read.ID}, ExpiresAt: &past})
	require.NoError(t, err)
	_, err = eng.Grants().AssignPermissions(ctx, "u2", &AssignPermissionsInput{PermissionIDs: []id.PermissionID{write.ID}, ExpiresAt: &future})
	require.NoError(t, err)

	ep, err := eng.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, ep.Permissions)
	assert.Empty(t, ep.DirectPermissions)

	ep, err = eng.Resolve(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []id.PermissionID{write.ID}, permIDs(ep.Permissions))
}

func TestResolve_ExpiryEnforcementCanBeDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	off := false
	cfg.EnforceExpiry = &off
	eng, _ := newTestEngine(t, WithConfig(cfg))

	read := mustPermission(t, eng, "doc", "read")
	past := testNow.Add(-time.Hour)
	_, err := eng.Grants().AssignPermissions(ctx, "u1", &AssignPermissionsInput{PermissionIDs: []id.PermissionID{read.ID}, ExpiresAt: &past})
	require.NoError(t, err)

	ep, err := eng.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []id.PermissionID{read.ID}, permIDs(ep.Permissions))
}

// ──────────────────────────────────────────────────
// Failure handling
// ──────────────────────────────────────────────────

func TestResolve_CancelledContext(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ep, err := eng.Resolve(ctx, "u1")
	require.ErrorIs(t, err, ErrCancelled)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, ep)
}

type failingStore struct {
	*memory.Store
	err error
}

func (f *failingStore) ListDirectGrants(context.Context, string) ([]*grant.DirectGrant, error) {
	return nil, f.err
}

func TestResolve_StorageFailure(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("connection refused")
	eng, err := NewEngine(WithStore(&failingStore{Store: memory.New(), err: cause}))
	require.NoError(t, err)

	ep, err := eng.Resolve(ctx, "u1")
	require.ErrorIs(t, err, ErrStorageUnavailable)
	require.ErrorIs(t, err, cause)
	assert.Nil(t, ep)
}

// ──────────────────────────────────────────────────
// Cache
// ──────────────────────────────────────────────────

type mapCache struct {
	mu      sync.Mutex
	entries map[string]*EffectivePermissions
	hits    int
}

func newMapCache() *mapCache { return &mapCache{entries: map[string]*EffectivePermissions{}} }

func (c *mapCache) Get(_ context.Context, userID string) (*EffectivePermissions, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ep, ok := c.entries[userID]
	if ok {
		c.hits++
	}
	return ep, ok
}

func (c *mapCache) Set(_ context.Context, userID string, ep *EffectivePermissions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = ep
}

func (c *mapCache) InvalidateUser(_ context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

func (c *mapCache) InvalidateAll(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func TestResolve_CacheIsInvalidatedByMutations(t *testing.T) {
	ctx := context.Background()
	c := newMapCache()
	eng, _ := newTestEngine(t, WithCache(c))

	read := mustPermission(t, eng, "doc", "read")
	write := mustPermission(t, eng, "doc", "write")
	editor := mustRole(t, eng, "editor", read)
	_, err := eng.Grants().AssignRoles(ctx, "u1", &AssignRolesInput{RoleIDs: []id.RoleID{editor.ID}})
	require.NoError(t, err)

	_, err = eng.Resolve(ctx, "u1")
	require.NoError(t, err)
	_, err = eng.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, c.hits)

	// A role change must be visible on the next resolve.
	_, err = eng.Directory().AssignPermissions(ctx, editor.ID, &AssignRolePermissionsInput{PermissionIDs: []id.PermissionID{read.ID, write.ID}})
	require.NoError(t, err)
	ep, err := eng.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, ep.Permissions, 2)

	// So must a user edge change.
	_, err = eng.Grants().AssignPermissions(ctx, "u1", &AssignPermissionsInput{PermissionIDs: []id.PermissionID{write.ID}, Effect: grant.EffectDeny})
	require.NoError(t, err)
	ep, err = eng.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []id.PermissionID{read.ID}, permIDs(ep.Permissions))
}

// racingStore runs afterRead once, right after a direct grant read
// returns, to commit a mutation while a resolve is still in flight.
type racingStore struct {
	*memory.Store
	armed     atomic.Bool
	afterRead func()
}

func (s *racingStore) ListDirectGrants(ctx context.Context, userID string) ([]*grant.DirectGrant, error) {
	out, err := s.Store.ListDirectGrants(ctx, userID)
	if s.armed.CompareAndSwap(true, false) {
		s.afterRead()
	}
	return out, err
}

func TestResolve_MutationDuringResolveIsNotCachedOver(t *testing.T) {
	ctx := context.Background()
	c := newMapCache()
	rs := &racingStore{Store: memory.New()}
	eng, err := NewEngine(WithStore(rs), WithCache(c), WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)

	read := mustPermission(t, eng, "doc", "read")
	_, err = eng.Grants().AssignPermissions(ctx, "u1", &AssignPermissionsInput{PermissionIDs: []id.PermissionID{read.ID}})
	require.NoError(t, err)

	rs.afterRead = func() {
		_, err := eng.Grants().AssignPermissions(ctx, "u1", &AssignPermissionsInput{
			PermissionIDs: []id.PermissionID{read.ID},
			Effect:        grant.EffectDeny,
		})
		assert.NoError(t, err)
	}
	rs.armed.Store(true)

	// This resolve read the allow before the deny committed.
	_, err = eng.Resolve(ctx, "u1")
	require.NoError(t, err)

	ep, err := eng.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, ep.Permissions)
	assert.True(t, ep.Denies(read.ID))
}

func TestResolve_CacheTTLBoundsCachedResults(t *testing.T) {
	ctx := context.Background()
	now := testNow
	cfg := DefaultConfig()
	cfg.CacheTTL = time.Minute
	s := memory.New()
	eng, err := NewEngine(WithStore(s), WithCache(newMapCache()), WithConfig(cfg), WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	read := mustPermission(t, eng, "doc", "read")
	ep, err := eng.Resolve(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, ep.Permissions)

	// A write that bypasses the engine is not invalidated, so only the
	// TTL can surface it.
	require.NoError(t, s.SetUserPermissions(ctx, "u1", []*grant.UserPermission{
		{UserID: "u1", PermissionID: read.ID, Effect: grant.EffectAllow, CreatedAt: now},
	}))

	now = now.Add(30 * time.Second)
	ep, err = eng.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, ep.Permissions)

	now = now.Add(time.Minute)
	ep, err = eng.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ep.Allows(read.ID))
}

// ──────────────────────────────────────────────────
// Search and configuration
// ──────────────────────────────────────────────────

func TestCatalogSearch_Paginates(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.MaxPageSize = 3
	eng, _ := newTestEngine(t, WithConfig(cfg))

	for _, action := range []string{"a", "b", "c", "d", "e"} {
		mustPermission(t, eng, "doc", action)
	}
	mustPermission(t, eng, "user", "read")

	page, err := eng.Catalog().Search(ctx, &permission.ListFilter{Resource: "doc"}, Page{Index: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "doc.c", page.Items[0].Name)
	assert.Equal(t, "doc.d", page.Items[1].Name)

	page, err = eng.Catalog().Search(ctx, &permission.ListFilter{SortDesc: true}, Page{Size: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(6), page.Total)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, 3, page.Page.Size)
	assert.Equal(t, "user.read", page.Items[0].Name)

	_, err = eng.Catalog().Search(ctx, nil, Page{Index: -1})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestDirectorySearch_FiltersByText(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	_, err := eng.Directory().Create(ctx, &CreateRoleInput{Name: "editor", Description: "Edits CONTENT"})
	require.NoError(t, err)
	mustRole(t, eng, "viewer")

	page, err := eng.Directory().Search(ctx, &role.ListFilter{Search: "content"}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "editor", page.Items[0].Name)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("GRANTOR_ENFORCE_EXPIRY", "false")
	t.Setenv("GRANTOR_MAX_PAGE_SIZE", "7")
	t.Setenv("GRANTOR_CACHE_TTL", "30s")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	require.NotNil(t, cfg.EnforceExpiry)
	assert.False(t, *cfg.EnforceExpiry)
	assert.Equal(t, 7, cfg.MaxPageSize)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 20, cfg.DefaultPageSize)
	assert.Equal(t, "super_admin", cfg.SuperAdminRole)
}

func TestDefaultConfig_EnforcesExpiry(t *testing.T) {
	assert.True(t, DefaultConfig().expiryEnforced())
	assert.True(t, Config{}.expiryEnforced())
}

func TestEnsureSystemBaseline_Idempotent(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	first, err := eng.Seeder().EnsureSystemBaseline(ctx)
	require.NoError(t, err)
	assert.Positive(t, first.GrantsAdded)

	second, err := eng.Seeder().EnsureSystemBaseline(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.GrantsAdded)
	assert.Equal(t, first.SuperAdmin.ID, second.SuperAdmin.ID)
	assert.Equal(t, first.Admin.ID, second.Admin.ID)
	require.Len(t, second.Permissions, len(first.Permissions))
	for i := range first.Permissions {
		assert.Equal(t, first.Permissions[i].ID, second.Permissions[i].ID)
	}
}

func TestEnsureSystemBaseline_PromotesExistingEntities(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	read := mustPermission(t, eng, "user", "read")
	require.False(t, read.IsSystem)
	admin, err := eng.Directory().Create(ctx, &CreateRoleInput{Name: "admin"})
	require.NoError(t, err)
	require.False(t, admin.IsSystem)

	report, err := eng.Seeder().EnsureSystemBaseline(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Promoted)
	assert.Equal(t, admin.ID, report.Admin.ID)

	got, err := eng.Catalog().Get(ctx, read.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSystem)
	require.ErrorIs(t, eng.Catalog().Delete(ctx, read.ID), ErrForbidden)
	require.ErrorIs(t, eng.Directory().Delete(ctx, admin.ID), ErrForbidden)

	again, err := eng.Seeder().EnsureSystemBaseline(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Promoted)
}
