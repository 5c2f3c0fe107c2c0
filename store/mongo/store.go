// Package mongo provides a MongoDB implementation of the grantor composite
// store using grove ORM. Grant edges are embedded per owner: one document
// per role holds its grants and one document per user holds its role
// assignments (likewise its direct grants), so a wholesale replace is a
// single-document write and readers never observe a partial set.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/permission"
	"github.com/xraph/grantor/role"
	"github.com/xraph/grantor/store"
)

// Collection name constants.
const (
	colPermissions     = "grantor_permissions"
	colRoles           = "grantor_roles"
	colRolePermissions = "grantor_role_permissions"
	colUserRoles       = "grantor_user_roles"
	colUserPermissions = "grantor_user_permissions"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of the composite grantor store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all grantor collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("grantor/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all grantor collections.
// A permission without a scope has no scope field, which the unique index
// treats as null, so two unscoped permissions with the same resource and
// action collide.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colPermissions: {
			{
				Keys:    bson.D{{Key: "resource", Value: 1}, {Key: "action", Value: 1}, {Key: "scope", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "category", Value: 1}}},
		},
		colRoles: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "parent_id", Value: 1}}},
		},
		colRolePermissions: {
			{Keys: bson.D{{Key: "grants.permission_id", Value: 1}}},
		},
		colUserRoles: {
			{Keys: bson.D{{Key: "roles.role_id", Value: 1}}},
		},
		colUserPermissions: {
			{Keys: bson.D{{Key: "grants.permission_id", Value: 1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Permission operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(ctx context.Context, p *permission.Permission) error {
	if _, err := s.mdb.NewInsert(permissionToModel(p)).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("permission %s: %w", p.Key(), store.ErrConflict)
		}
		return fmt.Errorf("grantor/mongo: create permission: %w", err)
	}
	return nil
}

func (s *Store) GetPermission(ctx context.Context, permID id.PermissionID) (*permission.Permission, error) {
	var m permissionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": permID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("permission %s: %w", permID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("grantor/mongo: get permission: %w", err)
	}
	return permissionFromModel(&m)
}

func (s *Store) GetPermissionByKey(ctx context.Context, key permission.Key) (*permission.Permission, error) {
	var m permissionModel
	f := bson.M{"resource": key.Resource, "action": key.Action, "scope": nil}
	if key.HasScope {
		f["scope"] = key.Scope
	}
	if err := s.mdb.NewFind(&m).Filter(f).Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("permission %s: %w", key, store.ErrNotFound)
		}
		return nil, fmt.Errorf("grantor/mongo: get permission by key: %w", err)
	}
	return permissionFromModel(&m)
}

// UpdatePermission replaces the whole document so that a cleared scope
// disappears instead of keeping its old value.
func (s *Store) UpdatePermission(ctx context.Context, p *permission.Permission) error {
	m := permissionToModel(p)
	res, err := s.mdb.Collection(colPermissions).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("permission %s: %w", p.Key(), store.ErrConflict)
		}
		return fmt.Errorf("grantor/mongo: update permission: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("permission %s: %w", p.ID, store.ErrNotFound)
	}
	return nil
}

// DeletePermission removes the permission first and then pulls it out of
// every edge document. An interrupted pull leaves edges whose permission
// no longer exists, which readers already treat as absent.
func (s *Store) DeletePermission(ctx context.Context, permID id.PermissionID) error {
	pid := permID.String()
	res, err := s.mdb.NewDelete((*permissionModel)(nil)).
		Filter(bson.M{"_id": pid}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("grantor/mongo: delete permission: %w", err)
	}
	if res.DeletedCount() == 0 {
		return fmt.Errorf("permission %s: %w", permID, store.ErrNotFound)
	}

	pull := bson.M{"$pull": bson.M{"grants": bson.M{"permission_id": pid}}}
	if _, err := s.mdb.Collection(colRolePermissions).UpdateMany(ctx, bson.M{"grants.permission_id": pid}, pull); err != nil {
		return fmt.Errorf("grantor/mongo: delete permission role grants: %w", err)
	}
	if _, err := s.mdb.Collection(colUserPermissions).UpdateMany(ctx, bson.M{"grants.permission_id": pid}, pull); err != nil {
		return fmt.Errorf("grantor/mongo: delete permission user grants: %w", err)
	}
	return nil
}

func (s *Store) EnsurePermission(ctx context.Context, p *permission.Permission) (*permission.Permission, error) {
	existing, err := s.GetPermissionByKey(ctx, p.Key())
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if err := s.CreatePermission(ctx, p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return s.GetPermissionByKey(ctx, p.Key())
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) ListPermissions(ctx context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	var models []permissionModel
	q := s.mdb.NewFind(&models).
		Filter(permissionFilter(filter)).
		Sort(sortSpec(string(filter.OrderBy()), filter != nil && filter.SortDesc))
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("grantor/mongo: list permissions: %w", err)
	}
	result := make([]*permission.Permission, len(models))
	for i := range models {
		p, err := permissionFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("grantor/mongo: list permissions: %w", err)
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) CountPermissions(ctx context.Context, filter *permission.ListFilter) (int64, error) {
	count, err := s.mdb.NewFind((*permissionModel)(nil)).
		Filter(permissionFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("grantor/mongo: count permissions: %w", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

// CreateRole inserts the role and then its grant document. If the grant
// write fails the role is removed again.
func (s *Store) CreateRole(ctx context.Context, r *role.Role, permIDs []id.PermissionID) error {
	if _, err := s.mdb.NewInsert(roleToModel(r)).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("role %q: %w", r.Name, store.ErrConflict)
		}
		return fmt.Errorf("grantor/mongo: create role: %w", err)
	}
	if len(permIDs) == 0 {
		return nil
	}

	seen := make(map[id.PermissionID]struct{}, len(permIDs))
	doc := &roleGrantsModel{RoleID: r.ID.String(), Grants: make([]rolePermissionEntry, 0, len(permIDs))}
	for _, pid := range permIDs {
		if _, dup := seen[pid]; dup {
			continue
		}
		seen[pid] = struct{}{}
		doc.Grants = append(doc.Grants, rolePermissionToEntry(&grant.RolePermission{
			RoleID:       r.ID,
			PermissionID: pid,
			Effect:       grant.EffectAllow,
			CreatedAt:    r.CreatedAt,
		}))
	}
	if _, err := s.mdb.NewInsert(doc).Exec(ctx); err != nil {
		_, _ = s.mdb.NewDelete((*roleModel)(nil)).Filter(bson.M{"_id": r.ID.String()}).Exec(ctx) //nolint:errcheck // best-effort rollback
		return fmt.Errorf("grantor/mongo: create role grants: %w", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": roleID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("grantor/mongo: get role: %w", err)
	}
	return roleFromModel(&m)
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"name": name}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role %q: %w", name, store.ErrNotFound)
		}
		return nil, fmt.Errorf("grantor/mongo: get role by name: %w", err)
	}
	return roleFromModel(&m)
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	m := roleToModel(r)
	res, err := s.mdb.Collection(colRoles).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("role %q: %w", r.Name, store.ErrConflict)
		}
		return fmt.Errorf("grantor/mongo: update role: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("role %s: %w", r.ID, store.ErrNotFound)
	}
	return nil
}

// DeleteRole removes the role, its grant document and every user
// assignment of it. Child roles keep their parent_id.
func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	rid := roleID.String()
	res, err := s.mdb.NewDelete((*roleModel)(nil)).
		Filter(bson.M{"_id": rid}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("grantor/mongo: delete role: %w", err)
	}
	if res.DeletedCount() == 0 {
		return fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}

	if _, err := s.mdb.NewDelete((*roleGrantsModel)(nil)).Filter(bson.M{"_id": rid}).Exec(ctx); err != nil {
		return fmt.Errorf("grantor/mongo: delete role grants: %w", err)
	}
	pull := bson.M{"$pull": bson.M{"roles": bson.M{"role_id": rid}}}
	if _, err := s.mdb.Collection(colUserRoles).UpdateMany(ctx, bson.M{"roles.role_id": rid}, pull); err != nil {
		return fmt.Errorf("grantor/mongo: delete role assignments: %w", err)
	}
	return nil
}

func (s *Store) EnsureRole(ctx context.Context, r *role.Role) (*role.Role, error) {
	if _, err := s.mdb.NewInsert(roleToModel(r)).Exec(ctx); err != nil && !mongod.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("grantor/mongo: ensure role: %w", err)
	}
	return s.GetRoleByName(ctx, r.Name)
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	q := s.mdb.NewFind(&models).
		Filter(roleFilter(filter)).
		Sort(sortSpec(string(filter.OrderBy()), filter != nil && filter.SortDesc))
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("grantor/mongo: list roles: %w", err)
	}
	return rolesFromModels(models)
}

func (s *Store) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	count, err := s.mdb.NewFind((*roleModel)(nil)).
		Filter(roleFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("grantor/mongo: count roles: %w", err)
	}
	return count, nil
}

func (s *Store) ListChildRoles(ctx context.Context, parentID id.RoleID) ([]*role.Role, error) {
	var models []roleModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"parent_id": parentID.String()}).
		Sort(sortSpec("name", false)).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("grantor/mongo: list child roles: %w", err)
	}
	return rolesFromModels(models)
}

func rolesFromModels(models []roleModel) ([]*role.Role, error) {
	result := make([]*role.Role, len(models))
	for i := range models {
		r, err := roleFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("grantor/mongo: list roles: %w", err)
		}
		result[i] = r
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Grant operations
// ──────────────────────────────────────────────────

func (s *Store) SetRolePermissions(ctx context.Context, roleID id.RoleID, grants []*grant.RolePermission) error {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return err
	}
	doc := &roleGrantsModel{RoleID: roleID.String(), Grants: make([]rolePermissionEntry, len(grants))}
	permIDs := make([]string, len(grants))
	seen := make(map[id.PermissionID]struct{}, len(grants))
	for i, g := range grants {
		if _, dup := seen[g.PermissionID]; dup {
			return fmt.Errorf("role %s permission %s: %w", roleID, g.PermissionID, store.ErrConflict)
		}
		seen[g.PermissionID] = struct{}{}
		doc.Grants[i] = rolePermissionToEntry(g)
		permIDs[i] = g.PermissionID.String()
	}
	if err := s.requireAll(ctx, colPermissions, "permission", permIDs); err != nil {
		return err
	}
	return s.replaceEdges(ctx, colRolePermissions, doc.RoleID, len(grants), doc)
}

// AttachRolePermission pushes the grant only if the role's document does
// not already hold one for the permission. With upsert, a filter miss on
// an existing document surfaces as a duplicate _id, which means the grant
// is already present.
func (s *Store) AttachRolePermission(ctx context.Context, g *grant.RolePermission) (bool, error) {
	if _, err := s.GetRole(ctx, g.RoleID); err != nil {
		return false, err
	}
	if _, err := s.GetPermission(ctx, g.PermissionID); err != nil {
		return false, err
	}

	rid, pid := g.RoleID.String(), g.PermissionID.String()
	res, err := s.mdb.Collection(colRolePermissions).UpdateOne(ctx,
		bson.M{"_id": rid, "grants.permission_id": bson.M{"$ne": pid}},
		bson.M{"$push": bson.M{"grants": rolePermissionToEntry(g)}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("grantor/mongo: attach role permission: %w", err)
	}
	return res.ModifiedCount > 0 || res.UpsertedCount > 0, nil
}

func (s *Store) ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]*grant.RolePermissionGrant, error) {
	byRole, err := s.roleGrants(ctx, []string{roleID.String()})
	if err != nil {
		return nil, err
	}
	if out := byRole[roleID.String()]; out != nil {
		return out, nil
	}
	return []*grant.RolePermissionGrant{}, nil
}

func (s *Store) SetUserRoles(ctx context.Context, userID string, assignments []*grant.UserRole) error {
	doc := &userRolesModel{UserID: userID, Roles: make([]userRoleEntry, len(assignments))}
	roleIDs := make([]string, len(assignments))
	seen := make(map[id.RoleID]struct{}, len(assignments))
	for i, a := range assignments {
		if _, dup := seen[a.RoleID]; dup {
			return fmt.Errorf("user %s role %s: %w", userID, a.RoleID, store.ErrConflict)
		}
		seen[a.RoleID] = struct{}{}
		doc.Roles[i] = userRoleToEntry(a)
		roleIDs[i] = a.RoleID.String()
	}
	if err := s.requireAll(ctx, colRoles, "role", roleIDs); err != nil {
		return err
	}
	return s.replaceEdges(ctx, colUserRoles, userID, len(assignments), doc)
}

func (s *Store) ListUserRoles(ctx context.Context, userID string) ([]*grant.UserRole, error) {
	var m userRolesModel
	if err := s.mdb.NewFind(&m).Filter(bson.M{"_id": userID}).Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return []*grant.UserRole{}, nil
		}
		return nil, fmt.Errorf("grantor/mongo: list user roles: %w", err)
	}
	result := make([]*grant.UserRole, len(m.Roles))
	for i := range m.Roles {
		a, err := userRoleFromEntry(userID, &m.Roles[i])
		if err != nil {
			return nil, fmt.Errorf("grantor/mongo: list user roles: %w", err)
		}
		result[i] = a
	}
	return result, nil
}

func (s *Store) SetUserPermissions(ctx context.Context, userID string, grants []*grant.UserPermission) error {
	doc := &userPermissionsModel{UserID: userID, Grants: make([]userPermissionEntry, len(grants))}
	permIDs := make([]string, len(grants))
	seen := make(map[id.PermissionID]struct{}, len(grants))
	for i, g := range grants {
		if _, dup := seen[g.PermissionID]; dup {
			return fmt.Errorf("user %s permission %s: %w", userID, g.PermissionID, store.ErrConflict)
		}
		seen[g.PermissionID] = struct{}{}
		doc.Grants[i] = userPermissionToEntry(g)
		permIDs[i] = g.PermissionID.String()
	}
	if err := s.requireAll(ctx, colPermissions, "permission", permIDs); err != nil {
		return err
	}
	return s.replaceEdges(ctx, colUserPermissions, userID, len(grants), doc)
}

func (s *Store) ListUserPermissions(ctx context.Context, userID string) ([]*grant.UserPermission, error) {
	var m userPermissionsModel
	if err := s.mdb.NewFind(&m).Filter(bson.M{"_id": userID}).Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return []*grant.UserPermission{}, nil
		}
		return nil, fmt.Errorf("grantor/mongo: list user permissions: %w", err)
	}
	result := make([]*grant.UserPermission, len(m.Grants))
	for i := range m.Grants {
		g, err := userPermissionFromEntry(userID, &m.Grants[i])
		if err != nil {
			return nil, fmt.Errorf("grantor/mongo: list user permissions: %w", err)
		}
		result[i] = g
	}
	return result, nil
}

func (s *Store) ListRoleAssignments(ctx context.Context, userID string) ([]*grant.RoleAssignment, error) {
	assignments, err := s.ListUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return []*grant.RoleAssignment{}, nil
	}

	roleIDs := make([]string, len(assignments))
	for i, a := range assignments {
		roleIDs[i] = a.RoleID.String()
	}

	var roleModels []roleModel
	if err := s.mdb.NewFind(&roleModels).Filter(bson.M{"_id": bson.M{"$in": roleIDs}}).Scan(ctx); err != nil {
		return nil, fmt.Errorf("grantor/mongo: list assignment roles: %w", err)
	}
	roles := make(map[string]*role.Role, len(roleModels))
	for i := range roleModels {
		r, err := roleFromModel(&roleModels[i])
		if err != nil {
			return nil, fmt.Errorf("grantor/mongo: list assignment roles: %w", err)
		}
		roles[roleModels[i].ID] = r
	}

	grantsByRole, err := s.roleGrants(ctx, roleIDs)
	if err != nil {
		return nil, err
	}

	result := make([]*grant.RoleAssignment, len(assignments))
	for i, a := range assignments {
		rid := a.RoleID.String()
		perms := grantsByRole[rid]
		if perms == nil {
			perms = []*grant.RolePermissionGrant{}
		}
		result[i] = &grant.RoleAssignment{
			UserRole:    *a,
			Role:        roles[rid],
			Permissions: perms,
		}
	}
	return result, nil
}

func (s *Store) ListDirectGrants(ctx context.Context, userID string) ([]*grant.DirectGrant, error) {
	grants, err := s.ListUserPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return []*grant.DirectGrant{}, nil
	}

	permIDs := make([]string, len(grants))
	for i, g := range grants {
		permIDs[i] = g.PermissionID.String()
	}
	perms, err := s.permissionsByID(ctx, permIDs)
	if err != nil {
		return nil, err
	}

	result := make([]*grant.DirectGrant, len(grants))
	for i, g := range grants {
		result[i] = &grant.DirectGrant{
			UserPermission: *g,
			Permission:     perms[g.PermissionID.String()],
		}
	}
	return result, nil
}

// replaceEdges swaps an owner's edge document in one write. An empty set
// removes the document.
func (s *Store) replaceEdges(ctx context.Context, col, ownerID string, n int, doc any) error {
	c := s.mdb.Collection(col)
	if n == 0 {
		if _, err := c.DeleteOne(ctx, bson.M{"_id": ownerID}); err != nil {
			return fmt.Errorf("grantor/mongo: clear %s: %w", col, err)
		}
		return nil
	}
	if _, err := c.ReplaceOne(ctx, bson.M{"_id": ownerID}, doc, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("grantor/mongo: replace %s: %w", col, err)
	}
	return nil
}

// requireAll reports ErrNotFound for the first id with no document in col.
func (s *Store) requireAll(ctx context.Context, col, entity string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	cur, err := s.mdb.Collection(col).Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return fmt.Errorf("grantor/mongo: check %s references: %w", entity, err)
	}
	var found []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &found); err != nil {
		return fmt.Errorf("grantor/mongo: check %s references: %w", entity, err)
	}
	present := make(map[string]struct{}, len(found))
	for _, f := range found {
		present[f.ID] = struct{}{}
	}
	for _, v := range ids {
		if _, ok := present[v]; !ok {
			return fmt.Errorf("%s %s: %w", entity, v, store.ErrNotFound)
		}
	}
	return nil
}

func (s *Store) roleGrants(ctx context.Context, roleIDs []string) (map[string][]*grant.RolePermissionGrant, error) {
	var docs []roleGrantsModel
	if err := s.mdb.NewFind(&docs).Filter(bson.M{"_id": bson.M{"$in": roleIDs}}).Scan(ctx); err != nil {
		return nil, fmt.Errorf("grantor/mongo: list role permissions: %w", err)
	}
	if len(docs) == 0 {
		return map[string][]*grant.RolePermissionGrant{}, nil
	}

	seen := make(map[string]struct{})
	permIDs := make([]string, 0)
	for i := range docs {
		for _, e := range docs[i].Grants {
			if _, ok := seen[e.PermissionID]; !ok {
				seen[e.PermissionID] = struct{}{}
				permIDs = append(permIDs, e.PermissionID)
			}
		}
	}
	perms, err := s.permissionsByID(ctx, permIDs)
	if err != nil {
		return nil, err
	}

	result := make(map[string][]*grant.RolePermissionGrant, len(docs))
	for i := range docs {
		d := &docs[i]
		rid, err := id.ParseRoleID(d.RoleID)
		if err != nil {
			return nil, fmt.Errorf("grantor/mongo: list role permissions: %w", err)
		}
		out := make([]*grant.RolePermissionGrant, 0, len(d.Grants))
		for j := range d.Grants {
			rp, err := rolePermissionFromEntry(rid, &d.Grants[j])
			if err != nil {
				return nil, fmt.Errorf("grantor/mongo: list role permissions: %w", err)
			}
			out = append(out, &grant.RolePermissionGrant{
				RolePermission: *rp,
				Permission:     perms[d.Grants[j].PermissionID],
			})
		}
		result[d.RoleID] = out
	}
	return result, nil
}

func (s *Store) permissionsByID(ctx context.Context, permIDs []string) (map[string]*permission.Permission, error) {
	result := make(map[string]*permission.Permission, len(permIDs))
	if len(permIDs) == 0 {
		return result, nil
	}
	var models []permissionModel
	if err := s.mdb.NewFind(&models).Filter(bson.M{"_id": bson.M{"$in": permIDs}}).Scan(ctx); err != nil {
		return nil, fmt.Errorf("grantor/mongo: load permissions: %w", err)
	}
	for i := range models {
		p, err := permissionFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("grantor/mongo: load permissions: %w", err)
		}
		result[models[i].ID] = p
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Filter helpers
// ──────────────────────────────────────────────────

// searchFilter matches the text literally and case-insensitively.
func searchFilter(search string) bson.A {
	re := bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
	return bson.A{
		bson.M{"name": re},
		bson.M{"display_name": re},
		bson.M{"description": re},
	}
}

func permissionFilter(f *permission.ListFilter) bson.M {
	m := bson.M{}
	if f == nil {
		return m
	}
	if f.Resource != "" {
		m["resource"] = f.Resource
	}
	if f.Action != "" {
		m["action"] = f.Action
	}
	if f.Category != "" {
		m["category"] = f.Category
	}
	if f.IsActive != nil {
		m["is_active"] = *f.IsActive
	}
	if f.IsSystem != nil {
		m["is_system"] = *f.IsSystem
	}
	if f.Search != "" {
		m["$or"] = searchFilter(f.Search)
	}
	return m
}

func roleFilter(f *role.ListFilter) bson.M {
	m := bson.M{}
	if f == nil {
		return m
	}
	if f.IsActive != nil {
		m["is_active"] = *f.IsActive
	}
	if f.IsSystem != nil {
		m["is_system"] = *f.IsSystem
	}
	if f.ParentID != nil {
		m["parent_id"] = f.ParentID.String()
	}
	if f.Search != "" {
		m["$or"] = searchFilter(f.Search)
	}
	return m
}

// sortSpec orders by field with _id as the tiebreaker.
func sortSpec(field string, desc bool) bson.D {
	dir := 1
	if desc {
		dir = -1
	}
	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}
