// Package sqlite provides a SQLite implementation of the grantor composite
// store using grove ORM with Go-based migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/permission"
	"github.com/xraph/grantor/role"
	"github.com/xraph/grantor/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a SQLite implementation of the composite grantor store.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("grantor/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("grantor/sqlite: migration failed: %w", err)
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

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ──────────────────────────────────────────────────
// Permission operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(ctx context.Context, p *permission.Permission) error {
	m, err := permissionToModel(p)
	if err != nil {
		return fmt.Errorf("grantor: create permission: %w", err)
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("permission %s: %w", p.Key(), store.ErrConflict)
		}
		return fmt.Errorf("grantor: create permission: %w", err)
	}
	return nil
}

func (s *Store) GetPermission(ctx context.Context, permID id.PermissionID) (*permission.Permission, error) {
	m := new(permissionModel)
	if err := s.sdb.NewSelect(m).Where("id = ?", permID.String()).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("permission %s: %w", permID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("grantor: get permission: %w", err)
	}
	return permissionFromModel(m)
}

func (s *Store) GetPermissionByKey(ctx context.Context, key permission.Key) (*permission.Permission, error) {
	m := new(permissionModel)
	q := s.sdb.NewSelect(m).
		Where("resource = ?", key.Resource).
		Where("action = ?", key.Action)
	if key.HasScope {
		q = q.Where("scope = ?", key.Scope)
	} else {
		q = q.Where("scope IS NULL")
	}
	if err := q.Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("permission %s: %w", key, store.ErrNotFound)
		}
		return nil, fmt.Errorf("grantor: get permission by key: %w", err)
	}
	return permissionFromModel(m)
}

func (s *Store) UpdatePermission(ctx context.Context, p *permission.Permission) error {
	m, err := permissionToModel(p)
	if err != nil {
		return fmt.Errorf("grantor: update permission: %w", err)
	}
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("permission %s: %w", p.Key(), store.ErrConflict)
		}
		return fmt.Errorf("grantor: update permission: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("permission %s: %w", p.ID, store.ErrNotFound)
	}
	return nil
}

// DeletePermission removes edges explicitly because SQLite only honors
// ON DELETE CASCADE when foreign keys are enabled on the connection.
func (s *Store) DeletePermission(ctx context.Context, permID id.PermissionID) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("grantor: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	pid := permID.String()
	if _, err = tx.NewDelete((*rolePermissionModel)(nil)).Where("permission_id = ?", pid).Exec(ctx); err != nil {
		return fmt.Errorf("grantor: delete permission role grants: %w", err)
	}
	if _, err = tx.NewDelete((*userPermissionModel)(nil)).Where("permission_id = ?", pid).Exec(ctx); err != nil {
		return fmt.Errorf("grantor: delete permission user grants: %w", err)
	}
	res, err := tx.NewDelete((*permissionModel)(nil)).Where("id = ?", pid).Exec(ctx)
	if err != nil {
		return fmt.Errorf("grantor: delete permission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("grantor: delete permission rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("permission %s: %w", permID, store.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("grantor: commit tx: %w", err)
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
	q := s.sdb.NewSelect(&models).OrderExpr(permissionOrder(filter))
	for _, c := range permissionConditions(filter) {
		q = q.Where(c.expr, c.args...)
	}
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("grantor: list permissions: %w", err)
	}
	result := make([]*permission.Permission, len(models))
	for i := range models {
		p, err := permissionFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("grantor: list permissions: %w", err)
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) CountPermissions(ctx context.Context, filter *permission.ListFilter) (int64, error) {
	q := s.sdb.NewSelect((*permissionModel)(nil))
	for _, c := range permissionConditions(filter) {
		q = q.Where(c.expr, c.args...)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("grantor: count permissions: %w", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role, permIDs []id.PermissionID) error {
	m, err := roleToModel(r)
	if err != nil {
		return fmt.Errorf("grantor: create role: %w", err)
	}

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("grantor: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if _, err = tx.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("role %q: %w", r.Name, store.ErrConflict)
		}
		return fmt.Errorf("grantor: create role: %w", err)
	}

	if len(permIDs) > 0 {
		seen := make(map[id.PermissionID]struct{}, len(permIDs))
		models := make([]rolePermissionModel, 0, len(permIDs))
		for _, pid := range permIDs {
			if _, dup := seen[pid]; dup {
				continue
			}
			seen[pid] = struct{}{}
			rm, err := rolePermissionToModel(&grant.RolePermission{
				RoleID:       r.ID,
				PermissionID: pid,
				Effect:       grant.EffectAllow,
				CreatedAt:    r.CreatedAt,
			})
			if err != nil {
				return fmt.Errorf("grantor: create role grants: %w", err)
			}
			models = append(models, rm)
		}
		if _, err = tx.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("grantor: create role grants: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("grantor: commit tx: %w", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	m := new(roleModel)
	if err := s.sdb.NewSelect(m).Where("id = ?", roleID.String()).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("grantor: get role: %w", err)
	}
	return roleFromModel(m)
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*role.Role, error) {
	m := new(roleModel)
	if err := s.sdb.NewSelect(m).Where("name = ?", name).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("role %q: %w", name, store.ErrNotFound)
		}
		return nil, fmt.Errorf("grantor: get role by name: %w", err)
	}
	return roleFromModel(m)
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	m, err := roleToModel(r)
	if err != nil {
		return fmt.Errorf("grantor: update role: %w", err)
	}
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("role %q: %w", r.Name, store.ErrConflict)
		}
		return fmt.Errorf("grantor: update role: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("role %s: %w", r.ID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("grantor: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	rid := roleID.String()
	if _, err = tx.NewDelete((*rolePermissionModel)(nil)).Where("role_id = ?", rid).Exec(ctx); err != nil {
		return fmt.Errorf("grantor: delete role grants: %w", err)
	}
	if _, err = tx.NewDelete((*userRoleModel)(nil)).Where("role_id = ?", rid).Exec(ctx); err != nil {
		return fmt.Errorf("grantor: delete role assignments: %w", err)
	}
	res, err := tx.NewDelete((*roleModel)(nil)).Where("id = ?", rid).Exec(ctx)
	if err != nil {
		return fmt.Errorf("grantor: delete role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("grantor: delete role rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("grantor: commit tx: %w", err)
	}
	return nil
}

func (s *Store) EnsureRole(ctx context.Context, r *role.Role) (*role.Role, error) {
	m, err := roleToModel(r)
	if err != nil {
		return nil, fmt.Errorf("grantor: ensure role: %w", err)
	}
	_, err = s.sdb.NewInsert(m).
		OnConflict("(name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("grantor: ensure role: %w", err)
	}
	return s.GetRoleByName(ctx, r.Name)
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	q := s.sdb.NewSelect(&models).OrderExpr(roleOrder(filter))
	for _, c := range roleConditions(filter) {
		q = q.Where(c.expr, c.args...)
	}
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("grantor: list roles: %w", err)
	}
	return rolesFromModels(models)
}

func (s *Store) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	q := s.sdb.NewSelect((*roleModel)(nil))
	for _, c := range roleConditions(filter) {
		q = q.Where(c.expr, c.args...)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("grantor: count roles: %w", err)
	}
	return count, nil
}

func (s *Store) ListChildRoles(ctx context.Context, parentID id.RoleID) ([]*role.Role, error) {
	var models []roleModel
	err := s.sdb.NewSelect(&models).
		Where("parent_id = ?", parentID.String()).
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("grantor: list child roles: %w", err)
	}
	return rolesFromModels(models)
}

func rolesFromModels(models []roleModel) ([]*role.Role, error) {
	result := make([]*role.Role, len(models))
	for i := range models {
		r, err := roleFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("grantor: list roles: %w", err)
		}
		result[i] = r
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Grant operations
// ──────────────────────────────────────────────────

func (s *Store) SetRolePermissions(ctx context.Context, roleID id.RoleID, grants []*grant.RolePermission) error {
	models := make([]rolePermissionModel, len(grants))
	for i, g := range grants {
		m, err := rolePermissionToModel(g)
		if err != nil {
			return fmt.Errorf("grantor: set role permissions: %w", err)
		}
		m.RoleID = roleID.String()
		models[i] = m
	}

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("grantor: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	_, err = tx.NewDelete((*rolePermissionModel)(nil)).
		Where("role_id = ?", roleID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("grantor: clear role permissions: %w", err)
	}

	if len(models) > 0 {
		if _, err = tx.NewInsert(&models).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("role %s grants: %w", roleID, store.ErrConflict)
			}
			return fmt.Errorf("grantor: set role permissions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("grantor: commit tx: %w", err)
	}
	return nil
}

func (s *Store) AttachRolePermission(ctx context.Context, g *grant.RolePermission) (bool, error) {
	m, err := rolePermissionToModel(g)
	if err != nil {
		return false, fmt.Errorf("grantor: attach role permission: %w", err)
	}
	res, err := s.sdb.NewInsert(&m).
		OnConflict("(role_id, permission_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("grantor: attach role permission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("grantor: attach role permission rows: %w", err)
	}
	return n > 0, nil
}

func (s *Store) ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]*grant.RolePermissionGrant, error) {
	byRole, err := s.roleGrants(ctx, []string{roleID.String()})
	if err != nil {
		return nil, err
	}
	return byRole[roleID.String()], nil
}

func (s *Store) SetUserRoles(ctx context.Context, userID string, assignments []*grant.UserRole) error {
	models := make([]userRoleModel, len(assignments))
	for i, a := range assignments {
		m, err := userRoleToModel(a)
		if err != nil {
			return fmt.Errorf("grantor: set user roles: %w", err)
		}
		m.UserID = userID
		models[i] = m
	}

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("grantor: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	_, err = tx.NewDelete((*userRoleModel)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("grantor: clear user roles: %w", err)
	}

	if len(models) > 0 {
		if _, err = tx.NewInsert(&models).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("user %s roles: %w", userID, store.ErrConflict)
			}
			return fmt.Errorf("grantor: set user roles: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("grantor: commit tx: %w", err)
	}
	return nil
}

func (s *Store) ListUserRoles(ctx context.Context, userID string) ([]*grant.UserRole, error) {
	var models []userRoleModel
	err := s.sdb.NewSelect(&models).
		Where("user_id = ?", userID).
		OrderExpr("created_at ASC, role_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("grantor: list user roles: %w", err)
	}
	result := make([]*grant.UserRole, len(models))
	for i := range models {
		a, err := userRoleFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("grantor: list user roles: %w", err)
		}
		result[i] = a
	}
	return result, nil
}

func (s *Store) SetUserPermissions(ctx context.Context, userID string, grants []*grant.UserPermission) error {
	models := make([]userPermissionModel, len(grants))
	for i, g := range grants {
		m, err := userPermissionToModel(g)
		if err != nil {
			return fmt.Errorf("grantor: set user permissions: %w", err)
		}
		m.UserID = userID
		models[i] = m
	}

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("grantor: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	_, err = tx.NewDelete((*userPermissionModel)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("grantor: clear user permissions: %w", err)
	}

	if len(models) > 0 {
		if _, err = tx.NewInsert(&models).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("user %s permissions: %w", userID, store.ErrConflict)
			}
			return fmt.Errorf("grantor: set user permissions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("grantor: commit tx: %w", err)
	}
	return nil
}

func (s *Store) ListUserPermissions(ctx context.Context, userID string) ([]*grant.UserPermission, error) {
	var models []userPermissionModel
	err := s.sdb.NewSelect(&models).
		Where("user_id = ?", userID).
		OrderExpr("created_at ASC, permission_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("grantor: list user permissions: %w", err)
	}
	result := make([]*grant.UserPermission, len(models))
	for i := range models {
		g, err := userPermissionFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("grantor: list user permissions: %w", err)
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
	in := inCondition("id", roleIDs)
	if err := s.sdb.NewSelect(&roleModels).Where(in.expr, in.args...).Scan(ctx); err != nil {
		return nil, fmt.Errorf("grantor: list assignment roles: %w", err)
	}
	roles := make(map[string]*role.Role, len(roleModels))
	for i := range roleModels {
		r, err := roleFromModel(&roleModels[i])
		if err != nil {
			return nil, fmt.Errorf("grantor: list assignment roles: %w", err)
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

func (s *Store) roleGrants(ctx context.Context, roleIDs []string) (map[string][]*grant.RolePermissionGrant, error) {
	var models []rolePermissionModel
	in := inCondition("role_id", roleIDs)
	err := s.sdb.NewSelect(&models).
		Where(in.expr, in.args...).
		OrderExpr("created_at ASC, permission_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("grantor: list role permissions: %w", err)
	}
	if len(models) == 0 {
		return map[string][]*grant.RolePermissionGrant{}, nil
	}

	// Deduplicate permission IDs.
	seen := make(map[string]struct{})
	permIDs := make([]string, 0, len(models))
	for _, m := range models {
		if _, ok := seen[m.PermissionID]; !ok {
			seen[m.PermissionID] = struct{}{}
			permIDs = append(permIDs, m.PermissionID)
		}
	}
	perms, err := s.permissionsByID(ctx, permIDs)
	if err != nil {
		return nil, err
	}

	result := make(map[string][]*grant.RolePermissionGrant, len(roleIDs))
	for i := range models {
		m := &models[i]
		rp, err := rolePermissionFromModel(m)
		if err != nil {
			return nil, fmt.Errorf("grantor: list role permissions: %w", err)
		}
		result[m.RoleID] = append(result[m.RoleID], &grant.RolePermissionGrant{
			RolePermission: *rp,
			Permission:     perms[m.PermissionID],
		})
	}
	return result, nil
}

func (s *Store) permissionsByID(ctx context.Context, permIDs []string) (map[string]*permission.Permission, error) {
	var models []permissionModel
	in := inCondition("id", permIDs)
	if err := s.sdb.NewSelect(&models).Where(in.expr, in.args...).Scan(ctx); err != nil {
		return nil, fmt.Errorf("grantor: load permissions: %w", err)
	}
	result := make(map[string]*permission.Permission, len(models))
	for i := range models {
		p, err := permissionFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("grantor: load permissions: %w", err)
		}
		result[models[i].ID] = p
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Filter helpers
// ──────────────────────────────────────────────────

type condition struct {
	expr string
	args []any
}

// inCondition expands values into one placeholder each; the driver binds
// scalars only.
func inCondition(column string, values []string) condition {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	return condition{expr: column + " IN (" + marks + ")", args: args}
}

func searchCondition(search string) condition {
	pat := "%" + strings.ToLower(search) + "%"
	return condition{
		expr: "(LOWER(name) LIKE ? OR LOWER(display_name) LIKE ? OR LOWER(description) LIKE ?)",
		args: []any{pat, pat, pat},
	}
}

func permissionConditions(f *permission.ListFilter) []condition {
	if f == nil {
		return nil
	}
	var conds []condition
	if f.Resource != "" {
		conds = append(conds, condition{"resource = ?", []any{f.Resource}})
	}
	if f.Action != "" {
		conds = append(conds, condition{"action = ?", []any{f.Action}})
	}
	if f.Category != "" {
		conds = append(conds, condition{"category = ?", []any{f.Category}})
	}
	if f.IsActive != nil {
		conds = append(conds, condition{"is_active = ?", []any{*f.IsActive}})
	}
	if f.IsSystem != nil {
		conds = append(conds, condition{"is_system = ?", []any{*f.IsSystem}})
	}
	if f.Search != "" {
		conds = append(conds, searchCondition(f.Search))
	}
	return conds
}

func roleConditions(f *role.ListFilter) []condition {
	if f == nil {
		return nil
	}
	var conds []condition
	if f.IsActive != nil {
		conds = append(conds, condition{"is_active = ?", []any{*f.IsActive}})
	}
	if f.IsSystem != nil {
		conds = append(conds, condition{"is_system = ?", []any{*f.IsSystem}})
	}
	if f.ParentID != nil {
		conds = append(conds, condition{"parent_id = ?", []any{f.ParentID.String()}})
	}
	if f.Search != "" {
		conds = append(conds, searchCondition(f.Search))
	}
	return conds
}

func permissionOrder(f *permission.ListFilter) string {
	return orderExpr(string(f.OrderBy()), f != nil && f.SortDesc)
}

func roleOrder(f *role.ListFilter) string {
	return orderExpr(string(f.OrderBy()), f != nil && f.SortDesc)
}

func orderExpr(column string, desc bool) string {
	if desc {
		return column + " DESC, id DESC"
	}
	return column + " ASC, id ASC"
}
