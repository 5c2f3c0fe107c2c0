// Package postgres provides a PostgreSQL implementation of the grantor
// composite store using grove ORM with Go-based migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/permission"
	"github.com/xraph/grantor/role"
	"github.com/xraph/grantor/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a PostgreSQL implementation of the composite grantor store.
type Store struct {
	db   *grove.DB
	pgdb *pgdriver.PgDB
}

// New creates a new PostgreSQL store.
func New(db *grove.DB) *Store {
	return &Store{
		db:   db,
		pgdb: pgdriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pgdb)
	if err != nil {
		return fmt.Errorf("grantor: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("grantor: migration failed: %w", err)
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

// isUniqueViolation reports whether err is a unique_violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key value")
}

// ──────────────────────────────────────────────────
// Permission operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(ctx context.Context, p *permission.Permission) error {
	_, err := s.pgdb.NewInsert(permissionToModel(p)).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("permission %s: %w", p.Key(), store.ErrConflict)
		}
		return fmt.Errorf("grantor: create permission: %w", err)
	}
	return nil
}

func (s *Store) GetPermission(ctx context.Context, permID id.PermissionID) (*permission.Permission, error) {
	m := new(permissionModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", permID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("permission %s: %w", permID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("grantor: get permission: %w", err)
	}
	return permissionFromModel(m), nil
}

func (s *Store) GetPermissionByKey(ctx context.Context, key permission.Key) (*permission.Permission, error) {
	m := new(permissionModel)
	q := s.pgdb.NewSelect(m).
		Where("resource = ?", key.Resource).
		Where("action = ?", key.Action)
	if key.HasScope {
		q = q.Where("scope = ?", key.Scope)
	} else {
		q = q.Where("scope IS NULL")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("permission %s: %w", key, store.ErrNotFound)
		}
		return nil, fmt.Errorf("grantor: get permission by key: %w", err)
	}
	return permissionFromModel(m), nil
}

func (s *Store) UpdatePermission(ctx context.Context, p *permission.Permission) error {
	res, err := s.pgdb.NewUpdate(permissionToModel(p)).WherePK().Exec(ctx)
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

func (s *Store) DeletePermission(ctx context.Context, permID id.PermissionID) error {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
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
		// Lost a race with a concurrent seeder; the winner's row is the answer.
		if errors.Is(err, store.ErrConflict) {
			return s.GetPermissionByKey(ctx, p.Key())
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) ListPermissions(ctx context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	var models []permissionModel
	q := s.pgdb.NewSelect(&models).OrderExpr(permissionOrder(filter))
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
		result[i] = permissionFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountPermissions(ctx context.Context, filter *permission.ListFilter) (int64, error) {
	q := s.pgdb.NewSelect((*permissionModel)(nil))
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
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("grantor: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if _, err = tx.NewInsert(roleToModel(r)).Exec(ctx); err != nil {
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
			models = append(models, rolePermissionToModel(&grant.RolePermission{
				RoleID:       r.ID,
				PermissionID: pid,
				Effect:       grant.EffectAllow,
				CreatedAt:    r.CreatedAt,
			}))
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
	err := s.pgdb.NewSelect(m).Where("id = ?", roleID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("grantor: get role: %w", err)
	}
	return roleFromModel(m), nil
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*role.Role, error) {
	m := new(roleModel)
	err := s.pgdb.NewSelect(m).Where("name = ?", name).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role %q: %w", name, store.ErrNotFound)
		}
		return nil, fmt.Errorf("grantor: get role by name: %w", err)
	}
	return roleFromModel(m), nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	res, err := s.pgdb.NewUpdate(roleToModel(r)).WherePK().Exec(ctx)
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
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
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
	_, err := s.pgdb.NewInsert(roleToModel(r)).
		OnConflict("(name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("grantor: ensure role: %w", err)
	}
	return s.GetRoleByName(ctx, r.Name)
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	q := s.pgdb.NewSelect(&models).OrderExpr(roleOrder(filter))
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
	result := make([]*role.Role, len(models))
	for i := range models {
		result[i] = roleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	q := s.pgdb.NewSelect((*roleModel)(nil))
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
	err := s.pgdb.NewSelect(&models).
		Where("parent_id = ?", parentID.String()).
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("grantor: list child roles: %w", err)
	}
	result := make([]*role.Role, len(models))
	for i := range models {
		result[i] = roleFromModel(&models[i])
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Grant operations
// ──────────────────────────────────────────────────

func (s *Store) SetRolePermissions(ctx context.Context, roleID id.RoleID, grants []*grant.RolePermission) error {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
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

	if len(grants) > 0 {
		models := make([]rolePermissionModel, len(grants))
		for i, g := range grants {
			models[i] = rolePermissionToModel(g)
			models[i].RoleID = roleID.String()
		}
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
	m := rolePermissionToModel(g)
	res, err := s.pgdb.NewInsert(&m).
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
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
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

	if len(assignments) > 0 {
		models := make([]userRoleModel, len(assignments))
		for i, a := range assignments {
			models[i] = userRoleToModel(a)
			models[i].UserID = userID
		}
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
	err := s.pgdb.NewSelect(&models).
		Where("user_id = ?", userID).
		OrderExpr("created_at ASC, role_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("grantor: list user roles: %w", err)
	}
	result := make([]*grant.UserRole, len(models))
	for i := range models {
		result[i] = userRoleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) SetUserPermissions(ctx context.Context, userID string, grants []*grant.UserPermission) error {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
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

	if len(grants) > 0 {
		models := make([]userPermissionModel, len(grants))
		for i, g := range grants {
			models[i] = userPermissionToModel(g)
			models[i].UserID = userID
		}
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
	err := s.pgdb.NewSelect(&models).
		Where("user_id = ?", userID).
		OrderExpr("created_at ASC, permission_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("grantor: list user permissions: %w", err)
	}
	result := make([]*grant.UserPermission, len(models))
	for i := range models {
		result[i] = userPermissionFromModel(&models[i])
	}
	return result, nil
}

// ListRoleAssignments loads the user's assignments in one statement, then
// attaches roles and role grants with = ANY array queries.
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
	if err := s.pgdb.NewSelect(&roleModels).WhereArray("id", "= ANY", roleIDs).Scan(ctx); err != nil {
		return nil, fmt.Errorf("grantor: list assignment roles: %w", err)
	}
	roles := make(map[string]*role.Role, len(roleModels))
	for i := range roleModels {
		roles[roleModels[i].ID] = roleFromModel(&roleModels[i])
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

// roleGrants returns the grants of every listed role keyed by role ID,
// each with its permission attached.
func (s *Store) roleGrants(ctx context.Context, roleIDs []string) (map[string][]*grant.RolePermissionGrant, error) {
	var models []rolePermissionModel
	err := s.pgdb.NewSelect(&models).
		WhereArray("role_id", "= ANY", roleIDs).
		OrderExpr("created_at ASC, permission_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("grantor: list role permissions: %w", err)
	}
	if len(models) == 0 {
		return map[string][]*grant.RolePermissionGrant{}, nil
	}

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
		result[m.RoleID] = append(result[m.RoleID], &grant.RolePermissionGrant{
			RolePermission: *rolePermissionFromModel(m),
			Permission:     perms[m.PermissionID],
		})
	}
	return result, nil
}

func (s *Store) permissionsByID(ctx context.Context, permIDs []string) (map[string]*permission.Permission, error) {
	var models []permissionModel
	if err := s.pgdb.NewSelect(&models).WhereArray("id", "= ANY", permIDs).Scan(ctx); err != nil {
		return nil, fmt.Errorf("grantor: load permissions: %w", err)
	}
	result := make(map[string]*permission.Permission, len(models))
	for i := range models {
		result[models[i].ID] = permissionFromModel(&models[i])
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

// Sort columns come from a closed set, never from caller input.
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
