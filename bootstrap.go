package grantor

import (
	"context"
	"log/slog"

	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/permission"
	"github.com/xraph/grantor/role"
)

// Seeder installs the system baseline.
type Seeder struct {
	engine *Engine
}

// BaselineReport describes what one EnsureSystemBaseline call changed.
type BaselineReport struct {
	Permissions []*permission.Permission `json:"permissions"`
	SuperAdmin  *role.Role               `json:"super_admin"`
	Admin       *role.Role               `json:"admin"`

	// GrantsAdded counts role grants inserted by this call. It is zero
	// when the baseline was already in place.
	GrantsAdded int `json:"grants_added"`

	// Promoted counts existing permissions and roles that matched a
	// baseline key or name and were marked as system entities.
	Promoted int `json:"promoted"`
}

type systemPermission struct {
	name, displayName, resource, action string
}

var systemPermissions = []systemPermission{
	{"user.create", "Create users", "user", "create"},
	{"user.read", "Read users", "user", "read"},
	{"user.update", "Update users", "user", "update"},
	{"user.delete", "Delete users", "user", "delete"},
	{"role.manage", "Manage roles", "role", "manage"},
	{"permission.manage", "Manage permissions", "permission", "manage"},
}

// EnsureSystemBaseline makes sure the system permissions and the super
// admin and admin roles exist, grants every known permission to the super
// admin role and the user permissions to the admin role. It only adds:
// grants are never removed, and an existing row is changed only to mark
// it as a system entity. Repeated calls are no-ops.
func (s *Seeder) EnsureSystemBaseline(ctx context.Context) (*BaselineReport, error) {
	e := s.engine
	report := &BaselineReport{}
	now := e.now()

	for _, sp := range systemPermissions {
		p, err := e.store.EnsurePermission(ctx, &permission.Permission{
			ID:          id.NewPermissionID(),
			Name:        sp.name,
			DisplayName: sp.displayName,
			Resource:    sp.resource,
			Action:      sp.action,
			Category:    sp.resource,
			IsSystem:    true,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return nil, storageError(ctx, "ensure permission "+sp.resource+":"+sp.action, err)
		}
		if !p.IsSystem {
			p.IsSystem = true
			p.UpdatedAt = now
			if err := e.store.UpdatePermission(ctx, p); err != nil {
				return nil, storageError(ctx, "promote permission "+sp.resource+":"+sp.action, err)
			}
			report.Promoted++
		}
		report.Permissions = append(report.Permissions, p)
	}

	superAdmin, promoted, err := s.ensureRole(ctx, e.config.superAdminRole(), "Super Administrator", 100)
	if err != nil {
		return nil, err
	}
	if promoted {
		report.Promoted++
	}
	admin, promoted, err := s.ensureRole(ctx, e.config.adminRole(), "Administrator", 50)
	if err != nil {
		return nil, err
	}
	if promoted {
		report.Promoted++
	}
	report.SuperAdmin, report.Admin = superAdmin, admin

	all, err := e.store.ListPermissions(ctx, nil)
	if err != nil {
		return nil, storageError(ctx, "list permissions", err)
	}
	for _, p := range all {
		added, err := s.attach(ctx, superAdmin.ID, p.ID)
		if err != nil {
			return nil, err
		}
		report.GrantsAdded += added
	}
	for _, p := range report.Permissions {
		if p.Resource != "user" {
			continue
		}
		added, err := s.attach(ctx, admin.ID, p.ID)
		if err != nil {
			return nil, err
		}
		report.GrantsAdded += added
	}

	e.logger.Info("system baseline ensured",
		slog.Int("permissions", len(report.Permissions)),
		slog.Int("grants_added", report.GrantsAdded),
		slog.Int("promoted", report.Promoted),
	)
	if e.plugins != nil {
		e.plugins.EmitBaselineEnsured(ctx, report)
	}
	if report.GrantsAdded > 0 {
		e.invalidateAll(ctx)
	}
	return report, nil
}

// ensureRole returns the named system role and whether an existing
// non-system role of that name was promoted.
func (s *Seeder) ensureRole(ctx context.Context, name, displayName string, priority int) (*role.Role, bool, error) {
	e := s.engine
	now := e.now()
	r, err := e.store.EnsureRole(ctx, &role.Role{
		ID:          id.NewRoleID(),
		Name:        name,
		DisplayName: displayName,
		Priority:    priority,
		IsSystem:    true,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, false, storageError(ctx, "ensure role "+name, err)
	}
	if r.IsSystem {
		return r, false, nil
	}
	r.IsSystem = true
	r.UpdatedAt = now
	if err := e.store.UpdateRole(ctx, r); err != nil {
		return nil, false, storageError(ctx, "promote role "+name, err)
	}
	return r, true, nil
}

func (s *Seeder) attach(ctx context.Context, roleID id.RoleID, permID id.PermissionID) (int, error) {
	e := s.engine
	added, err := e.store.AttachRolePermission(ctx, &grant.RolePermission{
		RoleID:       roleID,
		PermissionID: permID,
		Effect:       grant.EffectAllow,
		CreatedAt:    e.now(),
	})
	if err != nil {
		return 0, storageError(ctx, "attach role permission", err)
	}
	if added {
		return 1, nil
	}
	return 0, nil
}
