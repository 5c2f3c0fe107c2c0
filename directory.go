package grantor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/role"
	"github.com/xraph/grantor/store"
)

// Directory manages roles and their permission grants.
type Directory struct {
	engine *Engine
}

// CreateRoleInput is the input to Directory.Create. Each id in
// PermissionIDs becomes an allow grant written with the role.
type CreateRoleInput struct {
	Name          string            `json:"name" validate:"required,max=100"`
	DisplayName   string            `json:"display_name,omitempty" validate:"max=255"`
	Description   string            `json:"description,omitempty"`
	ParentID      *id.RoleID        `json:"parent_id,omitempty"`
	Priority      int               `json:"priority,omitempty"`
	PermissionIDs []id.PermissionID `json:"permission_ids,omitempty"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
	IsSystem      bool              `json:"is_system,omitempty"`
	IsActive      *bool             `json:"is_active,omitempty"`
}

// UpdateRoleInput is a patch: nil fields are left unchanged.
// ClearParent detaches the role from its parent; it wins over ParentID.
type UpdateRoleInput struct {
	Name        *string        `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	DisplayName *string        `json:"display_name,omitempty" validate:"omitempty,max=255"`
	Description *string        `json:"description,omitempty"`
	ParentID    *id.RoleID     `json:"parent_id,omitempty"`
	ClearParent bool           `json:"clear_parent,omitempty"`
	Priority    *int           `json:"priority,omitempty"`
	IsActive    *bool          `json:"is_active,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// AssignRolePermissionsInput replaces the grants of a role. Every
// permission receives the same Effect (allow by default), Conditions and
// ExpiresAt. An empty PermissionIDs clears the role.
type AssignRolePermissionsInput struct {
	PermissionIDs []id.PermissionID `json:"permission_ids"`
	Effect        grant.Effect      `json:"effect,omitempty" validate:"omitempty,oneof=allow deny"`
	Conditions    map[string]any    `json:"conditions,omitempty"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
}

// Create adds a role and its initial allow grants in one transaction.
func (d *Directory) Create(ctx context.Context, in *CreateRoleInput) (*RoleDetail, error) {
	e := d.engine
	if err := e.validateInput("role", in); err != nil {
		return nil, err
	}
	if err := d.ensureNameFree(ctx, in.Name, id.Nil); err != nil {
		return nil, err
	}
	if in.ParentID != nil && !in.ParentID.IsNil() {
		if err := d.checkRoleRef(ctx, "parent_id", *in.ParentID); err != nil {
			return nil, err
		}
	}
	permIDs := dedupIDs(in.PermissionIDs)
	if err := e.checkPermissionRefs(ctx, permIDs); err != nil {
		return nil, err
	}

	now := e.now()
	r := &role.Role{
		ID:          id.NewRoleID(),
		Name:        in.Name,
		DisplayName: in.DisplayName,
		Description: in.Description,
		Priority:    in.Priority,
		Metadata:    in.Metadata,
		IsSystem:    in.IsSystem,
		IsActive:    boolOr(in.IsActive, true),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.ParentID != nil && !in.ParentID.IsNil() {
		parent := *in.ParentID
		r.ParentID = &parent
	}
	if r.DisplayName == "" {
		r.DisplayName = r.Name
	}

	if err := e.store.CreateRole(ctx, r, permIDs); err != nil {
		return nil, classify(ctx, "create role", err,
			func() error { return invalidReference("role", "permission_ids", "") },
			func() error { return conflict("role", "name", r.Name) },
		)
	}

	e.logger.Debug("role created",
		slog.String("role_id", r.ID.String()),
		slog.String("name", r.Name),
		slog.Int("permissions", len(permIDs)),
	)
	if e.plugins != nil {
		e.plugins.EmitRoleCreated(ctx, r)
	}

	grants, err := e.store.ListRolePermissions(ctx, r.ID)
	if err != nil {
		return nil, storageError(ctx, "list role permissions", err)
	}
	return &RoleDetail{Role: r, Permissions: grants}, nil
}

// Update applies a patch to a role.
func (d *Directory) Update(ctx context.Context, roleID id.RoleID, in *UpdateRoleInput) (*role.Role, error) {
	e := d.engine
	if err := e.validateInput("role", in); err != nil {
		return nil, err
	}
	r, err := d.getRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if r.IsSystem && in.IsActive != nil && !*in.IsActive {
		return nil, forbidden("role", "is_active", r.Name)
	}

	if in.Name != nil && *in.Name != r.Name {
		if err := d.ensureNameFree(ctx, *in.Name, r.ID); err != nil {
			return nil, err
		}
		r.Name = *in.Name
	}
	switch {
	case in.ClearParent:
		r.ParentID = nil
	case in.ParentID != nil && !in.ParentID.IsNil():
		if *in.ParentID == r.ID {
			return nil, invalidInput("role", "parent_id", in.ParentID.String(),
				errors.New("a role cannot be its own parent"))
		}
		if err := d.checkRoleRef(ctx, "parent_id", *in.ParentID); err != nil {
			return nil, err
		}
		parent := *in.ParentID
		r.ParentID = &parent
	}
	applyString(&r.DisplayName, in.DisplayName)
	applyString(&r.Description, in.Description)
	if in.Priority != nil {
		r.Priority = *in.Priority
	}
	if in.IsActive != nil {
		r.IsActive = *in.IsActive
	}
	if in.Metadata != nil {
		r.Metadata = in.Metadata
	}
	r.UpdatedAt = e.now()

	if err := e.store.UpdateRole(ctx, r); err != nil {
		return nil, classify(ctx, "update role", err,
			func() error { return notFound("role", "id", roleID.String()) },
			func() error { return conflict("role", "name", r.Name) },
		)
	}

	e.logger.Debug("role updated", slog.String("role_id", r.ID.String()))
	if e.plugins != nil {
		e.plugins.EmitRoleUpdated(ctx, r)
	}
	e.invalidateAll(ctx)
	return r, nil
}

// Delete removes a role with its grants and user assignments. Child roles
// keep pointing at the deleted parent. System roles cannot be deleted.
func (d *Directory) Delete(ctx context.Context, roleID id.RoleID) error {
	e := d.engine
	r, err := d.getRole(ctx, roleID)
	if err != nil {
		return err
	}
	if r.IsSystem {
		return forbidden("role", "name", r.Name)
	}
	if err := e.store.DeleteRole(ctx, roleID); err != nil {
		return classify(ctx, "delete role", err,
			func() error { return notFound("role", "id", roleID.String()) }, nil)
	}

	e.logger.Debug("role deleted", slog.String("role_id", roleID.String()))
	if e.plugins != nil {
		e.plugins.EmitRoleDeleted(ctx, roleID)
	}
	e.invalidateAll(ctx)
	return nil
}

// Get returns a role with its permission grants and immediate children.
func (d *Directory) Get(ctx context.Context, roleID id.RoleID) (*RoleDetail, error) {
	e := d.engine
	r, err := d.getRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	grants, err := e.store.ListRolePermissions(ctx, roleID)
	if err != nil {
		return nil, storageError(ctx, "list role permissions", err)
	}
	children, err := e.store.ListChildRoles(ctx, roleID)
	if err != nil {
		return nil, storageError(ctx, "list child roles", err)
	}
	return &RoleDetail{Role: r, Permissions: grants, Children: children}, nil
}

// GetByName returns the role with the given name.
func (d *Directory) GetByName(ctx context.Context, name string) (*role.Role, error) {
	r, err := d.engine.store.GetRoleByName(ctx, name)
	if err != nil {
		return nil, classify(ctx, "get role by name", err,
			func() error { return notFound("role", "name", name) }, nil)
	}
	return r, nil
}

// Search returns one page of roles matching filter, plus the total match
// count.
func (d *Directory) Search(ctx context.Context, filter *role.ListFilter, page Page) (*RolePage, error) {
	e := d.engine
	if err := e.validateInput("page", &page); err != nil {
		return nil, err
	}
	f := role.ListFilter{}
	if filter != nil {
		f = *filter
	}
	f.Limit, f.Offset = e.config.pageBounds(page)

	items, err := e.store.ListRoles(ctx, &f)
	if err != nil {
		return nil, storageError(ctx, "search roles", err)
	}
	total, err := e.store.CountRoles(ctx, &f)
	if err != nil {
		return nil, storageError(ctx, "count roles", err)
	}
	return &RolePage{Items: items, Total: total, Page: Page{Index: page.Index, Size: f.Limit}}, nil
}

// AssignPermissions replaces every grant of a role with the supplied set.
// Duplicate ids collapse into one grant.
func (d *Directory) AssignPermissions(ctx context.Context, roleID id.RoleID, in *AssignRolePermissionsInput) ([]*grant.RolePermissionGrant, error) {
	e := d.engine
	if err := e.validateInput("role_permission", in); err != nil {
		return nil, err
	}
	if _, err := d.getRole(ctx, roleID); err != nil {
		return nil, err
	}
	permIDs := dedupIDs(in.PermissionIDs)
	if err := e.checkPermissionRefs(ctx, permIDs); err != nil {
		return nil, err
	}

	effect := effectOrAllow(in.Effect)
	now := e.now()
	grants := make([]*grant.RolePermission, 0, len(permIDs))
	for _, pid := range permIDs {
		grants = append(grants, &grant.RolePermission{
			RoleID:       roleID,
			PermissionID: pid,
			Effect:       effect,
			Conditions:   in.Conditions,
			ExpiresAt:    in.ExpiresAt,
			CreatedAt:    now,
		})
	}

	if err := e.store.SetRolePermissions(ctx, roleID, grants); err != nil {
		return nil, classify(ctx, "set role permissions", err,
			func() error { return invalidReference("role_permission", "permission_ids", "") }, nil)
	}

	e.logger.Debug("role permissions replaced",
		slog.String("role_id", roleID.String()),
		slog.Int("count", len(grants)),
	)
	if e.plugins != nil {
		e.plugins.EmitRolePermissionsReplaced(ctx, roleID, grants)
	}
	e.invalidateAll(ctx)

	out, err := e.store.ListRolePermissions(ctx, roleID)
	if err != nil {
		return nil, storageError(ctx, "list role permissions", err)
	}
	return out, nil
}

func (d *Directory) getRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	r, err := d.engine.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, classify(ctx, "get role", err,
			func() error { return notFound("role", "id", roleID.String()) }, nil)
	}
	return r, nil
}

func (d *Directory) ensureNameFree(ctx context.Context, name string, self id.RoleID) error {
	existing, err := d.engine.store.GetRoleByName(ctx, name)
	switch {
	case err == nil && existing.ID != self:
		return conflict("role", "name", name)
	case err == nil, errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return storageError(ctx, "check role name", err)
	}
}

func (d *Directory) checkRoleRef(ctx context.Context, field string, roleID id.RoleID) error {
	_, err := d.engine.store.GetRole(ctx, roleID)
	if err != nil {
		return classify(ctx, "get role", err,
			func() error { return invalidReference("role", field, roleID.String()) }, nil)
	}
	return nil
}

// checkPermissionRefs reports the first id that does not resolve.
func (e *Engine) checkPermissionRefs(ctx context.Context, permIDs []id.PermissionID) error {
	for _, pid := range permIDs {
		if _, err := e.store.GetPermission(ctx, pid); err != nil {
			return classify(ctx, "get permission", err,
				func() error { return invalidReference("permission", "id", pid.String()) }, nil)
		}
	}
	return nil
}

// dedupIDs drops repeated and nil ids, keeping first-seen order.
func dedupIDs(ids []id.ID) []id.ID {
	seen := make(map[id.ID]struct{}, len(ids))
	out := make([]id.ID, 0, len(ids))
	for _, v := range ids {
		if v.IsNil() {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
