package grantor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/permission"
	"github.com/xraph/grantor/store"
)

// Catalog manages permissions.
type Catalog struct {
	engine *Engine
}

// CreatePermissionInput is the input to Catalog.Create. DisplayName
// defaults to Name, Category to Resource and IsActive to true.
type CreatePermissionInput struct {
	Name        string         `json:"name" validate:"required,max=255"`
	DisplayName string         `json:"display_name,omitempty" validate:"max=255"`
	Description string         `json:"description,omitempty"`
	Resource    string         `json:"resource" validate:"required,max=100"`
	Action      string         `json:"action" validate:"required,max=100"`
	Scope       *string        `json:"scope,omitempty" validate:"omitempty,max=100"`
	Category    string         `json:"category,omitempty" validate:"max=100"`
	Conditions  map[string]any `json:"conditions,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IsSystem    bool           `json:"is_system,omitempty"`
	IsActive    *bool          `json:"is_active,omitempty"`
}

// UpdatePermissionInput is a patch: nil fields are left unchanged.
// ClearScope removes the scope; it wins over Scope.
type UpdatePermissionInput struct {
	Name        *string        `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	DisplayName *string        `json:"display_name,omitempty" validate:"omitempty,max=255"`
	Description *string        `json:"description,omitempty"`
	Resource    *string        `json:"resource,omitempty" validate:"omitempty,min=1,max=100"`
	Action      *string        `json:"action,omitempty" validate:"omitempty,min=1,max=100"`
	Scope       *string        `json:"scope,omitempty" validate:"omitempty,max=100"`
	ClearScope  bool           `json:"clear_scope,omitempty"`
	Category    *string        `json:"category,omitempty" validate:"omitempty,max=100"`
	Conditions  map[string]any `json:"conditions,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IsActive    *bool          `json:"is_active,omitempty"`
}

// Create adds a permission. It fails with ErrConflict when the
// (resource, action, scope) triple is taken.
func (c *Catalog) Create(ctx context.Context, in *CreatePermissionInput) (*permission.Permission, error) {
	e := c.engine
	if err := e.validateInput("permission", in); err != nil {
		return nil, err
	}

	now := e.now()
	p := &permission.Permission{
		ID:          id.NewPermissionID(),
		Name:        in.Name,
		DisplayName: in.DisplayName,
		Description: in.Description,
		Resource:    in.Resource,
		Action:      in.Action,
		Scope:       normalizeScope(in.Scope),
		Category:    in.Category,
		Conditions:  in.Conditions,
		Metadata:    in.Metadata,
		IsSystem:    in.IsSystem,
		IsActive:    boolOr(in.IsActive, true),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.DisplayName == "" {
		p.DisplayName = p.Name
	}
	if p.Category == "" {
		p.Category = p.Resource
	}

	key := p.Key()
	if err := c.ensureKeyFree(ctx, key, id.Nil); err != nil {
		return nil, err
	}
	if err := e.store.CreatePermission(ctx, p); err != nil {
		return nil, classify(ctx, "create permission", err, nil, func() error {
			return conflict("permission", "key", key.String())
		})
	}

	e.logger.Debug("permission created",
		slog.String("permission_id", p.ID.String()),
		slog.String("key", key.String()),
	)
	if e.plugins != nil {
		e.plugins.EmitPermissionCreated(ctx, p)
	}
	return p, nil
}

// Update applies a patch to a permission. Deactivating a system
// permission fails with ErrForbidden; moving onto a taken triple fails
// with ErrConflict.
func (c *Catalog) Update(ctx context.Context, permID id.PermissionID, in *UpdatePermissionInput) (*permission.Permission, error) {
	e := c.engine
	if err := e.validateInput("permission", in); err != nil {
		return nil, err
	}
	p, err := c.Get(ctx, permID)
	if err != nil {
		return nil, err
	}
	if p.IsSystem && in.IsActive != nil && !*in.IsActive {
		return nil, forbidden("permission", "is_active", p.Key().String())
	}

	oldKey := p.Key()
	applyString(&p.Name, in.Name)
	applyString(&p.DisplayName, in.DisplayName)
	applyString(&p.Description, in.Description)
	applyString(&p.Resource, in.Resource)
	applyString(&p.Action, in.Action)
	applyString(&p.Category, in.Category)
	switch {
	case in.ClearScope:
		p.Scope = nil
	case in.Scope != nil:
		p.Scope = normalizeScope(in.Scope)
	}
	if in.Conditions != nil {
		p.Conditions = in.Conditions
	}
	if in.Metadata != nil {
		p.Metadata = in.Metadata
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	p.UpdatedAt = e.now()

	key := p.Key()
	if key != oldKey {
		if err := c.ensureKeyFree(ctx, key, p.ID); err != nil {
			return nil, err
		}
	}
	if err := e.store.UpdatePermission(ctx, p); err != nil {
		return nil, classify(ctx, "update permission", err,
			func() error { return notFound("permission", "id", permID.String()) },
			func() error { return conflict("permission", "key", key.String()) },
		)
	}

	e.logger.Debug("permission updated", slog.String("permission_id", p.ID.String()))
	if e.plugins != nil {
		e.plugins.EmitPermissionUpdated(ctx, p)
	}
	e.invalidateAll(ctx)
	return p, nil
}

// Delete removes a permission and every grant that references it.
// System permissions cannot be deleted.
func (c *Catalog) Delete(ctx context.Context, permID id.PermissionID) error {
	e := c.engine
	p, err := c.Get(ctx, permID)
	if err != nil {
		return err
	}
	if p.IsSystem {
		return forbidden("permission", "id", permID.String())
	}
	if err := e.store.DeletePermission(ctx, permID); err != nil {
		return classify(ctx, "delete permission", err,
			func() error { return notFound("permission", "id", permID.String()) }, nil)
	}

	e.logger.Debug("permission deleted", slog.String("permission_id", permID.String()))
	if e.plugins != nil {
		e.plugins.EmitPermissionDeleted(ctx, permID)
	}
	e.invalidateAll(ctx)
	return nil
}

// Get returns a permission by id.
func (c *Catalog) Get(ctx context.Context, permID id.PermissionID) (*permission.Permission, error) {
	p, err := c.engine.store.GetPermission(ctx, permID)
	if err != nil {
		return nil, classify(ctx, "get permission", err,
			func() error { return notFound("permission", "id", permID.String()) }, nil)
	}
	return p, nil
}

// GetByKey returns the permission with the given (resource, action, scope).
func (c *Catalog) GetByKey(ctx context.Context, resource, action string, scope *string) (*permission.Permission, error) {
	key := permission.NewKey(resource, action, normalizeScope(scope))
	p, err := c.engine.store.GetPermissionByKey(ctx, key)
	if err != nil {
		return nil, classify(ctx, "get permission by key", err,
			func() error { return notFound("permission", "key", key.String()) }, nil)
	}
	return p, nil
}

// Search returns one page of permissions matching filter, plus the total
// match count. Results are ordered by filter.SortBy (name by default);
// filter.Limit and filter.Offset are ignored in favor of page.
func (c *Catalog) Search(ctx context.Context, filter *permission.ListFilter, page Page) (*PermissionPage, error) {
	e := c.engine
	if err := e.validateInput("page", &page); err != nil {
		return nil, err
	}
	f := permission.ListFilter{}
	if filter != nil {
		f = *filter
	}
	f.Limit, f.Offset = e.config.pageBounds(page)

	items, err := e.store.ListPermissions(ctx, &f)
	if err != nil {
		return nil, storageError(ctx, "search permissions", err)
	}
	total, err := e.store.CountPermissions(ctx, &f)
	if err != nil {
		return nil, storageError(ctx, "count permissions", err)
	}
	return &PermissionPage{Items: items, Total: total, Page: Page{Index: page.Index, Size: f.Limit}}, nil
}

func (c *Catalog) ensureKeyFree(ctx context.Context, key permission.Key, self id.PermissionID) error {
	existing, err := c.engine.store.GetPermissionByKey(ctx, key)
	switch {
	case err == nil && existing.ID != self:
		return conflict("permission", "key", key.String())
	case err == nil, errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return storageError(ctx, "check permission key", err)
	}
}

// normalizeScope treats an empty scope as no scope.
func normalizeScope(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
