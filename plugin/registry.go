package plugin

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/permission"
	"github.com/xraph/grantor/role"
)

// entry pairs a hook with the plugin name for logging.
type entry[H any] struct {
	name string
	hook H
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeResolve           []entry[BeforeResolve]
	afterResolve            []entry[AfterResolve]
	permissionCreated       []entry[PermissionCreated]
	permissionUpdated       []entry[PermissionUpdated]
	permissionDeleted       []entry[PermissionDeleted]
	roleCreated             []entry[RoleCreated]
	roleUpdated             []entry[RoleUpdated]
	roleDeleted             []entry[RoleDeleted]
	rolePermissionsReplaced []entry[RolePermissionsReplaced]
	userRolesReplaced       []entry[UserRolesReplaced]
	userPermissionsReplaced []entry[UserPermissionsReplaced]
	baselineEnsured         []entry[BaselineEnsured]
	shutdown                []entry[Shutdown]
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(BeforeResolve); ok {
		r.beforeResolve = append(r.beforeResolve, entry[BeforeResolve]{name, h})
	}
	if h, ok := p.(AfterResolve); ok {
		r.afterResolve = append(r.afterResolve, entry[AfterResolve]{name, h})
	}
	if h, ok := p.(PermissionCreated); ok {
		r.permissionCreated = append(r.permissionCreated, entry[PermissionCreated]{name, h})
	}
	if h, ok := p.(PermissionUpdated); ok {
		r.permissionUpdated = append(r.permissionUpdated, entry[PermissionUpdated]{name, h})
	}
	if h, ok := p.(PermissionDeleted); ok {
		r.permissionDeleted = append(r.permissionDeleted, entry[PermissionDeleted]{name, h})
	}
	if h, ok := p.(RoleCreated); ok {
		r.roleCreated = append(r.roleCreated, entry[RoleCreated]{name, h})
	}
	if h, ok := p.(RoleUpdated); ok {
		r.roleUpdated = append(r.roleUpdated, entry[RoleUpdated]{name, h})
	}
	if h, ok := p.(RoleDeleted); ok {
		r.roleDeleted = append(r.roleDeleted, entry[RoleDeleted]{name, h})
	}
	if h, ok := p.(RolePermissionsReplaced); ok {
		r.rolePermissionsReplaced = append(r.rolePermissionsReplaced, entry[RolePermissionsReplaced]{name, h})
	}
	if h, ok := p.(UserRolesReplaced); ok {
		r.userRolesReplaced = append(r.userRolesReplaced, entry[UserRolesReplaced]{name, h})
	}
	if h, ok := p.(UserPermissionsReplaced); ok {
		r.userPermissionsReplaced = append(r.userPermissionsReplaced, entry[UserPermissionsReplaced]{name, h})
	}
	if h, ok := p.(BaselineEnsured); ok {
		r.baselineEnsured = append(r.baselineEnsured, entry[BaselineEnsured]{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, entry[Shutdown]{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// ──────────────────────────────────────────────────
// Resolve event emitters
// ──────────────────────────────────────────────────

// EmitBeforeResolve notifies all plugins that implement BeforeResolve.
func (r *Registry) EmitBeforeResolve(ctx context.Context, userID string) {
	for _, e := range r.beforeResolve {
		if err := e.hook.OnBeforeResolve(ctx, userID); err != nil {
			r.logHookError("OnBeforeResolve", e.name, err)
		}
	}
}

// EmitAfterResolve notifies all plugins that implement AfterResolve.
func (r *Registry) EmitAfterResolve(ctx context.Context, userID string, result any, resolveErr error, elapsed time.Duration) {
	for _, e := range r.afterResolve {
		if err := e.hook.OnAfterResolve(ctx, userID, result, resolveErr, elapsed); err != nil {
			r.logHookError("OnAfterResolve", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Permission event emitters
// ──────────────────────────────────────────────────

// EmitPermissionCreated notifies all plugins that implement PermissionCreated.
func (r *Registry) EmitPermissionCreated(ctx context.Context, p *permission.Permission) {
	for _, e := range r.permissionCreated {
		if err := e.hook.OnPermissionCreated(ctx, p); err != nil {
			r.logHookError("OnPermissionCreated", e.name, err)
		}
	}
}

// EmitPermissionUpdated notifies all plugins that implement PermissionUpdated.
func (r *Registry) EmitPermissionUpdated(ctx context.Context, p *permission.Permission) {
	for _, e := range r.permissionUpdated {
		if err := e.hook.OnPermissionUpdated(ctx, p); err != nil {
			r.logHookError("OnPermissionUpdated", e.name, err)
		}
	}
}

// EmitPermissionDeleted notifies all plugins that implement PermissionDeleted.
func (r *Registry) EmitPermissionDeleted(ctx context.Context, permID id.PermissionID) {
	for _, e := range r.permissionDeleted {
		if err := e.hook.OnPermissionDeleted(ctx, permID); err != nil {
			r.logHookError("OnPermissionDeleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Role event emitters
// ──────────────────────────────────────────────────

// EmitRoleCreated notifies all plugins that implement RoleCreated.
func (r *Registry) EmitRoleCreated(ctx context.Context, rl *role.Role) {
	for _, e := range r.roleCreated {
		if err := e.hook.OnRoleCreated(ctx, rl); err != nil {
			r.logHookError("OnRoleCreated", e.name, err)
		}
	}
}

// EmitRoleUpdated notifies all plugins that implement RoleUpdated.
func (r *Registry) EmitRoleUpdated(ctx context.Context, rl *role.Role) {
	for _, e := range r.roleUpdated {
		if err := e.hook.OnRoleUpdated(ctx, rl); err != nil {
			r.logHookError("OnRoleUpdated", e.name, err)
		}
	}
}

// EmitRoleDeleted notifies all plugins that implement RoleDeleted.
func (r *Registry) EmitRoleDeleted(ctx context.Context, roleID id.RoleID) {
	for _, e := range r.roleDeleted {
		if err := e.hook.OnRoleDeleted(ctx, roleID); err != nil {
			r.logHookError("OnRoleDeleted", e.name, err)
		}
	}
}

// EmitRolePermissionsReplaced notifies all plugins that implement RolePermissionsReplaced.
func (r *Registry) EmitRolePermissionsReplaced(ctx context.Context, roleID id.RoleID, grants []*grant.RolePermission) {
	for _, e := range r.rolePermissionsReplaced {
		if err := e.hook.OnRolePermissionsReplaced(ctx, roleID, grants); err != nil {
			r.logHookError("OnRolePermissionsReplaced", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// User grant event emitters
// ──────────────────────────────────────────────────

// EmitUserRolesReplaced notifies all plugins that implement UserRolesReplaced.
func (r *Registry) EmitUserRolesReplaced(ctx context.Context, userID string, assignments []*grant.UserRole) {
	for _, e := range r.userRolesReplaced {
		if err := e.hook.OnUserRolesReplaced(ctx, userID, assignments); err != nil {
			r.logHookError("OnUserRolesReplaced", e.name, err)
		}
	}
}

// EmitUserPermissionsReplaced notifies all plugins that implement UserPermissionsReplaced.
func (r *Registry) EmitUserPermissionsReplaced(ctx context.Context, userID string, grants []*grant.UserPermission) {
	for _, e := range r.userPermissionsReplaced {
		if err := e.hook.OnUserPermissionsReplaced(ctx, userID, grants); err != nil {
			r.logHookError("OnUserPermissionsReplaced", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Bootstrap and shutdown emitters
// ──────────────────────────────────────────────────

// EmitBaselineEnsured notifies all plugins that implement BaselineEnsured.
func (r *Registry) EmitBaselineEnsured(ctx context.Context, report any) {
	for _, e := range r.baselineEnsured {
		if err := e.hook.OnBaselineEnsured(ctx, report); err != nil {
			r.logHookError("OnBaselineEnsured", e.name, err)
		}
	}
}

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated; they must not block the caller.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
