// Package audit provides a grantor plugin that writes an audit trail of
// grant changes and resolve summaries to a structured logger.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/grantor"
	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                  = (*Plugin)(nil)
	_ plugin.AfterResolve            = (*Plugin)(nil)
	_ plugin.RolePermissionsReplaced = (*Plugin)(nil)
	_ plugin.UserRolesReplaced       = (*Plugin)(nil)
	_ plugin.UserPermissionsReplaced = (*Plugin)(nil)
	_ plugin.RoleDeleted             = (*Plugin)(nil)
	_ plugin.PermissionDeleted       = (*Plugin)(nil)
	_ plugin.BaselineEnsured         = (*Plugin)(nil)
)

// Plugin logs every grant change at Info and every resolve at the
// configured level.
type Plugin struct {
	logger       *slog.Logger
	resolveLevel slog.Level
}

// Option configures the audit plugin.
type Option func(*Plugin)

// WithResolveLevel sets the level resolve summaries are logged at.
// Defaults to Debug.
func WithResolveLevel(l slog.Level) Option {
	return func(p *Plugin) { p.resolveLevel = l }
}

// New creates an audit plugin writing to logger. A nil logger uses
// slog.Default().
func New(logger *slog.Logger, opts ...Option) *Plugin {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Plugin{logger: logger.With(slog.String("component", "grantor.audit")), resolveLevel: slog.LevelDebug}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return "audit" }

// OnAfterResolve implements plugin.AfterResolve.
func (p *Plugin) OnAfterResolve(ctx context.Context, userID string, result any, err error, elapsed time.Duration) error {
	if err != nil {
		p.logger.WarnContext(ctx, "resolve failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", elapsed),
		)
		return nil
	}
	ep, ok := result.(*grantor.EffectivePermissions)
	if !ok || ep == nil {
		return nil
	}
	s := ep.Summary
	p.logger.Log(ctx, p.resolveLevel, "permissions resolved",
		slog.String("user_id", userID),
		slog.Group("summary",
			slog.Int("allowed_direct", s.AllowedDirectCount),
			slog.Int("denied", s.DeniedCount),
			slog.Int("allowed_role_assignments", s.AllowedRoleAssignmentCount),
			slog.Int("effective", s.EffectiveCount),
			slog.Time("computed_at", s.ComputedAt),
		),
		slog.Duration("elapsed", elapsed),
	)
	return nil
}

// OnRolePermissionsReplaced implements plugin.RolePermissionsReplaced.
func (p *Plugin) OnRolePermissionsReplaced(ctx context.Context, roleID id.RoleID, grants []*grant.RolePermission) error {
	allow, deny := 0, 0
	for _, g := range grants {
		if g.Effect == grant.EffectDeny {
			deny++
		} else {
			allow++
		}
	}
	p.logger.InfoContext(ctx, "role permissions replaced",
		slog.String("role_id", roleID.String()),
		slog.Int("allow", allow),
		slog.Int("deny", deny),
	)
	return nil
}

// OnUserRolesReplaced implements plugin.UserRolesReplaced.
func (p *Plugin) OnUserRolesReplaced(ctx context.Context, userID string, assignments []*grant.UserRole) error {
	roles := make([]string, 0, len(assignments))
	effect := ""
	for _, a := range assignments {
		roles = append(roles, a.RoleID.String())
		effect = string(a.Effect)
	}
	p.logger.InfoContext(ctx, "user roles replaced",
		slog.String("user_id", userID),
		slog.Any("role_ids", roles),
		slog.String("effect", effect),
	)
	return nil
}

// OnUserPermissionsReplaced implements plugin.UserPermissionsReplaced.
// The grant reason is recorded verbatim.
func (p *Plugin) OnUserPermissionsReplaced(ctx context.Context, userID string, grants []*grant.UserPermission) error {
	perms := make([]string, 0, len(grants))
	var effect, reason string
	for _, g := range grants {
		perms = append(perms, g.PermissionID.String())
		effect, reason = string(g.Effect), g.Reason
	}
	p.logger.InfoContext(ctx, "user permissions replaced",
		slog.String("user_id", userID),
		slog.Any("permission_ids", perms),
		slog.String("effect", effect),
		slog.String("reason", reason),
	)
	return nil
}

// OnRoleDeleted implements plugin.RoleDeleted.
func (p *Plugin) OnRoleDeleted(ctx context.Context, roleID id.RoleID) error {
	p.logger.InfoContext(ctx, "role deleted", slog.String("role_id", roleID.String()))
	return nil
}

// OnPermissionDeleted implements plugin.PermissionDeleted.
func (p *Plugin) OnPermissionDeleted(ctx context.Context, permID id.PermissionID) error {
	p.logger.InfoContext(ctx, "permission deleted", slog.String("permission_id", permID.String()))
	return nil
}

// OnBaselineEnsured implements plugin.BaselineEnsured.
func (p *Plugin) OnBaselineEnsured(ctx context.Context, report any) error {
	r, ok := report.(*grantor.BaselineReport)
	if !ok || r == nil {
		return nil
	}
	p.logger.InfoContext(ctx, "system baseline ensured",
		slog.Int("permissions", len(r.Permissions)),
		slog.Int("grants_added", r.GrantsAdded),
		slog.Int("promoted", r.Promoted),
	)
	return nil
}
