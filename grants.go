package grantor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
)

// Grants manages the user edges: role assignments and direct permission
// grants. Both are replaced wholesale.
type Grants struct {
	engine *Engine
}

// AssignRolesInput replaces the role assignments of a user. Every role
// receives the same Effect (allow by default), Scope, Conditions and
// ExpiresAt. An empty RoleIDs clears the user's roles.
type AssignRolesInput struct {
	RoleIDs    []id.RoleID    `json:"role_ids"`
	Effect     grant.Effect   `json:"effect,omitempty" validate:"omitempty,oneof=allow deny"`
	Scope      *string        `json:"scope,omitempty" validate:"omitempty,max=100"`
	Conditions map[string]any `json:"conditions,omitempty"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
}

// AssignPermissionsInput replaces the direct grants of a user.
type AssignPermissionsInput struct {
	PermissionIDs []id.PermissionID `json:"permission_ids"`
	Effect        grant.Effect      `json:"effect,omitempty" validate:"omitempty,oneof=allow deny"`
	Scope         *string           `json:"scope,omitempty" validate:"omitempty,max=100"`
	Conditions    map[string]any    `json:"conditions,omitempty"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	Reason        string            `json:"reason,omitempty" validate:"max=500"`
}

// AssignRoles validates every role id, then replaces the user's role
// assignments in one transaction.
func (g *Grants) AssignRoles(ctx context.Context, userID string, in *AssignRolesInput) ([]*grant.UserRole, error) {
	e := g.engine
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	if err := e.validateInput("user_role", in); err != nil {
		return nil, err
	}
	roleIDs := dedupIDs(in.RoleIDs)
	for _, rid := range roleIDs {
		if err := e.directory.checkRoleRef(ctx, "role_ids", rid); err != nil {
			return nil, err
		}
	}

	effect := effectOrAllow(in.Effect)
	now := e.now()
	assignments := make([]*grant.UserRole, 0, len(roleIDs))
	for _, rid := range roleIDs {
		assignments = append(assignments, &grant.UserRole{
			UserID:     userID,
			RoleID:     rid,
			Effect:     effect,
			Scope:      normalizeScope(in.Scope),
			Conditions: in.Conditions,
			ExpiresAt:  in.ExpiresAt,
			CreatedAt:  now,
		})
	}

	if err := e.store.SetUserRoles(ctx, userID, assignments); err != nil {
		return nil, classify(ctx, "set user roles", err,
			func() error { return invalidReference("user_role", "role_ids", "") }, nil)
	}

	e.logger.Debug("user roles replaced",
		slog.String("user_id", userID),
		slog.Int("count", len(assignments)),
		slog.String("effect", string(effect)),
	)
	if e.plugins != nil {
		e.plugins.EmitUserRolesReplaced(ctx, userID, assignments)
	}
	e.invalidateUser(ctx, userID)
	return assignments, nil
}

// AssignPermissions validates every permission id, then replaces the
// user's direct grants in one transaction.
func (g *Grants) AssignPermissions(ctx context.Context, userID string, in *AssignPermissionsInput) ([]*grant.UserPermission, error) {
	e := g.engine
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	if err := e.validateInput("user_permission", in); err != nil {
		return nil, err
	}
	permIDs := dedupIDs(in.PermissionIDs)
	if err := e.checkPermissionRefs(ctx, permIDs); err != nil {
		return nil, err
	}

	effect := effectOrAllow(in.Effect)
	now := e.now()
	grants := make([]*grant.UserPermission, 0, len(permIDs))
	for _, pid := range permIDs {
		grants = append(grants, &grant.UserPermission{
			UserID:       userID,
			PermissionID: pid,
			Effect:       effect,
			Scope:        normalizeScope(in.Scope),
			Conditions:   in.Conditions,
			ExpiresAt:    in.ExpiresAt,
			Reason:       in.Reason,
			CreatedAt:    now,
		})
	}

	if err := e.store.SetUserPermissions(ctx, userID, grants); err != nil {
		return nil, classify(ctx, "set user permissions", err,
			func() error { return invalidReference("user_permission", "permission_ids", "") }, nil)
	}

	e.logger.Debug("user permissions replaced",
		slog.String("user_id", userID),
		slog.Int("count", len(grants)),
		slog.String("effect", string(effect)),
	)
	if e.plugins != nil {
		e.plugins.EmitUserPermissionsReplaced(ctx, userID, grants)
	}
	e.invalidateUser(ctx, userID)
	return grants, nil
}

// RoleAssignmentsOf returns the user's role assignments with each role
// and its grants attached.
func (g *Grants) RoleAssignmentsOf(ctx context.Context, userID string) ([]*grant.RoleAssignment, error) {
	out, err := g.engine.store.ListRoleAssignments(ctx, userID)
	if err != nil {
		return nil, storageError(ctx, "list role assignments", err)
	}
	return out, nil
}

// DirectGrantsOf returns the user's direct grants with permissions attached.
func (g *Grants) DirectGrantsOf(ctx context.Context, userID string) ([]*grant.DirectGrant, error) {
	out, err := g.engine.store.ListDirectGrants(ctx, userID)
	if err != nil {
		return nil, storageError(ctx, "list direct grants", err)
	}
	return out, nil
}

func checkUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return invalidInput("user", "user_id", userID, errors.New("user id is required"))
	}
	return nil
}

func effectOrAllow(e grant.Effect) grant.Effect {
	if e == "" {
		return grant.EffectAllow
	}
	return e
}
