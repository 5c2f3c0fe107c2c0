package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/grantor"
	"github.com/xraph/grantor/grant"
)

func (a *API) registerAssignmentRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("assignments"))

	if err := g.PUT("/users/:userId/roles", a.setUserRoles,
		forge.WithSummary("Set user roles"),
		forge.WithDescription("Replaces every role assignment of a user. An empty list clears the user's roles."),
		forge.WithOperationID("setUserRoles"),
		forge.WithRequestSchema(SetUserRolesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Role assignments", []*grant.UserRole{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/users/:userId/roles", a.listUserRoles,
		forge.WithSummary("List user roles"),
		forge.WithDescription("Returns a user's role assignments with roles and grants attached."),
		forge.WithOperationID("listUserRoles"),
		forge.WithResponseSchema(http.StatusOK, "Role assignments", []*grant.RoleAssignment{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/users/:userId/permissions", a.setUserPermissions,
		forge.WithSummary("Set user permissions"),
		forge.WithDescription("Replaces every direct permission grant of a user. An empty list clears the user's grants."),
		forge.WithOperationID("setUserPermissions"),
		forge.WithRequestSchema(SetUserPermissionsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Direct grants", []*grant.UserPermission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/users/:userId/permissions", a.listUserPermissions,
		forge.WithSummary("List user permissions"),
		forge.WithDescription("Returns a user's direct grants with permissions attached."),
		forge.WithOperationID("listUserPermissions"),
		forge.WithResponseSchema(http.StatusOK, "Direct grants", []*grant.DirectGrant{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) setUserRoles(ctx forge.Context, req *SetUserRolesRequest) ([]*grant.UserRole, error) {
	roleIDs, err := parseRoleIDs("role_ids", req.RoleIDs)
	if err != nil {
		return nil, err
	}
	effect, err := parseEffect(req.Effect)
	if err != nil {
		return nil, err
	}

	out, err := a.eng.Grants().AssignRoles(ctx.Context(), ctx.Param("userId"), &grantor.AssignRolesInput{
		RoleIDs:    roleIDs,
		Effect:     effect,
		Scope:      req.Scope,
		Conditions: req.Conditions,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return out, ctx.JSON(http.StatusOK, out)
}

func (a *API) listUserRoles(ctx forge.Context, _ *UserRequest) ([]*grant.RoleAssignment, error) {
	out, err := a.eng.Grants().RoleAssignmentsOf(ctx.Context(), ctx.Param("userId"))
	if err != nil {
		return nil, mapError(err)
	}
	return out, ctx.JSON(http.StatusOK, out)
}

func (a *API) setUserPermissions(ctx forge.Context, req *SetUserPermissionsRequest) ([]*grant.UserPermission, error) {
	permIDs, err := parsePermissionIDs("permission_ids", req.PermissionIDs)
	if err != nil {
		return nil, err
	}
	effect, err := parseEffect(req.Effect)
	if err != nil {
		return nil, err
	}

	out, err := a.eng.Grants().AssignPermissions(ctx.Context(), ctx.Param("userId"), &grantor.AssignPermissionsInput{
		PermissionIDs: permIDs,
		Effect:        effect,
		Scope:         req.Scope,
		Conditions:    req.Conditions,
		ExpiresAt:     req.ExpiresAt,
		Reason:        req.Reason,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return out, ctx.JSON(http.StatusOK, out)
}

func (a *API) listUserPermissions(ctx forge.Context, _ *UserRequest) ([]*grant.DirectGrant, error) {
	out, err := a.eng.Grants().DirectGrantsOf(ctx.Context(), ctx.Param("userId"))
	if err != nil {
		return nil, mapError(err)
	}
	return out, ctx.JSON(http.StatusOK, out)
}
