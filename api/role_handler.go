package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/grantor"
	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/role"
)

func (a *API) registerRoleRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("roles"))

	if err := g.POST("/roles", a.createRole,
		forge.WithSummary("Create role"),
		forge.WithDescription("Creates a role together with its initial allow grants."),
		forge.WithOperationID("createRole"),
		forge.WithRequestSchema(CreateRoleRequest{}),
		forge.WithCreatedResponse(&grantor.RoleDetail{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/roles/:roleId", a.getRole,
		forge.WithSummary("Get role"),
		forge.WithDescription("Returns a role with its permission grants and immediate children."),
		forge.WithOperationID("getRole"),
		forge.WithResponseSchema(http.StatusOK, "Role details", &grantor.RoleDetail{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/roles/:roleId", a.updateRole,
		forge.WithSummary("Update role"),
		forge.WithDescription("Updates an existing role. System roles cannot be deactivated."),
		forge.WithOperationID("updateRole"),
		forge.WithRequestSchema(UpdateRoleRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated role", &role.Role{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/roles/:roleId", a.deleteRole,
		forge.WithSummary("Delete role"),
		forge.WithDescription("Deletes a role with its grants and user assignments. System roles cannot be deleted."),
		forge.WithOperationID("deleteRole"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/roles", a.listRoles,
		forge.WithSummary("Search roles"),
		forge.WithDescription("Returns one page of roles matching the filters."),
		forge.WithOperationID("listRoles"),
		forge.WithRequestSchema(ListRolesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Role page", ListResponse[*role.Role]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.PUT("/roles/:roleId/permissions", a.setRolePermissions,
		forge.WithSummary("Set role permissions"),
		forge.WithDescription("Replaces every permission grant of a role. An empty list clears the role."),
		forge.WithOperationID("setRolePermissions"),
		forge.WithRequestSchema(SetRolePermissionsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Role grants", []*grant.RolePermissionGrant{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createRole(ctx forge.Context, req *CreateRoleRequest) (*grantor.RoleDetail, error) {
	parentID, err := parseOptionalRoleID("parent_id", req.ParentID)
	if err != nil {
		return nil, err
	}
	permIDs, err := parsePermissionIDs("permission_ids", req.PermissionIDs)
	if err != nil {
		return nil, err
	}

	r, err := a.eng.Directory().Create(ctx.Context(), &grantor.CreateRoleInput{
		Name:          req.Name,
		DisplayName:   req.DisplayName,
		Description:   req.Description,
		ParentID:      parentID,
		Priority:      req.Priority,
		PermissionIDs: permIDs,
		Metadata:      req.Metadata,
		IsSystem:      req.IsSystem,
		IsActive:      req.IsActive,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return r, ctx.JSON(http.StatusCreated, r)
}

func (a *API) getRole(ctx forge.Context, _ *GetRoleRequest) (*grantor.RoleDetail, error) {
	roleID, err := parseRoleParam(ctx)
	if err != nil {
		return nil, err
	}

	r, err := a.eng.Directory().Get(ctx.Context(), roleID)
	if err != nil {
		return nil, mapError(err)
	}
	return r, ctx.JSON(http.StatusOK, r)
}

func (a *API) updateRole(ctx forge.Context, req *UpdateRoleRequest) (*role.Role, error) {
	roleID, err := parseRoleParam(ctx)
	if err != nil {
		return nil, err
	}
	parentID, err := parseOptionalRoleID("parent_id", req.ParentID)
	if err != nil {
		return nil, err
	}

	r, err := a.eng.Directory().Update(ctx.Context(), roleID, &grantor.UpdateRoleInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		ParentID:    parentID,
		ClearParent: req.ClearParent,
		Priority:    req.Priority,
		IsActive:    req.IsActive,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return r, ctx.JSON(http.StatusOK, r)
}

func (a *API) deleteRole(ctx forge.Context, _ *GetRoleRequest) (*struct{}, error) {
	roleID, err := parseRoleParam(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.eng.Directory().Delete(ctx.Context(), roleID); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listRoles(ctx forge.Context, req *ListRolesRequest) (*ListResponse[*role.Role], error) {
	parentID, err := parseOptionalRoleID("parent_id", req.ParentID)
	if err != nil {
		return nil, err
	}
	filter := &role.ListFilter{
		Search:   req.Search,
		IsActive: req.IsActive,
		ParentID: parentID,
		SortBy:   role.SortField(req.SortBy),
		SortDesc: req.SortDesc,
	}

	page, err := a.eng.Directory().Search(ctx.Context(), filter, grantor.Page{Index: req.Page, Size: req.PageSize})
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*role.Role]{
		Items:    page.Items,
		Total:    page.Total,
		Page:     page.Page.Index,
		PageSize: page.Page.Size,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) setRolePermissions(ctx forge.Context, req *SetRolePermissionsRequest) ([]*grant.RolePermissionGrant, error) {
	roleID, err := parseRoleParam(ctx)
	if err != nil {
		return nil, err
	}
	permIDs, err := parsePermissionIDs("permission_ids", req.PermissionIDs)
	if err != nil {
		return nil, err
	}
	effect, err := parseEffect(req.Effect)
	if err != nil {
		return nil, err
	}

	grants, err := a.eng.Directory().AssignPermissions(ctx.Context(), roleID, &grantor.AssignRolePermissionsInput{
		PermissionIDs: permIDs,
		Effect:        effect,
		Conditions:    req.Conditions,
		ExpiresAt:     req.ExpiresAt,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return grants, ctx.JSON(http.StatusOK, grants)
}
