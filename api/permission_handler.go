package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/grantor"
	"github.com/xraph/grantor/permission"
)

func (a *API) registerPermissionRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("permissions"))

	if err := g.POST("/permissions", a.createPermission,
		forge.WithSummary("Create permission"),
		forge.WithDescription("Creates a new permission. The (resource, action, scope) triple must be unique."),
		forge.WithOperationID("createPermission"),
		forge.WithRequestSchema(CreatePermissionRequest{}),
		forge.WithCreatedResponse(&permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/permissions/:permissionId", a.getPermission,
		forge.WithSummary("Get permission"),
		forge.WithOperationID("getPermission"),
		forge.WithResponseSchema(http.StatusOK, "Permission details", &permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/permissions/:permissionId", a.updatePermission,
		forge.WithSummary("Update permission"),
		forge.WithDescription("Updates a permission. System permissions cannot be deactivated."),
		forge.WithOperationID("updatePermission"),
		forge.WithRequestSchema(UpdatePermissionRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated permission", &permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/permissions/:permissionId", a.deletePermission,
		forge.WithSummary("Delete permission"),
		forge.WithDescription("Deletes a permission and every grant referencing it. System permissions cannot be deleted."),
		forge.WithOperationID("deletePermission"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/permissions", a.listPermissions,
		forge.WithSummary("Search permissions"),
		forge.WithDescription("Returns one page of permissions matching the filters."),
		forge.WithOperationID("listPermissions"),
		forge.WithRequestSchema(ListPermissionsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Permission page", ListResponse[*permission.Permission]{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createPermission(ctx forge.Context, req *CreatePermissionRequest) (*permission.Permission, error) {
	p, err := a.eng.Catalog().Create(ctx.Context(), &grantor.CreatePermissionInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Resource:    req.Resource,
		Action:      req.Action,
		Scope:       req.Scope,
		Category:    req.Category,
		Conditions:  req.Conditions,
		Metadata:    req.Metadata,
		IsSystem:    req.IsSystem,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return p, ctx.JSON(http.StatusCreated, p)
}

func (a *API) getPermission(ctx forge.Context, _ *GetPermissionRequest) (*permission.Permission, error) {
	permID, err := parsePermissionParam(ctx)
	if err != nil {
		return nil, err
	}

	p, err := a.eng.Catalog().Get(ctx.Context(), permID)
	if err != nil {
		return nil, mapError(err)
	}
	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) updatePermission(ctx forge.Context, req *UpdatePermissionRequest) (*permission.Permission, error) {
	permID, err := parsePermissionParam(ctx)
	if err != nil {
		return nil, err
	}

	p, err := a.eng.Catalog().Update(ctx.Context(), permID, &grantor.UpdatePermissionInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Resource:    req.Resource,
		Action:      req.Action,
		Scope:       req.Scope,
		ClearScope:  req.ClearScope,
		Category:    req.Category,
		Conditions:  req.Conditions,
		Metadata:    req.Metadata,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) deletePermission(ctx forge.Context, _ *GetPermissionRequest) (*struct{}, error) {
	permID, err := parsePermissionParam(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.eng.Catalog().Delete(ctx.Context(), permID); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listPermissions(ctx forge.Context, req *ListPermissionsRequest) (*ListResponse[*permission.Permission], error) {
	filter := &permission.ListFilter{
		Search:   req.Search,
		Resource: req.Resource,
		Action:   req.Action,
		Category: req.Category,
		IsActive: req.IsActive,
		SortBy:   permission.SortField(req.SortBy),
		SortDesc: req.SortDesc,
	}

	page, err := a.eng.Catalog().Search(ctx.Context(), filter, grantor.Page{Index: req.Page, Size: req.PageSize})
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*permission.Permission]{
		Items:    page.Items,
		Total:    page.Total,
		Page:     page.Page.Index,
		PageSize: page.Page.Size,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}
