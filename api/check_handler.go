package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/grantor"
)

func (a *API) registerCheckRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("authorization"))

	if err := g.GET("/users/:userId/effective-permissions", a.effectivePermissions,
		forge.WithSummary("Resolve effective permissions"),
		forge.WithDescription("Computes the deduplicated permission set of a user. A deny from any source vetoes the permission."),
		forge.WithOperationID("effectivePermissions"),
		forge.WithResponseSchema(http.StatusOK, "Effective permissions", &grantor.EffectivePermissions{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/authz/check", a.check,
		forge.WithSummary("Permission check"),
		forge.WithDescription("Reports whether any effective permission of the user covers the resource and action."),
		forge.WithOperationID("authzCheck"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Check result", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/bootstrap", a.bootstrap,
		forge.WithSummary("Ensure system baseline"),
		forge.WithDescription("Idempotently installs the system permissions and roles."),
		forge.WithOperationID("bootstrap"),
		forge.WithResponseSchema(http.StatusOK, "Baseline report", &grantor.BaselineReport{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) effectivePermissions(ctx forge.Context, _ *UserRequest) (*grantor.EffectivePermissions, error) {
	ep, err := a.eng.Resolve(ctx.Context(), ctx.Param("userId"))
	if err != nil {
		return nil, mapError(err)
	}
	return ep, ctx.JSON(http.StatusOK, ep)
}

func (a *API) check(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	if req.UserID == "" || req.Resource == "" || req.Action == "" {
		return nil, forge.BadRequest("user_id, resource, and action are required")
	}

	allowed, err := a.eng.Has(ctx.Context(), req.UserID, req.Resource, req.Action)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &CheckResponse{UserID: req.UserID, Resource: req.Resource, Action: req.Action, Allowed: allowed}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) bootstrap(ctx forge.Context, _ *struct{}) (*grantor.BaselineReport, error) {
	report, err := a.eng.Seeder().EnsureSystemBaseline(ctx.Context())
	if err != nil {
		return nil, mapError(err)
	}
	return report, ctx.JSON(http.StatusOK, report)
}
