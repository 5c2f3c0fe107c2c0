package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/grantor"
	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
)

// mapError maps domain errors to Forge HTTP errors. Cancellation passes
// through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, grantor.ErrInvalidReference):
		return forge.BadRequest(err.Error())
	case errors.Is(err, grantor.ErrNotFound):
		return forge.NotFound(err.Error())
	case errors.Is(err, grantor.ErrForbidden):
		return forge.Forbidden(err.Error())
	case errors.Is(err, grantor.ErrConflict):
		return forge.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, grantor.ErrInvalidInput):
		return forge.BadRequest(err.Error())
	case errors.Is(err, grantor.ErrStorageUnavailable):
		return forge.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return err
}

func parseRoleParam(ctx forge.Context) (id.RoleID, error) {
	roleID, err := id.ParseRoleID(ctx.Param("roleId"))
	if err != nil {
		return id.Nil, forge.BadRequest(fmt.Sprintf("invalid role ID: %v", err))
	}
	return roleID, nil
}

func parsePermissionParam(ctx forge.Context) (id.PermissionID, error) {
	permID, err := id.ParsePermissionID(ctx.Param("permissionId"))
	if err != nil {
		return id.Nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}
	return permID, nil
}

func parseRoleIDs(field string, ss []string) ([]id.RoleID, error) {
	ids, err := id.ParseRoleIDs(ss)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid %s: %v", field, err))
	}
	return ids, nil
}

func parsePermissionIDs(field string, ss []string) ([]id.PermissionID, error) {
	ids, err := id.ParsePermissionIDs(ss)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid %s: %v", field, err))
	}
	return ids, nil
}

func parseOptionalRoleID(field, s string) (*id.RoleID, error) {
	if s == "" {
		return nil, nil //nolint:nilnil // absent optional ID
	}
	rid, err := id.ParseRoleID(s)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid %s: %v", field, err))
	}
	return &rid, nil
}

func parseEffect(s string) (grant.Effect, error) {
	e := grant.Effect(s)
	if s != "" && !e.Valid() {
		return "", forge.BadRequest(fmt.Sprintf("invalid effect %q: must be allow or deny", s))
	}
	return e, nil
}
