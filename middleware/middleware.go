// Package middleware provides HTTP authorization middleware for grantor.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/grantor"
)

// Permission names a resource and action pair.
type Permission struct {
	Resource string
	Action   string
}

// RequirePermission allows the request only if the acting user's
// effective permissions cover resource and action. The user comes from
// grantor.UserFromContext; anonymous requests are denied.
func RequirePermission(eng *grantor.Engine, resource, action string) forge.Middleware {
	return RequireAll(eng, Permission{Resource: resource, Action: action})
}

// RequireAny allows the request if ANY of the permissions is held.
func RequireAny(eng *grantor.Engine, perms ...Permission) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			ep, ok := resolve(ctx, eng)
			if !ok {
				return denyResponse(ctx)
			}
			for _, p := range perms {
				if ep.Grants(p.Resource, p.Action) {
					return next(ctx)
				}
			}
			return denyResponse(ctx)
		}
	}
}

// RequireAll allows the request only if ALL permissions are held.
func RequireAll(eng *grantor.Engine, perms ...Permission) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			ep, ok := resolve(ctx, eng)
			if !ok {
				return denyResponse(ctx)
			}
			for _, p := range perms {
				if !ep.Grants(p.Resource, p.Action) {
					return denyResponse(ctx)
				}
			}
			return next(ctx)
		}
	}
}

// resolve computes the acting user's permissions once per request.
func resolve(ctx forge.Context, eng *grantor.Engine) (*grantor.EffectivePermissions, bool) {
	return resolveUser(ctx.Context(), eng)
}

// resolveUser resolves the user carried by ctx. Anonymous requests and
// resolution errors deny; errors are logged at Warn.
func resolveUser(ctx context.Context, eng *grantor.Engine) (*grantor.EffectivePermissions, bool) {
	userID := grantor.UserFromContext(ctx)
	if userID == "" {
		return nil, false
	}
	ep, err := eng.Resolve(ctx, userID)
	if err != nil {
		eng.Logger().WarnContext(ctx, "grantor: authorization resolve failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return ep, true
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(http.StatusForbidden)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "access denied"})
}
