package grantor

import (
	"context"

	"github.com/xraph/forge"
)

type contextKey int

const ctxKeyUserID contextKey = iota

// WithUser returns a context carrying the acting user's id.
// Use this for standalone mode (without Forge).
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// UserFromContext returns the acting user's id. An id set with WithUser
// wins over the one Forge's auth layer stored; "" means anonymous.
func UserFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserID).(string); ok && v != "" {
		return v
	}
	return forge.UserIDFromContext(ctx)
}
