package grantor

import "context"

// Cache provides caching for resolved effective permissions.
//
// The engine reads through it in Resolve and invalidates it after every
// successful mutation: user edge changes drop that user's entry, role and
// permission changes drop everything.
type Cache interface {
	// Get returns a cached result, if available.
	Get(ctx context.Context, userID string) (*EffectivePermissions, bool)

	// Set stores a result in the cache.
	Set(ctx context.Context, userID string, result *EffectivePermissions)

	// InvalidateUser removes the cached result for one user.
	InvalidateUser(ctx context.Context, userID string)

	// InvalidateAll removes every cached result.
	InvalidateAll(ctx context.Context)
}
