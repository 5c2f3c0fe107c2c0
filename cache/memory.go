// Package cache provides caching implementations for grantor resolve results.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xraph/grantor"
)

// Compile-time interface check.
var _ grantor.Cache = (*Memory)(nil)

// Memory is an in-process LRU cache with TTL-based expiration, keyed by
// user id. Cached results are shared; callers must not modify them.
type Memory struct {
	lru     *expirable.LRU[string, *grantor.EffectivePermissions]
	ttl     time.Duration
	maxSize int
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the cache entry time-to-live. Zero disables expiry.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithMaxSize sets the maximum number of cache entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		ttl:     5 * time.Minute,
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lru = expirable.NewLRU[string, *grantor.EffectivePermissions](m.maxSize, nil, m.ttl)
	return m
}

// Get returns a cached resolve result.
func (m *Memory) Get(_ context.Context, userID string) (*grantor.EffectivePermissions, bool) {
	return m.lru.Get(userID)
}

// Set stores a resolve result.
func (m *Memory) Set(_ context.Context, userID string, result *grantor.EffectivePermissions) {
	m.lru.Add(userID, result)
}

// InvalidateUser removes the cached result of one user.
func (m *Memory) InvalidateUser(_ context.Context, userID string) {
	m.lru.Remove(userID)
}

// InvalidateAll removes every cached result.
func (m *Memory) InvalidateAll(_ context.Context) {
	m.lru.Purge()
}

// Len returns the number of cached results, including expired entries
// not yet reaped.
func (m *Memory) Len() int { return m.lru.Len() }
