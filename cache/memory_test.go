package cache

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/grantor"
)

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))

	// Miss
	_, ok := c.Get(ctx, "u1")
	if ok {
		t.Fatal("expected cache miss")
	}

	// Set + Hit
	c.Set(ctx, "u1", &grantor.EffectivePermissions{UserID: "u1", Summary: grantor.Summary{EffectiveCount: 3}})
	got, ok := c.Get(ctx, "u1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Summary.EffectiveCount != 3 {
		t.Fatalf("expected effective count 3, got %d", got.Summary.EffectiveCount)
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(1 * time.Millisecond))

	c.Set(ctx, "u1", &grantor.EffectivePermissions{UserID: "u1"})
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(ctx, "u1")
	if ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestMemoryCacheInvalidateUser(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "u1", &grantor.EffectivePermissions{UserID: "u1"})
	c.Set(ctx, "u2", &grantor.EffectivePermissions{UserID: "u2"})

	c.InvalidateUser(ctx, "u1")

	if _, ok := c.Get(ctx, "u1"); ok {
		t.Fatal("expected u1 to be invalidated")
	}
	if _, ok := c.Get(ctx, "u2"); !ok {
		t.Fatal("expected u2 to still be cached")
	}
}

func TestMemoryCacheInvalidateAll(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "u1", &grantor.EffectivePermissions{UserID: "u1"})
	c.Set(ctx, "u2", &grantor.EffectivePermissions{UserID: "u2"})

	c.InvalidateAll(ctx)

	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", c.Len())
	}
}

func TestMemoryCacheMaxSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))

	c.Set(ctx, "u1", &grantor.EffectivePermissions{UserID: "u1"})
	c.Set(ctx, "u2", &grantor.EffectivePermissions{UserID: "u2"})
	c.Set(ctx, "u3", &grantor.EffectivePermissions{UserID: "u3"})

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if _, ok := c.Get(ctx, "u1"); ok {
		t.Fatal("expected least recently used entry to be evicted")
	}
}
