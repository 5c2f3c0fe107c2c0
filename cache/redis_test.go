package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/grantor"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/permission"
)

func newTestRedis(t *testing.T, opts ...RedisOption) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, opts...), mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestRedis(t)

	_, ok := c.Get(ctx, "u1")
	assert.False(t, ok)

	permID := id.NewPermissionID()
	c.Set(ctx, "u1", &grantor.EffectivePermissions{
		UserID:              "u1",
		Permissions:         []*permission.Permission{{ID: permID, Name: "user.read", Resource: "user", Action: "read"}},
		DeniedPermissionIDs: []id.PermissionID{},
		Summary:             grantor.Summary{EffectiveCount: 1},
	})

	got, ok := c.Get(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, "u1", got.UserID)
	require.Len(t, got.Permissions, 1)
	assert.Equal(t, permID, got.Permissions[0].ID)
	assert.True(t, got.Allows(permID))
	assert.Equal(t, 1, got.Summary.EffectiveCount)
}

func TestRedisCacheTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t, WithRedisTTL(time.Minute))

	c.Set(ctx, "u1", &grantor.EffectivePermissions{UserID: "u1"})
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "u1")
	assert.False(t, ok)
}

func TestRedisCacheInvalidateUser(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestRedis(t)

	c.Set(ctx, "u1", &grantor.EffectivePermissions{UserID: "u1"})
	c.Set(ctx, "u2", &grantor.EffectivePermissions{UserID: "u2"})
	c.InvalidateUser(ctx, "u1")

	_, ok := c.Get(ctx, "u1")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "u2")
	assert.True(t, ok)
}

func TestRedisCacheInvalidateAllBumpsVersion(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t, WithPrefix("test:ep"))

	c.Set(ctx, "u1", &grantor.EffectivePermissions{UserID: "u1"})
	assert.True(t, mr.Exists("test:ep:0:u1"))

	c.InvalidateAll(ctx)

	_, ok := c.Get(ctx, "u1")
	assert.False(t, ok)
	v, err := mr.Get("test:ep:version")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	c.Set(ctx, "u1", &grantor.EffectivePermissions{UserID: "u1"})
	assert.True(t, mr.Exists("test:ep:1:u1"))
}

func TestRedisCacheDegradesToMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t)

	c.Set(ctx, "u1", &grantor.EffectivePermissions{UserID: "u1"})
	mr.Close()

	_, ok := c.Get(ctx, "u1")
	assert.False(t, ok)
}
