package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/grantor"
)

// Compile-time interface check.
var _ grantor.Cache = (*Redis)(nil)

// Redis is a shared cache backed by Redis, for deployments running more
// than one engine. Results are stored as JSON under
// "<prefix>:<version>:<userID>". InvalidateAll bumps the version so
// every older key becomes unreachable and ages out through its TTL.
//
// Redis failures degrade to cache misses and are logged at Warn.
type Redis struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// RedisOption configures the Redis cache.
type RedisOption func(*Redis)

// WithPrefix sets the key prefix. Defaults to "grantor:ep".
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// WithRedisTTL sets the entry time-to-live. Zero stores without expiry.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

// WithRedisLogger sets the logger used for Redis failures.
func WithRedisLogger(l *slog.Logger) RedisOption {
	return func(r *Redis) { r.logger = l }
}

// NewRedis creates a Redis-backed cache on an existing client.
func NewRedis(client redis.Cmdable, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: "grantor:ep",
		ttl:    5 * time.Minute,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Get returns a cached resolve result.
func (r *Redis) Get(ctx context.Context, userID string) (*grantor.EffectivePermissions, bool) {
	key, err := r.key(ctx, userID)
	if err != nil {
		r.warn("version", err)
		return nil, false
	}
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.warn("get", err)
		return nil, false
	}
	var ep grantor.EffectivePermissions
	if err := json.Unmarshal(raw, &ep); err != nil {
		r.warn("decode", err)
		return nil, false
	}
	return &ep, true
}

// Set stores a resolve result.
func (r *Redis) Set(ctx context.Context, userID string, result *grantor.EffectivePermissions) {
	key, err := r.key(ctx, userID)
	if err != nil {
		r.warn("version", err)
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		r.warn("encode", err)
		return
	}
	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		r.warn("set", err)
	}
}

// InvalidateUser removes the cached result of one user.
func (r *Redis) InvalidateUser(ctx context.Context, userID string) {
	key, err := r.key(ctx, userID)
	if err != nil {
		r.warn("version", err)
		return
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.warn("del", err)
	}
}

// InvalidateAll makes every cached result unreachable.
func (r *Redis) InvalidateAll(ctx context.Context) {
	if err := r.client.Incr(ctx, r.versionKey()).Err(); err != nil {
		r.warn("bump", err)
	}
}

func (r *Redis) versionKey() string { return r.prefix + ":version" }

// key builds the versioned key of userID. A missing version reads as 0.
func (r *Redis) key(ctx context.Context, userID string) (string, error) {
	ver, err := r.client.Get(ctx, r.versionKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return r.prefix + ":" + strconv.FormatInt(ver, 10) + ":" + userID, nil
}

func (r *Redis) warn(op string, err error) {
	r.logger.Warn("grantor cache error",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}
