// AngelaMos | 2026
// cache.go

package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/carterperez-dev/templates/rbac-backend/internal/core"
)

const (
	cacheKeyPrefix     = "rbac:role_permissions"
	cacheGenerationKey = "rbac:role_permissions:gen"
	cacheVersionPrefix = "rbac:role_permissions:ver:"
)

// PermissionCache holds each role's ordered permission list.
type PermissionCache interface {
	GetOrLoad(
		ctx context.Context,
		roleID int64,
		load func(context.Context) ([]PermissionResponse, error),
	) ([]PermissionResponse, error)
	InvalidateRole(ctx context.Context, roleID int64)
	InvalidateAll(ctx context.Context)
}

// RedisPermissionCache is a read-through cache that fails open: any Redis
// error falls back to the loader. Concurrent misses for one role share a
// single load.
//
// Entry keys embed the global generation and the role's version, both read
// before loading. Invalidation bumps a counter, so a fill that raced with it
// lands on a key no reader will ask for again.
type RedisPermissionCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *core.Metrics
	group   singleflight.Group
}

func NewRedisPermissionCache(
	client *redis.Client,
	ttl time.Duration,
	metrics *core.Metrics,
) *RedisPermissionCache {
	return &RedisPermissionCache{
		client:  client,
		ttl:     ttl,
		metrics: metrics,
	}
}

func (c *RedisPermissionCache) GetOrLoad(
	ctx context.Context,
	roleID int64,
	load func(context.Context) ([]PermissionResponse, error),
) ([]PermissionResponse, error) {
	key, err := c.key(ctx, roleID)
	if err != nil {
		slog.WarnContext(ctx, "permission cache unavailable", "error", err)
		c.metrics.CacheResult("error")
		return load(ctx)
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var perms []PermissionResponse
		if jsonErr := json.Unmarshal(raw, &perms); jsonErr == nil {
			c.metrics.CacheResult("hit")
			return perms, nil
		}
		c.metrics.CacheResult("corrupt")
	case errors.Is(err, redis.Nil):
		c.metrics.CacheResult("miss")
	default:
		slog.WarnContext(ctx, "permission cache read failed",
			"error", err,
			"role_id", roleID,
		)
		c.metrics.CacheResult("error")
		return load(ctx)
	}

	// The shared load outlives any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key, func() (any, error) {
		perms, loadErr := load(shared)
		if loadErr != nil {
			return nil, loadErr
		}
		c.store(shared, key, perms)
		return perms, nil
	})
	if err != nil {
		return nil, err
	}

	perms, ok := v.([]PermissionResponse)
	if !ok {
		return nil, fmt.Errorf("permission cache: unexpected value %T", v)
	}

	return perms, nil
}

func (c *RedisPermissionCache) InvalidateRole(ctx context.Context, roleID int64) {
	key, err := c.key(ctx, roleID)
	if err != nil {
		slog.WarnContext(ctx, "permission cache invalidation skipped", "error", err)
		return
	}

	if err := c.client.Incr(ctx, versionKey(roleID)).Err(); err != nil {
		slog.WarnContext(ctx, "permission cache invalidation failed",
			"error", err,
			"role_id", roleID,
		)
		return
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		slog.DebugContext(ctx, "permission cache cleanup failed",
			"error", err,
			"key", key,
		)
	}
}

// InvalidateAll bumps the key generation, orphaning every cached list.
// Orphans expire with their TTL.
func (c *RedisPermissionCache) InvalidateAll(ctx context.Context) {
	if err := c.client.Incr(ctx, cacheGenerationKey).Err(); err != nil {
		slog.WarnContext(ctx, "permission cache flush failed", "error", err)
	}
}

// key returns the entry key for the current generation and role version.
func (c *RedisPermissionCache) key(ctx context.Context, roleID int64) (string, error) {
	vals, err := c.client.MGet(ctx, cacheGenerationKey, versionKey(roleID)).Result()
	if err != nil {
		return "", fmt.Errorf("read cache version: %w", err)
	}

	gen, err := counterValue(vals[0])
	if err != nil {
		return "", fmt.Errorf("read cache generation: %w", err)
	}
	ver, err := counterValue(vals[1])
	if err != nil {
		return "", fmt.Errorf("read role version: %w", err)
	}

	return fmt.Sprintf("%s:%d:%d:%d", cacheKeyPrefix, gen, roleID, ver), nil
}

func versionKey(roleID int64) string {
	return cacheVersionPrefix + strconv.FormatInt(roleID, 10)
}

// counterValue reads an INCR counter from an MGET reply; a missing key is 0.
func counterValue(v any) (int64, error) {
	if v == nil {
		return 0, nil
	}

	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected counter type %T", v)
	}
	return strconv.ParseInt(s, 10, 64)
}

func (c *RedisPermissionCache) store(
	ctx context.Context,
	key string,
	perms []PermissionResponse,
) {
	raw, err := json.Marshal(perms)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "permission cache write failed",
			"error", err,
			"key", key,
		)
	}
}

type noopCache struct{}

func (noopCache) GetOrLoad(
	ctx context.Context,
	_ int64,
	load func(context.Context) ([]PermissionResponse, error),
) ([]PermissionResponse, error) {
	return load(ctx)
}

func (noopCache) InvalidateRole(context.Context, int64) {}

func (noopCache) InvalidateAll(context.Context) {}
