// AngelaMos | 2026
// cache_test.go

package rbac

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/rbac-backend/internal/core"
)

func newTestCache(t *testing.T) (*RedisPermissionCache, *miniredis.Miniredis, *core.Metrics) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	metrics := core.NewMetrics("test")
	return NewRedisPermissionCache(client, time.Minute, metrics), mr, metrics
}

// countingLoader returns fixed permissions and counts invocations.
func countingLoader(calls *atomic.Int32, perms ...string) func(context.Context) ([]PermissionResponse, error) {
	return func(context.Context) ([]PermissionResponse, error) {
		calls.Add(1)
		out := make([]PermissionResponse, 0, len(perms))
		for i, name := range perms {
			out = append(out, PermissionResponse{ID: int64(i + 1), Name: name})
		}
		return out, nil
	}
}

func cacheCount(m *core.Metrics, result string) float64 {
	return testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues(result))
}

func TestRedisPermissionCache_MissThenHit(t *testing.T) {
	cache, mr, metrics := newTestCache(t)
	ctx := context.Background()
	var calls atomic.Int32

	perms, err := cache.GetOrLoad(ctx, 7, countingLoader(&calls, "read", "write"))
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "write"}, names(perms))

	perms, err = cache.GetOrLoad(ctx, 7, countingLoader(&calls, "ignored"))
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "write"}, names(perms))

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1.0, cacheCount(metrics, "miss"))
	assert.Equal(t, 1.0, cacheCount(metrics, "hit"))

	assert.True(t, mr.Exists("rbac:role_permissions:0:7:0"))
	assert.Equal(t, time.Minute, mr.TTL("rbac:role_permissions:0:7:0"))
}

func TestRedisPermissionCache_InvalidateRole(t *testing.T) {
	cache, mr, _ := newTestCache(t)
	ctx := context.Background()
	var calls atomic.Int32

	_, err := cache.GetOrLoad(ctx, 1, countingLoader(&calls, "read"))
	require.NoError(t, err)
	_, err = cache.GetOrLoad(ctx, 2, countingLoader(&calls, "write"))
	require.NoError(t, err)

	cache.InvalidateRole(ctx, 1)

	ver, err := mr.Get("rbac:role_permissions:ver:1")
	require.NoError(t, err)
	assert.Equal(t, "1", ver)
	assert.False(t, mr.Exists("rbac:role_permissions:0:1:0"))

	perms, err := cache.GetOrLoad(ctx, 1, countingLoader(&calls, "read", "audit"))
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "audit"}, names(perms))

	perms, err = cache.GetOrLoad(ctx, 2, countingLoader(&calls, "changed"))
	require.NoError(t, err)
	assert.Equal(t, []string{"write"}, names(perms))

	assert.Equal(t, int32(3), calls.Load())
}

func TestRedisPermissionCache_InvalidateAllBumpsGeneration(t *testing.T) {
	cache, mr, _ := newTestCache(t)
	ctx := context.Background()
	var calls atomic.Int32

	_, err := cache.GetOrLoad(ctx, 1, countingLoader(&calls, "read"))
	require.NoError(t, err)

	cache.InvalidateAll(ctx)

	gen, err := mr.Get("rbac:role_permissions:gen")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)

	perms, err := cache.GetOrLoad(ctx, 1, countingLoader(&calls, "renamed"))
	require.NoError(t, err)
	assert.Equal(t, []string{"renamed"}, names(perms))
	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, mr.Exists("rbac:role_permissions:1:1:0"))
}

func TestRedisPermissionCache_CorruptEntryReloads(t *testing.T) {
	cache, mr, metrics := newTestCache(t)
	ctx := context.Background()
	var calls atomic.Int32

	require.NoError(t, mr.Set("rbac:role_permissions:0:3:0", "{not json"))

	perms, err := cache.GetOrLoad(ctx, 3, countingLoader(&calls, "read"))
	require.NoError(t, err)
	assert.Equal(t, []string{"read"}, names(perms))
	assert.Equal(t, 1.0, cacheCount(metrics, "corrupt"))

	raw, err := mr.Get("rbac:role_permissions:0:3:0")
	require.NoError(t, err)
	assert.Contains(t, raw, `"name":"read"`)
}

func TestRedisPermissionCache_FailsOpen(t *testing.T) {
	cache, mr, metrics := newTestCache(t)
	ctx := context.Background()
	var calls atomic.Int32

	mr.SetError("connection lost")

	perms, err := cache.GetOrLoad(ctx, 1, countingLoader(&calls, "read"))
	require.NoError(t, err)
	assert.Equal(t, []string{"read"}, names(perms))
	assert.Equal(t, 1.0, cacheCount(metrics, "error"))

	cache.InvalidateRole(ctx, 1)
	cache.InvalidateAll(ctx)

	mr.SetError("")
	_, err = cache.GetOrLoad(ctx, 1, countingLoader(&calls, "read"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRedisPermissionCache_LoaderErrorNotCached(t *testing.T) {
	cache, mr, _ := newTestCache(t)
	ctx := context.Background()

	_, err := cache.GetOrLoad(ctx, 5, func(context.Context) ([]PermissionResponse, error) {
		return nil, ErrRoleNotFound
	})
	assert.ErrorIs(t, err, ErrRoleNotFound)
	assert.False(t, mr.Exists("rbac:role_permissions:0:5:0"))
}

func TestRedisPermissionCache_ConcurrentMissesShareLoad(t *testing.T) {
	cache, _, _ := newTestCache(t)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) ([]PermissionResponse, error) {
		calls.Add(1)
		<-release
		return []PermissionResponse{{ID: 1, Name: "read"}}, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.GetOrLoad(ctx, 9, load)
			errs <- err
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestRedisPermissionCache_InvalidationDuringLoadWins(t *testing.T) {
	tests := []struct {
		name       string
		invalidate func(*RedisPermissionCache, context.Context)
	}{
		{"role", func(c *RedisPermissionCache, ctx context.Context) { c.InvalidateRole(ctx, 4) }},
		{"all", func(c *RedisPermissionCache, ctx context.Context) { c.InvalidateAll(ctx) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, _, _ := newTestCache(t)
			ctx := context.Background()

			// The loader reads its snapshot, then a writer commits and
			// invalidates before the fill is stored.
			stale := func(ctx context.Context) ([]PermissionResponse, error) {
				tt.invalidate(cache, ctx)
				return []PermissionResponse{}, nil
			}

			perms, err := cache.GetOrLoad(ctx, 4, stale)
			require.NoError(t, err)
			assert.Empty(t, perms)

			var calls atomic.Int32
			perms, err = cache.GetOrLoad(ctx, 4, countingLoader(&calls, "read_reports"))
			require.NoError(t, err)
			assert.Equal(t, []string{"read_reports"}, names(perms))
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

// assignDuringRead runs a concurrent write after ListRolePermissions has
// taken its snapshot but before the snapshot is returned.
type assignDuringRead struct {
	*memRepo
	during func()
}

func (r *assignDuringRead) ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	perms, err := r.memRepo.ListRolePermissions(ctx, roleID)
	if fn := r.during; fn != nil {
		r.during = nil
		fn()
	}
	return perms, err
}

func TestService_ListRolePermissions_SeesAssignmentRacingFill(t *testing.T) {
	cache, _, _ := newTestCache(t)
	repo := &assignDuringRead{memRepo: newMemRepo()}
	svc := NewService(fakeUoW{}, func(core.DBTX) Repository { return repo }, cache)
	ctx := context.Background()

	perm, err := svc.CreatePermission(ctx, CreatePermissionRequest{Name: "read_reports"})
	require.NoError(t, err)
	role, err := svc.CreateRole(ctx, CreateRoleRequest{Name: "analyst"})
	require.NoError(t, err)

	repo.during = func() {
		assigned, err := svc.AssignPermission(ctx, role.ID, perm.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"read_reports"}, names(assigned))
	}

	perms, err := svc.ListRolePermissions(ctx, role.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)

	perms, err = svc.ListRolePermissions(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"read_reports"}, names(perms))
}

func TestRedisPermissionCache_SharedLoadIgnoresCallerCancel(t *testing.T) {
	cache, _, _ := newTestCache(t)

	release := make(chan struct{})
	load := func(ctx context.Context) ([]PermissionResponse, error) {
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []PermissionResponse{{ID: 1, Name: "read"}}, nil
	}

	first, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	start := func(ctx context.Context) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.GetOrLoad(ctx, 11, load)
			errs <- err
		}()
	}

	start(first)
	time.Sleep(50 * time.Millisecond)
	start(context.Background())
	time.Sleep(50 * time.Millisecond)

	cancel()
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestNoopCache(t *testing.T) {
	var c PermissionCache = noopCache{}
	var calls atomic.Int32

	_, err := c.GetOrLoad(context.Background(), 1, countingLoader(&calls, "read"))
	require.NoError(t, err)
	_, err = c.GetOrLoad(context.Background(), 1, countingLoader(&calls, "read"))
	require.NoError(t, err)

	c.InvalidateRole(context.Background(), 1)
	c.InvalidateAll(context.Background())
	assert.Equal(t, int32(2), calls.Load())
}
