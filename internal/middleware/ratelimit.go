// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/httprate"
	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/templates/rbac-backend/internal/core"
)

type RateLimitConfig struct {
	Limit   redis_rate.Limit
	KeyFunc func(*http.Request) string
	// FailOpen serves from per-process buckets while Redis is unreachable.
	// Otherwise those requests are rejected.
	FailOpen   bool
	BypassFunc func(*http.Request) bool
}

// RateLimiter enforces one limit shared across instances through Redis.
type RateLimiter struct {
	shared *redis_rate.Limiter
	local  *bucketSet
	cfg    RateLimitConfig
	policy string
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}

	return &RateLimiter{
		shared: redis_rate.NewLimiter(rdb),
		local:  newBucketSet(cfg.Limit),
		cfg:    cfg,
		policy: fmt.Sprintf("%d;w=%d", cfg.Limit.Rate, int(cfg.Limit.Period.Seconds())),
	}
}

// decision is one verdict, from Redis or from the local buckets.
type decision struct {
	allowed    bool
	remaining  int
	retryAfter time.Duration
	resetAfter time.Duration
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.cfg.BypassFunc != nil && rl.cfg.BypassFunc(r) {
			next.ServeHTTP(w, r)
			return
		}

		d, err := rl.decide(r.Context(), rl.cfg.KeyFunc(r))
		if err != nil {
			core.JSONError(w, core.Internal("rate limit", err))
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Limit.Rate))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(d.resetAfter).Unix(), 10))
		h.Set("RateLimit-Policy", rl.policy)

		if !d.allowed {
			writeRateLimitExceeded(w, d.retryAfter)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) decide(ctx context.Context, key string) (decision, error) {
	res, err := rl.shared.Allow(ctx, key, rl.cfg.Limit)
	if err == nil {
		return decision{
			allowed:    res.Allowed > 0,
			remaining:  res.Remaining,
			retryAfter: res.RetryAfter,
			resetAfter: res.ResetAfter,
		}, nil
	}

	if !rl.cfg.FailOpen {
		return decision{}, fmt.Errorf("shared limiter: %w", err)
	}

	slog.WarnContext(ctx, "shared rate limiter unavailable, using local buckets",
		"error", err,
		"key", key,
	)
	return rl.local.take(key, time.Now()), nil
}

// AuthThrottle is a per-IP, in-process limit for the credential endpoints,
// applied on top of the shared limiter.
func AuthThrottle(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeRateLimitExceeded(w, window)
		}),
	)
}

// KeyByIP keys on the last proxy-reported client address, falling back to
// the connection's remote host.
func KeyByIP(r *http.Request) string {
	return "ratelimit:ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		return strings.TrimSpace(hops[len(hops)-1])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeRateLimitExceeded(w http.ResponseWriter, retry time.Duration) {
	retryAfter := max(int(math.Ceil(retry.Seconds())), 1)

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	core.JSONError(w, core.RateLimitedError(fmt.Sprintf(
		"rate limit exceeded, retry after %d seconds",
		retryAfter,
	)))
}

const bucketIdleTTL = 10 * time.Minute

// bucketSet holds one token bucket per key, all refilling at the limiter's
// single rate. Buckets idle for bucketIdleTTL are dropped during take.
type bucketSet struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	refill    time.Duration
	burst     int
	lastSweep time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newBucketSet(limit redis_rate.Limit) *bucketSet {
	refill := limit.Period
	if limit.Rate > 0 {
		refill = limit.Period / time.Duration(limit.Rate)
	}

	return &bucketSet{
		buckets: make(map[string]*bucket),
		refill:  refill,
		burst:   limit.Burst,
	}
}

func (b *bucketSet) take(key string, now time.Time) decision {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.lastSweep) > bucketIdleTTL {
		for k, bk := range b.buckets {
			if now.Sub(bk.seen) > bucketIdleTTL {
				delete(b.buckets, k)
			}
		}
		b.lastSweep = now
	}

	bk, ok := b.buckets[key]
	if !ok {
		bk = &bucket{lim: rate.NewLimiter(rate.Every(b.refill), b.burst)}
		b.buckets[key] = bk
	}
	bk.seen = now

	d := decision{
		allowed:    bk.lim.AllowN(now, 1),
		remaining:  max(int(bk.lim.TokensAt(now)), 0),
		resetAfter: b.refill,
	}
	if !d.allowed {
		d.retryAfter = b.refill
	}
	return d
}

func PerMinute(rate, burst int) redis_rate.Limit {
	return PerWindow(rate, burst, time.Minute)
}

// PerWindow allows rate requests per window with the given burst. A
// non-positive window falls back to one minute.
func PerWindow(rate, burst int, window time.Duration) redis_rate.Limit {
	if window <= 0 {
		window = time.Minute
	}
	return redis_rate.Limit{
		Rate:   rate,
		Burst:  burst,
		Period: window,
	}
}
