// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type RateLimitConfig struct {
	Limit    redis_rate.Limit
	KeyFunc  func(*http.Request) string
	FailOpen bool
}

// RateLimiter enforces a GCRA limit in redis so all instances share one
// budget per key. When redis is unreachable it degrades to a per-instance
// token bucket rather than dropping traffic.
type RateLimiter struct {
	limiter  *redis_rate.Limiter
	fallback *localLimiter
	config   RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}

	return &RateLimiter{
		limiter:  redis_rate.NewLimiter(rdb),
		fallback: newLocalLimiter(),
		config:   cfg,
	}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.config.KeyFunc(r)

		res, err := rl.allow(r.Context(), key)
		if err != nil {
			if rl.config.FailOpen {
				slog.Warn("rate limiter unavailable, failing open",
					"error", err,
					"key", key,
				)
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit.Rate))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(
			time.Now().Add(res.ResetAfter).Unix(), 10))

		if res.Allowed == 0 {
			writeLimited(w, res)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(
	ctx context.Context,
	key string,
) (*redis_rate.Result, error) {
	res, err := rl.limiter.Allow(ctx, key, rl.config.Limit)
	if err != nil {
		return rl.fallback.allow(key, rl.config.Limit)
	}
	return res, nil
}

// KeyByIP buckets by client IP, preferring proxy headers over the socket
// address.
func KeyByIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		return "ratelimit:ip:" + strings.TrimSpace(hops[len(hops)-1])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return "ratelimit:ip:" + xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ratelimit:ip:" + ip
}

// KeyByUser buckets authenticated traffic per user and falls back to the
// IP bucket for anonymous callers.
func KeyByUser(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return "ratelimit:user:" + userID
	}
	return KeyByIP(r)
}

func PerMinute(requests, burst int) redis_rate.Limit {
	return PerWindow(requests, burst, time.Minute)
}

func PerWindow(
	requests, burst int,
	window time.Duration,
) redis_rate.Limit {
	if window <= 0 {
		window = time.Minute
	}
	return redis_rate.Limit{
		Rate:   requests,
		Burst:  burst,
		Period: window,
	}
}

func writeLimited(w http.ResponseWriter, res *redis_rate.Result) {
	retryAfter := int(res.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	//nolint:errcheck // best-effort response write
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error": map[string]any{
			"code":    "RATE_LIMITED",
			"message": "rate limit exceeded, retry later",
		},
	})
}

// localLimiter is the in-process fallback: one token bucket per key,
// swept periodically so idle keys don't accumulate forever.
type localLimiter struct {
	mu      sync.Mutex
	buckets map[string]*localBucket
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const (
	localSweepEvery = 5 * time.Minute
	localBucketTTL  = 10 * time.Minute
)

func newLocalLimiter() *localLimiter {
	l := &localLimiter{buckets: map[string]*localBucket{}}
	go l.sweep()
	return l
}

func (l *localLimiter) sweep() {
	ticker := time.NewTicker(localSweepEvery)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-localBucketTTL)

		l.mu.Lock()
		for key, b := range l.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}

func (l *localLimiter) allow(
	key string,
	limit redis_rate.Limit,
) (*redis_rate.Result, error) {
	perSecond := float64(limit.Rate) / limit.Period.Seconds()

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{
			limiter: rate.NewLimiter(rate.Limit(perSecond), limit.Burst),
		}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()
	l.mu.Unlock()

	allowed := 0
	retryAfter := time.Duration(-1)
	if b.limiter.Allow() {
		allowed = 1
	} else {
		retryAfter = time.Duration(float64(time.Second) / perSecond)
	}

	remaining := int(b.limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}

	return &redis_rate.Result{
		Limit:      limit,
		Allowed:    allowed,
		Remaining:  remaining,
		RetryAfter: retryAfter,
		ResetAfter: time.Duration(float64(time.Second) / perSecond),
	}, nil
}
