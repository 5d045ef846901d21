package security

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"

	"ticket-resale/utils"
)

var suspiciousAgents = []string{"bot", "crawler", "spider", "scraper"}

// RateLimiter keeps fixed-window request counters in Redis. A nil Redis
// client disables it, and Redis failures let requests through.
type RateLimiter struct {
	redis   redis.Cmdable
	breaker *utils.CircuitBreaker
	limit   int64
	window  time.Duration
}

func NewRateLimiter(rdb redis.Cmdable, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:   rdb,
		breaker: utils.NewCircuitBreaker("redis-ratelimit", utils.DefaultBreakerSettings()),
		limit:   int64(limit),
		window:  window,
	}
}

// Limit counts requests per client IP under scope.
func (r *RateLimiter) Limit(scope string) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if r.redis == nil || r.limit <= 0 {
			return e.Next()
		}

		ip := ClientIP(e.Request)
		key := fmt.Sprintf("ratelimit:%s:%s", scope, ip)

		allowed, retryAfter, err := r.allow(e.Request.Context(), key)
		if err != nil {
			slog.Warn("Rate limiter unavailable, allowing request", "scope", scope, "ip", ip, "error", err)
			return e.Next()
		}
		if !allowed {
			e.Response.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			return apis.NewTooManyRequestsError("Rate limit exceeded. Please try again later.", nil)
		}

		return e.Next()
	}
}

func (r *RateLimiter) allow(ctx context.Context, key string) (bool, time.Duration, error) {
	allowed := true
	retryAfter := r.window

	err := r.breaker.Do(ctx, func(ctx context.Context) error {
		count, err := r.redis.Incr(ctx, key).Result()
		if err != nil {
			return err
		}
		if count == 1 {
			if err := r.redis.Expire(ctx, key, r.window).Err(); err != nil {
				return err
			}
		}
		if count <= r.limit {
			return nil
		}

		allowed = false
		if ttl, err := r.redis.TTL(ctx, key).Result(); err == nil && ttl > 0 {
			retryAfter = ttl
		}
		return nil
	})

	return allowed, retryAfter, err
}

// BlockSuspiciousAgents rejects clients whose User-Agent looks automated.
func BlockSuspiciousAgents(e *core.RequestEvent) error {
	if isSuspiciousUserAgent(e.Request.Header.Get("User-Agent")) {
		return apis.NewForbiddenError("Access denied", nil)
	}
	return e.Next()
}

func isSuspiciousUserAgent(ua string) bool {
	ua = strings.ToLower(ua)
	for _, pattern := range suspiciousAgents {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}

// ClientIP is the peer address of the connection. Forwarding headers are
// ignored since they are client controlled.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
