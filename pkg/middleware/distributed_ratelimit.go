package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/kestrelhealth/radpoint/pkg/httputil"
	"github.com/kestrelhealth/radpoint/pkg/observability"
)

// DistributedRateLimiter implements rate limiting over Redis so limits hold
// across service instances.
type DistributedRateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
}

// NewDistributedRateLimiter creates a Redis-backed fixed window limiter.
func NewDistributedRateLimiter(redisClient *redis.Client, config *RateLimitConfig, prefix string) *DistributedRateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &DistributedRateLimiter{
		redis:  redisClient,
		config: config,
		prefix: prefix,
	}
}

// Allow checks whether a request under the key fits in the current window.
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val() <= int64(rl.config.RequestsPerWindow), nil
}

// Remaining returns the requests left in the current window for the key.
func (rl *DistributedRateLimiter) Remaining(ctx context.Context, key string) (int, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	count, err := rl.redis.Get(ctx, redisKey).Int()
	if err == redis.Nil {
		return rl.config.RequestsPerWindow, nil
	} else if err != nil {
		return 0, err
	}

	remaining := rl.config.RequestsPerWindow - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears the window for a key.
func (rl *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Err()
}

// keyLimiter is satisfied by both the in-memory and Redis-backed limiters.
type keyLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// localLimiter adapts the in-memory token bucket to the keyLimiter shape. It
// never fails, so limits still apply when Redis is down or not configured.
type localLimiter struct {
	rl *RateLimiter
}

func (l localLimiter) Allow(_ context.Context, key string) (bool, error) {
	return l.rl.Allow(key), nil
}

// RateLimitMiddleware applies per-user limits for authenticated callers and
// per-IP limits for anonymous ones. Redis failures fail open so a cache
// outage does not take the API down with it.
type RateLimitMiddleware struct {
	userLimiter keyLimiter
	anonLimiter keyLimiter
	logger      *observability.Logger
}

// NewRateLimitMiddleware creates the rate limit middleware. With a Redis
// client the limits hold across instances; without one each process falls
// back to its own in-memory buckets.
func NewRateLimitMiddleware(redisClient *redis.Client, logger *observability.Logger) *RateLimitMiddleware {
	if redisClient == nil {
		return &RateLimitMiddleware{
			userLimiter: localLimiter{NewRateLimiter(PerUserRateLimitConfig())},
			anonLimiter: localLimiter{NewRateLimiter(DefaultRateLimitConfig())},
			logger:      logger,
		}
	}
	return &RateLimitMiddleware{
		userLimiter: NewDistributedRateLimiter(redisClient, PerUserRateLimitConfig(), "ratelimit:user"),
		anonLimiter: NewDistributedRateLimiter(redisClient, DefaultRateLimitConfig(), "ratelimit:anon"),
		logger:      logger,
	}
}

// Handler wraps an HTTP handler with rate limiting. Runs after identity
// resolution so authenticated callers get the per-user limit.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var key string
		var limiter keyLimiter

		if identity := GetIdentity(r); identity.Authenticated() {
			key = "user:" + strconv.FormatInt(identity.UserID(), 10)
			limiter = m.userLimiter
		} else {
			key = "ip:" + getClientIP(r)
			limiter = m.anonLimiter
		}

		allowed, err := limiter.Allow(r.Context(), key)
		if err != nil {
			m.logger.WithError(err).Warn("Rate limit check failed, allowing request")
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			httputil.WriteTooManyRequests(w, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
