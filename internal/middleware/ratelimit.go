package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tessera-saas/backend/pkg/response"
)

// RateLimitStore is the slice of the Redis client the limiter uses,
// satisfied by *redis.Client.
type RateLimitStore interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RateLimit returns a Redis-backed fixed-window limiter keyed by client IP
// and route. Fails open when Redis is unavailable so auth never hard-depends
// on it.
func RateLimit(rdb RateLimitStore, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := fmt.Sprintf("ratelimit:%s:%s", c.ClientIP(), c.FullPath())

		n, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limit unavailable", zap.Error(err))
			c.Next()
			return
		}
		if n == 1 {
			if err := rdb.Expire(ctx, key, window).Err(); err != nil {
				// Without a TTL the counter would throttle this client
				// forever. Drop the key and fail open.
				logger.Warn("rate limit expire failed", zap.Error(err))
				rdb.Del(ctx, key)
				c.Next()
				return
			}
		}
		if n > int64(limit) {
			response.TooManyRequests(c, "Too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
