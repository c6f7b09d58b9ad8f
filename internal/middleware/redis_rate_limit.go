package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/huddle/internal/cache"
	"github.com/zfogg/huddle/internal/logger"
	"go.uber.org/zap"
)

// RedisRateLimitMiddleware creates a fixed-window rate limiter shared by every
// server instance through Redis. When Redis errors, the request is judged by
// an in-memory token bucket instead.
func RedisRateLimitMiddleware(rc *cache.RedisClient, config RateLimitConfig) gin.HandlerFunc {
	fallback := newRateLimiter(config)
	go fallback.cleanupRoutine(time.Minute)

	windowSecs := int64(config.Window.Seconds())
	if windowSecs < 1 {
		windowSecs = 1
	}

	return func(c *gin.Context) {
		key := fallback.config.KeyFunc(c)
		redisKey := fmt.Sprintf("rate_limit:%s:%d", key, time.Now().Unix()/windowSecs)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, err := rc.Incr(ctx, redisKey)
		if err != nil {
			logger.Log.Warn("Redis rate limit check failed, using in-memory limiter",
				logger.WithIP(c.ClientIP()),
				zap.Error(err),
			)
			fallback.handle(c)
			return
		}

		// First hit in this window sets the expiry
		if count == 1 {
			if err := rc.Expire(ctx, redisKey, config.Window); err != nil {
				logger.Log.Warn("Failed to set rate limit expiration", zap.Error(err))
			}
		}

		if count > int64(config.Limit) {
			abortRateLimited(c, config.Limit, int(windowSecs))
			return
		}

		c.Next()
	}
}

// RateLimitSmart uses Redis when a client is available and the in-memory limiter otherwise
func RateLimitSmart(rc *cache.RedisClient, config RateLimitConfig) gin.HandlerFunc {
	if rc == nil {
		return NewRateLimiter(config)
	}
	return RedisRateLimitMiddleware(rc, config)
}
