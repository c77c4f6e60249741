package middleware

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"time"

	"profile_hub/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

//go:embed rate_limiter.lua
var luaScript string

// RateLimiterConfig holds rate limiter configuration
type RateLimiterConfig struct {
	Capacity   int     // Maximum number of tokens (max requests)
	RefillRate float64 // Tokens refilled per second
}

// DefaultRateLimiterConfig returns default rate limiter settings
// 10 requests per second with burst capacity of 20
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:   20,
		RefillRate: 10.0,
	}
}

// RateLimiterMiddleware implements Token Bucket algorithm using Redis + Lua
// script, with one bucket per authenticated user
func RateLimiterMiddleware(redisClient *redis.Client, config *RateLimiterConfig) gin.HandlerFunc {
	return rateLimiterMiddleware(redisClient, config, func(c *gin.Context) (string, bool) {
		userID, err := auth.GetUserIDFromContext(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized - user not found in context",
			})
			c.Abort()
			return "", false
		}
		return UserRateLimiterKey(userID), true
	})
}

// IPRateLimiterMiddleware buckets by client address, for routes that run
// before authentication (login, register)
func IPRateLimiterMiddleware(redisClient *redis.Client, config *RateLimiterConfig) gin.HandlerFunc {
	return rateLimiterMiddleware(redisClient, config, func(c *gin.Context) (string, bool) {
		return IPRateLimiterKey(c.ClientIP()), true
	})
}

func rateLimiterMiddleware(redisClient *redis.Client, config *RateLimiterConfig, bucketKey func(*gin.Context) (string, bool)) gin.HandlerFunc {
	// Load Lua script into Redis (SHA hash will be cached)
	ctx := context.Background()
	scriptSHA, err := redisClient.ScriptLoad(ctx, luaScript).Result()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load Lua script for rate limiter")
	}

	return func(c *gin.Context) {
		key, ok := bucketKey(c)
		if !ok {
			return
		}
		now := time.Now().Unix()

		result, err := redisClient.EvalSha(ctx, scriptSHA, []string{key},
			config.Capacity,
			config.RefillRate,
			now,
		).Result()

		if err != nil {
			logrus.WithError(err).Error("Failed to execute rate limiter Lua script")
			// Fail open: allow request if Redis fails
			c.Next()
			return
		}

		allowed := result.(int64)
		if allowed == 0 {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"message":     fmt.Sprintf("Maximum %d requests per second allowed", int(config.RefillRate)),
				"retry_after": fmt.Sprintf("%.1f seconds", 1.0/config.RefillRate),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// Build cache key for user rate limiting
func UserRateLimiterKey(userID string) string {
	return fmt.Sprintf("rate_limiter:user:%s", userID)
}

// Build cache key for per-address rate limiting
func IPRateLimiterKey(ip string) string {
	return fmt.Sprintf("rate_limiter:ip:%s", ip)
}
