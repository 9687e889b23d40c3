package middleware

import (
	_ "embed"
	"fmt"
	"net/http"
	"time"

	"bookkeeping/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

//go:embed rate_limiter.lua
var luaScript string

var tokenBucket = redis.NewScript(luaScript)

// RateLimiterConfig holds rate limiter configuration
type RateLimiterConfig struct {
	Capacity   int     // Maximum number of tokens (max requests)
	RefillRate float64 // Tokens refilled per second
}

// DefaultRateLimiterConfig returns default rate limiter settings
// 10 requests per second with burst capacity of 20
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:   20,   // Can burst up to 20 requests
		RefillRate: 10.0, // Refills 10 tokens per second
	}
}

// KeyFunc picks the bucket a request is charged to. ok is false when
// the request carries nothing to key on.
type KeyFunc func(c *gin.Context) (key string, ok bool)

// ByClientIP keys on the client address, for routes hit before login.
func ByClientIP(c *gin.Context) (string, bool) {
	return ClientRateLimiterKey(c.ClientIP()), true
}

// ByUser keys on the authenticated identity. It must run after AuthMiddleware.
func ByUser(c *gin.Context) (string, bool) {
	identity, err := auth.GetIdentityFromContext(c)
	if err != nil {
		return "", false
	}
	return UserRateLimiterKey(identity.ID), true
}

// RateLimiterMiddleware implements Token Bucket algorithm using Redis + Lua script.
// A nil client disables limiting.
func RateLimiterMiddleware(redisClient *redis.Client, config *RateLimiterConfig, keyFunc KeyFunc) gin.HandlerFunc {
	if redisClient == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key, ok := keyFunc(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
			c.Abort()
			return
		}

		now := time.Now().UnixMilli()

		// Run uses EVALSHA and loads the script on NOSCRIPT
		allowed, err := tokenBucket.Run(c.Request.Context(), redisClient, []string{key},
			config.Capacity,
			config.RefillRate,
			now,
		).Int64()
		if err != nil {
			logrus.WithError(err).Error("Failed to execute rate limiter Lua script")
			// Fail open: allow request if Redis fails
			c.Next()
			return
		}

		if allowed == 0 {
			c.Header("Retry-After", fmt.Sprintf("%.0f", retryAfterSeconds(config)))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"message":     "Rate limit exceeded",
				"retry_after": fmt.Sprintf("%.1f seconds", 1.0/config.RefillRate),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func retryAfterSeconds(config *RateLimiterConfig) float64 {
	s := 1.0 / config.RefillRate
	if s < 1 {
		return 1
	}
	return s
}

// Build cache key for user rate limiting
func UserRateLimiterKey(userID int) string {
	return fmt.Sprintf("rate_limiter:user:%d", userID)
}

// Build cache key for per-client rate limiting
func ClientRateLimiterKey(ip string) string {
	return fmt.Sprintf("rate_limiter:ip:%s", ip)
}
