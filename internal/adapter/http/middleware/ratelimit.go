package middleware

import (
	"fmt"
	"strconv"
	"time"

	"referral-rewards-backend/internal/core/ports"
	"referral-rewards-backend/pkg/apperror"
	"referral-rewards-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the limits per endpoint group.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"auth_login":    {Limit: 10, Window: time.Minute},
		"auth_register": {Limit: 5, Window: time.Hour},
		"spend":         {Limit: 60, Window: time.Minute},
		"billing":       {Limit: 20, Window: time.Minute},
		"wallet":        {Limit: 60, Window: time.Minute},
	}
}

// RateLimiter creates a fixed-window rate-limiting middleware for a given
// endpoint group. A store failure lets the request through.
func RateLimiter(store ports.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", extractIdentifier(c), group)

		count, err := store.Incr(c.Request.Context(), key, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		remaining := rule.Limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(rule.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > rule.Limit {
			c.Header("Retry-After", strconv.FormatInt(int64(rule.Window.Seconds()), 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier determines the rate limit key source.
func extractIdentifier(c *gin.Context) string {
	if mid, exists := c.Get(CtxMemberID); exists {
		return fmt.Sprintf("%v", mid)
	}
	return c.ClientIP()
}
