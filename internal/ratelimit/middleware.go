package ratelimit

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/ai-video-detector/internal/errors"
)

// IPRateLimitMiddleware rejects clients that exceed the per-IP budget with a 429
func (rl *RateLimiter) IPRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		result, err := rl.AllowIP(c.Request.Context(), ip)
		if err != nil {
			// limiter failures never block traffic
			slog.Error("Rate limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			if rl.metrics != nil {
				limiter := "memory"
				if rl.redisClient.IsEnabled() {
					limiter = "redis"
				}
				rl.metrics.RecordRateLimitBlock(limiter)
			}

			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			appErr := apperrors.NewRateLimitError(fmt.Sprintf("%ds", retryAfter))
			apperrors.LogError(c, appErr)
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.Response())
			return
		}

		c.Next()
	}
}
