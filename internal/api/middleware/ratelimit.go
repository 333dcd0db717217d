package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"taskhub/internal/pkg/metrics"
	"taskhub/internal/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// LoginRateLimit 对凭证类接口按客户端 IP 限流。
//
// Redis 不可用时放行请求，凭证校验本身仍然生效。
func LoginRateLimit(limiter *ratelimit.Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		allowed, retryAfter, err := limiter.Allow(ctx, c.ClientIP())
		if err != nil {
			if logger != nil {
				logger.Warn("rate limit check failed", slog.String("error", err.Error()))
			}
			c.Next()
			return
		}
		if !allowed {
			metrics.RateLimitRejectedTotal.Inc()
			if retryAfter > 0 {
				seconds := int((retryAfter + time.Second - 1) / time.Second)
				c.Header("Retry-After", strconv.Itoa(seconds))
			}
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}

		c.Next()
	}
}
