package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/loan-risk/pkg/common"
	"github.com/richxcame/loan-risk/pkg/logger"
	"github.com/richxcame/loan-risk/pkg/ratelimit"
	"go.uber.org/zap"
)

// RateLimit limits requests per client IP on the matched route. Limiter
// failures fail open.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		result, err := limiter.Allow(c.Request.Context(), endpoint, c.ClientIP())
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("rate limiter unavailable, allowing request",
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds()+0.999)))
			common.AppErrorResponse(c, common.NewTooManyRequestsError("too many requests"))
			c.Abort()
			return
		}

		c.Next()
	}
}
