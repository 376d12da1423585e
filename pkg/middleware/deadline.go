package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestDeadline bounds the request context so downstream work (model
// calls, database writes) is cancelled once the budget is spent. It does not
// write a response itself.
func RequestDeadline(budget time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if budget <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), budget)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
