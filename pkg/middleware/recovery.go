package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/richxcame/loan-risk/pkg/common"
	"github.com/richxcame/loan-risk/pkg/logger"
	"go.uber.org/zap"
)

// Recovery middleware recovers from panics. If respond is given it writes the
// response, otherwise the standard error envelope is used.
func Recovery(respond ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.WithContext(c.Request.Context()).Error("Panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.Stack("stack"),
				)

				if len(respond) > 0 {
					respond[0](c)
				} else {
					common.AppErrorResponse(c, common.NewInternalServerError("internal server error"))
				}
				c.Abort()
			}
		}()

		c.Next()
	}
}
