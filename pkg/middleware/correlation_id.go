package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/loan-risk/pkg/logger"
)

const (
	// CorrelationIDHeader carries the request id in and out of the service
	CorrelationIDHeader = "X-Request-ID"
	// CorrelationIDKey is the gin context key holding the request id
	CorrelationIDKey = "correlation_id"

	legacyCorrelationHeader = "X-Correlation-ID"
	maxCorrelationIDLength  = 128
)

// CorrelationID assigns every request an id. An incoming X-Request-ID (or
// X-Correlation-ID) is reused when it is short printable ASCII; otherwise a
// fresh UUID is generated. The id is stored with the scored application.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = c.GetHeader(legacyCorrelationHeader)
		}
		if !validCorrelationID(correlationID) {
			correlationID = uuid.NewString()
		}

		c.Set(CorrelationIDKey, correlationID)
		c.Request = c.Request.WithContext(logger.ContextWithCorrelationID(c.Request.Context(), correlationID))
		c.Writer.Header().Set(CorrelationIDHeader, correlationID)

		c.Next()
	}
}

// GetCorrelationID returns the id assigned by CorrelationID, or ""
func GetCorrelationID(c *gin.Context) string {
	if id, ok := c.Get(CorrelationIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
