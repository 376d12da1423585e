package common

import (
	"github.com/gin-gonic/gin"
)

// Response is the standard envelope for ambient endpoints (rate limiting, recovery)
type Response struct {
	Success bool       `json:"success"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo describes an error in the response envelope
type ErrorInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse writes an error envelope
func ErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    status,
			Message: message,
		},
	})
}

// AppErrorResponse writes an error envelope from an AppError. The cause is
// never included in the body.
func AppErrorResponse(c *gin.Context, err *AppError) {
	ErrorResponse(c, err.Code, err.Message)
}
