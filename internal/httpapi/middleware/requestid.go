package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/secret-echo/secret-echo/internal/common"
)

const RequestIDHeader = "X-Request-Id"

// RequestID echoes the caller's id or mints a ULID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			if v, err := common.NewULID(); err == nil {
				id = v
			}
		}
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
