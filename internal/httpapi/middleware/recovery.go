package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secret-echo/secret-echo/internal/common"
)

// Recovery turns a handler panic into the standard 500 envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[recovery] panic: %v", r)
				common.Fail(c, http.StatusInternalServerError, 50000, "internal error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
