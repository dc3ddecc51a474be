package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/secret-echo/secret-echo/internal/auth"
	"github.com/secret-echo/secret-echo/internal/common"
	"github.com/secret-echo/secret-echo/internal/models"
)

const UserIDKey = "user_id"

// AuthRequired resolves the bearer token to a user id. Missing token,
// invalid token, and a user row that no longer exists all return the same
// message so callers cannot probe which case they hit.
func AuthRequired(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const genericMsg = "not authorized to access this route"

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			common.Fail(c, http.StatusUnauthorized, 40101, genericMsg)
			c.Abort()
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		uid, err := auth.ParseJWT(token, jwtSecret)
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40101, genericMsg)
			c.Abort()
			return
		}

		var user models.User
		if err := db.First(&user, uid).Error; err != nil {
			common.Fail(c, http.StatusUnauthorized, 40101, genericMsg)
			c.Abort()
			return
		}

		c.Set(UserIDKey, uid)
		c.Next()
	}
}
