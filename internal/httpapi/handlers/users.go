package handlers

import (
	"crypto/rand"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/secret-echo/secret-echo/internal/auth"
	"github.com/secret-echo/secret-echo/internal/common"
	"github.com/secret-echo/secret-echo/internal/httpapi/middleware"
	"github.com/secret-echo/secret-echo/internal/models"
)

const tokenTTL = 24 * time.Hour

// avatarColors is the palette a new account draws from.
var avatarColors = []string{
	"#9333EA", "#3B82F6", "#10B981", "#F59E0B",
	"#EF4444", "#EC4899", "#14B8A6", "#6366F1",
}

func randomAvatarColor() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(avatarColors))))
	if err != nil {
		return avatarColors[0]
	}
	return avatarColors[n.Int64()]
}

type registerReq struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || len(req.Password) < 6 {
		common.Fail(c, http.StatusBadRequest, 10002, "email, username and a password of 6+ characters required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20002, "failed to hash password")
		return
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		AvatarColor:  randomAvatarColor(),
	}
	if err := h.DB.Create(&user).Error; err != nil {
		common.Fail(c, http.StatusBadRequest, 10003, "failed to create user (maybe email or username already exists)")
		return
	}

	token, err := auth.SignJWT(user.ID, h.Cfg.JWTSecret, tokenTTL)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	common.OK(c, gin.H{
		"id":           user.ID,
		"email":        user.Email,
		"username":     user.Username,
		"avatar_color": user.AvatarColor,
		"token":        token,
	})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	// Same message for unknown email and wrong password.
	const genericMsg = "invalid credentials"

	var user models.User
	if err := h.DB.Where("email = ?", strings.TrimSpace(req.Email)).First(&user).Error; err != nil {
		common.Fail(c, http.StatusUnauthorized, 40102, genericMsg)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		common.Fail(c, http.StatusUnauthorized, 40102, genericMsg)
		return
	}

	token, err := auth.SignJWT(user.ID, h.Cfg.JWTSecret, tokenTTL)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	common.OK(c, gin.H{
		"id":           user.ID,
		"email":        user.Email,
		"username":     user.Username,
		"avatar_color": user.AvatarColor,
		"token":        token,
	})
}

func (h *Handler) Me(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "not authorized to access this route")
		return
	}

	var user models.User
	if err := h.DB.First(&user, uid).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40401, "user not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	common.OK(c, gin.H{
		"id":           user.ID,
		"email":        user.Email,
		"username":     user.Username,
		"avatar_color": user.AvatarColor,
		"created_at":   user.CreatedAt,
	})
}

func userIDFromContext(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
