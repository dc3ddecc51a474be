package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/secret-echo/secret-echo/internal/common"
	"github.com/secret-echo/secret-echo/internal/config"
	"github.com/secret-echo/secret-echo/internal/httpapi/handlers"
	"github.com/secret-echo/secret-echo/internal/httpapi/middleware"
	"github.com/secret-echo/secret-echo/internal/message"
	"github.com/secret-echo/secret-echo/internal/realtime"
	"github.com/secret-echo/secret-echo/internal/store/redisstore"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, hub *realtime.Hub, svc *message.Service, dispatch message.Dispatcher) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(db, cfg, svc, dispatch)

	r.GET("/ping", func(c *gin.Context) { common.OK(c, gin.H{"pong": true}) })

	authLimiter := middleware.RateLimit(rds, "auth", 10, 15*time.Minute,
		"too many requests from this IP, please try again after 15 minutes")
	sendLimiter := middleware.RateLimit(rds, "send", 10, time.Minute,
		"too many messages sent, please try again after 1 minute")

	authGroup := r.Group("/api/auth")
	authGroup.POST("/register", authLimiter, h.Register)
	authGroup.POST("/login", authLimiter, h.Login)
	authGroup.GET("/me", middleware.AuthRequired(db, cfg.JWTSecret), h.Me)

	msgGroup := r.Group("/api/messages")
	msgGroup.Use(middleware.AuthRequired(db, cfg.JWTSecret))
	msgGroup.GET("", h.ListMessages)
	msgGroup.POST("", sendLimiter, h.SendMessage)

	// Realtime channel; the websocket handshake carries its own token.
	ws := realtime.NewWSHandler(hub, db, cfg.JWTSecret)
	r.GET("/ws", ws.Serve)

	return r
}
