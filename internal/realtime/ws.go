package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/secret-echo/secret-echo/internal/auth"
	"github.com/secret-echo/secret-echo/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	maxMsgSize = 4096
)

// WSHandler upgrades authenticated HTTP requests into hub sessions.
type WSHandler struct {
	hub       *Hub
	db        *gorm.DB
	jwtSecret string
	upgrader  websocket.Upgrader
}

func NewWSHandler(hub *Hub, db *gorm.DB, jwtSecret string) *WSHandler {
	return &WSHandler{
		hub:       hub,
		db:        db,
		jwtSecret: jwtSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Serve authenticates the connection and joins the user's room. Missing
// token, bad token, and deleted user all produce the same generic refusal.
func (h *WSHandler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		if v := c.GetHeader("Authorization"); strings.HasPrefix(v, "Bearer ") {
			token = strings.TrimPrefix(v, "Bearer ")
		}
	}

	uid, err := auth.ParseJWT(token, h.jwtSecret)
	if err == nil {
		var user models.User
		err = h.db.First(&user, uid).Error
	}
	if err != nil {
		c.String(http.StatusUnauthorized, "authentication error")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[realtime] upgrade failed user=%d err=%v", uid, err)
		return
	}

	s := NewSession(uid)
	h.hub.Join(s)
	log.Printf("[realtime] session joined user=%d sessions=%d", uid, h.hub.Sessions(uid))

	go h.writePump(conn, s)
	h.readPump(conn, s)
}

func (h *WSHandler) writePump(conn *websocket.Conn, s *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case frame, ok := <-s.Out():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames until disconnect. The send_message frame is
// a hint only; the REST submission is the authoritative path.
func (h *WSHandler) readPump(conn *websocket.Conn, s *Session) {
	defer func() {
		h.hub.Leave(s)
		log.Printf("[realtime] session left user=%d sessions=%d", s.UserID(), h.hub.Sessions(s.UserID()))
	}()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			continue
		}
		if env.Event == "send_message" {
			log.Printf("[realtime] send_message hint user=%d", s.UserID())
		}
	}
}
