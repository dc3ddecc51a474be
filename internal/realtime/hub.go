// Package realtime is the push channel: authenticated sessions join a room
// named by their user id, and server-side publishes fan out to every live
// session in that room.
package realtime

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"
)

const sessionSendBuffer = 32

// Session is one live socket connection. A user may hold several at once;
// all of them receive every publish addressed to that user.
type Session struct {
	userID uint64
	room   string
	out    chan []byte
}

func NewSession(userID uint64) *Session {
	return &Session{
		userID: userID,
		room:   strconv.FormatUint(userID, 10),
		out:    make(chan []byte, sessionSendBuffer),
	}
}

func (s *Session) UserID() uint64 { return s.userID }

// Out is the frame stream the transport write loop drains. It is closed
// when the session leaves the hub.
func (s *Session) Out() <-chan []byte { return s.out }

// Envelope frames every pushed event.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Session]struct{})}
}

func (h *Hub) Join(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.rooms[s.room]
	if !ok {
		set = make(map[*Session]struct{})
		h.rooms[s.room] = set
	}
	set[s] = struct{}{}
}

// Leave removes the session and closes its frame stream. Safe to call for
// a session that already left.
func (h *Hub) Leave(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.rooms[s.room]
	if !ok {
		return
	}
	if _, member := set[s]; !member {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.rooms, s.room)
	}
	close(s.out)
}

// Publish delivers one event to every session in the user's room. An empty
// room is a no-op; a session with a full buffer is skipped rather than
// blocking the caller (the client reconverges on its next bulk fetch).
func (h *Hub) Publish(userID uint64, event string, payload any) error {
	b, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		return err
	}

	room := strconv.FormatUint(userID, 10)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.rooms[room] {
		select {
		case s.out <- b:
		default:
			log.Printf("[realtime] dropping %s frame for slow session user=%d", event, userID)
		}
	}
	return nil
}

// Sessions reports the number of live sessions for a user.
func (h *Hub) Sessions(userID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[strconv.FormatUint(userID, 10)])
}
