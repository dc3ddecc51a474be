package client

import (
	"encoding/json"
	"log"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/secret-echo/secret-echo/internal/message"
)

// Push is one decoded channel event.
type Push struct {
	Event   string
	Message *message.View
	Typing  *message.TypingPayload
}

// Socket is the realtime channel client. Events() closes when the
// connection drops; the view keeps working off fetch + cache.
type Socket struct {
	conn   *websocket.Conn
	events chan Push
}

// DialSocket connects and authenticates with the token in the query
// string, mirroring the server handshake.
func DialSocket(baseWS, token string) (*Socket, error) {
	u, err := url.Parse(baseWS + "/ws")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}

	s := &Socket{conn: conn, events: make(chan Push, 16)}
	go s.readLoop()
	return s, nil
}

func (s *Socket) Events() <-chan Push { return s.events }

func (s *Socket) Close() error {
	return s.conn.Close()
}

func (s *Socket) readLoop() {
	defer close(s.events)
	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var env struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(frame, &env); err != nil {
			log.Printf("[socket] bad frame: %v", err)
			continue
		}

		switch env.Event {
		case message.EventNewMessage:
			var v message.View
			if err := json.Unmarshal(env.Data, &v); err != nil {
				log.Printf("[socket] bad message payload: %v", err)
				continue
			}
			s.events <- Push{Event: env.Event, Message: &v}
		case message.EventUserTyping:
			var t message.TypingPayload
			if err := json.Unmarshal(env.Data, &t); err != nil {
				log.Printf("[socket] bad typing payload: %v", err)
				continue
			}
			s.events <- Push{Event: env.Event, Typing: &t}
		}
	}
}
