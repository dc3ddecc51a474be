package realtime

import (
	"encoding/json"
	"testing"
)

func recvFrame(t *testing.T, s *Session) Envelope {
	t.Helper()
	select {
	case b, ok := <-s.Out():
		if !ok {
			t.Fatal("session stream closed")
		}
		var env Envelope
		if err := json.Unmarshal(b, &env); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		return env
	default:
		t.Fatal("no frame buffered")
	}
	return Envelope{}
}

func TestPublish_ReachesEverySessionOfUser(t *testing.T) {
	h := NewHub()
	a := NewSession(7)
	b := NewSession(7)
	other := NewSession(8)
	h.Join(a)
	h.Join(b)
	h.Join(other)

	if err := h.Publish(7, "new_message", map[string]string{"id": "m1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, s := range []*Session{a, b} {
		env := recvFrame(t, s)
		if env.Event != "new_message" {
			t.Fatalf("event = %q", env.Event)
		}
	}

	select {
	case <-other.Out():
		t.Fatal("session of another user received the frame")
	default:
	}
}

func TestPublish_EmptyRoomIsNoop(t *testing.T) {
	h := NewHub()
	if err := h.Publish(42, "new_message", nil); err != nil {
		t.Fatalf("publish to empty room: %v", err)
	}
}

func TestLeave_ClosesStreamAndStopsDelivery(t *testing.T) {
	h := NewHub()
	s := NewSession(7)
	h.Join(s)
	h.Leave(s)

	if _, ok := <-s.Out(); ok {
		t.Fatal("stream not closed on leave")
	}
	if n := h.Sessions(7); n != 0 {
		t.Fatalf("sessions = %d, want 0", n)
	}
	// double leave must not panic
	h.Leave(s)

	if err := h.Publish(7, "new_message", nil); err != nil {
		t.Fatalf("publish after leave: %v", err)
	}
}

func TestPublish_OrderPreservedPerSession(t *testing.T) {
	h := NewHub()
	s := NewSession(9)
	h.Join(s)

	_ = h.Publish(9, "user_typing", map[string]bool{"isTyping": true, "isAI": true})
	_ = h.Publish(9, "new_message", map[string]string{"id": "m1"})
	_ = h.Publish(9, "user_typing", map[string]bool{"isTyping": false, "isAI": true})

	want := []string{"user_typing", "new_message", "user_typing"}
	for i, ev := range want {
		env := recvFrame(t, s)
		if env.Event != ev {
			t.Fatalf("frame %d = %q, want %q", i, env.Event, ev)
		}
	}
}
