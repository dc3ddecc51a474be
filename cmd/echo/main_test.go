package main

import (
	"strings"
	"testing"
	"time"

	"github.com/secret-echo/secret-echo/internal/client"
)

func testModel() model {
	acct := &client.Account{ID: 1, Username: "echo", Token: "token"}
	return newModel(client.NewAPI("http://localhost:5000"), nil, nil, acct, "ws://localhost:5000")
}

func TestSocketDropWarnsAndSchedulesRedial(t *testing.T) {
	m := testModel()

	next, cmd := m.Update(socketGoneMsg{})
	nm := next.(model)

	if nm.sock != nil {
		t.Fatal("dropped socket still referenced")
	}
	if nm.state.Warning == "" || strings.Contains(nm.state.Warning, "load messages") {
		t.Fatalf("warning %q does not describe the lost connection", nm.state.Warning)
	}
	if cmd == nil {
		t.Fatal("no reconnect attempt scheduled")
	}
}

func TestFailedRedialReschedules(t *testing.T) {
	m := testModel()

	_, cmd := m.Update(redialMsg{next: 2 * time.Second})
	if cmd == nil {
		t.Fatal("failed redial must schedule another attempt")
	}
}
