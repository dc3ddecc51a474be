package message

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/secret-echo/secret-echo/internal/models"
	"github.com/secret-echo/secret-echo/internal/responder"
)

var greetingReplies = []string{
	"Hello there! How can I help you today?",
	"Hi! Nice to meet you. What can I do for you?",
	"Hey! I'm here to assist you. What do you need?",
}

type publishedEvent struct {
	userID  uint64
	event   string
	payload any
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (b *recordingBroadcaster) Publish(userID uint64, event string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, publishedEvent{userID: userID, event: event, payload: payload})
	return nil
}

func (b *recordingBroadcaster) snapshot() []publishedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]publishedEvent(nil), b.events...)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	u := &models.User{
		Email:        "echo@example.com",
		Username:     "echo",
		PasswordHash: "x",
		AvatarColor:  "#9333EA",
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func newTestService(db *gorm.DB, b Broadcaster) *Service {
	// zero delays so pipeline tests run instantly
	return NewService(NewRepo(db), responder.New(rand.New(rand.NewSource(7))), b, 0, 0, 0)
}

func TestCreateUserMessage_PersistsAndExpands(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db)
	svc := newTestService(db, nil)

	view, err := svc.CreateUserMessage(context.Background(), u.ID, "  hi there  ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if view.Content != "hi there" {
		t.Fatalf("content not trimmed: %q", view.Content)
	}
	if view.Receiver != ReceiverAI {
		t.Fatalf("receiver = %q, want %q", view.Receiver, ReceiverAI)
	}
	if view.Sender.Username != "echo" || view.Sender.AvatarColor != "#9333EA" {
		t.Fatalf("sender not expanded: %+v", view.Sender)
	}
	if view.ID == "" {
		t.Fatal("message id not assigned")
	}
}

func TestCreateUserMessage_RejectsWhitespace(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db)
	svc := newTestService(db, nil)

	for _, input := range []string{"", "   ", "\n\t "} {
		if _, err := svc.CreateUserMessage(context.Background(), u.ID, input); !errors.Is(err, ErrEmptyContent) {
			t.Fatalf("input %q: err = %v, want ErrEmptyContent", input, err)
		}
	}

	var count int64
	if err := db.Model(&Message{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no messages persisted, got %d", count)
	}
}

func TestHandleInbound_GreetingScenario(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db)
	b := &recordingBroadcaster{}
	svc := newTestService(db, b)

	view, err := svc.HandleInbound(context.Background(), u.ID, "hello")
	if err != nil {
		t.Fatalf("handle inbound: %v", err)
	}
	if view.Receiver != ReceiverUser {
		t.Fatalf("receiver = %q, want %q", view.Receiver, ReceiverUser)
	}

	found := false
	for _, r := range greetingReplies {
		if view.Content == r {
			found = true
		}
	}
	if !found {
		t.Fatalf("reply %q not in greeting candidate set", view.Content)
	}

	events := b.snapshot()
	if len(events) != 3 {
		t.Fatalf("expected 3 publishes, got %d", len(events))
	}
	start, ok := events[0].payload.(TypingPayload)
	if events[0].event != EventUserTyping || !ok || !start.IsTyping || !start.IsAI {
		t.Fatalf("first event not typing-start: %+v", events[0])
	}
	if events[1].event != EventNewMessage {
		t.Fatalf("second event = %q, want %q", events[1].event, EventNewMessage)
	}
	if pushed, ok := events[1].payload.(*View); !ok || pushed.ID != view.ID {
		t.Fatalf("message event payload mismatch: %+v", events[1].payload)
	}
	stop, ok := events[2].payload.(TypingPayload)
	if events[2].event != EventUserTyping || !ok || stop.IsTyping || !stop.IsAI {
		t.Fatalf("third event not typing-stop: %+v", events[2])
	}
	for _, e := range events {
		if e.userID != u.ID {
			t.Fatalf("event addressed to user %d, want %d", e.userID, u.ID)
		}
	}
}

func TestHandleInbound_InvalidInput(t *testing.T) {
	db := openTestDB(t)
	b := &recordingBroadcaster{}
	svc := newTestService(db, b)

	if _, err := svc.HandleInbound(context.Background(), 0, "hello"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing user: err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.HandleInbound(context.Background(), 1, "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank content: err = %v, want ErrInvalidInput", err)
	}
	if len(b.snapshot()) != 0 {
		t.Fatal("invalid input must not publish")
	}
}

func TestHandleInbound_PersistenceDownPublishesNothing(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db)
	b := &recordingBroadcaster{}
	svc := newTestService(db, b)

	if err := db.Migrator().DropTable(&Message{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	view, err := svc.HandleInbound(context.Background(), u.ID, "hello")
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if view != nil {
		t.Fatalf("expected nil view, got %+v", view)
	}
	if len(b.snapshot()) != 0 {
		t.Fatal("no channel events may be published when the reply insert fails")
	}
}

func TestHandleInbound_PublishFailureIsNonFatal(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db)
	b := &recordingBroadcaster{err: errors.New("transport down")}
	svc := newTestService(db, b)

	view, err := svc.HandleInbound(context.Background(), u.ID, "hello")
	if err != nil {
		t.Fatalf("publish failure must not fail the pipeline: %v", err)
	}
	if view == nil {
		t.Fatal("expected the persisted reply back")
	}

	// the reply must be visible via bulk fetch
	views, err := svc.ListForUser(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 || views[0].ID != view.ID {
		t.Fatalf("reply not visible in bulk fetch: %+v", views)
	}
}

func TestHandleInbound_CancelledBeforeDelayPersistsNothing(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db)
	b := &recordingBroadcaster{}
	svc := NewService(NewRepo(db), responder.New(rand.New(rand.NewSource(7))), b,
		50*time.Millisecond, 50*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.HandleInbound(ctx, u.ID, "hello"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	var count int64
	if err := db.Model(&Message{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("abandoned invocation persisted %d messages", count)
	}
}

func TestListForUser_AscendingByCreation(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db)
	svc := newTestService(db, nil)

	base := time.Now().Add(-time.Hour).UTC()
	for i, content := range []string{"first", "second", "third"} {
		m := &Message{
			ID:        string(rune('a'+2-i)) + "0000000000000000000000000", // ids descend while time ascends
			UserID:    u.ID,
			Receiver:  ReceiverAI,
			Content:   content,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	views, err := svc.ListForUser(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(views))
	}
	for i, want := range []string{"first", "second", "third"} {
		if views[i].Content != want {
			t.Fatalf("position %d = %q, want %q", i, views[i].Content, want)
		}
	}
}
