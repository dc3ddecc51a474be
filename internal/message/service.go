package message

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/secret-echo/secret-echo/internal/common"
	"github.com/secret-echo/secret-echo/internal/responder"
)

var (
	ErrEmptyContent = errors.New("message content cannot be empty")
	ErrInvalidInput = errors.New("invalid pipeline input")
)

// Broadcaster pushes an event to every live session of one user. Delivering
// to a user with no sessions is not an error.
type Broadcaster interface {
	Publish(userID uint64, event string, payload any) error
}

type Service struct {
	repo        *Repo
	resp        *responder.Responder
	broadcaster Broadcaster

	delayMin    time.Duration
	delayMax    time.Duration
	typingPause time.Duration

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// NewService wires the delivery pipeline. broadcaster may be nil (worker
// mode): replies are still persisted and picked up on the next bulk fetch.
func NewService(repo *Repo, resp *responder.Responder, broadcaster Broadcaster, delayMin, delayMax, typingPause time.Duration) *Service {
	if delayMax < delayMin {
		delayMax = delayMin
	}
	return &Service{
		repo:        repo,
		resp:        resp,
		broadcaster: broadcaster,
		delayMin:    delayMin,
		delayMax:    delayMax,
		typingPause: typingPause,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateUserMessage is the synchronous submission boundary: it persists the
// inbound message (receiver = "ai") and re-reads it with the sender profile.
// The caller is expected to fire HandleInbound afterwards without awaiting.
func (s *Service) CreateUserMessage(ctx context.Context, userID uint64, content string) (*View, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	id, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	m := &Message{
		ID:       id,
		UserID:   userID,
		Receiver: ReceiverAI,
		Content:  content,
	}
	if err := s.repo.Insert(ctx, m); err != nil {
		return nil, err
	}
	return s.repo.GetViewByID(ctx, m.ID)
}

// ListForUser is the bulk fetch boundary: every message for the user,
// ascending by creation time, sender expanded.
func (s *Service) ListForUser(ctx context.Context, userID uint64) ([]View, error) {
	return s.repo.ListViewsForUser(ctx, userID)
}

// HandleInbound is one pipeline invocation: thinking delay, scripted reply,
// persist, re-read expanded, then best-effort push of typing-start, the
// message, and typing-stop to the user's channel. Persistence failure is
// terminal and publishes nothing; publish failure is logged and the
// persisted message is still returned.
func (s *Service) HandleInbound(ctx context.Context, userID uint64, content string) (*View, error) {
	if userID == 0 || strings.TrimSpace(content) == "" {
		return nil, ErrInvalidInput
	}

	if err := s.sleep(ctx, s.thinkingDelay()); err != nil {
		return nil, err
	}

	reply := s.resp.Reply(userID, content)

	id, err := common.NewULID()
	if err != nil {
		log.Printf("[pipeline] id generation failed user=%d err=%v", userID, err)
		return nil, err
	}
	m := &Message{
		ID:       id,
		UserID:   userID,
		Receiver: ReceiverUser,
		Content:  reply,
	}
	if err := s.repo.Insert(ctx, m); err != nil {
		log.Printf("[pipeline] reply insert failed user=%d err=%v", userID, err)
		return nil, err
	}

	view, err := s.repo.GetViewByID(ctx, m.ID)
	if err != nil {
		log.Printf("[pipeline] reply read-back failed user=%d id=%s err=%v", userID, m.ID, err)
		return nil, err
	}

	s.push(ctx, userID, view)
	return view, nil
}

// push emits typing-start, pause, message, typing-stop in strict order.
// Any publish error downgrades realtime delivery to the next bulk fetch.
func (s *Service) push(ctx context.Context, userID uint64, view *View) {
	if s.broadcaster == nil {
		log.Printf("[pipeline] no broadcaster, skipping push user=%d id=%s", userID, view.ID)
		return
	}
	if err := s.broadcaster.Publish(userID, EventUserTyping, TypingPayload{IsTyping: true, IsAI: true}); err != nil {
		log.Printf("[pipeline] typing-start publish failed user=%d err=%v", userID, err)
	}
	if err := s.sleep(ctx, s.typingPause); err != nil {
		return
	}
	if err := s.broadcaster.Publish(userID, EventNewMessage, view); err != nil {
		log.Printf("[pipeline] message publish failed user=%d id=%s err=%v", userID, view.ID, err)
	}
	if err := s.broadcaster.Publish(userID, EventUserTyping, TypingPayload{IsTyping: false, IsAI: true}); err != nil {
		log.Printf("[pipeline] typing-stop publish failed user=%d err=%v", userID, err)
	}
}

func (s *Service) thinkingDelay() time.Duration {
	span := s.delayMax - s.delayMin
	if span <= 0 {
		return s.delayMin
	}
	s.rndMu.Lock()
	d := s.delayMin + time.Duration(s.rnd.Int63n(int64(span)))
	s.rndMu.Unlock()
	return d
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
