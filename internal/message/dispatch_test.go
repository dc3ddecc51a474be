package message

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stallingPublisher struct {
	called  chan struct{}
	release chan struct{}
	err     error
}

func (p *stallingPublisher) PublishReplyJob(ctx context.Context, userID uint64, content string) error {
	close(p.called)
	select {
	case <-p.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.err
}

func TestQueueDispatchDoesNotBlockOnSlowBroker(t *testing.T) {
	pub := &stallingPublisher{
		called:  make(chan struct{}),
		release: make(chan struct{}),
	}
	d := NewQueueDispatcher(pub)

	start := time.Now()
	d.Dispatch(7, "hello")
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("Dispatch blocked on the broker for %s", elapsed)
	}

	select {
	case <-pub.called:
	case <-time.After(2 * time.Second):
		t.Fatal("publish was never attempted")
	}
	close(pub.release)
}

func TestQueueDispatchSwallowsEnqueueFailure(t *testing.T) {
	pub := &stallingPublisher{
		called:  make(chan struct{}),
		release: make(chan struct{}),
		err:     errors.New("broker gone"),
	}
	close(pub.release)
	d := NewQueueDispatcher(pub)

	// a failed enqueue is logged, never surfaced to the submitter
	d.Dispatch(7, "hello")

	select {
	case <-pub.called:
	case <-time.After(2 * time.Second):
		t.Fatal("publish was never attempted")
	}
}
