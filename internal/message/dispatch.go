package message

import (
	"context"
	"log"
	"time"
)

// Dispatcher hands an inbound submission to the reply pipeline without the
// caller awaiting the result.
type Dispatcher interface {
	Dispatch(userID uint64, content string)
}

// pipelineTimeout bounds one abandoned-on-shutdown pipeline invocation.
const pipelineTimeout = 30 * time.Second

type inlineDispatcher struct {
	svc *Service
}

// NewInlineDispatcher runs each invocation on its own goroutine, so
// submissions from different users (and repeats from the same user) proceed
// independently. Arguments are captured by value.
func NewInlineDispatcher(svc *Service) Dispatcher {
	return &inlineDispatcher{svc: svc}
}

func (d *inlineDispatcher) Dispatch(userID uint64, content string) {
	go func(uid uint64, text string) {
		ctx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
		defer cancel()
		if _, err := d.svc.HandleInbound(ctx, uid, text); err != nil {
			log.Printf("[dispatch] pipeline failed user=%d err=%v", uid, err)
		}
	}(userID, content)
}

// QueuePublisher is the broker side of queue-backed dispatch.
type QueuePublisher interface {
	PublishReplyJob(ctx context.Context, userID uint64, content string) error
}

type queueDispatcher struct {
	pub QueuePublisher
}

// NewQueueDispatcher enqueues the reply job for an external worker instead
// of running the pipeline in-process.
func NewQueueDispatcher(pub QueuePublisher) Dispatcher {
	return &queueDispatcher{pub: pub}
}

func (d *queueDispatcher) Dispatch(userID uint64, content string) {
	// off the request goroutine: a slow or down broker must not stall the
	// submission response
	go func(uid uint64, text string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.pub.PublishReplyJob(ctx, uid, text); err != nil {
			// The inbound message is already persisted; the user simply gets
			// no reply, same as a pipeline persistence failure.
			log.Printf("[dispatch] enqueue failed user=%d err=%v", uid, err)
		}
	}(userID, content)
}
