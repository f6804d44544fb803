package notification

import (
	"bidding-engine/utils"
	"context"
	"sync"
	"time"
)

const deliveryTimeout = 5 * time.Second

type envelope struct {
	userID string
	event  Event
}

// AsyncSink queues notifications for a background worker.
// Events arriving while the queue is full or after Close are dropped.
type AsyncSink struct {
	next  Sink
	queue chan envelope

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsyncSink starts the delivery worker
func NewAsyncSink(next Sink, buffer int) *AsyncSink {
	if buffer <= 0 {
		buffer = 1
	}
	s := &AsyncSink{
		next:  next,
		queue: make(chan envelope, buffer),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

// Notify enqueues without blocking and never returns an error
func (s *AsyncSink) Notify(ctx context.Context, userID string, event Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.queue <- envelope{userID: userID, event: event}:
	default:
		utils.Warn("notification queue full, dropping event", map[string]any{
			"user_id":    userID,
			"type":       string(event.Type),
			"auction_id": event.AuctionID,
		})
	}
	return nil
}

// Close stops accepting events and waits for the queue to drain
func (s *AsyncSink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for env := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		if err := s.next.Notify(ctx, env.userID, env.event); err != nil {
			utils.Error("notification delivery failed", map[string]any{
				"user_id":    env.userID,
				"type":       string(env.event.Type),
				"auction_id": env.event.AuctionID,
				"error":      err.Error(),
			})
		}
		cancel()
	}
}
