package delivery

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Errors returned by Queue.Enqueue.
var (
	ErrQueueClosed = errors.New("delivery queue is closed")
	ErrQueueFull   = errors.New("delivery queue is full")
)

// envelope is one pending push.
type envelope struct {
	address string
	payload Payload
}

// Queue is a bounded FIFO of pending pushes. Enqueue never blocks.
type Queue struct {
	mu     sync.RWMutex
	items  chan envelope
	closed bool
	logger *slog.Logger
}

// NewQueue creates a queue holding at most size pending pushes.
func NewQueue(size int, logger *slog.Logger) *Queue {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		items:  make(chan envelope, size),
		logger: logger,
	}
}

// Enqueue adds a push to the queue. It returns ErrQueueFull when the buffer
// is at capacity and ErrQueueClosed after Close.
func (q *Queue) Enqueue(address string, payload Payload) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- envelope{address: address, payload: payload}:
		q.logger.Debug("push enqueued",
			"notification_id", payload.ID,
			"queue_len", len(q.items),
			"queue_cap", cap(q.items))
		return nil
	default:
		return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(q.items))
	}
}

// Close stops accepting pushes. Items already queued remain readable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.items)
		q.logger.Info("delivery queue closed")
	}
}

// Len returns the number of pending pushes.
func (q *Queue) Len() int {
	return len(q.items)
}

func (q *Queue) channel() <-chan envelope {
	return q.items
}
