// Package queue carries store keys from snapshot writers to the background
// workers that flush them.
package queue

import (
	"context"
	"sync"

	"github.com/okian/showdown/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
)

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a key to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, key string) bool

	// Dequeue returns a channel that receives keys as they become available.
	// The channel is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan string

	// Len returns the current number of queued keys.
	Len(ctx context.Context) int

	// Close stops accepting keys. Keys already queued are still delivered.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	keys     chan string
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.keys = make(chan string, q.capacity)
	metrics.UpdateWriterQueueSize(0)
	return q
}

// Enqueue adds a key to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, key string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || ctx.Err() != nil {
		return false
	}

	select {
	case q.keys <- key:
		metrics.UpdateWriterQueueSize(len(q.keys))
		return true
	default:
		return false
	}
}

// Dequeue returns a channel that will receive keys as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for key := range q.keys {
			metrics.UpdateWriterQueueSize(len(q.keys))
			select {
			case out <- key:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued keys.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.keys)
}

// Close stops the queue from accepting new keys.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.keys)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
