// Package worker flushes snapshot writes to a backing store in the
// background.
//
// WriteBehind keeps only the newest operation per key. While one operation
// for a key is being applied, later writes for the same key wait in the
// pending table and replace each other, so the store always ends up with the
// last value submitted.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/showdown/internal/adapters/mq/queue"
	"github.com/okian/showdown/internal/adapters/repository"
	"github.com/okian/showdown/pkg/logger"
	"github.com/okian/showdown/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkers   = 2
	defaultOpTimeout = 5 * time.Second
)

// ErrStopped is returned by Stop when called twice.
var ErrStopped = errors.New("writer stopped")

type op struct {
	value  []byte
	delete bool
}

// WriteBehind implements repository.Store on top of a slower backend.
type WriteBehind struct {
	backend repository.Store
	queue   queue.Queue

	workers   int
	opTimeout time.Duration
	logger    logger.Logger

	mu       sync.Mutex
	pending  map[string]op
	inflight map[string]op
	stopped  bool

	wg sync.WaitGroup
}

var _ repository.Store = (*WriteBehind)(nil)

// NewWriteBehind creates a writer in front of backend. Call Start before use.
func NewWriteBehind(backend repository.Store, opts ...Option) *WriteBehind {
	w := &WriteBehind{
		backend:   backend,
		workers:   defaultWorkers,
		opTimeout: defaultOpTimeout,
		logger:    logger.Nop(),
		pending:   make(map[string]op),
		inflight:  make(map[string]op),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.queue == nil {
		w.queue = queue.NewInMemoryQueue()
	}
	return w
}

// Start launches the worker goroutines.
func (w *WriteBehind) Start(ctx context.Context) {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, w.logger.Named("writer-"+strconv.Itoa(i)))
	}
	w.logger.Info(ctx, "write-behind started", logger.Int("workers", w.workers))
}

func (w *WriteBehind) run(ctx context.Context, log logger.Logger) {
	defer w.wg.Done()
	for key := range w.queue.Dequeue(ctx) {
		w.mu.Lock()
		_, busy := w.inflight[key]
		_, queued := w.pending[key]
		if busy || !queued {
			w.mu.Unlock()
			continue
		}
		w.claim(key)
		w.mu.Unlock()

		if err := w.process(key); err != nil {
			log.Warn(ctx, "snapshot write failed", logger.String("key", key), logger.Error(err))
		}
	}
}

// claim moves the pending op of key in flight. Caller holds mu.
func (w *WriteBehind) claim(key string) {
	w.inflight[key] = w.pending[key]
	delete(w.pending, key)
}

// process applies the in-flight op of key, then any op that arrived
// meanwhile, until nothing is left. It returns the last error seen.
func (w *WriteBehind) process(key string) error {
	var last error
	for {
		w.mu.Lock()
		o := w.inflight[key]
		w.mu.Unlock()

		if err := w.apply(key, o); err != nil {
			metrics.RecordPersistenceError("write_behind")
			last = err
		}

		w.mu.Lock()
		if _, more := w.pending[key]; more {
			w.claim(key)
			w.mu.Unlock()
			continue
		}
		delete(w.inflight, key)
		w.mu.Unlock()
		return last
	}
}

func (w *WriteBehind) apply(key string, o op) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.opTimeout)
	defer cancel()
	if o.delete {
		return w.backend.Delete(ctx, key)
	}
	return w.backend.Put(ctx, key, o.value)
}

// submit records o as the newest op for key and schedules it. Once the
// writer is stopped, or when the queue is full, the op is applied inline.
func (w *WriteBehind) submit(ctx context.Context, key string, o op) error {
	w.mu.Lock()
	_, queued := w.pending[key]
	_, busy := w.inflight[key]
	w.pending[key] = o
	if queued {
		metrics.RecordWriterCoalesced()
	}
	if queued || busy {
		w.mu.Unlock()
		return nil
	}
	stopped := w.stopped
	if !stopped && w.queue.Enqueue(ctx, key) {
		w.mu.Unlock()
		return nil
	}
	w.claim(key)
	w.mu.Unlock()

	if !stopped {
		metrics.RecordWriterSyncFallback()
	}
	return w.process(key)
}

// Get implements repository.Store. Unflushed writes are visible immediately.
func (w *WriteBehind) Get(ctx context.Context, key string) ([]byte, error) {
	w.mu.Lock()
	o, ok := w.pending[key]
	if !ok {
		o, ok = w.inflight[key]
	}
	w.mu.Unlock()

	if ok {
		if o.delete {
			return nil, repository.ErrNotFound
		}
		return append([]byte(nil), o.value...), nil
	}
	return w.backend.Get(ctx, key)
}

// Put implements repository.Store.
func (w *WriteBehind) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return repository.ErrInvalidKey
	}
	return w.submit(ctx, key, op{value: append([]byte(nil), value...)})
}

// Delete implements repository.Store.
func (w *WriteBehind) Delete(ctx context.Context, key string) error {
	if key == "" {
		return repository.ErrInvalidKey
	}
	return w.submit(ctx, key, op{delete: true})
}

// Pending returns the number of keys not yet flushed.
func (w *WriteBehind) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending) + len(w.inflight)
}

// Stop closes the queue, waits for the workers and flushes what is left.
// Later writes go straight to the backend.
func (w *WriteBehind) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return ErrStopped
	}
	w.stopped = true
	w.mu.Unlock()

	if err := w.queue.Close(); err != nil {
		w.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn(ctx, "write-behind shutdown timed out", logger.Int("pending", w.Pending()))
		return fmt.Errorf("write-behind shutdown: %w", ctx.Err())
	}

	w.mu.Lock()
	keys := make([]string, 0, len(w.pending))
	for key := range w.pending {
		if _, busy := w.inflight[key]; !busy {
			keys = append(keys, key)
		}
	}
	for _, key := range keys {
		w.claim(key)
	}
	w.mu.Unlock()

	var errs []error
	for _, key := range keys {
		if err := w.process(key); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", key, err))
		}
	}
	w.logger.Info(ctx, "write-behind stopped", logger.Int("flushed", len(keys)))
	return errors.Join(errs...)
}
