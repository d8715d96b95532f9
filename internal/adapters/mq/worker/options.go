package worker

import (
	"time"

	"github.com/okian/showdown/internal/adapters/mq/queue"
	"github.com/okian/showdown/pkg/logger"
)

// Option applies a configuration option to the WriteBehind.
type Option func(*WriteBehind)

// WithWorkers sets the number of flushing goroutines.
func WithWorkers(n int) Option {
	return func(w *WriteBehind) {
		if n > 0 {
			w.workers = n
		}
	}
}

// WithQueue sets the queue carrying dirty keys.
func WithQueue(q queue.Queue) Option {
	return func(w *WriteBehind) {
		if q != nil {
			w.queue = q
		}
	}
}

// WithOpTimeout bounds every backend call.
func WithOpTimeout(d time.Duration) Option {
	return func(w *WriteBehind) {
		if d > 0 {
			w.opTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the writer.
func WithLogger(l logger.Logger) Option {
	return func(w *WriteBehind) {
		if l != nil {
			w.logger = l
		}
	}
}
