package repository

import (
	"context"
	"time"

	"github.com/okian/showdown/pkg/metrics"
)

// Instrumented records the latency of every call to the wrapped store.
type Instrumented struct {
	next Store
}

// Instrument wraps next with latency metrics.
func Instrument(next Store) *Instrumented {
	return &Instrumented{next: next}
}

func observe(op string, start time.Time) {
	metrics.RecordPersistenceLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// Get implements Store.
func (s *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	defer observe("get", time.Now())
	return s.next.Get(ctx, key)
}

// Put implements Store.
func (s *Instrumented) Put(ctx context.Context, key string, value []byte) error {
	defer observe("put", time.Now())
	return s.next.Put(ctx, key, value)
}

// Delete implements Store.
func (s *Instrumented) Delete(ctx context.Context, key string) error {
	defer observe("delete", time.Now())
	return s.next.Delete(ctx, key)
}

// Close closes the wrapped store when it holds resources.
func (s *Instrumented) Close() error {
	if c, ok := s.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
