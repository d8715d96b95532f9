package persistence

import (
	"time"

	"github.com/okian/showdown/pkg/logger"
)

// Option applies a configuration option to the Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used to report swallowed failures.
func WithLogger(l logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock sets the time source stamped into snapshots.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}
