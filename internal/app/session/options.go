package session

import (
	"time"

	"github.com/okian/showdown/internal/domain/deck"
	"github.com/okian/showdown/internal/domain/scoring"
	"github.com/okian/showdown/pkg/logger"
)

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithScorer sets the scorer used for cards, the match log and the deck
// average.
func WithScorer(s *scoring.Scorer) Option {
	return func(c *Controller) {
		if s != nil {
			c.scorer = s
		}
	}
}

// WithDate scopes the first fetch to date (YYYY-MM-DD). Empty means latest.
func WithDate(date string) Option {
	return func(c *Controller) {
		c.date = date
	}
}

// WithClock sets the time source used to date decks the provider did not date.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithDeckOptions passes options to every engine the controller deals.
func WithDeckOptions(opts ...deck.Option) Option {
	return func(c *Controller) {
		c.deckOpts = append(c.deckOpts, opts...)
	}
}

// WithLogger sets a custom logger for the controller.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}
