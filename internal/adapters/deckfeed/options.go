package deckfeed

import (
	"math/rand/v2"
	"time"
)

// Option applies a configuration option to the Source.
type Option func(*Source)

// WithLookbackDays sets how many days before today are searched for games.
func WithLookbackDays(days int) Option {
	return func(s *Source) {
		if days > 0 {
			s.lookbackDays = days
		}
	}
}

// WithTopPerTeam sets how many leading scorers each team contributes.
func WithTopPerTeam(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.topPerTeam = n
		}
	}
}

// WithMaxGames caps the number of games used per day.
func WithMaxGames(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.maxGames = n
		}
	}
}

// WithClock sets the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRand sets the shuffling source.
func WithRand(r *rand.Rand) Option {
	return func(s *Source) {
		if r != nil {
			s.rng = r
		}
	}
}
