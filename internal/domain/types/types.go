// Package types contains the view types the session layer hands to the
// presentation layer.
package types

import (
	"github.com/okian/showdown/internal/domain/deck"
	"github.com/okian/showdown/internal/domain/model"
	"github.com/okian/showdown/internal/domain/scoring"
)

// PlayerCard is a player with its Game Score and per-stat colors.
type PlayerCard struct {
	model.Player
	Score  float64                         `json:"score"`
	Colors map[model.StatKey]scoring.Color `json:"colors"`
}

// NewPlayerCard scores p with s.
func NewPlayerCard(p model.Player, s *scoring.Scorer) *PlayerCard {
	return &PlayerCard{
		Player: p,
		Score:  s.Score(p),
		Colors: scoring.StatColors(p.Stats),
	}
}

// ErrorView describes a recoverable failure.
type ErrorView struct {
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Status    int      `json:"status,omitempty"`
	Actions   []string `json:"actions"`
	Retryable bool     `json:"retryable"`
}

// View is a read-only rendering of a session.
type View struct {
	State string `json:"state"`

	Left      *PlayerCard `json:"left,omitempty"`
	Right     *PlayerCard `json:"right,omitempty"`
	Remaining int         `json:"remaining"`
	// Round is the 1-based number of the current matchup; Rounds is the
	// number of matchups the deck takes.
	Round  int `json:"round"`
	Rounds int `json:"rounds"`

	Winner      *PlayerCard          `json:"winner,omitempty"`
	MatchLog    []deck.MatchLogEntry `json:"match_log"`
	DeckAverage float64              `json:"deck_average"`

	Team string `json:"team"`
	// Date is the requested date, empty for the latest deck. DeckDate is the
	// game day the deck was dealt for.
	Date     string   `json:"date"`
	DeckDate string   `json:"deck_date,omitempty"`
	Teams    []string `json:"teams"`

	Error *ErrorView `json:"error,omitempty"`
}
