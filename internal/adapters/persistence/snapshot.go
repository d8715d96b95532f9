// Package persistence saves and restores session snapshots on top of a
// repository.Store. Failures never reach the caller: a broken store degrades
// to "no saved session".
package persistence

import (
	"time"

	"github.com/okian/showdown/internal/domain/deck"
	"github.com/okian/showdown/internal/domain/model"
)

// SnapshotVersion is the only snapshot layout Load accepts.
const SnapshotVersion = 1

// KeyPrefix prefixes every session key.
const KeyPrefix = "showdown:session:"

// Key returns the store key of a session.
func Key(sessionID string) string {
	return KeyPrefix + sessionID
}

// Snapshot is the persisted form of a session.
type Snapshot struct {
	Version int `json:"version"`
	// AllPlayers is the full deck as originally loaded, before any team filter.
	AllPlayers []model.Player       `json:"all_players"`
	Pool       []model.Player       `json:"pool"`
	Left       *model.Player        `json:"left"`
	Right      *model.Player        `json:"right"`
	Winner     *model.Player        `json:"winner"`
	MatchLog   []deck.MatchLogEntry `json:"match_log"`
	Team       string               `json:"team,omitempty"`
	Date       string               `json:"date,omitempty"`
	// DeckDate is the game day the deck was dealt for, set even when Date
	// asked for the latest deck.
	DeckDate string    `json:"deck_date,omitempty"`
	SavedAt  time.Time `json:"saved_at"`
}

// NewSnapshot captures an engine state together with its session context.
func NewSnapshot(all []model.Player, st deck.State, team, date, deckDate string) Snapshot {
	return Snapshot{
		Version:    SnapshotVersion,
		AllPlayers: all,
		Pool:       st.Pool,
		Left:       st.Left,
		Right:      st.Right,
		Winner:     st.Winner,
		MatchLog:   st.MatchLog,
		Team:       team,
		Date:       date,
		DeckDate:   deckDate,
	}
}

// State returns the engine part of the snapshot.
func (s Snapshot) State() deck.State {
	return deck.State{
		Pool:     s.Pool,
		Left:     s.Left,
		Right:    s.Right,
		Winner:   s.Winner,
		MatchLog: s.MatchLog,
	}
}

// Resumable reports whether the snapshot can seed a session.
func (s Snapshot) Resumable() bool {
	return s.Version == SnapshotVersion && s.Left != nil && s.Right != nil
}
