// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FlexString decodes from either a JSON string or a JSON number. Upstream box
// score feeds emit numeric ids while snapshots round-trip them as strings.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the raw value.
func (f FlexString) String() string { return string(f) }

// StatKey names one box-score statistic.
type StatKey string

// Box-score statistic keys, matching the deck feed's JSON names.
const (
	StatPoints    StatKey = "PTS"
	StatRebounds  StatKey = "REB"
	StatAssists   StatKey = "AST"
	StatSteals    StatKey = "STL"
	StatBlocks    StatKey = "BLK"
	StatTurnovers StatKey = "TOV"
	StatFGPct     StatKey = "FG_PCT"
	StatFG3Pct    StatKey = "FG3_PCT"
	StatFTPct     StatKey = "FT_PCT"
	StatPlusMinus StatKey = "PLUS_MINUS"
)

// StatKeys lists the numeric statistics in display order.
var StatKeys = []StatKey{
	StatPoints, StatRebounds, StatAssists, StatSteals, StatBlocks,
	StatTurnovers, StatFGPct, StatFG3Pct, StatFTPct, StatPlusMinus,
}

// Stats holds one player's box score. Counting stats are float64 so feeds
// that send per-game averages or "20.0" decode as well as whole numbers.
type Stats struct {
	Points    float64    `json:"PTS"`
	Rebounds  float64    `json:"REB"`
	Assists   float64    `json:"AST"`
	Steals    float64    `json:"STL"`
	Blocks    float64    `json:"BLK"`
	Turnovers float64    `json:"TOV"`
	FGPct     float64    `json:"FG_PCT"`
	FG3Pct    float64    `json:"FG3_PCT"`
	FTPct     float64    `json:"FT_PCT"`
	PlusMinus float64    `json:"PLUS_MINUS"`
	Minutes   FlexString `json:"MIN,omitempty"` // "MM:SS" as reported upstream
}

// Value returns the statistic named by key.
func (s Stats) Value(key StatKey) (float64, bool) {
	switch key {
	case StatPoints:
		return s.Points, true
	case StatRebounds:
		return s.Rebounds, true
	case StatAssists:
		return s.Assists, true
	case StatSteals:
		return s.Steals, true
	case StatBlocks:
		return s.Blocks, true
	case StatTurnovers:
		return s.Turnovers, true
	case StatFGPct:
		return s.FGPct, true
	case StatFG3Pct:
		return s.FG3Pct, true
	case StatFTPct:
		return s.FTPct, true
	case StatPlusMinus:
		return s.PlusMinus, true
	}
	return 0, false
}

// Player is one candidate in the daily deck. Players are immutable once
// loaded and compared by ID.
type Player struct {
	ID     FlexString `json:"PLAYER_ID"`
	Name   string     `json:"PLAYER_NAME"`
	TeamID FlexString `json:"TEAM_ID"`
	Team   string     `json:"TEAM_ABBREVIATION"`
	Stats
}

// Valid reports whether the player can take part in a session.
func (p Player) Valid() bool {
	return strings.TrimSpace(string(p.ID)) != ""
}

// SameAs reports identity equality.
func (p Player) SameAs(other Player) bool {
	return p.ID == other.ID
}

// DeckDateHeader names the header a deck provider uses to report the game
// day a request resolved to.
const DeckDateHeader = "X-Deck-Date"

// Pair is one entry of the daily deck as served by the provider.
type Pair struct {
	ID    *int    `json:"id,omitempty"`
	Left  *Player `json:"player_left"`
	Right *Player `json:"player_right"`
}

// Flatten turns pairs into a player list, skipping missing or id-less
// players and keeping the first occurrence of every id.
func Flatten(pairs []Pair) []Player {
	seen := make(map[FlexString]struct{}, len(pairs)*2)
	out := make([]Player, 0, len(pairs)*2)
	add := func(p *Player) {
		if p == nil || !p.Valid() {
			return
		}
		if _, dup := seen[p.ID]; dup {
			return
		}
		seen[p.ID] = struct{}{}
		out = append(out, *p)
	}
	for _, pair := range pairs {
		add(pair.Left)
		add(pair.Right)
	}
	return out
}

// Teams returns the distinct team abbreviations in first-seen order.
func Teams(players []Player) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range players {
		if p.Team == "" {
			continue
		}
		if _, ok := seen[p.Team]; ok {
			continue
		}
		seen[p.Team] = struct{}{}
		out = append(out, p.Team)
	}
	return out
}
