// Package deck implements the elimination engine behind a daily showdown.
//
// An Engine deals a shuffled list of players into a matchup and a pool. Every
// pick eliminates one player for good and sends the other back into the pool,
// which is reshuffled before the next matchup is drawn. When a pick is made
// with an empty pool the selected player becomes the winner, so a deck of N
// players always finishes after exactly N-1 picks.
//
// An Engine is not safe for concurrent use; callers serialize access.
package deck

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/okian/showdown/internal/domain/model"
	"github.com/okian/showdown/internal/domain/scoring"
)

// MinPlayers is the smallest deck that forms a matchup.
const MinPlayers = 2

// Side identifies one slot of the matchup.
type Side string

// Matchup slots.
const (
	Left  Side = "left"
	Right Side = "right"
)

// ParseSide parses a side name, ignoring case and surrounding space.
func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case Left:
		return Left, true
	case Right:
		return Right, true
	}
	return "", false
}

// MatchLogEntry records one resolved matchup.
type MatchLogEntry struct {
	WinnerID    model.FlexString `json:"winner_id"`
	WinnerName  string           `json:"winner_name"`
	WinnerTeam  string           `json:"winner_team"`
	WinnerScore float64          `json:"winner_score"`
	LoserID     model.FlexString `json:"loser_id"`
	LoserName   string           `json:"loser_name"`
	LoserTeam   string           `json:"loser_team"`
	LoserScore  float64          `json:"loser_score"`
}

// State is a detached copy of the engine state.
type State struct {
	Pool     []model.Player  `json:"pool"`
	Left     *model.Player   `json:"left"`
	Right    *model.Player   `json:"right"`
	Winner   *model.Player   `json:"winner"`
	MatchLog []MatchLogEntry `json:"match_log"`
}

// Update describes the outcome of a pick.
type Update struct {
	// Applied is false when the pick was ignored.
	Applied bool
	Entry   MatchLogEntry
	// Winner is set when the pick finished the deck.
	Winner *model.Player
}

// Engine owns the pool, the current matchup and the match log.
type Engine struct {
	rng    *rand.Rand
	scorer *scoring.Scorer

	pool   []model.Player
	left   model.Player
	right  model.Player
	winner *model.Player
	log    []MatchLogEntry
	size   int
}

func newEngine(opts []Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = newRand()
	}
	if e.scorer == nil {
		e.scorer = scoring.NewScorer()
	}
	return e
}

// New shuffles players and deals the first matchup. Invalid players and
// repeated ids are dropped first; fewer than two remaining players yields an
// *InsufficientPlayersError.
func New(players []model.Player, opts ...Option) (*Engine, error) {
	deck := unique(players)
	if len(deck) < MinPlayers {
		return nil, &InsufficientPlayersError{Count: len(deck)}
	}

	e := newEngine(opts)
	e.size = len(deck)
	shuffle(e.rng, deck)
	e.deal(deck)
	return e, nil
}

// Restore rebuilds an engine from a saved state. Both matchup slots must be
// present and no id may appear twice among the pool and the matchup.
func Restore(st State, opts ...Option) (*Engine, error) {
	if st.Left == nil || st.Right == nil {
		return nil, fmt.Errorf("%w: missing matchup", ErrInvalidState)
	}
	if !st.Left.Valid() || !st.Right.Valid() || st.Left.SameAs(*st.Right) {
		return nil, fmt.Errorf("%w: bad matchup", ErrInvalidState)
	}

	seen := map[model.FlexString]struct{}{st.Left.ID: {}, st.Right.ID: {}}
	for _, p := range st.Pool {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: pool player without id", ErrInvalidState)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("%w: player %s appears twice", ErrInvalidState, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	if st.Winner != nil && !st.Winner.SameAs(*st.Left) && !st.Winner.SameAs(*st.Right) {
		return nil, fmt.Errorf("%w: winner outside the final matchup", ErrInvalidState)
	}
	if st.Winner != nil && len(st.Pool) > 0 {
		return nil, fmt.Errorf("%w: winner with players left in the pool", ErrInvalidState)
	}

	e := newEngine(opts)
	e.pool = append([]model.Player(nil), st.Pool...)
	e.left = *st.Left
	e.right = *st.Right
	e.log = append([]MatchLogEntry(nil), st.MatchLog...)
	if st.Winner != nil {
		w := *st.Winner
		e.winner = &w
		e.size = len(e.log) + 1
	} else {
		e.size = len(e.pool) + 2 + len(e.log)
	}
	return e, nil
}

// deal assigns the first two players to the matchup and the rest to the pool.
func (e *Engine) deal(players []model.Player) {
	e.left = players[0]
	e.right = players[1]
	e.pool = players[2:]
}

// Pick resolves the current matchup in favour of side. Picks made after the
// deck finished or with an unknown side are ignored.
func (e *Engine) Pick(side Side) Update {
	if e.winner != nil {
		return Update{}
	}

	var selected, eliminated model.Player
	switch side {
	case Left:
		selected, eliminated = e.left, e.right
	case Right:
		selected, eliminated = e.right, e.left
	default:
		return Update{}
	}

	entry := MatchLogEntry{
		WinnerID:    selected.ID,
		WinnerName:  selected.Name,
		WinnerTeam:  selected.Team,
		WinnerScore: e.scorer.Score(selected),
		LoserID:     eliminated.ID,
		LoserName:   eliminated.Name,
		LoserTeam:   eliminated.Team,
		LoserScore:  e.scorer.Score(eliminated),
	}
	e.log = append(e.log, entry)

	if len(e.pool) == 0 {
		w := selected
		e.winner = &w
		return Update{Applied: true, Entry: entry, Winner: e.winner}
	}

	next := make([]model.Player, 0, len(e.pool)+1)
	next = append(next, e.pool...)
	next = append(next, selected)
	shuffle(e.rng, next)
	e.deal(next)
	return Update{Applied: true, Entry: entry}
}

// Left returns the player in the left slot.
func (e *Engine) Left() model.Player { return e.left }

// Right returns the player in the right slot.
func (e *Engine) Right() model.Player { return e.right }

// Winner returns the Player of the Day, or nil while the deck is running.
func (e *Engine) Winner() *model.Player {
	if e.winner == nil {
		return nil
	}
	w := *e.winner
	return &w
}

// Terminal reports whether a winner has been crowned.
func (e *Engine) Terminal() bool { return e.winner != nil }

// Remaining returns the number of players waiting in the pool.
func (e *Engine) Remaining() int { return len(e.pool) }

// Size returns the number of players the deck was dealt with.
func (e *Engine) Size() int { return e.size }

// MatchLog returns a copy of the match log in decision order.
func (e *Engine) MatchLog() []MatchLogEntry {
	return append([]MatchLogEntry(nil), e.log...)
}

// State returns a detached copy of the engine state.
func (e *Engine) State() State {
	left, right := e.left, e.right
	return State{
		Pool:     append([]model.Player(nil), e.pool...),
		Left:     &left,
		Right:    &right,
		Winner:   e.Winner(),
		MatchLog: e.MatchLog(),
	}
}

// PathToVictory returns the bouts the winner personally won, or nil while the
// deck is running.
func (e *Engine) PathToVictory() []MatchLogEntry {
	if e.winner == nil {
		return nil
	}
	return PathToVictory(e.log, e.winner.ID)
}

// PathToVictory filters log to the entries won by winnerID, keeping their
// chronological order.
func PathToVictory(log []MatchLogEntry, winnerID model.FlexString) []MatchLogEntry {
	var out []MatchLogEntry
	for _, entry := range log {
		if entry.WinnerID == winnerID {
			out = append(out, entry)
		}
	}
	return out
}

// unique copies the valid players, keeping the first occurrence of every id.
func unique(players []model.Player) []model.Player {
	seen := make(map[model.FlexString]struct{}, len(players))
	out := make([]model.Player, 0, len(players))
	for _, p := range players {
		if !p.Valid() {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
