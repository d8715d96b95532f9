// Package deckfeed is a development deck provider. It builds the daily deck
// from a fixture of box scores: the three top scorers of every team that
// played on the date are shuffled and paired.
package deckfeed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/okian/showdown/internal/domain/model"
)

// DateLayout is the wire format of deck dates.
const DateLayout = "2006-01-02"

// Defaults mirror the upstream feed.
const (
	defaultLookbackDays = 7
	defaultTopPerTeam   = 3
	defaultMaxGames     = 5
)

//go:embed sample.json
var sampleFixture []byte

// Fixture is a set of box scores grouped by game.
type Fixture struct {
	Games []Game `json:"games"`
}

// Game is one game's box score.
type Game struct {
	GameID string    `json:"game_id"`
	Date   string    `json:"date"`
	Teams  []TeamBox `json:"teams"`
}

// TeamBox is one team's side of a box score.
type TeamBox struct {
	TeamID       model.FlexString `json:"team_id"`
	Abbreviation string           `json:"team_abbreviation"`
	Players      []model.Player   `json:"players"`
}

// Source deals decks out of a fixture.
type Source struct {
	byDate map[string][]Game

	lookbackDays int
	topPerTeam   int
	maxGames     int
	now          func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSource indexes fixture by date.
func NewSource(fixture Fixture, opts ...Option) *Source {
	s := &Source{
		byDate:       make(map[string][]Game),
		lookbackDays: defaultLookbackDays,
		topPerTeam:   defaultTopPerTeam,
		maxGames:     defaultMaxGames,
		now:          time.Now,
		rng:          rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, g := range fixture.Games {
		s.byDate[g.Date] = append(s.byDate[g.Date], g)
	}
	return s
}

// ParseFixture decodes a fixture document.
func ParseFixture(b []byte) (Fixture, error) {
	var f Fixture
	if err := json.Unmarshal(b, &f); err != nil {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	for _, g := range f.Games {
		if _, err := time.Parse(DateLayout, g.Date); err != nil {
			return Fixture{}, fmt.Errorf("game %s: bad date %q", g.GameID, g.Date)
		}
	}
	return f, nil
}

// Load reads a fixture file. The name "sample" selects the built-in fixture.
func Load(path string, opts ...Option) (*Source, error) {
	b := sampleFixture
	if path != "sample" {
		var err error
		if b, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read fixture: %w", err)
		}
	}
	f, err := ParseFixture(b)
	if err != nil {
		return nil, err
	}
	return NewSource(f, opts...), nil
}

// Dates returns every date with games, oldest first.
func (s *Source) Dates() []string {
	out := make([]string, 0, len(s.byDate))
	for d := range s.byDate {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// ResolveDate returns date if set, otherwise the most recent day with games
// within the lookback window before today. The second result is false when
// no such day exists.
func (s *Source) ResolveDate(date string) (string, bool) {
	if date != "" {
		_, ok := s.byDate[date]
		return date, ok
	}
	today := s.now()
	for back := 1; back <= s.lookbackDays; back++ {
		d := today.AddDate(0, 0, -back).Format(DateLayout)
		if _, ok := s.byDate[d]; ok {
			return d, true
		}
	}
	return "", false
}

// Deck builds the pairs for date. Days without games yield an empty deck.
func (s *Source) Deck(date string) ([]model.Pair, error) {
	_, pairs, err := s.DatedDeck(date)
	return pairs, err
}

// DatedDeck is Deck that also returns the game day date resolved to. The
// day is empty when no date with games was found.
func (s *Source) DatedDeck(date string) (string, []model.Pair, error) {
	if date != "" {
		if _, err := time.Parse(DateLayout, date); err != nil {
			return "", nil, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidDate, date)
		}
	}
	resolved, ok := s.ResolveDate(date)
	if !ok {
		return "", []model.Pair{}, nil
	}

	games := s.byDate[resolved]
	if len(games) > s.maxGames {
		games = games[:s.maxGames]
	}
	var pool []model.Player
	for _, g := range games {
		for _, team := range g.Teams {
			pool = append(pool, s.topScorers(team)...)
		}
	}

	s.mu.Lock()
	s.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	s.mu.Unlock()

	pairs := make([]model.Pair, 0, len(pool)/2)
	for i := 0; i+1 < len(pool); i += 2 {
		id := i
		left, right := pool[i], pool[i+1]
		pairs = append(pairs, model.Pair{ID: &id, Left: &left, Right: &right})
	}
	return resolved, pairs, nil
}

// topScorers returns the team's leading scorers among players who took the
// floor.
func (s *Source) topScorers(team TeamBox) []model.Player {
	played := make([]model.Player, 0, len(team.Players))
	for _, p := range team.Players {
		if !p.Valid() || !tookTheFloor(p.Minutes) {
			continue
		}
		if p.Team == "" {
			p.Team = team.Abbreviation
		}
		if p.TeamID == "" {
			p.TeamID = team.TeamID
		}
		played = append(played, p)
	}
	sort.SliceStable(played, func(i, j int) bool { return played[i].Points > played[j].Points })
	if len(played) > s.topPerTeam {
		played = played[:s.topPerTeam]
	}
	return played
}

func tookTheFloor(minutes model.FlexString) bool {
	switch minutes {
	case "", "0", "00:00", "0:00", "PT00M00.00S":
		return false
	}
	return true
}

// FetchDeck implements the session deck provider.
func (s *Source) FetchDeck(ctx context.Context, date string) ([]model.Pair, error) {
	pairs, _, err := s.FetchResolvedDeck(ctx, date)
	return pairs, err
}

// FetchResolvedDeck is FetchDeck that also reports the resolved game day.
func (s *Source) FetchResolvedDeck(ctx context.Context, date string) ([]model.Pair, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("%w: %w", model.ErrDeckFetch, err)
	}
	resolved, pairs, err := s.DatedDeck(date)
	return pairs, resolved, err
}
