// Package session drives one player's daily showdown: it fetches or restores
// the deck, applies picks, filters and date changes, and keeps the persisted
// snapshot in step with the engine.
//
// A Controller never returns errors. Every failure ends in a state the view
// can render together with a recovery action.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/okian/showdown/internal/adapters/persistence"
	"github.com/okian/showdown/internal/domain/deck"
	"github.com/okian/showdown/internal/domain/model"
	"github.com/okian/showdown/internal/domain/scoring"
	"github.com/okian/showdown/internal/domain/share"
	"github.com/okian/showdown/internal/domain/types"
	"github.com/okian/showdown/pkg/logger"
	"github.com/okian/showdown/pkg/metrics"
)

// DateLayout is the accepted date format.
const DateLayout = "2006-01-02"

// AllTeams selects every team in ApplyTeamFilter.
const AllTeams = "ALL"

// State is the lifecycle state of a session.
type State string

// Session states.
const (
	StateLoading  State = "loading"
	StateActive   State = "active"
	StateTerminal State = "terminal"
	StateEmpty    State = "empty"
	StateError    State = "error"
)

// DeckProvider fetches the pairs of the daily deck.
type DeckProvider interface {
	FetchDeck(ctx context.Context, date string) ([]model.Pair, error)
}

// ResolvingProvider is a DeckProvider that also reports the game day a
// request resolved to, so a "latest" deck still knows its date.
type ResolvingProvider interface {
	FetchResolvedDeck(ctx context.Context, date string) ([]model.Pair, string, error)
}

// Persistence stores the session snapshot. Implementations swallow failures.
type Persistence interface {
	Save(ctx context.Context, snap persistence.Snapshot)
	Load(ctx context.Context) (persistence.Snapshot, bool)
	Clear(ctx context.Context)
}

// Controller owns one session.
type Controller struct {
	provider DeckProvider
	store    Persistence
	scorer   *scoring.Scorer
	deckOpts []deck.Option
	logger   logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	state    State
	engine   *deck.Engine
	all      []model.Player
	teams    []string
	average  float64
	team     string
	date     string
	deckDate string
	fetched  string
	failure  *types.ErrorView
	gen      uint64
	closed   bool
	restored bool
}

// New creates a controller and loads the persisted snapshot exactly once. A
// resumable snapshot puts the session straight into its saved state and no
// fetch happens; otherwise the session waits in Loading for Start.
func New(ctx context.Context, provider DeckProvider, store Persistence, opts ...Option) *Controller {
	c := &Controller{
		provider: provider,
		store:    store,
		scorer:   scoring.NewScorer(),
		logger:   logger.Nop(),
		now:      time.Now,
		state:    StateLoading,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.deckOpts = append([]deck.Option{deck.WithScorer(c.scorer)}, c.deckOpts...)

	if snap, ok := store.Load(ctx); ok && snap.Resumable() {
		c.restore(ctx, snap)
	}
	return c
}

func (c *Controller) restore(ctx context.Context, snap persistence.Snapshot) {
	engine, err := deck.Restore(snap.State(), c.deckOpts...)
	if err != nil {
		c.logger.Warn(ctx, "ignoring unusable snapshot", logger.Error(err))
		return
	}

	all := snap.AllPlayers
	if len(all) == 0 {
		st := engine.State()
		all = append(append([]model.Player{}, st.Pool...), *st.Left, *st.Right)
	}
	c.engine = engine
	c.setDeck(all)
	c.team = snap.Team
	c.date = snap.Date
	c.deckDate = snap.DeckDate
	if c.deckDate == "" {
		c.deckDate = snap.Date
	}
	c.fetched = snap.Date
	c.restored = true
	if engine.Terminal() {
		c.setState(StateTerminal)
	} else {
		c.setState(StateActive)
	}
	metrics.RecordSessionRestored()
	c.logger.Info(ctx, "session restored",
		logger.String("state", string(c.state)),
		logger.Int("decisions", len(engine.MatchLog())))
}

// Restored reports whether the session was resumed from a snapshot.
func (c *Controller) Restored() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restored
}

// Start fetches the deck unless the session was restored.
func (c *Controller) Start(ctx context.Context) types.View {
	c.mu.Lock()
	if c.state != StateLoading || c.gen > 0 {
		defer c.mu.Unlock()
		return c.viewLocked()
	}
	date := c.date
	c.mu.Unlock()
	return c.load(ctx, date)
}

// load runs one fetch cycle. The result is committed only if no newer cycle
// started and the controller is still open.
func (c *Controller) load(ctx context.Context, date string) types.View {
	c.mu.Lock()
	if c.closed {
		defer c.mu.Unlock()
		return c.viewLocked()
	}
	c.gen++
	gen := c.gen
	c.fetched = date
	c.failure = nil
	c.setState(StateLoading)
	c.mu.Unlock()

	pairs, resolved, err := c.fetch(ctx, date)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen {
		c.logger.Debug(ctx, "discarding stale deck fetch", logger.String("date", date))
		return c.viewLocked()
	}
	c.commit(ctx, date, resolved, pairs, err)
	return c.viewLocked()
}

// fetch asks the provider for the deck of date. The second result is the
// game day of the deck: the provider's answer when it reports one, else date,
// else the day of the fetch.
func (c *Controller) fetch(ctx context.Context, date string) ([]model.Pair, string, error) {
	var (
		pairs    []model.Pair
		resolved string
		err      error
	)
	if rp, ok := c.provider.(ResolvingProvider); ok {
		pairs, resolved, err = rp.FetchResolvedDeck(ctx, date)
	} else {
		pairs, err = c.provider.FetchDeck(ctx, date)
	}
	if resolved == "" {
		resolved = date
	}
	if resolved == "" {
		resolved = c.now().Format(DateLayout)
	}
	return pairs, resolved, err
}

func (c *Controller) commit(ctx context.Context, date, resolved string, pairs []model.Pair, err error) {
	if err == nil {
		players := model.Flatten(pairs)
		metrics.RecordDeckPlayers(len(players))
		var engine *deck.Engine
		if engine, err = deck.New(players, c.deckOpts...); err == nil {
			c.engine = engine
			c.setDeck(players)
			c.team = ""
			c.date = date
			c.deckDate = resolved
			c.setState(StateActive)
			c.save(ctx)
			metrics.RecordSessionStarted()
			c.logger.Info(ctx, "deck dealt", logger.String("date", date), logger.Int("players", len(players)))
			return
		}
	}

	c.engine = nil
	c.setDeck(nil)
	state, failure := classify(err)
	c.failure = failure
	c.setState(state)
	c.logger.Warn(ctx, "deck could not be dealt",
		logger.String("date", date), logger.String("state", string(state)), logger.Error(err))
}

// Pick resolves the current matchup. It is ignored unless the session is
// active.
func (c *Controller) Pick(ctx context.Context, side deck.Side) types.View {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state != StateActive {
		metrics.RecordPickIgnored()
		return c.viewLocked()
	}
	up := c.engine.Pick(side)
	if !up.Applied {
		metrics.RecordPickIgnored()
		return c.viewLocked()
	}
	metrics.RecordPick()
	if up.Winner != nil {
		c.setState(StateTerminal)
		metrics.RecordSessionCompleted()
		c.logger.Info(ctx, "player of the day crowned",
			logger.String("player_id", up.Winner.ID.String()), logger.String("name", up.Winner.Name))
	}
	c.save(ctx)
	return c.viewLocked()
}

// Reset clears the snapshot and fetches the deck again for the current date.
// It works from every state.
func (c *Controller) Reset(ctx context.Context) types.View {
	c.mu.Lock()
	if c.closed {
		defer c.mu.Unlock()
		return c.viewLocked()
	}
	c.store.Clear(ctx)
	date := c.date
	c.mu.Unlock()
	return c.load(ctx, date)
}

// ChangeDate clears the snapshot and fetches the deck for date. Dates that
// are not YYYY-MM-DD are ignored.
func (c *Controller) ChangeDate(ctx context.Context, date string) types.View {
	date = strings.TrimSpace(date)
	if date != "" {
		if _, err := time.Parse(DateLayout, date); err != nil {
			c.logger.Debug(ctx, "ignoring malformed date", logger.String("date", date))
			return c.View()
		}
	}

	c.mu.Lock()
	if c.closed {
		defer c.mu.Unlock()
		return c.viewLocked()
	}
	c.date = date
	c.store.Clear(ctx)
	c.mu.Unlock()
	return c.load(ctx, date)
}

// Retry re-issues the last fetch. It is only honoured in the Error and Empty
// states.
func (c *Controller) Retry(ctx context.Context) types.View {
	c.mu.Lock()
	if c.closed || (c.state != StateError && c.state != StateEmpty) {
		defer c.mu.Unlock()
		return c.viewLocked()
	}
	date := c.fetched
	c.mu.Unlock()
	return c.load(ctx, date)
}

// ApplyTeamFilter re-deals the session with the players of team, or every
// player for ALL. Filters matching fewer than two players are ignored.
func (c *Controller) ApplyTeamFilter(ctx context.Context, team string) types.View {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || (c.state != StateActive && c.state != StateTerminal) {
		return c.viewLocked()
	}

	team = strings.ToUpper(strings.TrimSpace(team))
	if team == AllTeams {
		team = ""
	}
	candidates := c.all
	if team != "" {
		candidates = make([]model.Player, 0, len(c.all))
		for _, p := range c.all {
			if strings.EqualFold(p.Team, team) {
				candidates = append(candidates, p)
			}
		}
	}

	engine, err := deck.New(candidates, c.deckOpts...)
	if err != nil {
		metrics.RecordFilterIgnored()
		c.logger.Debug(ctx, "ignoring team filter", logger.String("team", team), logger.Int("matches", len(candidates)))
		return c.viewLocked()
	}
	c.engine = engine
	c.team = team
	c.setState(StateActive)
	c.save(ctx)
	return c.viewLocked()
}

// Close tears the controller down. In-flight fetches are discarded and
// every later call only returns the last view.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.gen++
}

// Clear removes the persisted snapshot.
func (c *Controller) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Clear(ctx)
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View renders the session.
func (c *Controller) View() types.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// PathToVictory returns the bouts the winner won. The second result is false
// until the session is terminal.
func (c *Controller) PathToVictory() ([]deck.MatchLogEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateTerminal {
		return nil, false
	}
	return c.engine.PathToVictory(), true
}

// Share returns the share payload of a finished session.
func (c *Controller) Share(pageURL string) (share.Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateTerminal {
		return share.Payload{}, false
	}
	w := c.engine.Winner()
	card := share.NewCard(*w, c.scorer.Score(*w), c.average, c.deckDate)
	return share.Build(card, pageURL), true
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	metrics.RecordStateTransition(string(s))
}

// setDeck records the full deck and the values derived from it once per load.
func (c *Controller) setDeck(all []model.Player) {
	c.all = all
	c.teams = model.Teams(all)
	c.average = c.scorer.DeckAverage(all)
}

func (c *Controller) save(ctx context.Context) {
	if c.engine == nil {
		return
	}
	c.store.Save(ctx, persistence.NewSnapshot(c.all, c.engine.State(), c.team, c.date, c.deckDate))
}

func (c *Controller) viewLocked() types.View {
	v := types.View{
		State:       string(c.state),
		Team:        c.team,
		Date:        c.date,
		DeckDate:    c.deckDate,
		Teams:       append([]string{}, c.teams...),
		DeckAverage: c.average,
		MatchLog:    []deck.MatchLogEntry{},
		Error:       c.failure,
	}
	if v.Team == "" {
		v.Team = AllTeams
	}
	if c.engine == nil || (c.state != StateActive && c.state != StateTerminal) {
		return v
	}

	log := c.engine.MatchLog()
	v.MatchLog = log
	v.Remaining = c.engine.Remaining()
	v.Rounds = c.engine.Size() - 1
	if c.state == StateActive {
		v.Left = types.NewPlayerCard(c.engine.Left(), c.scorer)
		v.Right = types.NewPlayerCard(c.engine.Right(), c.scorer)
		v.Round = len(log) + 1
	} else {
		v.Winner = types.NewPlayerCard(*c.engine.Winner(), c.scorer)
		v.Round = len(log)
	}
	return v
}
