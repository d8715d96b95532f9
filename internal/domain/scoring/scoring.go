// Package scoring turns a player's box score into a single comparable Game
// Score and classifies individual statistics against league averages.
package scoring

import (
	"github.com/okian/showdown/internal/domain/model"
	"github.com/shopspring/decimal"
)

// scorePlaces is the number of decimals every score is rounded to.
const scorePlaces = 1

// Weight keys as they appear in configuration.
const (
	WeightPoints    = "points"
	WeightRebounds  = "rebounds"
	WeightAssists   = "assists"
	WeightSteals    = "steals"
	WeightBlocks    = "blocks"
	WeightTurnovers = "turnovers"
)

// Weights are the per-stat multipliers of the Game Score. Turnovers carry a
// negative weight.
type Weights struct {
	Points    decimal.Decimal
	Rebounds  decimal.Decimal
	Assists   decimal.Decimal
	Steals    decimal.Decimal
	Blocks    decimal.Decimal
	Turnovers decimal.Decimal
}

// DefaultWeights computes PTS + REB*1.2 + AST*1.5 + STL*2 + BLK*2 - TOV*1.5.
func DefaultWeights() Weights {
	return Weights{
		Points:    decimal.NewFromInt(1),
		Rebounds:  decimal.RequireFromString("1.2"),
		Assists:   decimal.RequireFromString("1.5"),
		Steals:    decimal.NewFromInt(2),
		Blocks:    decimal.NewFromInt(2),
		Turnovers: decimal.RequireFromString("-1.5"),
	}
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights replaces all weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		s.weights = w
	}
}

// WithWeightsFromConfig overrides the weights named in cfg. Unknown keys are
// ignored and missing keys keep their default.
func WithWeightsFromConfig(cfg map[string]float64) Option {
	return func(s *Scorer) {
		for key, v := range cfg {
			d := decimal.NewFromFloat(v)
			switch key {
			case WeightPoints:
				s.weights.Points = d
			case WeightRebounds:
				s.weights.Rebounds = d
			case WeightAssists:
				s.weights.Assists = d
			case WeightSteals:
				s.weights.Steals = d
			case WeightBlocks:
				s.weights.Blocks = d
			case WeightTurnovers:
				s.weights.Turnovers = d
			}
		}
	}
}

// Scorer computes Game Scores. It is stateless apart from its weights and
// safe for concurrent use.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the default weights and applies opts.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns the Game Score of p rounded to one decimal, half away from
// zero. The sum is computed in exact decimal arithmetic so the result does
// not depend on float accumulation order.
func (s *Scorer) Score(p model.Player) float64 {
	return s.score(p).InexactFloat64()
}

func (s *Scorer) score(p model.Player) decimal.Decimal {
	w := s.weights
	total := decimal.NewFromFloat(p.Points).Mul(w.Points).
		Add(decimal.NewFromFloat(p.Rebounds).Mul(w.Rebounds)).
		Add(decimal.NewFromFloat(p.Assists).Mul(w.Assists)).
		Add(decimal.NewFromFloat(p.Steals).Mul(w.Steals)).
		Add(decimal.NewFromFloat(p.Blocks).Mul(w.Blocks)).
		Add(decimal.NewFromFloat(p.Turnovers).Mul(w.Turnovers))
	return total.Round(scorePlaces)
}

// DeckAverage is the mean Game Score over players, rounded to one decimal.
// An empty deck averages to zero.
func (s *Scorer) DeckAverage(players []model.Player) float64 {
	if len(players) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, p := range players {
		sum = sum.Add(s.score(p))
	}
	return sum.Div(decimal.NewFromInt(int64(len(players)))).Round(scorePlaces).InexactFloat64()
}

// Delta is score minus average, rounded to one decimal.
func Delta(score, average float64) float64 {
	return decimal.NewFromFloat(score).Sub(decimal.NewFromFloat(average)).Round(scorePlaces).InexactFloat64()
}

var defaultScorer = NewScorer() //nolint:gochecknoglobals // immutable default weights

// Score computes the Game Score with the default weights.
func Score(p model.Player) float64 {
	return defaultScorer.Score(p)
}

// DeckAverage computes the deck average with the default weights.
func DeckAverage(players []model.Player) float64 {
	return defaultScorer.DeckAverage(players)
}
