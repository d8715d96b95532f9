package scoring

import "github.com/okian/showdown/internal/domain/model"

// Color classifies a statistic against the league average.
type Color string

// Stat classifications.
const (
	Above   Color = "above"
	Below   Color = "below"
	Neutral Color = "neutral"
)

// leagueAverages are per-game reference values for rotation players.
var leagueAverages = map[model.StatKey]float64{ //nolint:gochecknoglobals // fixed reference table
	model.StatPoints:    11.0,
	model.StatRebounds:  4.4,
	model.StatAssists:   2.6,
	model.StatSteals:    0.8,
	model.StatBlocks:    0.5,
	model.StatTurnovers: 1.4,
	model.StatFGPct:     0.471,
	model.StatFG3Pct:    0.360,
	model.StatFTPct:     0.780,
	model.StatPlusMinus: 0,
}

// LeagueAverage returns the reference value for key.
func LeagueAverage(key model.StatKey) (float64, bool) {
	v, ok := leagueAverages[key]
	return v, ok
}

// StatColor compares value with the league average for key. Unknown keys
// are Neutral.
func StatColor(key model.StatKey, value float64) Color {
	avg, ok := leagueAverages[key]
	switch {
	case !ok:
		return Neutral
	case value > avg:
		return Above
	case value < avg:
		return Below
	default:
		return Neutral
	}
}

// StatColors classifies every listed statistic of s.
func StatColors(s model.Stats) map[model.StatKey]Color {
	out := make(map[model.StatKey]Color, len(model.StatKeys))
	for _, key := range model.StatKeys {
		v, _ := s.Value(key)
		out[key] = StatColor(key, v)
	}
	return out
}
