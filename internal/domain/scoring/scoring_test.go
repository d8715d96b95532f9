package scoring_test

import (
	"testing"

	"github.com/okian/showdown/internal/domain/model"
	scoring "github.com/okian/showdown/internal/domain/scoring"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func player(id string, s model.Stats) model.Player {
	return model.Player{ID: model.FlexString(id), Name: "P" + id, Team: "LAL", Stats: s}
}

func TestScore(t *testing.T) {
	Convey("Given the default weights", t, func() {
		Convey("When scoring a full box score", func() {
			p := player("1", model.Stats{Points: 30, Rebounds: 8, Assists: 9, Steals: 1, Blocks: 1, Turnovers: 3})

			Convey("Then it applies PTS + REB*1.2 + AST*1.5 + STL*2 + BLK*2 - TOV*1.5", func() {
				So(scoring.Score(p), ShouldEqual, 52.6)
			})
		})

		Convey("When scoring an empty box score", func() {
			Convey("Then the score is zero", func() {
				So(scoring.Score(player("2", model.Stats{})), ShouldEqual, 0.0)
			})
		})

		Convey("When turnovers outweigh production", func() {
			p := player("3", model.Stats{Points: 1, Turnovers: 4})

			Convey("Then the score goes negative", func() {
				So(scoring.Score(p), ShouldEqual, -5.0)
			})
		})

		Convey("When the box score holds per-game averages", func() {
			p := player("6", model.Stats{Points: 25.3, Rebounds: 7.5, Assists: 6.1, Turnovers: 2.2})

			Convey("Then the decimal sum rounds exactly", func() {
				// 25.3 + 9 + 9.15 - 3.3 = 40.15
				So(scoring.Score(p), ShouldEqual, 40.2)
			})
		})

		Convey("When the same player is scored repeatedly", func() {
			p := player("4", model.Stats{Points: 17, Rebounds: 3, Assists: 7, Turnovers: 1})
			first := scoring.Score(p)

			Convey("Then the result is deterministic", func() {
				for i := 0; i < 100; i++ {
					So(scoring.Score(p), ShouldEqual, first)
				}
				So(first, ShouldEqual, 33.6)
			})
		})

		Convey("When non-scoring stats differ", func() {
			a := player("5", model.Stats{Points: 10, FGPct: 0.9, Minutes: "30:00"})
			b := player("5", model.Stats{Points: 10, FGPct: 0.1, PlusMinus: -20})

			Convey("Then they do not change the score", func() {
				So(scoring.Score(a), ShouldEqual, scoring.Score(b))
			})
		})
	})
}

func TestScoreRounding(t *testing.T) {
	Convey("Given weights that produce two decimals", t, func() {
		scorer := scoring.NewScorer(scoring.WithWeightsFromConfig(map[string]float64{
			"points":    1.25,
			"turnovers": -1.25,
		}))

		Convey("When the score ends in 5 at the second decimal", func() {
			Convey("Then it rounds half away from zero", func() {
				So(scorer.Score(player("1", model.Stats{Points: 1})), ShouldEqual, 1.3)
				So(scorer.Score(player("2", model.Stats{Turnovers: 1})), ShouldEqual, -1.3)
				So(scorer.Score(player("3", model.Stats{Points: 3})), ShouldEqual, 3.8)
			})
		})
	})

	Convey("Given explicit weights", t, func() {
		w := scoring.DefaultWeights()
		w.Points = decimal.NewFromInt(2)
		scorer := scoring.NewScorer(scoring.WithWeights(w))

		Convey("Then they replace the defaults", func() {
			So(scorer.Score(player("1", model.Stats{Points: 10, Rebounds: 1})), ShouldEqual, 21.2)
		})
	})

	Convey("Given a config map with unknown keys", t, func() {
		scorer := scoring.NewScorer(scoring.WithWeightsFromConfig(map[string]float64{"dunks": 10}))

		Convey("Then the defaults stay in force", func() {
			p := player("1", model.Stats{Points: 10, Assists: 2})
			So(scorer.Score(p), ShouldEqual, scoring.Score(p))
		})
	})
}

func TestDeckAverage(t *testing.T) {
	Convey("Given a deck", t, func() {
		Convey("When it is empty", func() {
			Convey("Then the average is zero", func() {
				So(scoring.DeckAverage(nil), ShouldEqual, 0)
			})
		})

		Convey("When it holds two players", func() {
			deck := []model.Player{player("a", model.Stats{Points: 20}), player("b", model.Stats{Points: 15})}

			Convey("Then the average is the arithmetic mean", func() {
				So(scoring.DeckAverage(deck), ShouldEqual, 17.5)
			})
		})

		Convey("When the mean has a repeating decimal", func() {
			deck := []model.Player{
				player("a", model.Stats{Points: 10}),
				player("b", model.Stats{Points: 10}),
				player("c", model.Stats{Points: 11}),
			}

			Convey("Then it is rounded to one decimal", func() {
				So(scoring.DeckAverage(deck), ShouldEqual, 10.3)
			})
		})
	})
}

func TestDelta(t *testing.T) {
	Convey("Given a winner score and a deck average", t, func() {
		So(scoring.Delta(38.4, 26.3), ShouldEqual, 12.1)
		So(scoring.Delta(10, 12.5), ShouldEqual, -2.5)
	})
}

func TestStatColor(t *testing.T) {
	Convey("Given the league average table", t, func() {
		Convey("When a stat beats the average", func() {
			So(scoring.StatColor(model.StatPoints, 25), ShouldEqual, scoring.Above)
			So(scoring.StatColor(model.StatFG3Pct, 0.41), ShouldEqual, scoring.Above)
		})

		Convey("When a stat trails the average", func() {
			So(scoring.StatColor(model.StatAssists, 1), ShouldEqual, scoring.Below)
			So(scoring.StatColor(model.StatPlusMinus, -3), ShouldEqual, scoring.Below)
		})

		Convey("When a stat equals the average", func() {
			avg, ok := scoring.LeagueAverage(model.StatRebounds)
			So(ok, ShouldBeTrue)
			So(scoring.StatColor(model.StatRebounds, avg), ShouldEqual, scoring.Neutral)
		})

		Convey("When the key is unknown", func() {
			So(scoring.StatColor("DUNKS", 99), ShouldEqual, scoring.Neutral)
		})

		Convey("When classifying a whole box score", func() {
			colors := scoring.StatColors(model.Stats{Points: 30, Turnovers: 0})

			Convey("Then every stat key gets a color", func() {
				So(colors, ShouldHaveLength, len(model.StatKeys))
				So(colors[model.StatPoints], ShouldEqual, scoring.Above)
				So(colors[model.StatTurnovers], ShouldEqual, scoring.Below)
			})
		})
	})
}
