package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then the collectors are registered on it", func() {
				So(manager, ShouldNotBeNil)
				manager.picks.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When creating with custom naming options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("deck"),
				WithHistogramBuckets([]float64{1, 2}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the names follow the options", func() {
				manager.sessionsStarted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_deck_sessions_started_total")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording session metrics", func() {
			before := testutil.ToFloat64(globalManager.picks)
			RecordPick()
			RecordPick()

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(globalManager.picks), ShouldEqual, before+2)
			})
		})

		Convey("When recording labelled metrics", func() {
			RecordDeckFetchError("status")
			RecordPersistenceError("save")

			Convey("Then the labelled series exist", func() {
				So(testutil.ToFloat64(globalManager.deckFetchErrors.WithLabelValues("status")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.persistenceErrors.WithLabelValues("save")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording everything else", func() {
			So(func() {
				RecordSessionStarted()
				RecordSessionRestored()
				RecordSessionCompleted()
				RecordSessionEvicted()
				UpdateActiveSessions(3)
				RecordPickDuplicate()
				RecordPickIgnored()
				RecordFilterIgnored()
				RecordStateTransition("active")
				RecordDeckFetchLatency(12)
				RecordDeckPlayers(30)
				RecordPersistenceLatency("load", 1.5)
				UpdateWriterQueueSize(4)
				RecordWriterSyncFallback()
				RecordWriterCoalesced()
				RecordHTTPRequest("pick", "POST", "200")
				RecordHTTPRequestDuration("pick", "POST", "200", 3)
				RecordRenderFailure()
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
			}, ShouldNotPanic)
		})

		Convey("Then the registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
