package simulate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/showdown/internal/adapters/deckfeed"
	"github.com/okian/showdown/internal/adapters/http/api"
	service "github.com/okian/showdown/internal/app"
	"github.com/okian/showdown/pkg/logger"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	source, err := deckfeed.Load("sample")
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	svc := service.New(source, service.WithWriterWorkers(1), service.WithLogger(logger.Nop()))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	mux := http.NewServeMux()
	server := api.NewServer(svc, svc, logger.Nop())
	server.Register(context.Background(), mux)
	srv := httptest.NewServer(server.Handler(mux))
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Stop(context.Background())
	})
	return srv
}

func TestRun(t *testing.T) {
	Convey("Given a running showdown server", t, func() {
		srv := newTestServer(t)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		config := &Config{
			BaseURL:        srv.URL,
			Sessions:       12,
			Workers:        3,
			Timeout:        5 * time.Second,
			Date:           "2025-01-14",
			DuplicateEvery: 2,
			Seed:           42,
		}

		Convey("When the simulation plays every session", func() {
			stats, err := Run(ctx, config)

			Convey("Then every session completes without violations", func() {
				So(err, ShouldBeNil)
				So(stats.SessionsStarted, ShouldEqual, 12)
				So(stats.SessionsCompleted, ShouldEqual, 12)
				So(stats.SessionsFailed, ShouldEqual, 0)
				So(stats.Violations, ShouldEqual, 0)
				// 2025-01-14 deals 12 players, so 11 picks each.
				So(stats.Picks, ShouldEqual, 12*11)
				So(stats.DuplicatePicks, ShouldEqual, 12*5)
			})
		})

		Convey("When the date has no games", func() {
			config.Date = "2025-02-01"
			stats, err := Run(ctx, config)

			Convey("Then sessions end empty", func() {
				So(err, ShouldBeNil)
				So(stats.SessionsEmpty, ShouldEqual, 12)
				So(stats.Picks, ShouldEqual, 0)
			})
		})
	})

	Convey("Given no server", t, func() {
		config := &Config{
			BaseURL:  "http://127.0.0.1:1",
			Sessions: 1,
			Workers:  1,
			Timeout:  time.Second,
		}

		Convey("When the simulation starts", func() {
			_, err := Run(context.Background(), config)

			Convey("Then the health check fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestVerification(t *testing.T) {
	Convey("Given a session played with picks from one side", t, func() {
		srv := newTestServer(t)
		client := newHTTPClient(srv.URL, 5*time.Second)
		p := &player{client: client, config: &Config{Date: "2025-01-15", Keep: true}}

		Convey("When it reaches a winner", func() {
			var created createResponse
			status, err := client.do(context.Background(), http.MethodPost, "/sessions?date=2025-01-15", nil, &created, nil)
			So(err, ShouldBeNil)
			So(status, ShouldEqual, http.StatusCreated)

			size := created.View.Rounds + 1
			view := created.View
			for view.State == "active" {
				So(verifyActive(view, size), ShouldBeNil)
				view, err = p.pick(context.Background(), created.SessionID, "left", "")
				So(err, ShouldBeNil)
			}

			var victory pathResponse
			status, err = client.do(context.Background(), http.MethodGet, "/sessions/"+created.SessionID+"/path", nil, &victory, nil)
			So(err, ShouldBeNil)
			So(status, ShouldEqual, http.StatusOK)

			Convey("Then the invariants hold", func() {
				So(verifyTerminal(view, size, victory.Path), ShouldBeNil)
			})

			Convey("Then a truncated log is rejected", func() {
				view.MatchLog = view.MatchLog[:len(view.MatchLog)-1]
				So(verifyTerminal(view, size, victory.Path), ShouldNotBeNil)
			})
		})
	})
}
