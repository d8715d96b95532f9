package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/showdown/internal/adapters/deckfeed"
	repository "github.com/okian/showdown/internal/adapters/repository"
	service "github.com/okian/showdown/internal/app"
	"github.com/okian/showdown/internal/app/session"
	"github.com/okian/showdown/internal/domain/deck"
	. "github.com/smartystreets/goconvey/convey"
)

func openStore(t *testing.T, path string) repository.Store {
	t.Helper()
	store, err := repository.OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return store
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service over the sample feed and a SQLite store", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		feed, err := deckfeed.Load("sample")
		So(err, ShouldBeNil)
		path := filepath.Join(t.TempDir(), "showdown.db")

		svc := service.New(feed,
			service.WithStore(openStore(t, path)),
			service.WithWriterWorkers(2),
			service.WithQueueSize(16),
		)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		id, view, err := svc.Create(ctx, "2025-01-15")
		So(err, ShouldBeNil)
		So(view.State, ShouldEqual, string(session.StateActive))
		So(view.Date, ShouldEqual, "2025-01-15")
		So(view.Teams, ShouldHaveLength, 2)
		So(view.Teams, ShouldContain, "PHX")
		total := view.Rounds + 1

		Convey("When the session is played to the end", func() {
			picks := 0
			for view.State == string(session.StateActive) {
				So(view.Remaining+2+len(view.MatchLog), ShouldEqual, total)
				view, err = svc.Pick(ctx, id, deck.Left, "")
				So(err, ShouldBeNil)
				picks++
			}

			Convey("Then it ends after N-1 picks with a winner", func() {
				So(picks, ShouldEqual, total-1)
				So(view.State, ShouldEqual, string(session.StateTerminal))
				So(view.Winner, ShouldNotBeNil)

				path, err := svc.PathToVictory(ctx, id)
				So(err, ShouldBeNil)
				for _, bout := range path {
					So(bout.WinnerID, ShouldEqual, view.Winner.ID)
				}

				payload, err := svc.Share(ctx, id, "https://showdown.example/")
				So(err, ShouldBeNil)
				So(payload.Text, ShouldContainSubstring, view.Winner.Name)
			})

			Convey("And a restarted service resumes the finished session", func() {
				So(svc.Stop(ctx), ShouldBeNil)

				again := service.New(feed, service.WithStore(openStore(t, path)))
				So(again.Start(ctx), ShouldBeNil)
				defer func() { _ = again.Stop(ctx) }()

				resumed, err := again.Get(ctx, id)
				So(err, ShouldBeNil)
				So(resumed.State, ShouldEqual, string(session.StateTerminal))
				So(resumed.Winner.ID, ShouldEqual, view.Winner.ID)
				So(resumed.MatchLog, ShouldHaveLength, total-1)
			})
		})

		Convey("When the session is reset and filtered", func() {
			_, err := svc.Pick(ctx, id, deck.Right, "")
			So(err, ShouldBeNil)
			fresh, err := svc.Reset(ctx, id)
			So(err, ShouldBeNil)
			filtered, ferr := svc.Filter(ctx, id, "phx")

			Convey("Then the match log starts over and only PHX players remain", func() {
				So(fresh.MatchLog, ShouldBeEmpty)
				So(fresh.Date, ShouldEqual, "2025-01-15")
				So(ferr, ShouldBeNil)
				So(filtered.Team, ShouldEqual, "PHX")
				So(filtered.Left.Team, ShouldEqual, "PHX")
				So(filtered.Right.Team, ShouldEqual, "PHX")
			})
		})

		Convey("When the date moves to a day without games", func() {
			moved, err := svc.ChangeDate(ctx, id, "2025-02-01")

			Convey("Then the session is empty and retry stays empty", func() {
				So(err, ShouldBeNil)
				So(moved.State, ShouldEqual, string(session.StateEmpty))
				again, err := svc.Retry(ctx, id)
				So(err, ShouldBeNil)
				So(again.State, ShouldEqual, string(session.StateEmpty))
			})
		})
	})
}
