package persistence_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/showdown/internal/adapters/persistence"
	"github.com/okian/showdown/internal/adapters/repository"
	"github.com/okian/showdown/internal/domain/deck"
	"github.com/okian/showdown/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var errQuota = errors.New("quota exceeded")

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errQuota }
func (brokenStore) Put(context.Context, string, []byte) error    { return errQuota }
func (brokenStore) Delete(context.Context, string) error         { return errQuota }

func players(n int) []model.Player {
	out := make([]model.Player, n)
	for i := range out {
		out[i] = model.Player{
			ID:    model.FlexString(fmt.Sprintf("p%d", i)),
			Name:  fmt.Sprintf("Player %d", i),
			Team:  "LAL",
			Stats: model.Stats{Points: float64(10 + i)},
		}
	}
	return out
}

func TestAdapterRoundTrip(t *testing.T) {
	Convey("Given an adapter over a memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		fixed := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
		a := persistence.New(store, persistence.Key("s1"), persistence.WithClock(func() time.Time { return fixed }))

		all := players(5)
		e, err := deck.New(all)
		So(err, ShouldBeNil)
		e.Pick(deck.Left)
		e.Pick(deck.Right)

		Convey("When a snapshot is saved and loaded immediately", func() {
			a.Save(ctx, persistence.NewSnapshot(all, e.State(), "LAL", "2025-01-14", "2025-01-14"))
			snap, ok := a.Load(ctx)

			Convey("Then it reproduces an equivalent session", func() {
				So(ok, ShouldBeTrue)
				So(snap.Left.ID, ShouldEqual, e.Left().ID)
				So(snap.Right.ID, ShouldEqual, e.Right().ID)
				So(snap.MatchLog, ShouldHaveLength, 2)
				So(snap.Winner, ShouldBeNil)
				So(snap.AllPlayers, ShouldHaveLength, 5)
				So(snap.Team, ShouldEqual, "LAL")
				So(snap.Date, ShouldEqual, "2025-01-14")
				So(snap.SavedAt.Equal(fixed), ShouldBeTrue)
				So(store.Len(), ShouldEqual, 1)
			})

			Convey("And the engine can be restored from it", func() {
				back, err := deck.Restore(snap.State())
				So(err, ShouldBeNil)
				So(back.Remaining(), ShouldEqual, e.Remaining())
			})
		})

		Convey("When a finished session is saved", func() {
			for !e.Terminal() {
				e.Pick(deck.Left)
			}
			a.Save(ctx, persistence.NewSnapshot(all, e.State(), "", "", ""))
			snap, ok := a.Load(ctx)

			Convey("Then the winner survives", func() {
				So(ok, ShouldBeTrue)
				So(snap.Winner, ShouldNotBeNil)
				So(snap.Winner.ID, ShouldEqual, e.Winner().ID)
				So(snap.MatchLog, ShouldHaveLength, 4)
			})
		})

		Convey("When the snapshot is cleared", func() {
			a.Save(ctx, persistence.NewSnapshot(all, e.State(), "", "", ""))
			a.Clear(ctx)
			_, ok := a.Load(ctx)

			Convey("Then nothing is loaded", func() {
				So(ok, ShouldBeFalse)
				So(store.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestAdapterInvalidData(t *testing.T) {
	Convey("Given stored data the adapter cannot resume", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		key := persistence.Key("bad")
		a := persistence.New(store, key)

		Convey("When nothing is stored", func() {
			_, ok := a.Load(ctx)
			So(ok, ShouldBeFalse)
		})

		Convey("When the bytes are not JSON", func() {
			_ = store.Put(ctx, key, []byte("{not json"))
			_, ok := a.Load(ctx)
			So(ok, ShouldBeFalse)
		})

		Convey("When the right player is missing", func() {
			_ = store.Put(ctx, key, []byte(`{"version":1,"pool":[],"left":{"PLAYER_ID":"1","PLAYER_NAME":"A"}}`))
			_, ok := a.Load(ctx)
			So(ok, ShouldBeFalse)
		})

		Convey("When the version is from a future format", func() {
			_ = store.Put(ctx, key, []byte(`{"version":2,"left":{"PLAYER_ID":"1"},"right":{"PLAYER_ID":"2"}}`))
			_, ok := a.Load(ctx)

			Convey("Then it is discarded but left in place", func() {
				So(ok, ShouldBeFalse)
				So(store.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the version is missing", func() {
			_ = store.Put(ctx, key, []byte(`{"left":{"PLAYER_ID":"1"},"right":{"PLAYER_ID":"2"}}`))
			_, ok := a.Load(ctx)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestAdapterSwallowsErrors(t *testing.T) {
	Convey("Given an adapter whose store always fails", t, func() {
		ctx := context.Background()
		a := persistence.New(brokenStore{}, persistence.Key("x"))

		Convey("Then no operation panics or reports a session", func() {
			So(func() { a.Save(ctx, persistence.Snapshot{}) }, ShouldNotPanic)
			So(func() { a.Clear(ctx) }, ShouldNotPanic)
			_, ok := a.Load(ctx)
			So(ok, ShouldBeFalse)
			So(a.Key(), ShouldEqual, "showdown:session:x")
		})
	})
}
