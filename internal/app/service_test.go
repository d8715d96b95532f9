package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	service "github.com/okian/showdown/internal/app"
	"github.com/okian/showdown/internal/app/session"
	"github.com/okian/showdown/internal/domain/deck"
	"github.com/okian/showdown/internal/domain/model"
	"github.com/okian/showdown/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type stubProvider struct {
	mu    sync.Mutex
	calls int
	size  int
}

func (p *stubProvider) FetchDeck(_ context.Context, _ string) ([]model.Pair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	size := p.size
	if size == 0 {
		size = 4
	}
	out := make([]model.Pair, 0, size/2)
	for i := 0; i+1 < size; i += 2 {
		out = append(out, model.Pair{
			Left:  &model.Player{ID: model.FlexString(fmt.Sprint(i)), Name: "L", Team: "LAL", Stats: model.Stats{Points: float64(i)}},
			Right: &model.Player{ID: model.FlexString(fmt.Sprint(i + 1)), Name: "R", Team: "GSW", Stats: model.Stats{Points: float64(i + 1)}},
		})
	}
	return out, nil
}

func (p *stubProvider) fetches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New(&stubProvider{})

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["writerWorkers"], ShouldEqual, 4)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(&stubProvider{},
			service.WithWriterWorkers(0),
			service.WithQueueSize(50),
			service.WithDedupeSize(25),
			service.WithMaxSessions(2),
		)

		Convey("Then it should be created successfully", func() {
			stats := svc.GetStats()
			So(stats["writerWorkers"], ShouldEqual, 0)
			So(stats["queueSize"], ShouldEqual, 50)
			So(stats["maxSessions"], ShouldEqual, 2)
		})
	})

	Convey("Given a service without a provider", t, func() {
		svc := service.New(nil)

		Convey("Then it refuses to start", func() {
			So(svc.Start(context.Background()), ShouldEqual, service.ErrNoProvider)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(&stubProvider{})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, true)
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And stopping it marks it stopped", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})

		Convey("When creating a session before Start", func() {
			_, _, err := svc.Create(ctx, "")

			Convey("Then it is rejected", func() {
				So(err, ShouldEqual, service.ErrNotStarted)
			})
		})
	})
}

func TestService_Sessions(t *testing.T) {
	Convey("Given a started service", t, func() {
		provider := &stubProvider{}
		svc := service.New(provider, service.WithMaxSessions(2))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When a session is created", func() {
			id, view, err := svc.Create(ctx, "")
			So(err, ShouldBeNil)

			Convey("Then it has a uuid and an active view", func() {
				_, perr := uuid.Parse(id)
				So(perr, ShouldBeNil)
				So(view.State, ShouldEqual, string(session.StateActive))
				So(view.Rounds, ShouldEqual, 3)
				So(svc.GetStats()["activeSessions"], ShouldEqual, 1)
			})

			Convey("And Get returns the same view without fetching", func() {
				got, err := svc.Get(ctx, id)
				So(err, ShouldBeNil)
				So(got.Left.ID, ShouldEqual, view.Left.ID)
				So(provider.fetches(), ShouldEqual, 1)
			})

			Convey("And a repeated idempotency key picks once", func() {
				first, err := svc.Pick(ctx, id, deck.Left, "key-1")
				So(err, ShouldBeNil)
				second, err := svc.Pick(ctx, id, deck.Left, "key-1")
				So(err, ShouldBeNil)
				So(first.MatchLog, ShouldHaveLength, 1)
				So(second.MatchLog, ShouldHaveLength, 1)

				third, err := svc.Pick(ctx, id, deck.Left, "key-2")
				So(err, ShouldBeNil)
				So(third.MatchLog, ShouldHaveLength, 2)
			})

			Convey("And results are refused until the session ends", func() {
				_, err := svc.PathToVictory(ctx, id)
				So(err, ShouldEqual, service.ErrNotFinished)
				_, err = svc.Share(ctx, id, "")
				So(err, ShouldEqual, service.ErrNotFinished)
			})

			Convey("And deleting it removes it for good", func() {
				So(svc.Delete(ctx, id), ShouldBeNil)
				_, err := svc.Get(ctx, id)
				So(err, ShouldEqual, service.ErrSessionNotFound)
			})
		})

		Convey("When the session limit is reached", func() {
			_, _, err := svc.Create(ctx, "")
			So(err, ShouldBeNil)
			_, _, err = svc.Create(ctx, "")
			So(err, ShouldBeNil)
			_, _, err = svc.Create(ctx, "")

			Convey("Then further sessions are refused", func() {
				So(err, ShouldEqual, service.ErrCapacity)
			})
		})

		Convey("When an unknown id is requested", func() {
			_, err := svc.Get(ctx, uuid.NewString())
			_, perr := svc.Pick(ctx, "not-a-uuid", deck.Left, "k")

			Convey("Then it is not found", func() {
				So(err, ShouldEqual, service.ErrSessionNotFound)
				So(perr, ShouldEqual, service.ErrSessionNotFound)
			})
		})
	})
}

func TestService_EvictIdle(t *testing.T) {
	Convey("Given a service with a controllable clock", t, func() {
		var mu sync.Mutex
		now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}
		advance := func(d time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			now = now.Add(d)
		}

		provider := &stubProvider{}
		svc := service.New(provider,
			service.WithClock(clock),
			service.WithIdleTTL(time.Minute),
			service.WithSweepInterval(time.Hour),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		id, _, err := svc.Create(ctx, "")
		So(err, ShouldBeNil)
		picked, err := svc.Pick(ctx, id, deck.Right, "")
		So(err, ShouldBeNil)

		Convey("When the session stays idle past the TTL", func() {
			advance(2 * time.Minute)
			evicted := svc.EvictIdle(ctx)

			Convey("Then it is evicted from memory", func() {
				So(evicted, ShouldEqual, 1)
				So(svc.GetStats()["activeSessions"], ShouldEqual, 0)
			})

			Convey("And a later Get resumes it from the store", func() {
				view, err := svc.Get(ctx, id)
				So(err, ShouldBeNil)
				So(view.MatchLog, ShouldResemble, picked.MatchLog)
				So(provider.fetches(), ShouldEqual, 1)
			})
		})

		Convey("When the session was used recently", func() {
			advance(30 * time.Second)

			Convey("Then it is kept", func() {
				So(svc.EvictIdle(ctx), ShouldEqual, 0)
			})
		})
	})
}
