// Command deckfeed serves daily decks from a box-score fixture in the shape
// the showdown server fetches them.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/showdown/internal/adapters/deckclient"
	"github.com/okian/showdown/internal/adapters/deckfeed"
	"github.com/okian/showdown/pkg/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	_ = godotenv.Load()

	var (
		addr     = flag.String("addr", envOr("DECKFEED_ADDR", ":8000"), "Listen address")
		fixture  = flag.String("fixture", envOr("DECKFEED_FIXTURE", "sample"), `Box-score fixture path or "sample"`)
		lookback = flag.Int("lookback", 7, "Days to search back for a date with games")
		format   = flag.String("log-format", "text", "Log format: text or json")
	)
	flag.Parse()

	if err := logger.InitWithWriter(os.Stdout, *format); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get().Named("deckfeed")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := deckfeed.Load(*fixture, deckfeed.WithLookbackDays(*lookback))
	if err != nil {
		log.Error(ctx, "failed to load fixture", logger.String("fixture", *fixture), logger.Error(err))
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle(deckclient.DeckPath, deckfeed.Handler(source, log))
	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}

	go func() {
		log.Info(ctx, "serving decks",
			logger.String("addr", *addr),
			logger.Int("dates", len(source.Dates())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "deck server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "shutdown failed", logger.Error(err))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
