package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/showdown/internal/adapters/deckclient"
	"github.com/okian/showdown/internal/adapters/deckfeed"
	"github.com/okian/showdown/internal/adapters/http/api"
	"github.com/okian/showdown/internal/adapters/http/swagger"
	"github.com/okian/showdown/internal/adapters/repository"
	service "github.com/okian/showdown/internal/app"
	"github.com/okian/showdown/internal/app/session"
	"github.com/okian/showdown/internal/config"
	"github.com/okian/showdown/internal/domain/scoring"
	"github.com/okian/showdown/pkg/logger"
	"github.com/okian/showdown/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 20 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment and defaults still apply.
	_ = godotenv.Load()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.InitWithWriter(os.Stdout, cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	provider, err := newProvider(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to set up deck provider: %w", err)
	}

	svc := service.New(provider,
		service.WithStore(store),
		service.WithWriterWorkers(cfg.WriterWorkers),
		service.WithQueueSize(cfg.WriterQueueSize),
		service.WithDedupeSize(cfg.PickDedupeSize),
		service.WithMaxSessions(cfg.MaxSessions),
		service.WithIdleTTL(cfg.SessionIdleTTL()),
		service.WithScorer(scoring.NewScorer(scoring.WithWeightsFromConfig(cfg.ScoreWeights))),
		service.WithLogger(log),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(stopCtx, "service stop failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newHandler builds the routed and recovered HTTP handler.
func newHandler(ctx context.Context, svc *service.Service, log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc, log)
	apiServer.Register(ctx, mux)
	return apiServer.Handler(mux)
}

// openStore opens the snapshot backend selected by cfg.StoreDriver.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	var (
		store repository.Store
		err   error
	)
	switch cfg.StoreDriver {
	case config.StoreMemory, "":
		store = repository.NewMemoryStore()
	case config.StoreFile:
		store, err = repository.NewFileStore(cfg.StorePath)
	case config.StoreSQLite:
		store, err = repository.OpenSQLite(ctx, cfg.StorePath)
	case config.StoreRedis:
		store, err = repository.ConnectRedis(ctx, cfg.RedisAddr, repository.WithTTL(cfg.RedisTTL()))
	case config.StorePostgres:
		store, err = repository.OpenPostgres(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("%w: unknown store_driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}
	return repository.Instrument(store), nil
}

// newProvider deals decks in-process from a fixture when one is configured
// and fetches them from the deck service otherwise.
func newProvider(cfg *config.Config, log logger.Logger) (session.DeckProvider, error) {
	if cfg.DeckFixture != "" {
		return deckfeed.Load(cfg.DeckFixture, deckfeed.WithLookbackDays(cfg.DeckLookbackDays))
	}
	return deckclient.New(cfg.DeckURL,
		deckclient.WithTimeout(cfg.DeckTimeout()),
		deckclient.WithLogger(log.Named("deckclient")),
	), nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater periodically publishes service gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()

	if active, ok := stats["activeSessions"].(int); ok {
		metrics.UpdateActiveSessions(active)
	}
	if pending, ok := stats["pendingWrites"].(int); ok {
		metrics.UpdateWriterQueueSize(pending)
	}
}
