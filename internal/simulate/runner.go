// Package simulate plays showdown sessions against a running server and
// checks the elimination invariants from the outside.
package simulate

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/okian/showdown/pkg/logger"
)

// PercentageMultiplier converts ratios to percentages.
const PercentageMultiplier = 100

// ErrViolations is returned when any session broke an invariant.
var ErrViolations = errors.New("invariant violations detected")

// Run executes the complete simulation.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	log := logger.Get()
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting showdown simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sessions", config.Sessions),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("date", config.Date),
		logger.Bool("verbose", config.Verbose))

	client := newHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Play sessions concurrently
	playSessions(ctx, client, config, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.Violations > 0 {
		return stats, fmt.Errorf("%w: %d", ErrViolations, stats.Violations)
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	logger.Get().Info(ctx, "checking service health")

	status, err := client.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if status != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// playSessions runs config.Sessions sessions over a pool of workers.
func playSessions(ctx context.Context, client *HTTPClient, config *Config, stats *Stats) {
	log := logger.Get()
	seed := config.Seed
	if seed == 0 {
		var b [8]byte
		_, _ = crand.Read(b[:])
		seed = binary.LittleEndian.Uint64(b[:])
	}

	jobs := make(chan int, config.Workers*2)
	results := make(chan outcome, config.Workers*2)

	var wg sync.WaitGroup
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p := &player{
				client: client,
				config: config,
				rng:    rand.New(rand.NewPCG(seed, uint64(workerID))),
			}
			for range jobs {
				if ctx.Err() != nil {
					return
				}
				results <- p.play(ctx)
			}
		}(i)
	}

	go func() {
		defer close(jobs)
		for i := 0; i < config.Sessions; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for out := range results {
		stats.SessionsStarted++
		stats.Picks += out.picks
		stats.DuplicatePicks += out.duplicates
		stats.Violations += len(out.violations)
		switch {
		case out.err != nil:
			stats.SessionsFailed++
			log.Warn(ctx, "session failed", logger.Error(out.err))
		case out.empty:
			stats.SessionsEmpty++
		case out.completed:
			stats.SessionsCompleted++
		}
		for _, v := range out.violations {
			log.Error(ctx, "invariant violation", logger.Error(v))
		}
		if config.Verbose {
			log.Info(ctx, "progress",
				logger.Int("played", stats.SessionsStarted),
				logger.Int("of", config.Sessions))
		}
	}
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var completionRate, picksPerSecond float64

	if stats.SessionsStarted > 0 {
		completionRate = float64(stats.SessionsCompleted) / float64(stats.SessionsStarted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		picksPerSecond = float64(stats.Picks) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("sessionsStarted", stats.SessionsStarted),
		logger.Int("sessionsCompleted", stats.SessionsCompleted),
		logger.Int("sessionsEmpty", stats.SessionsEmpty),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("picks", stats.Picks),
		logger.Int("duplicatePicks", stats.DuplicatePicks),
		logger.Int("violations", stats.Violations),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("completionRate", completionRate),
		logger.Float64("picksPerSecond", picksPerSecond))
}
