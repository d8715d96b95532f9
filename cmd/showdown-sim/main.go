package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/showdown/internal/simulate"
)

// Default configuration constants.
const (
	defaultSessions       = 100
	defaultDuplicateEvery = 5
	defaultTimeout        = 10 * time.Second
	defaultRunTimeout     = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		sessions = flag.Int("sessions", defaultSessions, "Number of sessions to play")
		workers  = flag.Int("workers", runtime.NumCPU(), "Number of concurrent players")
		date     = flag.String("date", "", "Deck date YYYY-MM-DD (default latest)")
		dup      = flag.Int("dup", defaultDuplicateEvery, "Resend every n-th pick with the same Idempotency-Key (0 disables)")
		seed     = flag.Uint64("seed", 0, "Seed for side choices (default random)")
		keep     = flag.Bool("keep", false, "Keep finished sessions instead of deleting them")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile  = flag.String("log", "", "Also write output to this file")
		verbose  = flag.Bool("verbose", false, "Log progress after each session")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	closer, err := simulate.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &simulate.Config{
		BaseURL:        *baseURL,
		Sessions:       *sessions,
		Workers:        max(*workers, 1),
		Timeout:        *timeout,
		Date:           *date,
		DuplicateEvery: *dup,
		Keep:           *keep,
		LogFile:        *logFile,
		Verbose:        *verbose,
		Seed:           *seed,
	}

	if _, err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
