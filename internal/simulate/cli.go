package simulate

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/showdown/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initializes the logger on stdout, and on logFile as well when
// it is set. The returned closer releases the file.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		if err := logger.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		return io.NopCloser(nil), nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file), "text"); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Daily Showdown Simulator
========================

Plays sessions against a running server with random picks and checks that
every deck of N players ends after N-1 picks with a consistent match log.

Usage:
  go run ./cmd/showdown-sim [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sessions int
        Number of sessions to play (default 100)
  -workers int
        Number of concurrent players (default CPU cores)
  -date string
        Deck date YYYY-MM-DD (default latest)
  -dup int
        Resend every n-th pick with the same Idempotency-Key (default 5, 0 disables)
  -seed uint
        Seed for side choices (default random)
  -keep
        Keep finished sessions instead of deleting them
  -timeout duration
        HTTP request timeout (default 10s)
  -log string
        Also write output to this file
  -verbose
        Log progress after each session
  -help
        Show this help message

Examples:
  # Play against the development server
  go run ./cmd/showdown-sim

  # Replay a fixed date with many players
  go run ./cmd/showdown-sim -date 2025-01-14 -sessions 1000 -workers 32
`)
}
