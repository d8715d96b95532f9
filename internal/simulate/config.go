package simulate

import "time"

// Config holds configuration for a simulation run
type Config struct {
	BaseURL  string        // Base URL of the service
	Sessions int           // Number of sessions to play
	Workers  int           // Number of concurrent players
	Timeout  time.Duration // HTTP request timeout
	Date     string        // Deck date; empty plays the latest deck
	// DuplicateEvery resends every n-th pick with the same idempotency key;
	// zero disables duplicates.
	DuplicateEvery int
	Keep           bool   // Keep sessions instead of deleting them
	LogFile        string // Log file for run output
	Verbose        bool   // Enable verbose logging
	Seed           uint64 // Seed for side choices; zero picks one at random
}

// Stats holds run statistics
type Stats struct {
	SessionsStarted   int
	SessionsCompleted int
	SessionsEmpty     int
	SessionsFailed    int
	Picks             int
	DuplicatePicks    int
	Violations        int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// outcome is the result of one played session.
type outcome struct {
	completed  bool
	empty      bool
	picks      int
	duplicates int
	violations []error
	err        error
}
