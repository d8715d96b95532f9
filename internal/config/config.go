// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Defaults live in New; Load layers a YAML file and the environment on top.
//   - Keys are flat snake_case names matching the koanf struct tags.
package config

import "time"

// Store drivers understood by the snapshot repository.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DeckURL is the base URL of the daily deck provider.
	DeckURL string `koanf:"deck_url"`
	// DeckTimeoutMS bounds one deck fetch.
	DeckTimeoutMS int `koanf:"deck_timeout_ms"`
	// DeckFixture is a JSON box-score fixture. When set, decks are dealt
	// in-process from it and DeckURL is not contacted.
	DeckFixture string `koanf:"deck_fixture"`
	// DeckLookbackDays is how far back the feed searches for a date with games.
	DeckLookbackDays int `koanf:"deck_lookback_days"`

	// StoreDriver selects the snapshot backend: memory, file, sqlite, redis, postgres.
	StoreDriver string `koanf:"store_driver"`
	// StorePath is the directory (file) or database path (sqlite).
	StorePath string `koanf:"store_path"`
	// RedisAddr is the redis host:port for the redis driver.
	RedisAddr string `koanf:"redis_addr"`
	// RedisTTLSeconds expires snapshots in redis; 0 keeps them forever.
	RedisTTLSeconds int `koanf:"redis_ttl_seconds"`
	// PostgresDSN is the connection string for the postgres driver.
	PostgresDSN string `koanf:"postgres_dsn"`

	// WriterWorkers sets the write-behind worker count; 0 writes synchronously.
	WriterWorkers int `koanf:"writer_workers"`
	// WriterQueueSize bounds the write-behind key queue.
	WriterQueueSize int `koanf:"writer_queue_size"`

	// SessionIdleTTLSeconds evicts idle sessions from memory (they stay persisted).
	SessionIdleTTLSeconds int `koanf:"session_idle_ttl_seconds"`
	// MaxSessions caps in-memory sessions.
	MaxSessions int `koanf:"max_sessions"`
	// PickDedupeSize bounds the pick idempotency cache.
	PickDedupeSize int `koanf:"pick_dedupe_size"`

	// ScoreWeights overrides the game score weights by stat key.
	ScoreWeights map[string]float64 `koanf:"score_weights"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		DeckURL:               "http://localhost:8000",
		DeckTimeoutMS:         15_000,
		DeckLookbackDays:      7,
		StoreDriver:           StoreMemory,
		StorePath:             "data",
		RedisAddr:             "localhost:6379",
		WriterWorkers:         2,
		WriterQueueSize:       1024,
		SessionIdleTTLSeconds: 1800,
		MaxSessions:           10_000,
		PickDedupeSize:        50_000,
		ScoreWeights: map[string]float64{
			"points":    1,
			"rebounds":  1.2,
			"assists":   1.5,
			"steals":    2,
			"blocks":    2,
			"turnovers": -1.5,
		},
	}
}

// DeckTimeout returns DeckTimeoutMS as a duration.
func (c *Config) DeckTimeout() time.Duration {
	return time.Duration(c.DeckTimeoutMS) * time.Millisecond
}

// SessionIdleTTL returns SessionIdleTTLSeconds as a duration.
func (c *Config) SessionIdleTTL() time.Duration {
	return time.Duration(c.SessionIdleTTLSeconds) * time.Second
}

// RedisTTL returns RedisTTLSeconds as a duration.
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.RedisTTLSeconds) * time.Second
}
