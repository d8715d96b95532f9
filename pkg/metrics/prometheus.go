// Package metrics provides Prometheus metrics for the showdown service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Session lifecycle
	sessionsStarted   prometheus.Counter
	sessionsRestored  prometheus.Counter
	sessionsCompleted prometheus.Counter
	sessionsEvicted   prometheus.Counter
	activeSessions    prometheus.Gauge
	picks             prometheus.Counter
	picksDuplicate    prometheus.Counter
	picksIgnored      prometheus.Counter
	filtersIgnored    prometheus.Counter
	stateTransitions  *prometheus.CounterVec

	// Deck provider
	deckFetchLatency prometheus.Histogram
	deckFetchErrors  *prometheus.CounterVec
	deckPlayers      prometheus.Histogram

	// Persistence
	persistenceErrors  *prometheus.CounterVec
	persistenceLatency *prometheus.HistogramVec
	writerQueueSize    prometheus.Gauge
	writerSyncFallback prometheus.Counter
	writerCoalesced    prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	renderFailures      prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // service registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "showdown",
		subsystem:        "session",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.sessionsStarted = m.counter("sessions_started_total", "Sessions dealt from a fresh deck fetch")
	m.sessionsRestored = m.counter("sessions_restored_total", "Sessions resumed from a persisted snapshot")
	m.sessionsCompleted = m.counter("sessions_completed_total", "Sessions that crowned a Player of the Day")
	m.sessionsEvicted = m.counter("sessions_evicted_total", "Idle sessions dropped from memory")
	m.activeSessions = m.gauge("active_sessions", "Sessions currently held in memory")
	m.picks = m.counter("picks_total", "Matchup decisions applied")
	m.picksDuplicate = m.counter("picks_duplicate_total", "Pick requests dropped by idempotency key")
	m.picksIgnored = m.counter("picks_ignored_total", "Picks ignored because the session was not active")
	m.filtersIgnored = m.counter("filters_ignored_total", "Team filters ignored for matching fewer than two players")
	m.stateTransitions = m.counterVec("state_transitions_total", "Session state transitions by target state", "state")

	m.deckFetchLatency = m.histogram("deck_fetch_latency_milliseconds", "Latency of daily deck fetches", m.histogramBuckets)
	m.deckFetchErrors = m.counterVec("deck_fetch_errors_total", "Failed daily deck fetches by reason", "reason")
	m.deckPlayers = m.histogram("deck_players", "Usable players per fetched deck", []float64{2, 4, 8, 12, 16, 24, 32, 48, 64})

	m.persistenceErrors = m.counterVec("persistence_errors_total", "Swallowed persistence failures by operation", "op")
	m.persistenceLatency = m.histogramVec("persistence_latency_milliseconds", "Snapshot store latency by operation", "op")
	m.writerQueueSize = m.gauge("writer_queue_size", "Keys waiting in the write-behind queue")
	m.writerSyncFallback = m.counter("writer_sync_fallback_total", "Writes applied synchronously because the queue was full")
	m.writerCoalesced = m.counter("writer_coalesced_total", "Snapshot writes superseded before reaching the store")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")
	m.renderFailures = m.counter("render_failures_total", "Panics recovered at the HTTP boundary")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordSessionStarted counts a freshly dealt session.
func RecordSessionStarted() { globalManager.sessionsStarted.Inc() }

// RecordSessionRestored counts a session resumed from a snapshot.
func RecordSessionRestored() { globalManager.sessionsRestored.Inc() }

// RecordSessionCompleted counts a session reaching its winner.
func RecordSessionCompleted() { globalManager.sessionsCompleted.Inc() }

// RecordSessionEvicted counts an idle session dropped from memory.
func RecordSessionEvicted() { globalManager.sessionsEvicted.Inc() }

// UpdateActiveSessions sets the number of in-memory sessions.
func UpdateActiveSessions(n int) { globalManager.activeSessions.Set(float64(n)) }

// RecordPick counts an applied pick.
func RecordPick() { globalManager.picks.Inc() }

// RecordPickDuplicate counts a pick dropped by its idempotency key.
func RecordPickDuplicate() { globalManager.picksDuplicate.Inc() }

// RecordPickIgnored counts a pick made outside the active state.
func RecordPickIgnored() { globalManager.picksIgnored.Inc() }

// RecordFilterIgnored counts a team filter that matched fewer than two players.
func RecordFilterIgnored() { globalManager.filtersIgnored.Inc() }

// RecordStateTransition counts a transition into state.
func RecordStateTransition(state string) { globalManager.stateTransitions.WithLabelValues(state).Inc() }

// RecordDeckFetchLatency records a deck fetch latency in milliseconds.
func RecordDeckFetchLatency(ms float64) { globalManager.deckFetchLatency.Observe(ms) }

// RecordDeckFetchError counts a failed deck fetch.
func RecordDeckFetchError(reason string) { globalManager.deckFetchErrors.WithLabelValues(reason).Inc() }

// RecordDeckPlayers records the number of usable players in a fetched deck.
func RecordDeckPlayers(n int) { globalManager.deckPlayers.Observe(float64(n)) }

// RecordPersistenceError counts a swallowed persistence failure.
func RecordPersistenceError(op string) { globalManager.persistenceErrors.WithLabelValues(op).Inc() }

// RecordPersistenceLatency records a store operation latency in milliseconds.
func RecordPersistenceLatency(op string, ms float64) {
	globalManager.persistenceLatency.WithLabelValues(op).Observe(ms)
}

// UpdateWriterQueueSize sets the write-behind backlog.
func UpdateWriterQueueSize(n int) { globalManager.writerQueueSize.Set(float64(n)) }

// RecordWriterSyncFallback counts a write applied inline.
func RecordWriterSyncFallback() { globalManager.writerSyncFallback.Inc() }

// RecordWriterCoalesced counts a superseded pending write.
func RecordWriterCoalesced() { globalManager.writerCoalesced.Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// RecordRenderFailure counts a recovered panic.
func RecordRenderFailure() { globalManager.renderFailures.Inc() }

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutineCount.Set(float64(n)) }

// GetRegistry returns the registry the service metrics live on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
