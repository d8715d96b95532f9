// Package service keeps the live showdown sessions and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/showdown/internal/adapters/mq/queue"
	workerpool "github.com/okian/showdown/internal/adapters/mq/worker"
	"github.com/okian/showdown/internal/adapters/persistence"
	repository "github.com/okian/showdown/internal/adapters/repository"
	"github.com/okian/showdown/internal/app/session"
	"github.com/okian/showdown/internal/domain/deck"
	"github.com/okian/showdown/internal/domain/dedupe"
	"github.com/okian/showdown/internal/domain/scoring"
	"github.com/okian/showdown/internal/domain/share"
	"github.com/okian/showdown/internal/domain/types"
	"github.com/okian/showdown/pkg/logger"
	"github.com/okian/showdown/pkg/metrics"
)

// entry is a live session and the time it was last used.
type entry struct {
	ctrl     *session.Controller
	lastSeen time.Time
}

// Service implements the API dependencies for the showdown.
type Service struct {
	mu sync.RWMutex

	// Core components
	provider session.DeckProvider
	backend  repository.Store
	store    repository.Store
	writer   *workerpool.WriteBehind
	deduper  dedupe.Deduper
	scorer   *scoring.Scorer
	deckOpts []deck.Option
	sessions map[string]*entry

	// Configuration
	writerWorkers int
	queueSize     int
	dedupeSize    int
	maxSessions   int
	idleTTL       time.Duration
	sweepEvery    time.Duration
	now           func() time.Time

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the store snapshots are persisted to. Defaults to memory.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.backend = store
		}
	}
}

// WithWriterWorkers sets the number of write-behind workers. Zero writes
// snapshots synchronously.
func WithWriterWorkers(count int) Option {
	return func(s *Service) {
		if count >= 0 {
			s.writerWorkers = count
		}
	}
}

// WithQueueSize sets the capacity of the write-behind queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the number of remembered pick idempotency keys.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxSessions caps the number of live sessions. Zero means unbounded.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxSessions = n
		}
	}
}

// WithIdleTTL evicts sessions unused for d. Their snapshots stay stored.
func WithIdleTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.idleTTL = d
		}
	}
}

// WithSweepInterval sets how often idle sessions are looked for.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepEvery = d
		}
	}
}

// WithScorer sets the scorer shared by every session.
func WithScorer(sc *scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithDeckOptions passes options to every engine the sessions deal.
func WithDeckOptions(opts ...deck.Option) Option {
	return func(s *Service) {
		s.deckOpts = append(s.deckOpts, opts...)
	}
}

// WithClock sets the time source used for idle eviction.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(provider session.DeckProvider, opts ...Option) *Service {
	s := &Service{
		provider:      provider,
		scorer:        scoring.NewScorer(),
		sessions:      make(map[string]*entry),
		writerWorkers: 4,
		queueSize:     1024,
		dedupeSize:    50000,
		idleTTL:       30 * time.Minute,
		sweepEvery:    time.Minute,
		now:           time.Now,
		stopCh:        make(chan struct{}),
		logger:        nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.provider == nil {
		return ErrNoProvider
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting showdown service...")

	if s.backend == nil {
		s.backend = repository.NewMemoryStore()
		s.logger.Info(ctx, "using memory store")
	}
	s.store = s.backend
	if s.writerWorkers > 0 {
		s.writer = workerpool.NewWriteBehind(s.backend,
			workerpool.WithWorkers(s.writerWorkers),
			workerpool.WithQueue(queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))),
			workerpool.WithLogger(s.logger.Named("writer")),
		)
		// Workers outlive the start context; Stop ends them.
		s.writer.Start(context.WithoutCancel(ctx))
		s.store = s.writer
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.sweep()

	s.started = true
	s.logger.Info(ctx, "showdown service started",
		logger.Int("writerWorkers", s.writerWorkers),
		logger.Int("queueSize", s.queueSize),
		logger.Int("maxSessions", s.maxSessions),
		logger.Duration("idleTTL", s.idleTTL),
	)

	return nil
}

// Stop closes every session, flushes pending snapshot writes and closes the
// store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	close(s.stopCh)
	for id, e := range s.sessions {
		e.ctrl.Close()
		delete(s.sessions, id)
	}
	metrics.UpdateActiveSessions(0)
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping showdown service...")
	s.wg.Wait()

	var errs []error
	if s.writer != nil {
		errs = append(errs, s.writer.Stop(ctx))
	}
	if closer, ok := s.backend.(interface{ Close() error }); ok {
		errs = append(errs, closer.Close())
	}

	s.logger.Info(ctx, "showdown service stopped")
	return errors.Join(errs...)
}

// Create starts a new session for date and returns its id and first view.
func (s *Service) Create(ctx context.Context, date string) (string, types.View, error) {
	id := uuid.NewString()

	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return "", types.View{}, ErrNotStarted
	}
	ctrl := s.newController(ctx, id, session.WithDate(date))

	s.mu.Lock()
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		s.mu.Unlock()
		ctrl.Close()
		return "", types.View{}, ErrCapacity
	}
	s.sessions[id] = &entry{ctrl: ctrl, lastSeen: s.now()}
	metrics.UpdateActiveSessions(len(s.sessions))
	s.mu.Unlock()

	s.logger.Debug(ctx, "session created", logger.String("session", id), logger.String("date", date))
	return id, ctrl.Start(ctx), nil
}

// Get returns the view of a session, resuming it from the store when it is
// not live.
func (s *Service) Get(ctx context.Context, id string) (types.View, error) {
	ctrl, err := s.controller(ctx, id)
	if err != nil {
		return types.View{}, err
	}
	return ctrl.Start(ctx), nil
}

// Pick resolves the current matchup of a session. A non-empty idempotencyKey
// already used for this session returns the current view without picking.
func (s *Service) Pick(ctx context.Context, id string, side deck.Side, idempotencyKey string) (types.View, error) {
	if idempotencyKey != "" && s.seenAndRecord(ctx, id+":"+idempotencyKey) {
		metrics.RecordPickDuplicate()
		s.logger.Debug(ctx, "duplicate pick detected, skipping",
			logger.String("session", id), logger.String("key", idempotencyKey))
		if ctrl, err := s.controller(ctx, id); err == nil {
			return ctrl.View(), nil
		}
		return types.View{}, ErrSessionNotFound
	}

	ctrl, err := s.controller(ctx, id)
	if err != nil {
		if idempotencyKey != "" {
			s.deduper.Unrecord(ctx, id+":"+idempotencyKey)
		}
		return types.View{}, err
	}
	return ctrl.Pick(ctx, side), nil
}

// Reset restarts a session on a fresh deck for its current date.
func (s *Service) Reset(ctx context.Context, id string) (types.View, error) {
	ctrl, err := s.controller(ctx, id)
	if err != nil {
		return types.View{}, err
	}
	return ctrl.Reset(ctx), nil
}

// Filter re-deals a session with one team, or every team for ALL.
func (s *Service) Filter(ctx context.Context, id, team string) (types.View, error) {
	ctrl, err := s.controller(ctx, id)
	if err != nil {
		return types.View{}, err
	}
	return ctrl.ApplyTeamFilter(ctx, team), nil
}

// ChangeDate restarts a session on the deck of date.
func (s *Service) ChangeDate(ctx context.Context, id, date string) (types.View, error) {
	ctrl, err := s.controller(ctx, id)
	if err != nil {
		return types.View{}, err
	}
	return ctrl.ChangeDate(ctx, date), nil
}

// Retry repeats the failed fetch of a session.
func (s *Service) Retry(ctx context.Context, id string) (types.View, error) {
	ctrl, err := s.controller(ctx, id)
	if err != nil {
		return types.View{}, err
	}
	return ctrl.Retry(ctx), nil
}

// PathToVictory returns the bouts the winner of a session won.
func (s *Service) PathToVictory(ctx context.Context, id string) ([]deck.MatchLogEntry, error) {
	ctrl, err := s.controller(ctx, id)
	if err != nil {
		return nil, err
	}
	path, ok := ctrl.PathToVictory()
	if !ok {
		return nil, ErrNotFinished
	}
	return path, nil
}

// Share returns the share payload of a finished session.
func (s *Service) Share(ctx context.Context, id, pageURL string) (share.Payload, error) {
	ctrl, err := s.controller(ctx, id)
	if err != nil {
		return share.Payload{}, err
	}
	payload, ok := ctrl.Share(pageURL)
	if !ok {
		return share.Payload{}, ErrNotFinished
	}
	return payload, nil
}

// Delete closes a session and removes its snapshot.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctrl, err := s.controller(ctx, id)
	if err != nil {
		return err
	}
	ctrl.Clear(ctx)
	ctrl.Close()

	s.mu.Lock()
	delete(s.sessions, id)
	metrics.UpdateActiveSessions(len(s.sessions))
	s.mu.Unlock()
	return nil
}

// controller returns the live controller of id, resuming it from its
// snapshot when needed.
func (s *Service) controller(ctx context.Context, id string) (*session.Controller, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil, ErrNotStarted
	}
	if e, ok := s.sessions[id]; ok {
		e.lastSeen = s.now()
		s.mu.Unlock()
		return e.ctrl, nil
	}
	s.mu.Unlock()

	ctrl := s.newController(ctx, id)
	if !ctrl.Restored() {
		ctrl.Close()
		return nil, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[id]; ok {
		ctrl.Close()
		e.lastSeen = s.now()
		return e.ctrl, nil
	}
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		ctrl.Close()
		return nil, ErrCapacity
	}
	s.sessions[id] = &entry{ctrl: ctrl, lastSeen: s.now()}
	metrics.UpdateActiveSessions(len(s.sessions))
	s.logger.Debug(ctx, "session resumed", logger.String("session", id))
	return ctrl, nil
}

func (s *Service) newController(ctx context.Context, id string, opts ...session.Option) *session.Controller {
	log := s.logger.With(logger.String("session", id))
	store := persistence.New(s.store, persistence.Key(id), persistence.WithLogger(log))
	opts = append([]session.Option{
		session.WithScorer(s.scorer),
		session.WithDeckOptions(s.deckOpts...),
		session.WithLogger(log),
		session.WithClock(s.now),
	}, opts...)
	return session.New(ctx, s.provider, store, opts...)
}

// seenAndRecord reports whether key was already used and records it if not.
func (s *Service) seenAndRecord(ctx context.Context, key string) bool {
	return s.deduper.SeenAndRecord(ctx, key)
}

// sweep evicts idle sessions until Stop.
func (s *Service) sweep() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.EvictIdle(context.Background())
		}
	}
}

// EvictIdle closes sessions unused for longer than the idle TTL and returns
// how many were evicted. A later Get resumes them from the store.
func (s *Service) EvictIdle(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTTL)
	evicted := 0
	for id, e := range s.sessions {
		if e.lastSeen.After(cutoff) {
			continue
		}
		e.ctrl.Close()
		delete(s.sessions, id)
		metrics.RecordSessionEvicted()
		evicted++
	}
	if evicted > 0 {
		metrics.UpdateActiveSessions(len(s.sessions))
		s.logger.Debug(ctx, "evicted idle sessions", logger.Int("count", evicted))
	}
	return evicted
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"writerWorkers": s.writerWorkers,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"maxSessions":   s.maxSessions,
		"idleTTL":       s.idleTTL.String(),
	}

	if s.started {
		stats["activeSessions"] = len(s.sessions)
		stats["seenPickKeys"] = s.deduper.Size()
		if s.writer != nil {
			pending := s.writer.Pending()
			stats["pendingWrites"] = pending
		}
		metrics.UpdateActiveSessions(len(s.sessions))
	}

	return stats
}
