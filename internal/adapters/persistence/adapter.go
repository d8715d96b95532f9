package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/okian/showdown/internal/adapters/repository"
	"github.com/okian/showdown/pkg/logger"
	"github.com/okian/showdown/pkg/metrics"
)

// Adapter persists the snapshot of one session under a single key.
type Adapter struct {
	store  repository.Store
	key    string
	logger logger.Logger
	now    func() time.Time
}

// New creates an adapter for the session stored under key.
func New(store repository.Store, key string, opts ...Option) *Adapter {
	a := &Adapter{
		store:  store,
		key:    key,
		logger: logger.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(logger.String("key", key))
	return a
}

// Key returns the store key.
func (a *Adapter) Key() string { return a.key }

// Save writes snap. Errors are logged and counted, never returned.
func (a *Adapter) Save(ctx context.Context, snap Snapshot) {
	snap.Version = SnapshotVersion
	snap.SavedAt = a.now().UTC()

	b, err := json.Marshal(snap)
	if err != nil {
		a.fail(ctx, "save", "encode snapshot", err)
		return
	}
	if err := a.store.Put(ctx, a.key, b); err != nil {
		a.fail(ctx, "save", "store snapshot", err)
	}
}

// Load reads the snapshot. It returns false when nothing is stored, the data
// cannot be decoded, the version differs, or either matchup slot is missing.
func (a *Adapter) Load(ctx context.Context) (Snapshot, bool) {
	b, err := a.store.Get(ctx, a.key)
	if errors.Is(err, repository.ErrNotFound) {
		return Snapshot{}, false
	}
	if err != nil {
		a.fail(ctx, "load", "read snapshot", err)
		return Snapshot{}, false
	}

	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		a.fail(ctx, "decode", "discarding corrupt snapshot", err)
		return Snapshot{}, false
	}
	if snap.Version != SnapshotVersion {
		a.logger.Warn(ctx, "discarding snapshot with unknown version", logger.Int("version", snap.Version))
		metrics.RecordPersistenceError("version")
		return Snapshot{}, false
	}
	if !snap.Resumable() {
		a.logger.Debug(ctx, "snapshot has no complete matchup")
		return Snapshot{}, false
	}
	return snap, true
}

// Clear removes the snapshot. Errors are logged and counted, never returned.
func (a *Adapter) Clear(ctx context.Context) {
	if err := a.store.Delete(ctx, a.key); err != nil {
		a.fail(ctx, "clear", "delete snapshot", err)
	}
}

func (a *Adapter) fail(ctx context.Context, op, msg string, err error) {
	metrics.RecordPersistenceError(op)
	a.logger.Warn(ctx, msg, logger.String("op", op), logger.Error(err))
}
