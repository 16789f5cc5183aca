// Package sync implements the chunked, resumable reconciliation of
// directory records into the host identity provider's user store.
package sync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dhawalhost/dirsync/internal/adapter"
	"github.com/dhawalhost/dirsync/internal/identity"
	"github.com/dhawalhost/dirsync/internal/record"
	"github.com/dhawalhost/dirsync/pkg/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventUserCreated is fired after a directory record is first created
// in the identity store.
const EventUserCreated = "user.created"

// Event describes a post-commit notification from a sync run.
type Event struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Username string    `json:"username"`
	At       time.Time `json:"at"`
}

// Result carries the per-run reconciliation counters.
type Result struct {
	Added   int
	Updated int
	Failed  int
}

// Config carries the engine's deployment settings.
type Config struct {
	// Realm is the identity-provider realm users are reconciled into.
	Realm string

	// ChunkSize is the page size for fetching directory records.
	ChunkSize int

	// MapNames copies first/last name onto the identity user. When
	// false those fields are left to the generic attribute storage.
	MapNames bool
}

// Engine orchestrates full and incremental synchronization runs.
//
// Runs are serialized against each other: the host triggers full and
// incremental sync on independent timers, and overlapping runs would
// race on the records' last-synced marks.
type Engine struct {
	records    record.Store
	identities identity.Store
	cfg        Config
	logger     *zap.Logger
	metrics    *observability.Metrics
	onCreated  func(Event)

	runMu sync.Mutex
}

// NewEngine creates a synchronization engine.
func NewEngine(records record.Store, identities identity.Store, cfg Config, logger *zap.Logger) *Engine {
	return &Engine{
		records:    records,
		identities: identities,
		cfg:        cfg,
		logger:     logger,
	}
}

// SetMetrics attaches a metric set to the engine.
func (e *Engine) SetMetrics(m *observability.Metrics) { e.metrics = m }

// OnUserCreated registers a callback invoked after each successful
// creation of an identity user, once the record's sync mark is
// committed.
func (e *Engine) OnUserCreated(fn func(Event)) { e.onCreated = fn }

// SyncFull reconciles every directory record into the identity store.
func (e *Engine) SyncFull(ctx context.Context) (Result, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	total, err := e.records.Count(ctx)
	if err != nil {
		return Result{}, err
	}
	e.logger.Info("full sync starting",
		zap.Int("total_records", total),
		zap.Int("chunk_size", e.cfg.ChunkSize))

	return e.run(ctx, "full", e.records.ListAll)
}

// SyncChanged reconciles records modified since the high-water mark,
// the latest last-synced timestamp across the store. The mark is
// derived from the data itself, so it is always consistent with what
// was actually written.
func (e *Engine) SyncChanged(ctx context.Context) (Result, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	since, err := e.records.LastSyncTime(ctx)
	if err != nil {
		return Result{}, err
	}
	e.logger.Info("incremental sync starting",
		zap.Time("since", since),
		zap.Int("chunk_size", e.cfg.ChunkSize))

	return e.run(ctx, "incremental", func(ctx context.Context, offset, limit int) ([]record.UserRecord, error) {
		return e.records.ListChangedSince(ctx, since, offset, limit)
	})
}

// run pages through the listing with a cursor local to this
// invocation. A record failure is skipped and logged; a storage
// failure fetching a page aborts the run and is returned alongside
// the partial result.
func (e *Engine) run(ctx context.Context, mode string, list func(ctx context.Context, offset, limit int) ([]record.UserRecord, error)) (Result, error) {
	start := time.Now()
	var res Result

	var runErr error
	for page := 0; ; page++ {
		recs, err := list(ctx, page*e.cfg.ChunkSize, e.cfg.ChunkSize)
		if err != nil {
			e.logger.Error("sync aborted: page fetch failed",
				zap.String("mode", mode),
				zap.Int("page", page),
				zap.Error(err))
			runErr = err
			break
		}
		if len(recs) == 0 {
			break
		}

		for i := range recs {
			if err := e.upsert(ctx, &recs[i], &res); err != nil {
				res.Failed++
				e.logger.Warn("record sync failed, skipping",
					zap.String("mode", mode),
					zap.Int64("record_id", recs[i].ID),
					zap.String("username", recs[i].Username),
					zap.Error(err))
			}
		}
	}

	duration := time.Since(start)
	if e.metrics != nil {
		e.metrics.ObserveSyncRun(mode, res.Added, res.Updated, res.Failed, duration, runErr)
	}
	e.logger.Info("sync finished",
		zap.String("mode", mode),
		zap.Int("added", res.Added),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed),
		zap.Duration("duration", duration))

	return res, runErr
}

// upsert reconciles one directory record into the identity store and
// stamps its sync mark. Counters advance only after both writes have
// succeeded, so a failed record never inflates the run totals.
func (e *Engine) upsert(ctx context.Context, rec *record.UserRecord, res *Result) error {
	if rec.Username == "" {
		return errors.New("record has no username")
	}

	created := false
	user, err := e.identities.FindByUsername(ctx, e.cfg.Realm, rec.Username)
	switch {
	case errors.Is(err, identity.ErrNotFound):
		user, err = e.identities.Create(ctx, e.cfg.Realm, rec.Username)
		if err != nil {
			return err
		}
		user.CreatedAt = rec.CreatedAt
		created = true
	case err != nil:
		return err
	}

	user.Username = rec.Username
	user.Email = rec.Email
	if user.Email == "" {
		user.Email = rec.Username
	}
	if e.cfg.MapNames {
		user.FirstName = rec.FirstName
		user.LastName = rec.LastName
	}
	user.EmailVerified = true

	// Blank optional attributes are left untouched, never cleared: a
	// stale external row must not erase data already in the identity
	// store.
	setIfPresent(user, adapter.AttrStatus, rec.Status)
	setIfPresent(user, adapter.AttrMobilePhone, rec.MobilePhone)
	setIfPresent(user, adapter.AttrOfficePhone, rec.OfficePhone)

	if err := e.identities.Update(ctx, e.cfg.Realm, user); err != nil {
		return err
	}
	if err := e.records.MarkSynced(ctx, rec.ID, time.Now().UTC()); err != nil {
		return err
	}

	if created {
		res.Added++
		if e.onCreated != nil {
			e.onCreated(Event{
				ID:       uuid.NewString(),
				Type:     EventUserCreated,
				Username: rec.Username,
				At:       time.Now().UTC(),
			})
		}
	} else {
		res.Updated++
	}
	return nil
}

func setIfPresent(user *identity.User, name, value string) {
	if strings.TrimSpace(value) != "" {
		user.SetAttribute(name, value)
	}
}
