// Package sync implements the client's synchronization engine: draining the
// local mutation queue to the server in order, and pulling remote changes
// incrementally from a per-workspace checkpoint.
package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pawkit/pawkit/internal/client/store"
	"github.com/pawkit/pawkit/internal/common"
	"github.com/pawkit/pawkit/internal/logging"
	"github.com/pawkit/pawkit/internal/models"
)

// Server is the subset of the API client the engine needs.
type Server interface {
	Ping(ctx context.Context) error
	Changes(ctx context.Context, kind models.Kind, since time.Time) ([]models.Record, error)
	Create(ctx context.Context, rec *models.Record) (*models.Record, error)
	Update(ctx context.Context, rec *models.Record) (*models.Record, error)
	Delete(ctx context.Context, kind models.Kind, id string) error
}

// Status describes what the engine is currently doing.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusSyncing   Status = "syncing"
	StatusOffline   Status = "offline"
	StatusSuspended Status = "suspended"
	StatusError     Status = "error"
)

// Options configures the engine's background behavior.
type Options struct {
	WorkspaceID         string
	SyncInterval        time.Duration
	OnlineCheckInterval time.Duration

	// OnDrop is called when a mutation the server rejected is removed from
	// the queue, so the UI can tell the user their edit was discarded.
	// Called from the sync goroutine; may be nil.
	OnDrop func(m *models.Mutation, err error)
}

// Engine drains the mutation queue and pulls deltas. A single sync cycle runs
// at a time: overlapping triggers are collapsed, not queued.
type Engine struct {
	store  *store.Store
	server Server
	logger logging.Logger
	opts   Options

	// runMu serializes sync cycles.
	runMu sync.Mutex

	stateMu   sync.Mutex
	status    Status
	lastErr   error
	suspended bool

	kick chan struct{}
}

func NewEngine(st *store.Store, server Server, logger logging.Logger, opts Options) *Engine {
	return &Engine{
		store:  st,
		server: server,
		logger: logger,
		opts:   opts,
		status: StatusIdle,
		kick:   make(chan struct{}, 1),
	}
}

// Status returns the engine's current state.
func (e *Engine) Status() Status {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.status
}

// LastError returns the error recorded by the most recent failed cycle, or
// nil after a clean one.
func (e *Engine) LastError() error {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.lastErr
}

// PendingCount reports how many mutations are waiting in the queue.
func (e *Engine) PendingCount(ctx context.Context) (int, error) {
	return e.store.Queue.Len(ctx)
}

// Resume clears the suspended state after the user has re-authenticated.
func (e *Engine) Resume() {
	e.stateMu.Lock()
	e.suspended = false
	if e.status == StatusSuspended {
		e.status = StatusIdle
	}
	e.stateMu.Unlock()
}

func (e *Engine) setStatus(s Status, err error) {
	e.stateMu.Lock()
	e.status = s
	e.lastErr = err
	e.stateMu.Unlock()
}

// SyncNow runs one full cycle: drain the queue, then pull the delta. If a
// cycle is already in flight the call returns immediately.
func (e *Engine) SyncNow(ctx context.Context) error {
	if !e.runMu.TryLock() {
		return nil
	}
	defer e.runMu.Unlock()

	e.stateMu.Lock()
	if e.suspended {
		e.stateMu.Unlock()
		return common.ErrUnauthorized
	}
	e.stateMu.Unlock()

	e.setStatus(StatusSyncing, nil)

	if err := e.processQueue(ctx); err != nil {
		e.recordFailure(err)
		return err
	}
	if err := e.pullDelta(ctx); err != nil {
		e.recordFailure(err)
		return err
	}

	e.setStatus(StatusIdle, nil)
	return nil
}

func (e *Engine) recordFailure(err error) {
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		e.stateMu.Lock()
		e.suspended = true
		e.status = StatusSuspended
		e.lastErr = err
		e.stateMu.Unlock()
	case errors.Is(err, common.ErrUnavailable):
		e.setStatus(StatusOffline, err)
	default:
		e.setStatus(StatusError, err)
	}
}

// processQueue pushes queued mutations to the server strictly in order. A
// transient failure leaves the head in place and stops the drain; a rejected
// mutation is dropped so it cannot block the ones behind it.
func (e *Engine) processQueue(ctx context.Context) error {
	for {
		m, err := e.store.Queue.Head(ctx)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		pushErr := e.push(ctx, m)
		switch {
		case pushErr == nil:
		case errors.Is(pushErr, common.ErrRejected), errors.Is(pushErr, common.ErrNotFound):
			// Unrecoverable: the server will never accept this mutation.
			// Drop it and keep draining.
			e.logger.Warn(ctx, "dropping rejected mutation",
				"seq", m.Seq, "op", string(m.Op), "kind", string(m.Kind), "id", m.RecordID, "error", pushErr)
			if e.opts.OnDrop != nil {
				e.opts.OnDrop(m, pushErr)
			}
		default:
			return pushErr
		}

		if err := e.store.Queue.Remove(ctx, m.Seq); err != nil {
			return err
		}
	}
}

func (e *Engine) push(ctx context.Context, m *models.Mutation) error {
	switch m.Op {
	case models.OpCreate:
		stored, err := e.server.Create(ctx, m.Record)
		if err != nil {
			return err
		}
		return e.reconcile(ctx, stored)
	case models.OpUpdate:
		stored, err := e.server.Update(ctx, m.Record)
		if err != nil {
			return err
		}
		return e.reconcile(ctx, stored)
	case models.OpDelete:
		return e.server.Delete(ctx, m.Kind, m.RecordID)
	default:
		return common.ErrInternal
	}
}

// reconcile folds the server's stored version back into the local store. The
// merge is last-write-wins, so a server copy no newer than ours is a no-op.
func (e *Engine) reconcile(ctx context.Context, stored *models.Record) error {
	if stored == nil {
		return nil
	}
	_, err := e.store.Records.Merge(ctx, stored)
	return err
}

// pullDelta fetches changes for every record kind since the workspace
// checkpoint and merges them. The checkpoint advances only after every batch
// merged cleanly, so a partial failure is retried from the same point.
func (e *Engine) pullDelta(ctx context.Context) error {
	since, err := e.store.Meta.Checkpoint(ctx, e.opts.WorkspaceID)
	if err != nil {
		return err
	}

	maxSeen := since
	for _, kind := range models.Kinds {
		recs, err := e.server.Changes(ctx, kind, since)
		if err != nil {
			return err
		}

		for i := range recs {
			if _, err := e.store.Records.Merge(ctx, &recs[i]); err != nil {
				return err
			}
			if recs[i].UpdatedAt.After(maxSeen) {
				maxSeen = recs[i].UpdatedAt
			}
		}
	}

	if maxSeen.After(since) {
		return e.store.Meta.SetCheckpoint(ctx, e.opts.WorkspaceID, maxSeen)
	}
	return nil
}

// NotifyActive signals that the app came to the foreground. The engine drains
// the queue only if there is pending work; it never triggers a pull.
func (e *Engine) NotifyActive() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// Run drives the engine until ctx is canceled: a periodic full sync while
// online, a reachability check that ends the offline state, and on-activation
// drains. No cycle runs at startup; the first one waits for a tick or a
// trigger.
func (e *Engine) Run(ctx context.Context) {
	syncTicker := time.NewTicker(e.opts.SyncInterval)
	defer syncTicker.Stop()

	onlineTicker := time.NewTicker(e.opts.OnlineCheckInterval)
	defer onlineTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-syncTicker.C:
			// While offline, only the cheap reachability check runs;
			// full cycles resume once it sees the server again.
			if e.Status() == StatusOffline {
				continue
			}
			if err := e.SyncNow(ctx); err != nil {
				e.logger.Warn(ctx, "periodic sync failed", "error", err)
			}
		case <-onlineTicker.C:
			if e.Status() != StatusOffline {
				continue
			}
			if err := e.server.Ping(ctx); err == nil {
				e.logger.Info(ctx, "server reachable again, resuming sync")
				if err := e.SyncNow(ctx); err != nil {
					e.logger.Warn(ctx, "sync after reconnect failed", "error", err)
				}
			}
		case <-e.kick:
			n, err := e.store.Queue.Len(ctx)
			if err != nil || n == 0 {
				continue
			}
			if err := e.SyncNow(ctx); err != nil {
				e.logger.Warn(ctx, "activation sync failed", "error", err)
			}
		}
	}
}

// Close attempts a final best-effort drain of the queue so work done just
// before shutdown is not stranded until next launch.
func (e *Engine) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.processQueueLocked(ctx); err != nil {
		e.logger.Warn(ctx, "final drain incomplete", "error", err)
	}
	return nil
}

func (e *Engine) processQueueLocked(ctx context.Context) error {
	if !e.runMu.TryLock() {
		return nil
	}
	defer e.runMu.Unlock()
	return e.processQueue(ctx)
}
