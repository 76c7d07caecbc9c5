// Package sync reconciles locally-mutated records with the remote authority
// under intermittent connectivity.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	gosync "sync"
	"time"

	"github.com/nhle/repertoire/internal/auth"
	"github.com/nhle/repertoire/internal/model"
	"github.com/nhle/repertoire/internal/remote"
	"github.com/nhle/repertoire/internal/store"
)

// Engine orchestrates sync round-trips: it uploads dirty records, downloads
// remote changes since the last checkpoint, merges with last-write-wins, and
// owns the sync state machine and its periodic timer.
//
// All shared state is funneled through one guarded entry point: at most one
// attempt is in flight per engine, and a SyncNow while syncing is a no-op.
type Engine struct {
	store    store.Store
	client   *remote.Client
	provider auth.IdentityProvider
	queue    *OfflineQueue
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	mu      gosync.Mutex
	state   State
	syncing bool
	pending int

	stopCh    chan struct{}
	triggerCh chan struct{}
	running   bool
}

// NewEngine creates a sync engine. The timer is not started; call
// HandleSignIn (or Start) once an identity is available.
func NewEngine(
	s store.Store,
	client *remote.Client,
	provider auth.IdentityProvider,
	queue *OfflineQueue,
	cfg model.SyncConfig,
	logger *slog.Logger,
) *Engine {
	interval := time.Duration(cfg.IntervalSec) * time.Second
	if interval <= 0 {
		interval = 300 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:     s,
		client:    client,
		provider:  provider,
		queue:     queue,
		logger:    logger,
		interval:  interval,
		now:       time.Now,
		state:     State{Kind: StateSynced},
		triggerCh: make(chan struct{}, 1),
	}
}

// State returns the current state-machine state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// PendingChanges returns the number of local mutations recorded since the
// last successful sync.
func (e *Engine) PendingChanges() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// NotifyLocalChange records a local mutation. The change tracker invokes
// this for every mutating operation. The state moves to PendingChanges
// unless an attempt is currently in flight.
func (e *Engine) NotifyLocalChange() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending++
	if !e.syncing {
		e.state = State{Kind: StatePendingChanges}
	}
}

// SyncNow runs one sync attempt. It is a no-op while signed out or while
// another attempt is in flight; re-entrant calls never start a second
// round-trip.
func (e *Engine) SyncNow(ctx context.Context) error {
	if !e.provider.IsSignedIn() {
		return nil
	}

	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return nil
	}
	e.syncing = true
	e.state = State{Kind: StateSyncing}
	e.mu.Unlock()

	err := e.attempt(ctx)

	e.mu.Lock()
	e.syncing = false
	if err != nil {
		e.state = classify(err)
	} else {
		e.state = State{Kind: StateSynced}
		e.pending = 0
	}
	e.mu.Unlock()

	if err != nil {
		e.logger.Warn("sync attempt failed", "error", err)
	} else {
		e.logger.Debug("sync attempt succeeded")
	}
	return err
}

// HandleSignIn starts the periodic timer and triggers an immediate sync.
func (e *Engine) HandleSignIn() {
	e.Start()
	e.Trigger()
}

// HandleSignOut stops the timer and resets the state machine: no identity
// means nothing pending and nothing to report.
func (e *Engine) HandleSignOut() {
	e.Stop()
	e.mu.Lock()
	e.state = State{Kind: StateSynced}
	e.pending = 0
	e.mu.Unlock()
}

// Start launches the periodic sync loop. Safe to call repeatedly.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	go e.run(e.stopCh)
}

// Stop halts the periodic sync loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	close(e.stopCh)
	e.running = false
}

// Trigger requests an immediate sync from the timer goroutine without
// blocking the caller.
func (e *Engine) Trigger() {
	select {
	case e.triggerCh <- struct{}{}:
	default:
	}
}

// run is the timer loop: periodic ticks sync when there are pending changes
// or the checkpoint has gone stale; triggers sync immediately.
func (e *Engine) run(stopCh <-chan struct{}) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if e.shouldPeriodicSync() {
				_ = e.SyncNow(context.Background())
			}
		case <-e.triggerCh:
			_ = e.SyncNow(context.Background())
		}
	}
}

// shouldPeriodicSync reports whether a periodic tick should run a sync:
// either local changes are pending, or the checkpoint is older than one
// interval.
func (e *Engine) shouldPeriodicSync() bool {
	if e.PendingChanges() > 0 {
		return true
	}
	checkpoint, err := e.store.GetCheckpoint(context.Background())
	if err != nil || checkpoint == nil {
		return true
	}
	return e.now().Sub(*checkpoint) > e.interval
}

// attempt runs one full reconciliation: items first, then sessions, as
// independent failure domains. A failure in sessions does not roll back
// merged items. The checkpoint only advances when both kinds succeed.
func (e *Engine) attempt(ctx context.Context) error {
	userID, ok := e.provider.CurrentUserID()
	if !ok {
		return auth.ErrNotSignedIn
	}

	token, err := e.provider.CurrentToken(ctx)
	if err != nil {
		return fmt.Errorf("acquiring token: %w", err)
	}

	owner := &store.OwnerScope{UserID: &userID}

	drained, err := e.queue.DrainEligible(ctx, owner)
	if err != nil {
		return fmt.Errorf("draining offline queue: %w", err)
	}

	ackedItems, itemsErr := e.syncItems(ctx, token, userID)
	e.settleQueue(ctx, drained, model.EntityItem, ackedItems, itemsErr)
	if itemsErr != nil {
		return fmt.Errorf("syncing items: %w", itemsErr)
	}

	ackedSessions, sessionsErr := e.syncSessions(ctx, token, userID)
	e.settleQueue(ctx, drained, model.EntitySession, ackedSessions, sessionsErr)
	if sessionsErr != nil {
		return fmt.Errorf("syncing sessions: %w", sessionsErr)
	}

	if err := e.store.SetCheckpoint(ctx, e.now().UTC()); err != nil {
		return fmt.Errorf("advancing checkpoint: %w", err)
	}
	return nil
}

// syncItems uploads dirty items, downloads server changes since the
// checkpoint, merges with last-write-wins, and acknowledges uploads. It
// returns the set of item ids whose dirty flag was cleared.
func (e *Engine) syncItems(ctx context.Context, token, userID string) (map[string]bool, error) {
	owner := &store.OwnerScope{UserID: &userID}
	dirtyOnly := true
	dirty, err := e.store.GetItems(ctx, store.ItemFilter{
		Owner:           owner,
		LocallyModified: &dirtyOnly,
	})
	if err != nil {
		return nil, err
	}

	// Snapshot versions at upload time: an acknowledgement only clears the
	// dirty flag if the record has not been mutated mid-flight.
	snapshot := make(map[string]int64, len(dirty))
	records := make([]remote.ItemPayload, 0, len(dirty))
	for _, item := range dirty {
		snapshot[item.ID] = item.Version
		records = append(records, itemPayload(item))
	}

	checkpoint, err := e.store.GetCheckpoint(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.SyncItems(ctx, token, remote.ItemSyncRequest{
		Records:         records,
		SinceCheckpoint: checkpoint,
	})
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()

	// Merge downloads. Last-write-wins: only a strictly newer remote
	// timestamp overwrites the local copy.
	for _, rec := range resp.ServerRecords {
		local, err := e.store.GetItemByID(ctx, rec.ID)
		if errors.Is(err, store.ErrNotFound) {
			item := itemFromPayload(rec, &userID)
			item.LastSyncedAt = &now
			if err := e.store.CreateItem(ctx, item); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		if !rec.ModifiedAt.After(local.UpdatedAt) {
			continue
		}
		merged := itemFromPayload(rec, local.OwnerID)
		merged.ID = local.ID
		merged.LastSyncedAt = &now
		if err := e.store.SaveItem(ctx, merged); err != nil {
			return nil, err
		}
	}

	// Acknowledge uploads, scoped strictly to this attempt's batch.
	acked := make(map[string]bool)
	for _, id := range resp.UploadedIDs {
		uploadedVersion, inBatch := snapshot[id]
		if !inBatch {
			continue
		}

		local, err := e.store.GetItemByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if local.Version != uploadedVersion {
			// Mutated while the request was in flight; it stays dirty.
			continue
		}
		if !local.LocallyModified {
			acked[id] = true
			continue
		}

		local.LocallyModified = false
		local.LastSyncedAt = &now
		if err := e.store.SaveItem(ctx, *local); err != nil {
			return nil, err
		}
		acked[id] = true
	}

	return acked, nil
}

// syncSessions uploads all unsynced sessions and stamps the acknowledged
// ones. Sessions are upload-only; the server does not push session changes.
func (e *Engine) syncSessions(ctx context.Context, token, userID string) (map[string]bool, error) {
	owner := &store.OwnerScope{UserID: &userID}
	unsynced := true
	pending, err := e.store.GetSessions(ctx, store.SessionFilter{
		Owner:    owner,
		Unsynced: &unsynced,
	})
	if err != nil {
		return nil, err
	}

	records := make([]remote.SessionPayload, 0, len(pending))
	byID := make(map[string]model.Session, len(pending))
	for _, s := range pending {
		byID[s.ID] = s
		records = append(records, remote.SessionPayload{
			ID:        s.ID,
			ItemID:    s.ItemID,
			StartedAt: s.StartedAt,
			EndedAt:   s.EndedAt,
		})
	}

	resp, err := e.client.SyncSessions(ctx, token, remote.SessionSyncRequest{
		Records: records,
	})
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	acked := make(map[string]bool)
	for _, id := range resp.UploadedIDs {
		session, ok := byID[id]
		if !ok {
			continue
		}
		session.SyncedAt = &now
		if err := e.store.SaveSession(ctx, session); err != nil {
			return nil, err
		}
		acked[id] = true
	}

	return acked, nil
}

// settleQueue reconciles drained offline-queue entries of one entity kind
// with the outcome of that kind's upload: confirmed entries are removed,
// entries caught in a failed phase get a failure recorded, and delete
// entries (whose record no longer exists to upload) clear on success.
func (e *Engine) settleQueue(
	ctx context.Context,
	drained []model.QueueEntry,
	kind model.EntityType,
	acked map[string]bool,
	cause error,
) {
	for _, entry := range drained {
		if entry.EntityType != kind {
			continue
		}

		if cause != nil {
			if err := e.queue.RecordFailure(ctx, entry, cause); err != nil {
				e.logger.Warn("recording queue failure", "entry", entry.ID, "error", err)
			}
			continue
		}

		if acked[entry.EntityID] || entry.Operation == model.OpDelete {
			if err := e.queue.RecordSuccess(ctx, entry); err != nil {
				e.logger.Warn("clearing queue entry", "entry", entry.ID, "error", err)
			}
		}
	}
}

// classify maps an attempt error onto the state machine: transport-level
// failures mean offline, everything else (auth, non-2xx, decode) is an
// error state.
func classify(err error) State {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return State{Kind: StateOffline, Message: err.Error()}
	}
	return State{Kind: StateError, Message: err.Error()}
}

func itemPayload(item model.Item) remote.ItemPayload {
	return remote.ItemPayload{
		ID:                item.ID,
		Title:             item.Title,
		Body:              item.Body,
		Language:          item.Language,
		Category:          string(item.Category),
		Favorite:          item.Favorite,
		IncludeInPractice: item.IncludeInPractice,
		LastPracticedAt:   item.LastPracticedAt,
		ModifiedAt:        item.UpdatedAt,
		Version:           item.Version,
	}
}

// itemFromPayload builds a clean local item from a server record: not
// locally modified, carrying the server's version and timestamp.
func itemFromPayload(rec remote.ItemPayload, ownerID *string) model.Item {
	return model.Item{
		ID:                rec.ID,
		OwnerID:           ownerID,
		Title:             rec.Title,
		Body:              rec.Body,
		Language:          rec.Language,
		Category:          model.Category(rec.Category),
		Favorite:          rec.Favorite,
		IncludeInPractice: rec.IncludeInPractice,
		LastPracticedAt:   rec.LastPracticedAt,
		UpdatedAt:         rec.ModifiedAt,
		Version:           rec.Version,
		LocallyModified:   false,
	}
}
