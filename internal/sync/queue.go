package sync

import (
	"context"
	"time"

	"github.com/nhle/repertoire/internal/model"
	"github.com/nhle/repertoire/internal/store"
)

// OfflineQueue is a durable log of pending outbound changes. It exists for
// auditing and backpressure visibility; the engine's batched upload is the
// actual transport. Entries that fail too often are parked, not deleted.
type OfflineQueue struct {
	store      store.Store
	maxRetries int
}

// NewOfflineQueue creates a queue over the given store. Entries whose retry
// count reaches maxRetries are excluded from draining but kept for
// inspection.
func NewOfflineQueue(s store.Store, maxRetries int) *OfflineQueue {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &OfflineQueue{store: s, maxRetries: maxRetries}
}

// Enqueue appends an entry for the given entity change. Duplicate enqueues
// for the same entity are permitted; the queue is a log, not a set.
func (q *OfflineQueue) Enqueue(
	ctx context.Context,
	entityType model.EntityType,
	entityID string,
	operation model.Operation,
	ownerID *string,
) error {
	return q.store.EnqueueChange(ctx, model.QueueEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Operation:  operation,
		OwnerID:    ownerID,
		EnqueuedAt: time.Now().UTC(),
	})
}

// DrainEligible returns entries that have not exhausted their retries, in
// enqueue order.
func (q *OfflineQueue) DrainEligible(ctx context.Context, owner *store.OwnerScope) ([]model.QueueEntry, error) {
	max := q.maxRetries
	return q.store.GetQueueEntries(ctx, store.QueueFilter{
		Owner:         owner,
		MaxRetryCount: &max,
	})
}

// RecordFailure increments the entry's retry count and stores the error
// message. Once the count reaches the maximum, the entry is parked.
func (q *OfflineQueue) RecordFailure(ctx context.Context, entry model.QueueEntry, cause error) error {
	entry.RetryCount++
	if cause != nil {
		entry.LastError = cause.Error()
	}
	return q.store.UpdateQueueEntry(ctx, entry)
}

// RecordSuccess removes the entry from the queue.
func (q *OfflineQueue) RecordSuccess(ctx context.Context, entry model.QueueEntry) error {
	return q.store.DeleteQueueEntry(ctx, entry.ID)
}
