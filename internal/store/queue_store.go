package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/repertoire/internal/model"
)

const queueColumns = `id, entity_type, entity_id, operation, owner_id,
	enqueued_at, retry_count, last_error`

// EnqueueChange appends an entry to the offline queue. The queue is a log:
// repeated enqueues for the same entity each get their own row.
func (s *SQLiteStore) EnqueueChange(ctx context.Context, entry model.QueueEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_queue (`+queueColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.EntityType), entry.EntityID,
		string(entry.Operation), entry.OwnerID,
		entry.EnqueuedAt.UTC(), entry.RetryCount, entry.LastError,
	)
	if err != nil {
		return fmt.Errorf("enqueuing change for %s %s: %w",
			entry.EntityType, entry.EntityID, err)
	}
	return nil
}

// GetQueueEntries retrieves queue entries matching the filter in enqueue
// order (FIFO).
func (s *SQLiteStore) GetQueueEntries(ctx context.Context, filter QueueFilter) ([]model.QueueEntry, error) {
	var conditions []string
	var args []interface{}

	if filter.Owner != nil {
		if filter.Owner.UserID == nil {
			conditions = append(conditions, "owner_id IS NULL")
		} else {
			conditions = append(conditions, "owner_id = ?")
			args = append(args, *filter.Owner.UserID)
		}
	}
	if filter.MaxRetryCount != nil {
		conditions = append(conditions, "retry_count < ?")
		args = append(args, *filter.MaxRetryCount)
	}

	query := "SELECT " + queueColumns + " FROM sync_queue"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY enqueued_at"

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sync queue: %w", err)
	}
	defer rows.Close()

	var entries []model.QueueEntry
	for rows.Next() {
		var e model.QueueEntry
		err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Operation, &e.OwnerID,
			&e.EnqueuedAt, &e.RetryCount, &e.LastError,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// UpdateQueueEntry replaces the retry bookkeeping of an existing entry.
func (s *SQLiteStore) UpdateQueueEntry(ctx context.Context, entry model.QueueEntry) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sync_queue SET retry_count = ?, last_error = ?
		WHERE id = ?`,
		entry.RetryCount, entry.LastError, entry.ID,
	)
	if err != nil {
		return fmt.Errorf("updating queue entry %s: %w", entry.ID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("updating queue entry %s: %w", entry.ID, ErrNotFound)
	}
	return nil
}

// DeleteQueueEntry removes a queue entry by ID.
func (s *SQLiteStore) DeleteQueueEntry(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sync_queue WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting queue entry %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("deleting queue entry %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetCheckpoint returns the timestamp of the last fully successful sync, or
// nil if no sync has completed.
func (s *SQLiteStore) GetCheckpoint(ctx context.Context) (*time.Time, error) {
	var at *time.Time
	err := s.db.GetContext(ctx, &at,
		"SELECT last_synced_at FROM sync_state WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		// No row yet means no sync has ever completed.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sync checkpoint: %w", err)
	}
	return at, nil
}

// SetCheckpoint advances the sync checkpoint. Callers must only do this
// after a fully successful round-trip.
func (s *SQLiteStore) SetCheckpoint(ctx context.Context, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (id, last_synced_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_synced_at = excluded.last_synced_at`,
		at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing sync checkpoint: %w", err)
	}
	return nil
}
