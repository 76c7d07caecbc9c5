package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/repertoire/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// OwnerScope selects records belonging to exactly one owner. A nil UserID
// matches ownerless (signed-out) records; owned and ownerless records are
// never returned together.
type OwnerScope struct {
	UserID *string
}

// ItemFilter controls filtering for item queries. Nil pointer fields are
// ignored.
type ItemFilter struct {
	Owner             *OwnerScope
	LocallyModified   *bool
	IncludeInPractice *bool
	Favorite          *bool
	Category          *model.Category
}

// SessionFilter controls filtering for session queries.
type SessionFilter struct {
	Owner    *OwnerScope
	ItemID   *string
	Unsynced *bool
}

// QueueFilter controls filtering for offline queue queries. Entries are
// always returned in enqueue order.
type QueueFilter struct {
	Owner         *OwnerScope
	MaxRetryCount *int // only entries with retry_count < this value
}

// Store defines the persistence interface for items, sessions, the offline
// queue, and the sync checkpoint. All mutating item/session operations are
// atomic: either the whole row change applies or none of it does.
type Store interface {
	// === Items ===

	CreateItem(ctx context.Context, item model.Item) error
	SaveItem(ctx context.Context, item model.Item) error
	DeleteItem(ctx context.Context, id string) error
	GetItemByID(ctx context.Context, id string) (*model.Item, error)
	GetItems(ctx context.Context, filter ItemFilter) ([]model.Item, error)

	// === Sessions ===

	CreateSession(ctx context.Context, session model.Session) error
	SaveSession(ctx context.Context, session model.Session) error
	DeleteSession(ctx context.Context, id string) error
	GetSessionByID(ctx context.Context, id string) (*model.Session, error)
	GetSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error)

	// === Offline queue ===

	EnqueueChange(ctx context.Context, entry model.QueueEntry) error
	GetQueueEntries(ctx context.Context, filter QueueFilter) ([]model.QueueEntry, error)
	UpdateQueueEntry(ctx context.Context, entry model.QueueEntry) error
	DeleteQueueEntry(ctx context.Context, id string) error

	// === Sync checkpoint ===

	// GetCheckpoint returns the timestamp of the last fully successful
	// sync, or nil if no sync has completed yet.
	GetCheckpoint(ctx context.Context) (*time.Time, error)
	SetCheckpoint(ctx context.Context, at time.Time) error

	Close() error
}
