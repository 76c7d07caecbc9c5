package model

import "time"

// EntityType identifies the record kind an offline queue entry refers to.
type EntityType string

const (
	EntityItem    EntityType = "item"
	EntitySession EntityType = "session"
)

// Operation is the kind of pending change recorded in the offline queue.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// QueueEntry is one pending outbound change in the offline queue. The queue
// is an append-only log, not a set: duplicate entries for the same entity are
// permitted and downstream processing must tolerate them.
type QueueEntry struct {
	// ID is the unique identifier for this entry.
	ID string `json:"id" db:"id"`

	// EntityType is the record kind (use Entity* constants).
	EntityType EntityType `json:"entity_type" db:"entity_type"`

	// EntityID is the id of the changed record.
	EntityID string `json:"entity_id" db:"entity_id"`

	// Operation is the pending change kind (use Op* constants).
	Operation Operation `json:"operation" db:"operation"`

	// OwnerID is the owner of the changed record, nil when signed out.
	OwnerID *string `json:"owner_id,omitempty" db:"owner_id"`

	// EnqueuedAt is when the change was recorded; entries drain in
	// EnqueuedAt order.
	EnqueuedAt time.Time `json:"enqueued_at" db:"enqueued_at"`

	// RetryCount is how many upload attempts have failed for this entry.
	// Once it reaches the configured maximum the entry is parked: excluded
	// from draining but kept for inspection.
	RetryCount int `json:"retry_count" db:"retry_count"`

	// LastError is the message of the most recent failure, empty if none.
	LastError string `json:"last_error" db:"last_error"`
}
