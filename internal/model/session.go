package model

import "time"

// Session is a single practice event against an item. The item reference is
// not enforced with a join; a session may outlive its item.
type Session struct {
	// ID is the unique identifier for this session.
	ID string `json:"id" db:"id"`

	// OwnerID is the account that owns this session, nil when signed out.
	OwnerID *string `json:"owner_id,omitempty" db:"owner_id"`

	// ItemID references the practiced item. Orphaned references are
	// tolerated.
	ItemID string `json:"item_id" db:"item_id"`

	// StartedAt is when the practice session began.
	StartedAt time.Time `json:"started_at" db:"started_at"`

	// EndedAt is when the session finished, nil while in progress.
	EndedAt *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	// SyncedAt is when the session was acknowledged by the remote
	// authority. Sessions with a nil SyncedAt are exactly the next upload
	// batch.
	SyncedAt *time.Time `json:"synced_at,omitempty" db:"synced_at"`
}
