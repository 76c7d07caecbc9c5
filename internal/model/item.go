package model

import "time"

// Category classifies a repertoire item.
type Category string

const (
	CategorySong  Category = "song"
	CategoryEtude Category = "etude"
)

// Item is a single repertoire piece tracked for practice.
type Item struct {
	// ID is the stable unique identifier for this item.
	ID string `json:"id" db:"id"`

	// OwnerID is the account that owns this item. A nil owner means the
	// item was created while signed out and is local-only; ownerless and
	// owned records never mix.
	OwnerID *string `json:"owner_id,omitempty" db:"owner_id"`

	// Title is the human-readable name of the piece.
	Title string `json:"title" db:"title"`

	// Body is the full text/notation content.
	Body string `json:"body" db:"body"`

	// Language is the language or notation system of the body.
	Language string `json:"language" db:"language"`

	// Category classifies the item (use Category* constants).
	Category Category `json:"category" db:"category"`

	// Favorite marks the item as a favorite, which raises its selection
	// priority once it goes stale.
	Favorite bool `json:"favorite" db:"favorite"`

	// IncludeInPractice controls whether the item is eligible for the
	// practice selection scheduler.
	IncludeInPractice bool `json:"include_in_practice" db:"include_in_practice"`

	// LastPracticedAt is when the item was last practiced. Nil means the
	// item has never been practiced and counts as infinitely stale.
	LastPracticedAt *time.Time `json:"last_practiced_at,omitempty" db:"last_practiced_at"`

	// UpdatedAt is when the item was last modified locally.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Version increments on every local mutation and never decreases.
	Version int64 `json:"version" db:"version"`

	// LocallyModified is true while the item has local changes that have
	// not been acknowledged by the remote authority.
	LocallyModified bool `json:"locally_modified" db:"locally_modified"`

	// LastSyncedAt is when the item was last confirmed by the remote
	// authority. Nil means it has never synced.
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty" db:"last_synced_at"`
}

// OwnedBy reports whether the item belongs to the given owner. Both sides
// nil (signed-out) counts as a match; owned and ownerless records are
// strictly partitioned.
func (i Item) OwnedBy(ownerID *string) bool {
	if i.OwnerID == nil || ownerID == nil {
		return i.OwnerID == nil && ownerID == nil
	}
	return *i.OwnerID == *ownerID
}
