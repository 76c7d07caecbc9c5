package remote

import "time"

// ItemPayload is the full wire representation of a repertoire item. The
// same shape is used for uploads (carrying the client's version) and for
// downloaded server records (carrying the server's version and timestamp).
type ItemPayload struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Body              string     `json:"body"`
	Language          string     `json:"language"`
	Category          string     `json:"category"`
	Favorite          bool       `json:"favorite"`
	IncludeInPractice bool       `json:"include_in_practice"`
	LastPracticedAt   *time.Time `json:"last_practiced_at,omitempty"`

	// ModifiedAt is the authoritative modification timestamp used for
	// last-write-wins resolution.
	ModifiedAt time.Time `json:"modified_at"`

	// Version is the record version: the client's local version on upload,
	// the server's version on download.
	Version int64 `json:"version"`
}

// SessionPayload is the wire representation of a practice session.
type SessionPayload struct {
	ID        string     `json:"id"`
	ItemID    string     `json:"item_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// ItemSyncRequest uploads dirty items and asks for server changes since the
// given checkpoint. A nil checkpoint requests the full record set.
type ItemSyncRequest struct {
	Records         []ItemPayload `json:"records"`
	SinceCheckpoint *time.Time    `json:"since_checkpoint,omitempty"`
}

// ItemSyncResponse carries server-side changes and the acknowledgement of
// uploaded records. UploadedIDs may be a subset of what was sent; that is
// the only form of partial success the protocol expresses.
type ItemSyncResponse struct {
	ServerRecords []ItemPayload `json:"server_records"`
	UploadedIDs   []string      `json:"uploaded_ids"`
	SyncedAt      time.Time     `json:"synced_at"`
}

// SessionSyncRequest uploads unsynced practice sessions.
type SessionSyncRequest struct {
	Records []SessionPayload `json:"records"`
}

// SessionSyncResponse acknowledges uploaded sessions by id.
type SessionSyncResponse struct {
	UploadedIDs []string  `json:"uploaded_ids"`
	SyncedAt    time.Time `json:"synced_at"`
}
