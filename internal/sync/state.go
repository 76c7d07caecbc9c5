package sync

// StateKind is the current phase of the sync engine's state machine.
type StateKind int

const (
	// StateSynced means local and remote state matched at the last attempt.
	StateSynced StateKind = iota

	// StateSyncing means a sync attempt is currently in flight. At most
	// one attempt runs per engine.
	StateSyncing

	// StatePendingChanges means local mutations are waiting for the next
	// sync attempt.
	StatePendingChanges

	// StateOffline means the last attempt could not reach the remote
	// authority at the transport level.
	StateOffline

	// StateError means the last attempt failed (auth, server error, or an
	// undecodable response). The engine does not auto-retry; the next
	// periodic tick or an explicit SyncNow starts a fresh attempt.
	StateError
)

func (k StateKind) String() string {
	switch k {
	case StateSynced:
		return "synced"
	case StateSyncing:
		return "syncing"
	case StatePendingChanges:
		return "pending_changes"
	case StateOffline:
		return "offline"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// State is the user-visible sync status. Message is set only for
// StateOffline and StateError.
type State struct {
	Kind    StateKind
	Message string
}
