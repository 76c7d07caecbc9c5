package store

// migration is a single schema change applied in version order.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
	id                  TEXT PRIMARY KEY,
	owner_id            TEXT,
	title               TEXT NOT NULL,
	body                TEXT NOT NULL DEFAULT '',
	language            TEXT NOT NULL DEFAULT '',
	category            TEXT NOT NULL DEFAULT 'song',
	favorite            INTEGER NOT NULL DEFAULT 0,
	include_in_practice INTEGER NOT NULL DEFAULT 1,
	last_practiced_at   DATETIME,
	updated_at          DATETIME NOT NULL,
	version             INTEGER NOT NULL DEFAULT 0,
	locally_modified    INTEGER NOT NULL DEFAULT 0,
	last_synced_at      DATETIME
);

CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id);
CREATE INDEX IF NOT EXISTS idx_items_dirty ON items(locally_modified);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT,
	item_id    TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	ended_at   DATETIME,
	synced_at  DATETIME
);

CREATE INDEX IF NOT EXISTS idx_sessions_item ON sessions(item_id);
CREATE INDEX IF NOT EXISTS idx_sessions_unsynced ON sessions(synced_at);

CREATE TABLE IF NOT EXISTS sync_queue (
	id          TEXT PRIMARY KEY,
	entity_type TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	operation   TEXT NOT NULL,
	owner_id    TEXT,
	enqueued_at DATETIME NOT NULL,
	retry_count INTEGER NOT NULL DEFAULT 0,
	last_error  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_sync_queue_order ON sync_queue(enqueued_at);

CREATE TABLE IF NOT EXISTS sync_state (
	id              INTEGER PRIMARY KEY CHECK (id = 1),
	last_synced_at  DATETIME
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
