package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/repertoire/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps writers serialized and makes :memory:
	// databases share one schema across goroutines.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const itemColumns = `id, owner_id, title, body, language, category, favorite,
	include_in_practice, last_practiced_at, updated_at, version,
	locally_modified, last_synced_at`

// CreateItem inserts a new item. Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateItem(ctx context.Context, item model.Item) error {
	if strings.TrimSpace(item.Title) == "" {
		return fmt.Errorf("item title must not be empty")
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}
	if item.Category == "" {
		item.Category = model.CategorySong
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.OwnerID, item.Title, item.Body, item.Language,
		string(item.Category), boolToInt(item.Favorite),
		boolToInt(item.IncludeInPractice), utcPtr(item.LastPracticedAt),
		item.UpdatedAt.UTC(), item.Version,
		boolToInt(item.LocallyModified), utcPtr(item.LastSyncedAt),
	)
	if err != nil {
		return fmt.Errorf("creating item %s: %w", item.ID, err)
	}
	return nil
}

// SaveItem replaces all mutable and bookkeeping fields of an existing item
// in a single statement, so a field change and its version bump are never
// observable separately.
func (s *SQLiteStore) SaveItem(ctx context.Context, item model.Item) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE items SET
			owner_id = ?, title = ?, body = ?, language = ?, category = ?,
			favorite = ?, include_in_practice = ?, last_practiced_at = ?,
			updated_at = ?, version = ?, locally_modified = ?, last_synced_at = ?
		WHERE id = ?`,
		item.OwnerID, item.Title, item.Body, item.Language, string(item.Category),
		boolToInt(item.Favorite), boolToInt(item.IncludeInPractice),
		utcPtr(item.LastPracticedAt),
		item.UpdatedAt.UTC(), item.Version, boolToInt(item.LocallyModified),
		utcPtr(item.LastSyncedAt),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("saving item %s: %w", item.ID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("saving item %s: %w", item.ID, ErrNotFound)
	}
	return nil
}

// DeleteItem removes an item by ID. There is no tombstone; a deleted item is
// simply gone locally.
func (s *SQLiteStore) DeleteItem(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting item %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("deleting item %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetItemByID retrieves a single item by its ID.
func (s *SQLiteStore) GetItemByID(ctx context.Context, id string) (*model.Item, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id = ?", id)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item %s: %w", id, err)
	}
	return &item, nil
}

// GetItems retrieves items matching the provided filter, ordered by title.
func (s *SQLiteStore) GetItems(ctx context.Context, filter ItemFilter) ([]model.Item, error) {
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
	if filter.LocallyModified != nil {
		conditions = append(conditions, "locally_modified = ?")
		args = append(args, boolToInt(*filter.LocallyModified))
	}
	if filter.IncludeInPractice != nil {
		conditions = append(conditions, "include_in_practice = ?")
		args = append(args, boolToInt(*filter.IncludeInPractice))
	}
	if filter.Favorite != nil {
		conditions = append(conditions, "favorite = ?")
		args = append(args, boolToInt(*filter.Favorite))
	}
	if filter.Category != nil {
		conditions = append(conditions, "category = ?")
		args = append(args, string(*filter.Category))
	}

	query := "SELECT " + itemColumns + " FROM items"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY title"

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// rowScanner covers both *sqlx.Row and *sqlx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(r rowScanner) (model.Item, error) {
	var item model.Item
	var favorite, include, modified int

	err := r.Scan(
		&item.ID, &item.OwnerID, &item.Title, &item.Body, &item.Language,
		&item.Category, &favorite, &include, &item.LastPracticedAt,
		&item.UpdatedAt, &item.Version, &modified, &item.LastSyncedAt,
	)
	if err != nil {
		return model.Item{}, err
	}

	item.Favorite = favorite != 0
	item.IncludeInPractice = include != 0
	item.LocallyModified = modified != 0
	return item, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// utcPtr normalizes an optional timestamp to UTC before storage.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
