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

const sessionColumns = `id, owner_id, item_id, started_at, ended_at, synced_at`

// CreateSession inserts a new practice session. Generates a UUID if ID is
// empty.
func (s *SQLiteStore) CreateSession(ctx context.Context, session model.Session) error {
	if session.ItemID == "" {
		return fmt.Errorf("session item id must not be empty")
	}
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.OwnerID, session.ItemID,
		session.StartedAt.UTC(), utcPtr(session.EndedAt), utcPtr(session.SyncedAt),
	)
	if err != nil {
		return fmt.Errorf("creating session %s: %w", session.ID, err)
	}
	return nil
}

// SaveSession replaces an existing session row.
func (s *SQLiteStore) SaveSession(ctx context.Context, session model.Session) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET
			owner_id = ?, item_id = ?, started_at = ?, ended_at = ?, synced_at = ?
		WHERE id = ?`,
		session.OwnerID, session.ItemID, session.StartedAt.UTC(),
		utcPtr(session.EndedAt), utcPtr(session.SyncedAt),
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", session.ID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("saving session %s: %w", session.ID, ErrNotFound)
	}
	return nil
}

// DeleteSession removes a session by ID.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("deleting session %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetSessionByID retrieves a single session by its ID.
func (s *SQLiteStore) GetSessionByID(ctx context.Context, id string) (*model.Session, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)

	var session model.Session
	err := row.Scan(
		&session.ID, &session.OwnerID, &session.ItemID,
		&session.StartedAt, &session.EndedAt, &session.SyncedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return &session, nil
}

// GetSessions retrieves sessions matching the provided filter, ordered by
// start time ascending.
func (s *SQLiteStore) GetSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error) {
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
	if filter.ItemID != nil {
		conditions = append(conditions, "item_id = ?")
		args = append(args, *filter.ItemID)
	}
	if filter.Unsynced != nil {
		if *filter.Unsynced {
			conditions = append(conditions, "synced_at IS NULL")
		} else {
			conditions = append(conditions, "synced_at IS NOT NULL")
		}
	}

	query := "SELECT " + sessionColumns + " FROM sessions"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY started_at"

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var session model.Session
		err := rows.Scan(
			&session.ID, &session.OwnerID, &session.ItemID,
			&session.StartedAt, &session.EndedAt, &session.SyncedAt,
		)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}
