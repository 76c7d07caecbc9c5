package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/repertoire/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestItemCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := model.Item{
		ID:                "item-1",
		OwnerID:           strPtr("user-1"),
		Title:             "Prelude in C",
		Category:          model.CategorySong,
		Favorite:          true,
		IncludeInPractice: true,
		UpdatedAt:         time.Now().UTC(),
		Version:           1,
		LocallyModified:   true,
	}
	require.NoError(t, s.CreateItem(ctx, item))

	got, err := s.GetItemByID(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, "Prelude in C", got.Title)
	assert.True(t, got.Favorite)
	assert.True(t, got.LocallyModified)
	assert.Equal(t, int64(1), got.Version)
	require.NotNil(t, got.OwnerID)
	assert.Equal(t, "user-1", *got.OwnerID)
	assert.Nil(t, got.LastPracticedAt)
	assert.Nil(t, got.LastSyncedAt)

	got.Title = "Prelude in C Major"
	got.Version = 2
	require.NoError(t, s.SaveItem(ctx, *got))

	got, err = s.GetItemByID(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, "Prelude in C Major", got.Title)
	assert.Equal(t, int64(2), got.Version)

	require.NoError(t, s.DeleteItem(ctx, "item-1"))
	_, err = s.GetItemByID(ctx, "item-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestItemNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetItemByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.SaveItem(ctx, model.Item{ID: "missing", Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.DeleteItem(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestItemOwnerPartition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateItem(ctx, model.Item{
		ID: "owned", OwnerID: strPtr("user-1"), Title: "Owned",
		UpdatedAt: time.Now().UTC(),
	}))
	require.NoError(t, s.CreateItem(ctx, model.Item{
		ID: "anonymous", Title: "Anonymous",
		UpdatedAt: time.Now().UTC(),
	}))

	owned, err := s.GetItems(ctx, ItemFilter{
		Owner: &OwnerScope{UserID: strPtr("user-1")},
	})
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "owned", owned[0].ID)

	// A nil user id scopes to ownerless records only.
	anonymous, err := s.GetItems(ctx, ItemFilter{Owner: &OwnerScope{}})
	require.NoError(t, err)
	require.Len(t, anonymous, 1)
	assert.Equal(t, "anonymous", anonymous[0].ID)

	all, err := s.GetItems(ctx, ItemFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestItemFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.CreateItem(ctx, model.Item{
		ID: "a", Title: "A", IncludeInPractice: true, LocallyModified: true,
		Favorite: true, Category: model.CategorySong, UpdatedAt: now,
	}))
	require.NoError(t, s.CreateItem(ctx, model.Item{
		ID: "b", Title: "B", IncludeInPractice: false,
		Category: model.CategoryEtude, UpdatedAt: now,
	}))

	dirty, err := s.GetItems(ctx, ItemFilter{LocallyModified: boolPtr(true)})
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	assert.Equal(t, "a", dirty[0].ID)

	eligible, err := s.GetItems(ctx, ItemFilter{IncludeInPractice: boolPtr(true)})
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, "a", eligible[0].ID)

	etude := model.CategoryEtude
	etudes, err := s.GetItems(ctx, ItemFilter{Category: &etude})
	require.NoError(t, err)
	require.Len(t, etudes, 1)
	assert.Equal(t, "b", etudes[0].ID)
}

func TestSessionCRUDAndUnsyncedFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.CreateSession(ctx, model.Session{
		ID: "s1", ItemID: "item-1", StartedAt: started,
	}))

	synced := started.Add(time.Minute)
	require.NoError(t, s.CreateSession(ctx, model.Session{
		ID: "s2", ItemID: "item-1", StartedAt: started.Add(time.Second),
		SyncedAt: &synced,
	}))

	unsynced, err := s.GetSessions(ctx, SessionFilter{Unsynced: boolPtr(true)})
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, "s1", unsynced[0].ID)

	got, err := s.GetSessionByID(ctx, "s1")
	require.NoError(t, err)
	got.SyncedAt = &synced
	require.NoError(t, s.SaveSession(ctx, *got))

	unsynced, err = s.GetSessions(ctx, SessionFilter{Unsynced: boolPtr(true)})
	require.NoError(t, err)
	assert.Empty(t, unsynced)
}

func TestQueueFIFOAndRetryFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"q1", "q2", "q3"} {
		require.NoError(t, s.EnqueueChange(ctx, model.QueueEntry{
			ID:         id,
			EntityType: model.EntityItem,
			EntityID:   "item-" + id,
			Operation:  model.OpUpdate,
			EnqueuedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := s.GetQueueEntries(ctx, QueueFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "q1", entries[0].ID)
	assert.Equal(t, "q2", entries[1].ID)
	assert.Equal(t, "q3", entries[2].ID)

	// Park q2 and verify the retry filter excludes it but keeps it stored.
	entries[1].RetryCount = 3
	entries[1].LastError = "boom"
	require.NoError(t, s.UpdateQueueEntry(ctx, entries[1]))

	max := 3
	eligible, err := s.GetQueueEntries(ctx, QueueFilter{MaxRetryCount: &max})
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	assert.Equal(t, "q1", eligible[0].ID)
	assert.Equal(t, "q3", eligible[1].ID)

	all, err := s.GetQueueEntries(ctx, QueueFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCheckpoint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	checkpoint, err := s.GetCheckpoint(ctx)
	require.NoError(t, err)
	assert.Nil(t, checkpoint)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.SetCheckpoint(ctx, at))

	checkpoint, err = s.GetCheckpoint(ctx)
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	assert.True(t, checkpoint.Equal(at))

	// Advancing overwrites the single checkpoint row.
	later := at.Add(time.Hour)
	require.NoError(t, s.SetCheckpoint(ctx, later))

	checkpoint, err = s.GetCheckpoint(ctx)
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	assert.True(t, checkpoint.Equal(later))
}
