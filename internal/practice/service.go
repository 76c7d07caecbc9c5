// Package practice holds the repertoire domain operations: change-tracked
// mutations, the weighted selection scheduler, and the suggestion queue.
package practice

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/repertoire/internal/auth"
	"github.com/nhle/repertoire/internal/model"
	"github.com/nhle/repertoire/internal/store"
	"github.com/nhle/repertoire/internal/sync"
)

// ChangeListener is invoked after every successful local mutation. The sync
// engine registers its NotifyLocalChange here; there is no hidden global
// broadcast.
type ChangeListener func()

// Service applies user mutations to the record store with change tracking:
// every mutation bumps the record version, stamps UpdatedAt, sets the dirty
// flag, records the change in the offline queue, and notifies listeners —
// all against a single atomic row write.
type Service struct {
	store     store.Store
	queue     *sync.OfflineQueue
	provider  auth.IdentityProvider
	logger    *slog.Logger
	listeners []ChangeListener
	now       func() time.Time
}

// NewService creates a practice service over the given store and queue.
func NewService(
	s store.Store,
	queue *sync.OfflineQueue,
	provider auth.IdentityProvider,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    s,
		queue:    queue,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// OnChange registers a listener invoked after each local mutation.
func (s *Service) OnChange(fn ChangeListener) {
	s.listeners = append(s.listeners, fn)
}

// currentOwner returns the signed-in owner id, or nil while signed out.
// Records created while signed out stay ownerless forever.
func (s *Service) currentOwner() *string {
	if id, ok := s.provider.CurrentUserID(); ok {
		return &id
	}
	return nil
}

// markMutated applies the change-tracking bookkeeping shared by every item
// mutation.
func (s *Service) markMutated(item *model.Item) {
	item.UpdatedAt = s.now().UTC()
	item.Version++
	item.LocallyModified = true
}

// notifyChange enqueues the change for visibility and tells listeners. The
// enqueue is best-effort: a queue failure must not undo an already-applied
// mutation.
func (s *Service) notifyChange(
	ctx context.Context,
	entityType model.EntityType,
	entityID string,
	op model.Operation,
	ownerID *string,
) {
	if err := s.queue.Enqueue(ctx, entityType, entityID, op, ownerID); err != nil {
		s.logger.Warn("enqueuing offline change",
			"entity", entityID, "op", string(op), "error", err)
	}
	for _, fn := range s.listeners {
		fn()
	}
}

// CreateItem creates a new repertoire item owned by the current identity.
// Creation counts as the first mutation: the stored item has version 1 and
// is dirty.
func (s *Service) CreateItem(ctx context.Context, item model.Item) (*model.Item, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.OwnerID = s.currentOwner()
	item.Version = 0
	item.LastSyncedAt = nil
	s.markMutated(&item)

	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	s.notifyChange(ctx, model.EntityItem, item.ID, model.OpCreate, item.OwnerID)
	return &item, nil
}

// UpdateItem applies edited fields from the given item to the stored copy
// and bumps its version.
func (s *Service) UpdateItem(ctx context.Context, item model.Item) (*model.Item, error) {
	existing, err := s.store.GetItemByID(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	existing.Title = item.Title
	existing.Body = item.Body
	existing.Language = item.Language
	existing.Category = item.Category
	existing.Favorite = item.Favorite
	existing.IncludeInPractice = item.IncludeInPractice
	s.markMutated(existing)

	if err := s.store.SaveItem(ctx, *existing); err != nil {
		return nil, err
	}

	s.notifyChange(ctx, model.EntityItem, existing.ID, model.OpUpdate, existing.OwnerID)
	return existing, nil
}

// ToggleFavorite flips the favorite flag.
func (s *Service) ToggleFavorite(ctx context.Context, id string) (*model.Item, error) {
	item, err := s.store.GetItemByID(ctx, id)
	if err != nil {
		return nil, err
	}

	item.Favorite = !item.Favorite
	s.markMutated(item)

	if err := s.store.SaveItem(ctx, *item); err != nil {
		return nil, err
	}

	s.notifyChange(ctx, model.EntityItem, item.ID, model.OpUpdate, item.OwnerID)
	return item, nil
}

// SetIncludeInPractice sets the practice-eligibility flag.
func (s *Service) SetIncludeInPractice(ctx context.Context, id string, include bool) (*model.Item, error) {
	item, err := s.store.GetItemByID(ctx, id)
	if err != nil {
		return nil, err
	}

	item.IncludeInPractice = include
	s.markMutated(item)

	if err := s.store.SaveItem(ctx, *item); err != nil {
		return nil, err
	}

	s.notifyChange(ctx, model.EntityItem, item.ID, model.OpUpdate, item.OwnerID)
	return item, nil
}

// TouchLastPracticed stamps the item's last-practiced time.
func (s *Service) TouchLastPracticed(ctx context.Context, id string, at time.Time) (*model.Item, error) {
	item, err := s.store.GetItemByID(ctx, id)
	if err != nil {
		return nil, err
	}

	at = at.UTC()
	item.LastPracticedAt = &at
	s.markMutated(item)

	if err := s.store.SaveItem(ctx, *item); err != nil {
		return nil, err
	}

	s.notifyChange(ctx, model.EntityItem, item.ID, model.OpUpdate, item.OwnerID)
	return item, nil
}

// DeleteItem removes the item locally. There is no tombstone: the deletion
// is not propagated to the remote authority.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	item, err := s.store.GetItemByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteItem(ctx, id); err != nil {
		return err
	}

	s.notifyChange(ctx, model.EntityItem, id, model.OpDelete, item.OwnerID)
	return nil
}

// StartSession begins a practice session against an item.
func (s *Service) StartSession(ctx context.Context, itemID string) (*model.Session, error) {
	session := model.Session{
		ID:        uuid.New().String(),
		OwnerID:   s.currentOwner(),
		ItemID:    itemID,
		StartedAt: s.now().UTC(),
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	s.notifyChange(ctx, model.EntitySession, session.ID, model.OpCreate, session.OwnerID)
	return &session, nil
}

// EndSession finishes a practice session and touches the practiced item's
// last-practiced time. A session whose item has since been deleted still
// ends cleanly; orphaned references are tolerated.
func (s *Service) EndSession(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.store.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	session.EndedAt = &now
	if err := s.store.SaveSession(ctx, *session); err != nil {
		return nil, err
	}

	if _, err := s.TouchLastPracticed(ctx, session.ItemID, now); err != nil {
		s.logger.Debug("session item not touched", "item", session.ItemID, "error", err)
	}

	s.notifyChange(ctx, model.EntitySession, session.ID, model.OpUpdate, session.OwnerID)
	return session, nil
}

// EligibleItems returns the practice-eligible items scoped to the current
// owner (or the ownerless pool while signed out).
func (s *Service) EligibleItems(ctx context.Context) ([]model.Item, error) {
	include := true
	return s.store.GetItems(ctx, store.ItemFilter{
		Owner:             &store.OwnerScope{UserID: s.currentOwner()},
		IncludeInPractice: &include,
	})
}
