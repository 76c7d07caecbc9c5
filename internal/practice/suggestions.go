package practice

import "github.com/nhle/repertoire/internal/model"

// SuggestionQueue is the bounded, rotating subset of eligible items
// currently offered for browsing. It refills incrementally as items are
// practiced and fully resets when the underlying eligible set changes.
type SuggestionQueue struct {
	selector *Selector
	size     int

	items   []model.Item
	cursor  int
	lastIDs map[string]bool
}

// NewSuggestionQueue creates an empty queue of the given bounded size.
func NewSuggestionQueue(selector *Selector, size int) *SuggestionQueue {
	if size <= 0 {
		size = 7
	}
	return &SuggestionQueue{
		selector: selector,
		size:     size,
		lastIDs:  map[string]bool{},
	}
}

// Items returns the queued suggestions in selection order.
func (q *SuggestionQueue) Items() []model.Item {
	out := make([]model.Item, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of queued suggestions, never more than the bound.
func (q *SuggestionQueue) Len() int {
	return len(q.items)
}

// Cursor returns the browse position, always within [0, Len()) unless the
// queue is empty, in which case it is 0.
func (q *SuggestionQueue) Cursor() int {
	return q.cursor
}

// Current returns the item under the cursor, or nil if the queue is empty.
func (q *SuggestionQueue) Current() *model.Item {
	if len(q.items) == 0 {
		return nil
	}
	item := q.items[q.cursor]
	return &item
}

// Advance moves the cursor forward, wrapping around carousel-style.
func (q *SuggestionQueue) Advance() {
	if len(q.items) == 0 {
		q.cursor = 0
		return
	}
	q.cursor = (q.cursor + 1) % len(q.items)
}

// Retreat moves the cursor backward, wrapping around.
func (q *SuggestionQueue) Retreat() {
	if len(q.items) == 0 {
		q.cursor = 0
		return
	}
	q.cursor = (q.cursor - 1 + len(q.items)) % len(q.items)
}

// SyncEligible reconciles the queue with the current eligible pool. If the
// pool's id set differs from the last observed one (identity comparison,
// not content), the queue and cursor are fully reset and regenerated. This
// is how an eligibility toggle elsewhere in the app propagates into the
// browse queue without polling every field.
func (q *SuggestionQueue) SyncEligible(eligible []model.Item) {
	ids := make(map[string]bool, len(eligible))
	for _, item := range eligible {
		ids[item.ID] = true
	}

	if sameIDSet(ids, q.lastIDs) {
		return
	}

	q.lastIDs = ids
	q.items = q.selector.PickSeries(eligible, nil, q.size)
	q.cursor = 0
}

// Refresh tops the queue back up to its bound with fresh picks, excluding
// everything already queued and preserving the existing entries' order.
func (q *SuggestionQueue) Refresh(eligible []model.Item) {
	q.refill(eligible, "")
}

// refill tops the queue up to its bound. Beyond the queued items, barredID
// is also excluded from the draw; it keeps a just-removed item from winning
// back the slot it vacated.
func (q *SuggestionQueue) refill(eligible []model.Item, barredID string) {
	if len(q.items) >= q.size {
		return
	}

	exclude := make(map[string]bool, len(q.items)+1)
	for _, item := range q.items {
		exclude[item.ID] = true
	}
	if barredID != "" {
		exclude[barredID] = true
	}

	extra := q.selector.PickSeries(eligible, exclude, q.size-len(q.items))
	q.items = append(q.items, extra...)
}

// RemoveAndRefill drops the just-practiced item from the queue, adjusts the
// cursor, and refills. The practiced item is barred from the refill draw
// even though it is still in the eligible pool. If the removed index
// precedes or equals the cursor, the cursor shifts back one, clamped at
// zero.
func (q *SuggestionQueue) RemoveAndRefill(eligible []model.Item, practicedID string) {
	index := -1
	for i, item := range q.items {
		if item.ID == practicedID {
			index = i
			break
		}
	}

	if index >= 0 {
		q.items = append(q.items[:index], q.items[index+1:]...)
		if index <= q.cursor {
			q.cursor--
			if q.cursor < 0 {
				q.cursor = 0
			}
		}
	}

	q.refill(eligible, practicedID)

	if q.cursor >= len(q.items) {
		q.cursor = 0
	}
}

func sameIDSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}
