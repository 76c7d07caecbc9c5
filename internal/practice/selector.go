package practice

import (
	"math/rand"
	"time"

	"github.com/nhle/repertoire/internal/model"
)

// Selector draws practice suggestions with a stratified weighted lottery.
// Items are bucketed into three tiers — stale favorites, stale
// non-favorites, and recently practiced — and whole tiers are weighted
// (3:2:1 by default), so every item within a tier is equally likely
// relative to its tier-mates.
type Selector struct {
	staleAfter time.Duration
	weights    [3]int
	rnd        *rand.Rand
	now        func() time.Time
}

// NewSelector creates a selector from practice configuration.
func NewSelector(cfg model.PracticeConfig) *Selector {
	staleDays := cfg.StaleDays
	if staleDays <= 0 {
		staleDays = 7
	}
	weights := cfg.TierWeights
	if weights[0] <= 0 || weights[1] <= 0 || weights[2] <= 0 {
		weights = [3]int{3, 2, 1}
	}
	return &Selector{
		staleAfter: time.Duration(staleDays) * 24 * time.Hour,
		weights:    weights,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
	}
}

// isStale reports whether the item has gone unpracticed for at least the
// staleness threshold. Never-practiced items have infinite staleness and
// are always stale.
func (s *Selector) isStale(item model.Item) bool {
	if item.LastPracticedAt == nil {
		return true
	}
	return s.now().Sub(*item.LastPracticedAt) >= s.staleAfter
}

// Pick selects one item from the pool, skipping excluded ids. It returns
// nil when nothing is selectable.
func (s *Selector) Pick(pool []model.Item, exclude map[string]bool) *model.Item {
	var candidates []model.Item
	for _, item := range pool {
		if exclude[item.ID] {
			continue
		}
		candidates = append(candidates, item)
	}

	if len(candidates) == 0 {
		return nil
	}
	// A single candidate skips the lottery entirely.
	if len(candidates) == 1 {
		return &candidates[0]
	}

	var tier1, tier2, tier3 []model.Item
	for _, item := range candidates {
		switch {
		case item.Favorite && s.isStale(item):
			tier1 = append(tier1, item)
		case !item.Favorite && s.isStale(item):
			tier2 = append(tier2, item)
		default:
			tier3 = append(tier3, item)
		}
	}

	w1, w2, w3 := s.weights[0], s.weights[1], s.weights[2]
	total := len(tier1)*w1 + len(tier2)*w2 + len(tier3)*w3

	draw := s.rnd.Intn(total)
	if draw < len(tier1)*w1 {
		return &tier1[draw/w1]
	}
	draw -= len(tier1) * w1
	if draw < len(tier2)*w2 {
		return &tier2[draw/w2]
	}
	draw -= len(tier2) * w2
	return &tier3[draw/w3]
}

// PickSeries draws up to count distinct items from the pool, excluding the
// given ids, in selection order.
func (s *Selector) PickSeries(pool []model.Item, exclude map[string]bool, count int) []model.Item {
	chosen := make(map[string]bool, len(exclude))
	for id := range exclude {
		chosen[id] = true
	}

	var out []model.Item
	for len(out) < count {
		item := s.Pick(pool, chosen)
		if item == nil {
			break
		}
		chosen[item.ID] = true
		out = append(out, *item)
	}
	return out
}
