package practice

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/repertoire/internal/model"
)

func newTestSelector() *Selector {
	s := NewSelector(model.PracticeConfig{
		QueueSize:   7,
		StaleDays:   7,
		TierWeights: [3]int{3, 2, 1},
	})
	s.rnd = rand.New(rand.NewSource(42))
	return s
}

func timePtr(t time.Time) *time.Time { return &t }

func TestPickEmptyPool(t *testing.T) {
	s := newTestSelector()
	assert.Nil(t, s.Pick(nil, nil))
	assert.Nil(t, s.Pick([]model.Item{}, nil))
}

func TestPickSingleItem(t *testing.T) {
	s := newTestSelector()
	pool := []model.Item{{ID: "only"}}

	for i := 0; i < 10; i++ {
		got := s.Pick(pool, nil)
		require.NotNil(t, got)
		assert.Equal(t, "only", got.ID)
	}
}

func TestPickAllExcluded(t *testing.T) {
	s := newTestSelector()
	pool := []model.Item{{ID: "a"}, {ID: "b"}}

	got := s.Pick(pool, map[string]bool{"a": true, "b": true})
	assert.Nil(t, got)
}

func TestPickRespectsExclusion(t *testing.T) {
	s := newTestSelector()
	pool := []model.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	exclude := map[string]bool{"a": true, "c": true}

	for i := 0; i < 20; i++ {
		got := s.Pick(pool, exclude)
		require.NotNil(t, got)
		assert.Equal(t, "b", got.ID)
	}
}

func TestNeverPracticedFavoriteIsTierOne(t *testing.T) {
	s := newTestSelector()

	// Never practiced counts as infinitely stale, so a favorite with no
	// practice history lands in the top tier alongside overdue favorites.
	assert.True(t, s.isStale(model.Item{Favorite: true}))
	assert.True(t, s.isStale(model.Item{
		LastPracticedAt: timePtr(time.Now().Add(-8 * 24 * time.Hour)),
	}))
	assert.False(t, s.isStale(model.Item{
		LastPracticedAt: timePtr(time.Now().Add(-time.Hour)),
	}))
}

func TestTierWeighting(t *testing.T) {
	s := newTestSelector()

	staleTime := timePtr(time.Now().Add(-30 * 24 * time.Hour))
	recentTime := timePtr(time.Now().Add(-time.Hour))
	pool := []model.Item{
		{ID: "tier1", Favorite: true, LastPracticedAt: staleTime},
		{ID: "tier2", LastPracticedAt: staleTime},
		{ID: "tier3", LastPracticedAt: recentTime},
	}

	counts := map[string]int{}
	const draws = 10000
	for i := 0; i < draws; i++ {
		got := s.Pick(pool, nil)
		require.NotNil(t, got)
		counts[got.ID]++
	}

	// Expected ratio is 3:2:1. Allow generous tolerance; the ordering and
	// non-zero checks are the real invariant.
	assert.Positive(t, counts["tier1"])
	assert.Positive(t, counts["tier2"])
	assert.Positive(t, counts["tier3"])
	assert.Greater(t, counts["tier1"], counts["tier2"])
	assert.Greater(t, counts["tier2"], counts["tier3"])

	assert.InDelta(t, draws*3/6, counts["tier1"], draws*0.05)
	assert.InDelta(t, draws*2/6, counts["tier2"], draws*0.05)
	assert.InDelta(t, draws*1/6, counts["tier3"], draws*0.05)
}

func TestPickSeriesDistinct(t *testing.T) {
	s := newTestSelector()
	pool := []model.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	series := s.PickSeries(pool, nil, 5)
	require.Len(t, series, 3)

	seen := map[string]bool{}
	for _, item := range series {
		assert.False(t, seen[item.ID], "duplicate pick %s", item.ID)
		seen[item.ID] = true
	}
}
