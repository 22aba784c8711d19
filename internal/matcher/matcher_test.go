package matcher

import (
	"testing"
	"time"

	"github.com/mauv0809/ranked-queue/internal/ladder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.UnixMilli(1_700_000_000_000)

func entry(key string, rating int, waited time.Duration) ladder.AutoQueueEntry {
	return ladder.AutoQueueEntry{TeamKey: key, CaptainID: "cap-" + key, Rating: rating, AddedAt: now.Add(-waited)}
}

func TestCompatibilityRange(t *testing.T) {
	tests := []struct {
		wait     time.Duration
		expected int
	}{
		{0, 100},
		{time.Minute, 150},
		{90 * time.Second, 184},
		{2 * time.Minute, 225},
		{5 * time.Minute, 759},
		{-time.Minute, 100},
	}
	for _, tt := range tests {
		t.Run(tt.wait.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, CompatibilityRange(tt.wait))
		})
	}

	t.Run("never shrinks", func(t *testing.T) {
		prev := CompatibilityRange(0)
		for ms := int64(0); ms <= 10*60*1000; ms += 250 {
			r := CompatibilityRange(time.Duration(ms) * time.Millisecond)
			assert.GreaterOrEqual(t, r, prev, "at %dms", ms)
			prev = r
		}
	})
}

func TestFindMatches(t *testing.T) {
	t.Run("empty pool", func(t *testing.T) {
		assert.Empty(t, FindMatches(nil, now))
		assert.Empty(t, FindMatches([]ladder.AutoQueueEntry{}, now))
	})

	t.Run("single entry", func(t *testing.T) {
		assert.Empty(t, FindMatches([]ladder.AutoQueueEntry{entry("a", 1000, 0)}, now))
	})

	t.Run("two entries inside the base range", func(t *testing.T) {
		pairs := FindMatches([]ladder.AutoQueueEntry{entry("a", 1000, 0), entry("b", 1050, 0)}, now)
		require.Len(t, pairs, 1)
		assert.Equal(t, "a", pairs[0].A.TeamKey)
		assert.Equal(t, "b", pairs[0].B.TeamKey)
	})

	t.Run("range bounds are inclusive", func(t *testing.T) {
		pairs := FindMatches([]ladder.AutoQueueEntry{entry("a", 1000, 0), entry("b", 1100, 0)}, now)
		assert.Len(t, pairs, 1)
	})

	t.Run("too far apart until the range widens", func(t *testing.T) {
		fresh := []ladder.AutoQueueEntry{entry("a", 1000, 0), entry("b", 1300, 0)}
		assert.Empty(t, FindMatches(fresh, now))

		waited := []ladder.AutoQueueEntry{entry("a", 1000, 3*time.Minute), entry("b", 1300, 0)}
		assert.Len(t, FindMatches(waited, now), 1)
	})

	t.Run("first fit in pool order", func(t *testing.T) {
		pool := []ladder.AutoQueueEntry{
			entry("a", 1000, 0),
			entry("b", 1090, 0),
			entry("c", 1010, 0),
			entry("d", 1080, 0),
		}
		pairs := FindMatches(pool, now)
		require.Len(t, pairs, 2)
		assert.Equal(t, [2]string{"a", "b"}, [2]string{pairs[0].A.TeamKey, pairs[0].B.TeamKey})
		assert.Equal(t, [2]string{"c", "d"}, [2]string{pairs[1].A.TeamKey, pairs[1].B.TeamKey})
	})

	t.Run("a long wait reaches back to an earlier entry", func(t *testing.T) {
		pool := []ladder.AutoQueueEntry{
			entry("fresh", 1000, 0),
			entry("veteran", 1400, 5*time.Minute),
		}
		pairs := FindMatches(pool, now)
		require.Len(t, pairs, 1)
		assert.Equal(t, "veteran", pairs[0].A.TeamKey)
		assert.Equal(t, "fresh", pairs[0].B.TeamKey)
	})

	t.Run("unmatched entries are left out", func(t *testing.T) {
		pool := []ladder.AutoQueueEntry{entry("a", 1000, 0), entry("b", 2000, 0), entry("c", 1020, 0)}
		pairs := FindMatches(pool, now)
		require.Len(t, pairs, 1)
		assert.Equal(t, "a", pairs[0].A.TeamKey)
		assert.Equal(t, "c", pairs[0].B.TeamKey)
	})

	t.Run("deterministic for identical input", func(t *testing.T) {
		pool := []ladder.AutoQueueEntry{
			entry("a", 1000, 2*time.Minute),
			entry("b", 1500, time.Minute),
			entry("c", 1200, 30*time.Second),
			entry("d", 1700, 0),
			entry("e", 1100, 4*time.Minute),
			entry("f", 1350, 0),
		}
		first := FindMatches(pool, now)
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, FindMatches(pool, now))
		}
	})

	t.Run("no team appears in two pairs", func(t *testing.T) {
		pool := []ladder.AutoQueueEntry{
			entry("a", 1000, 10*time.Minute),
			entry("b", 1000, 10*time.Minute),
			entry("c", 1000, 10*time.Minute),
			entry("d", 1000, 10*time.Minute),
			entry("e", 1000, 10*time.Minute),
		}
		seen := map[string]bool{}
		for _, p := range FindMatches(pool, now) {
			for _, k := range []string{p.A.TeamKey, p.B.TeamKey} {
				assert.False(t, seen[k], "team %s paired twice", k)
				seen[k] = true
			}
		}
		assert.Len(t, seen, 4)
	})
}

func TestStatus(t *testing.T) {
	pool := []ladder.AutoQueueEntry{entry("a", 1000, 0), entry("b", 1200, 150*time.Second)}
	statuses := Status(pool, now)
	require.Len(t, statuses, 2)

	assert.Equal(t, EntryStatus{TeamKey: "a", Rating: 1000, WaitMinutes: 0, Range: 100}, statuses[0])
	assert.Equal(t, "b", statuses[1].TeamKey)
	assert.Equal(t, 2, statuses[1].WaitMinutes)
	assert.Equal(t, CompatibilityRange(150*time.Second), statuses[1].Range)
}
