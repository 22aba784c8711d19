package matcher

import (
	"math"
	"time"

	"github.com/mauv0809/ranked-queue/internal/ladder"
)

const (
	// BaseRange is the rating window for a team that has just joined.
	BaseRange = 100
	// GrowthPerMinute widens the window by this factor for every minute waited.
	GrowthPerMinute = 1.5
)

// Pair is two pool entries matched against each other. A is the entry whose range found B.
type Pair struct {
	A ladder.AutoQueueEntry
	B ladder.AutoQueueEntry
}

// EntryStatus is the display view of one waiting team.
type EntryStatus struct {
	TeamKey     string `json:"team_key"`
	Rating      int    `json:"rating"`
	WaitMinutes int    `json:"wait_minutes"`
	Range       int    `json:"range"`
}

// CompatibilityRange returns how far from its own rating a team waiting for wait may be matched.
// The range never shrinks as wait grows.
func CompatibilityRange(wait time.Duration) int {
	if wait < 0 {
		wait = 0
	}
	return int(math.Round(BaseRange * math.Pow(GrowthPerMinute, wait.Minutes())))
}

// FindMatches pairs pool entries greedily in pool order. Each unconsumed entry is paired with
// the first other unconsumed entry whose rating lies within its own compatibility range.
// The result depends only on the pool order, the ratings and now.
func FindMatches(pool []ladder.AutoQueueEntry, now time.Time) []Pair {
	pairs := []Pair{}
	consumed := make([]bool, len(pool))
	for i, entry := range pool {
		if consumed[i] {
			continue
		}
		r := CompatibilityRange(entry.WaitTime(now))
		for j := range pool {
			if j == i || consumed[j] || pool[j].TeamKey == entry.TeamKey {
				continue
			}
			if abs(pool[j].Rating-entry.Rating) <= r {
				consumed[i], consumed[j] = true, true
				pairs = append(pairs, Pair{A: entry, B: pool[j]})
				break
			}
		}
	}
	return pairs
}

// Status describes every entry in pool with its whole wait minutes and current range.
func Status(pool []ladder.AutoQueueEntry, now time.Time) []EntryStatus {
	statuses := make([]EntryStatus, 0, len(pool))
	for _, e := range pool {
		wait := e.WaitTime(now)
		statuses = append(statuses, EntryStatus{
			TeamKey:     e.TeamKey,
			Rating:      e.Rating,
			WaitMinutes: int(wait / time.Minute),
			Range:       CompatibilityRange(wait),
		})
	}
	return statuses
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
