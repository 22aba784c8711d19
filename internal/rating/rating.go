package rating

import "math"

// NewModel returns a model with the given K, falling back to DefaultK when k <= 0.
func NewModel(k float64) Model {
	if k <= 0 {
		k = DefaultK
	}
	return Model{K: k}
}

// Delta returns the rating changes for a match between winner and loser using DefaultK.
func Delta(winner, loser int) (winnerChange, loserChange int) {
	return NewModel(DefaultK).Delta(winner, loser)
}

// Delta returns the rating changes for a match between winner and loser.
// winnerChange is never negative and loserChange is never positive.
func (m Model) Delta(winner, loser int) (winnerChange, loserChange int) {
	expectedWinner := expected(winner, loser)
	expectedLoser := expected(loser, winner)
	winnerChange = int(math.Round(m.K * (1 - expectedWinner)))
	loserChange = int(math.Round(m.K * (0 - expectedLoser)))
	return winnerChange, loserChange
}

// Apply updates both ratings in place and returns the deltas used.
// The loser's rating never drops below zero.
func (m Model) Apply(winner, loser *int) (winnerChange, loserChange int) {
	winnerChange, loserChange = m.Delta(*winner, *loser)
	*winner += winnerChange
	*loser = max(0, *loser+loserChange)
	return winnerChange, loserChange
}

func expected(rating, opponent int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponent-rating)/400))
}

// RankTier returns the highest tier whose threshold is at or below rating.
// tiers must be sorted ascending; the lowest tier is returned for ratings below every threshold.
func RankTier(rating int, tiers []Tier) Tier {
	if len(tiers) == 0 {
		return Tier{}
	}
	return tiers[bracket(rating, tiers)]
}

// ProgressToNextTier reports the percentage travelled between the current tier threshold
// and the next one. The top tier always reports 100 with no next tier.
func ProgressToNextTier(rating int, tiers []Tier) Progress {
	if len(tiers) == 0 {
		return Progress{Percent: 100}
	}
	i := bracket(rating, tiers)
	current := tiers[i]
	if i == len(tiers)-1 {
		return Progress{Current: current, Percent: 100}
	}
	next := tiers[i+1]
	span := next.MinRating - current.MinRating
	percent := 0
	if span > 0 {
		percent = int(math.Round(float64(rating-current.MinRating) / float64(span) * 100))
	}
	percent = min(100, max(0, percent))
	return Progress{Current: current, Next: &next, Percent: percent}
}

func bracket(rating int, tiers []Tier) int {
	idx := 0
	for i, t := range tiers {
		if t.MinRating <= rating {
			idx = i
		}
	}
	return idx
}
