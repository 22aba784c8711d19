package league

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/mauv0809/ranked-queue/internal/ladder"
	"github.com/mauv0809/ranked-queue/internal/matcher"
	"github.com/mauv0809/ranked-queue/internal/rating"
)

// Leaderboard returns every team ordered by rating, highest first.
func (s *Service) Leaderboard(ctx context.Context) ([]Standing, error) {
	ordered, err := s.ordered(ctx)
	if err != nil {
		return nil, err
	}
	standings := make([]Standing, 0, len(ordered))
	for i, t := range ordered {
		standings = append(standings, Standing{Position: i + 1, Team: t, Tier: rating.RankTier(t.Rating, s.tiers)})
	}
	return standings, nil
}

func (s *Service) ordered(ctx context.Context) ([]ladder.Team, error) {
	teams, err := s.store.LoadTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}
	list := make([]ladder.Team, 0, len(teams))
	for _, t := range teams {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Rating != list[j].Rating {
			return list[i].Rating > list[j].Rating
		}
		return list[i].Key < list[j].Key
	})
	return list, nil
}

// Rank looks a team up by name, or by one of its members' user id.
func (s *Service) Rank(ctx context.Context, query string) (*RankInfo, error) {
	ordered, err := s.ordered(ctx)
	if err != nil {
		return nil, err
	}
	key := ladder.TeamKey(query)
	i := slices.IndexFunc(ordered, func(t ladder.Team) bool { return t.Key == key })
	if i < 0 {
		i = slices.IndexFunc(ordered, func(t ladder.Team) bool { return t.HasMember(query) })
	}
	if i < 0 {
		return nil, ladder.ErrTeamNotFound
	}
	t := ordered[i]
	return &RankInfo{
		Position: i + 1,
		Of:       len(ordered),
		Team:     t,
		Progress: rating.ProgressToNextTier(t.Rating, s.tiers),
	}, nil
}

// TeamInfo returns a single team.
func (s *Service) TeamInfo(ctx context.Context, team string) (*ladder.Team, error) {
	t, err := s.team(ctx, team)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// History returns a team's settled matches, newest first. A non-positive limit uses
// DefaultHistoryLimit.
func (s *Service) History(ctx context.Context, team string, limit int) ([]ladder.MatchRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	t, err := s.team(ctx, team)
	if err != nil {
		return nil, err
	}
	all, err := s.store.LoadHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	records := make([]ladder.MatchRecord, 0, limit)
	for i := len(all) - 1; i >= 0 && len(records) < limit; i-- {
		if r := all[i]; r.Team1 == t.Key || r.Team2 == t.Key {
			records = append(records, r)
		}
	}
	return records, nil
}

// TeamQueue reports where a team is waiting in a group.
func (s *Service) TeamQueue(ctx context.Context, groupID, team string) (*QueuePosition, error) {
	t, err := s.team(ctx, team)
	if err != nil {
		return nil, err
	}
	now := s.now()

	queue, err := s.store.LoadQueue(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}
	if i := slices.IndexFunc(queue, func(e ladder.QueueEntry) bool { return e.TeamKey == t.Key }); i >= 0 {
		return &QueuePosition{
			GroupID:  groupID,
			Team:     t.Key,
			Queue:    QueueManual,
			Position: i + 1,
			Of:       len(queue),
			Wait:     max(0, now.Sub(queue[i].AddedAt)),
		}, nil
	}

	pool, err := s.store.LoadPool(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pool: %w", err)
	}
	i := slices.IndexFunc(pool, func(e ladder.AutoQueueEntry) bool { return e.TeamKey == t.Key })
	if i < 0 {
		return nil, ladder.ErrNotQueued
	}
	pos := &QueuePosition{
		GroupID:  groupID,
		Team:     t.Key,
		Queue:    QueueAuto,
		Position: i + 1,
		Of:       len(pool),
		Wait:     pool[i].WaitTime(now),
		Range:    matcher.CompatibilityRange(pool[i].WaitTime(now)),
	}
	cfg, err := s.store.LoadConfig(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg != nil && cfg.Enabled {
		pos.Uptime = max(0, now.Sub(cfg.StartedAt))
	}
	return pos, nil
}
