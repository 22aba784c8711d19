package league

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/ranked-queue/internal/ladder"
	"github.com/mauv0809/ranked-queue/internal/lifecycle"
	"github.com/mauv0809/ranked-queue/internal/matcher"
	"github.com/mauv0809/ranked-queue/internal/notifier"
)

// captainedTeam loads team and checks that callerID captains it.
func (s *Service) captainedTeam(ctx context.Context, team, callerID string) (ladder.Team, error) {
	t, err := s.team(ctx, team)
	if err != nil {
		return t, err
	}
	if t.CaptainID == nil {
		return t, ladder.ErrNoCaptain
	}
	if !t.IsCaptain(callerID) {
		return t, ladder.ErrNotCaptain
	}
	return t, nil
}

// ensureNotQueued fails when key waits in any manual queue or pool. The membership
// lock must be held.
func (s *Service) ensureNotQueued(ctx context.Context, key string) error {
	groups, err := s.store.QueueGroups(ctx)
	if err != nil {
		return fmt.Errorf("failed to list queues: %w", err)
	}
	for _, g := range groups {
		entries, err := s.store.LoadQueue(ctx, g)
		if err != nil {
			return fmt.Errorf("failed to load queue: %w", err)
		}
		if slices.ContainsFunc(entries, func(e ladder.QueueEntry) bool { return e.TeamKey == key }) {
			return ladder.ErrAlreadyQueued
		}
	}
	configs, err := s.store.ListConfigs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list groups: %w", err)
	}
	for _, cfg := range configs {
		pool, err := s.store.LoadPool(ctx, cfg.GroupID)
		if err != nil {
			return fmt.Errorf("failed to load pool: %w", err)
		}
		if slices.ContainsFunc(pool, func(e ladder.AutoQueueEntry) bool { return e.TeamKey == key }) {
			return ladder.ErrAlreadyQueued
		}
	}
	return nil
}

// JoinManualQueue adds a team to a group's manual queue. When that makes two teams
// wait, both are taken off the queue and a match is opened between them. If the
// match cannot be opened the queue is left as it was before the join.
func (s *Service) JoinManualQueue(ctx context.Context, groupID, team, callerID string) (*JoinResult, error) {
	unlockMembership := s.locker.Lock(ladder.MembershipLock)
	defer unlockMembership()

	t, err := s.captainedTeam(ctx, team, callerID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNotQueued(ctx, t.Key); err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(ladder.QueueLock(groupID))
	defer unlock()

	queue, err := s.store.LoadQueue(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}
	queue = append(queue, ladder.QueueEntry{TeamKey: t.Key, CaptainID: t.Captain(), Rating: t.Rating, AddedAt: s.now()})

	if len(queue) < 2 {
		if err := s.store.SaveQueue(ctx, groupID, queue); err != nil {
			return nil, fmt.Errorf("failed to save queue: %w", err)
		}
		log.Info("Team joined manual queue", "group", groupID, "team", t.Key, "position", len(queue))
		return &JoinResult{Position: len(queue)}, nil
	}

	a, err := s.contender(ctx, queue[0])
	if err != nil {
		return nil, err
	}
	b, err := s.contender(ctx, queue[1])
	if err != nil {
		return nil, err
	}
	match, err := s.matches.Create(ctx, groupID, a, b, false)
	if err != nil {
		return nil, fmt.Errorf("failed to start match: %w", err)
	}
	if err := s.store.SaveQueue(ctx, groupID, queue[2:]); err != nil {
		log.Error("Match started but queue could not be saved", "error", err, "group", groupID, "matchID", match.MatchID)
		if cancelErr := s.matches.Cancel(ctx, match.MatchID, "queue could not be saved"); cancelErr != nil {
			log.Error("Failed to cancel manual match", "error", cancelErr, "group", groupID, "matchID", match.MatchID)
		}
		return nil, fmt.Errorf("failed to save queue: %w", err)
	}
	log.Info("Manual queue paired teams", "group", groupID, "matchID", match.MatchID, "teamA", a.TeamKey, "teamB", b.TeamKey)
	return &JoinResult{Match: match}, nil
}

func (s *Service) contender(ctx context.Context, e ladder.QueueEntry) (lifecycle.Contender, error) {
	t, err := s.team(ctx, e.TeamKey)
	if err != nil {
		return lifecycle.Contender{}, fmt.Errorf("queued team %s: %w", e.TeamKey, err)
	}
	return lifecycle.ContenderFromTeam(t), nil
}

// LeaveManualQueue removes a team from a group's manual queue.
func (s *Service) LeaveManualQueue(ctx context.Context, groupID, team, callerID string) error {
	t, err := s.captainedTeam(ctx, team, callerID)
	if err != nil {
		return err
	}

	unlock := s.locker.Lock(ladder.QueueLock(groupID))
	defer unlock()

	queue, err := s.store.LoadQueue(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load queue: %w", err)
	}
	i := slices.IndexFunc(queue, func(e ladder.QueueEntry) bool { return e.TeamKey == t.Key })
	if i < 0 {
		return ladder.ErrNotQueued
	}
	if err := s.store.SaveQueue(ctx, groupID, slices.Delete(queue, i, i+1)); err != nil {
		return fmt.Errorf("failed to save queue: %w", err)
	}
	log.Info("Team left manual queue", "group", groupID, "team", t.Key)
	return nil
}

// JoinPool adds a team to a group's automatic pool.
func (s *Service) JoinPool(ctx context.Context, groupID, team, callerID string) (int, error) {
	unlockMembership := s.locker.Lock(ladder.MembershipLock)
	t, err := s.captainedTeam(ctx, team, callerID)
	if err == nil {
		err = s.ensureNotQueued(ctx, t.Key)
	}
	if err != nil {
		unlockMembership()
		return 0, err
	}

	unlock := s.locker.Lock(ladder.PoolLock(groupID))
	pool, err := s.addToPool(ctx, groupID, t)
	unlock()
	unlockMembership()
	if err != nil {
		return 0, err
	}

	log.Info("Team joined pool", "group", groupID, "team", t.Key, "rating", t.Rating, "poolSize", len(pool))
	s.refresh(ctx, groupID)
	return len(pool), nil
}

// addToPool must be called with the group's pool lock held so a concurrent close
// cannot slip in between the config check and the write.
func (s *Service) addToPool(ctx context.Context, groupID string, t ladder.Team) ([]ladder.AutoQueueEntry, error) {
	cfg, err := s.store.LoadConfig(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg == nil || !cfg.Enabled {
		return nil, ladder.ErrQueueNotConfigured
	}
	pool, err := s.store.LoadPool(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pool: %w", err)
	}
	pool = append(pool, ladder.AutoQueueEntry{TeamKey: t.Key, CaptainID: t.Captain(), Rating: t.Rating, AddedAt: s.now()})
	if err := s.store.SavePool(ctx, groupID, pool); err != nil {
		return nil, fmt.Errorf("failed to save pool: %w", err)
	}
	return pool, nil
}

// LeavePool removes a team from a group's automatic pool.
func (s *Service) LeavePool(ctx context.Context, groupID, team, callerID string) error {
	t, err := s.captainedTeam(ctx, team, callerID)
	if err != nil {
		return err
	}

	unlock := s.locker.Lock(ladder.PoolLock(groupID))
	pool, err := s.store.LoadPool(ctx, groupID)
	if err != nil {
		unlock()
		return fmt.Errorf("failed to load pool: %w", err)
	}
	i := slices.IndexFunc(pool, func(e ladder.AutoQueueEntry) bool { return e.TeamKey == t.Key })
	if i < 0 {
		unlock()
		return ladder.ErrNotQueued
	}
	err = s.store.SavePool(ctx, groupID, slices.Delete(pool, i, i+1))
	unlock()
	if err != nil {
		return fmt.Errorf("failed to save pool: %w", err)
	}

	log.Info("Team left pool", "group", groupID, "team", t.Key)
	s.refresh(ctx, groupID)
	return nil
}

func (s *Service) refresh(ctx context.Context, groupID string) {
	if err := s.poller.RefreshStatus(ctx, groupID); err != nil {
		log.Warn("Failed to refresh queue status", "error", err, "group", groupID)
	}
}

// SetupGroup enables the automatic pool for a group, posts its status display and
// starts polling it.
func (s *Service) SetupGroup(ctx context.Context, groupID, queueChannelID, resultsChannelID string) (*ladder.QueueConfig, error) {
	if queueChannelID == "" {
		return nil, ladder.ErrQueueNotConfigured
	}

	unlock := s.locker.Lock(ladder.PoolLock(groupID))
	existing, err := s.store.LoadConfig(ctx, groupID)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := ladder.QueueConfig{
		GroupID:          groupID,
		Enabled:          true,
		QueueChannelID:   queueChannelID,
		ResultsChannelID: resultsChannelID,
		StartedAt:        s.now(),
	}
	if existing != nil && existing.QueueChannelID == queueChannelID {
		cfg.StatusMessageID = existing.StatusMessageID
	}

	pool, err := s.store.LoadPool(ctx, groupID)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("failed to load pool: %w", err)
	}
	teams, err := s.store.LoadTeams(ctx)
	if err != nil {
		log.Warn("Failed to load team names", "error", err, "group", groupID)
	}
	names := ladder.TeamNames(teams)
	lines := make([]notifier.QueueLine, 0, len(pool))
	for _, st := range matcher.Status(pool, cfg.StartedAt) {
		lines = append(lines, notifier.QueueLine{
			Name:        ladder.DisplayName(st.TeamKey, names),
			Rating:      st.Rating,
			WaitMinutes: st.WaitMinutes,
			Range:       st.Range,
		})
	}
	id, err := s.notifier.UpsertStatus(ctx, queueChannelID, cfg.StatusMessageID, notifier.QueueStatus(lines, s.poller.Interval().String()))
	if err != nil {
		log.Warn("Failed to post queue status", "error", err, "group", groupID)
	} else {
		cfg.StatusMessageID = id
	}

	err = s.store.SaveConfig(ctx, cfg)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to save config: %w", err)
	}

	s.poller.Start(groupID)
	log.Info("Queue set up", "group", groupID, "channel", queueChannelID, "results", resultsChannelID)
	return &cfg, nil
}

// CloseGroup disables a group's pool, removes every waiting team and stops polling.
// It returns how many teams were removed.
func (s *Service) CloseGroup(ctx context.Context, groupID string) (int, error) {
	unlock := s.locker.Lock(ladder.PoolLock(groupID))
	cfg, err := s.store.LoadConfig(ctx, groupID)
	if err != nil {
		unlock()
		return 0, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg == nil {
		unlock()
		return 0, ladder.ErrQueueNotConfigured
	}
	pool, err := s.store.LoadPool(ctx, groupID)
	if err != nil {
		unlock()
		return 0, fmt.Errorf("failed to load pool: %w", err)
	}

	cfg.Enabled = false
	if err := s.store.SaveConfig(ctx, *cfg); err != nil {
		unlock()
		return 0, fmt.Errorf("failed to save config: %w", err)
	}
	if err := s.store.SavePool(ctx, groupID, nil); err != nil {
		unlock()
		return 0, fmt.Errorf("failed to clear pool: %w", err)
	}
	if cfg.QueueChannelID != "" {
		if _, err := s.notifier.UpsertStatus(ctx, cfg.QueueChannelID, cfg.StatusMessageID, notifier.QueueClosed()); err != nil {
			log.Warn("Failed to mark queue closed", "error", err, "group", groupID)
		}
	}
	unlock()

	s.poller.Stop(groupID)
	log.Info("Queue closed", "group", groupID, "removed", len(pool))
	return len(pool), nil
}
