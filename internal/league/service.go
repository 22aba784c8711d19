package league

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/ranked-queue/internal/ladder"
	"github.com/mauv0809/ranked-queue/internal/notifier"
	"github.com/mauv0809/ranked-queue/internal/rating"
)

// New creates a new Service. Empty tiers use rating.DefaultTiers and a non-positive
// baseRating uses DefaultBaseRating.
func New(store ladder.Store, locker *ladder.Locker, matches MatchCreator, poller GroupPoller, notifier notifier.Notifier, tiers []rating.Tier, baseRating int) *Service {
	if len(tiers) == 0 {
		tiers = rating.DefaultTiers
	}
	if baseRating <= 0 {
		baseRating = DefaultBaseRating
	}
	return &Service{
		store:      store,
		locker:     locker,
		matches:    matches,
		poller:     poller,
		notifier:   notifier,
		tiers:      tiers,
		baseRating: baseRating,
		now:        time.Now,
	}
}

// Tiers returns the tier table in use.
func (s *Service) Tiers() []rating.Tier {
	return s.tiers
}

// CreateTeam registers a team without a captain at the base rating.
func (s *Service) CreateTeam(ctx context.Context, name string) (*ladder.Team, error) {
	name = strings.TrimSpace(name)
	key := ladder.TeamKey(name)
	if key == "" {
		return nil, ladder.ErrInvalidName
	}

	var created ladder.Team
	err := s.updateTeams(ctx, func(teams map[string]ladder.Team) error {
		if _, ok := teams[key]; ok {
			return ladder.ErrTeamExists
		}
		created = ladder.Team{
			Key:       key,
			Name:      name,
			Members:   []string{},
			Rating:    s.baseRating,
			CreatedAt: s.now(),
		}
		teams[key] = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("Created team", "team", key)
	return &created, nil
}

// AddMember puts userID on the roster. Only the captain may add members.
func (s *Service) AddMember(ctx context.Context, team, callerID, userID string) (*ladder.Team, error) {
	return s.editTeam(ctx, team, func(t *ladder.Team) error {
		if !t.IsCaptain(callerID) {
			return ladder.ErrNotCaptain
		}
		if t.HasMember(userID) {
			return ladder.ErrAlreadyMember
		}
		t.Members = append(t.Members, userID)
		return nil
	})
}

// RemoveMember takes userID off the roster. Only the captain may remove members and
// the captain cannot remove themselves.
func (s *Service) RemoveMember(ctx context.Context, team, callerID, userID string) (*ladder.Team, error) {
	return s.editTeam(ctx, team, func(t *ladder.Team) error {
		if !t.IsCaptain(callerID) {
			return ladder.ErrNotCaptain
		}
		if t.IsCaptain(userID) {
			return ladder.ErrCannotRemoveCaptain
		}
		i := slices.Index(t.Members, userID)
		if i < 0 {
			return ladder.ErrNotMember
		}
		t.Members = slices.Delete(t.Members, i, i+1)
		return nil
	})
}

// SetCaptain makes userID the captain, adding them to the roster if needed.
func (s *Service) SetCaptain(ctx context.Context, team, userID string) (*ladder.Team, error) {
	return s.editTeam(ctx, team, func(t *ladder.Team) error {
		t.CaptainID = &userID
		if !slices.Contains(t.Members, userID) {
			t.Members = append(t.Members, userID)
		}
		return nil
	})
}

// SetRating overrides a team's rating. Negative values are clamped to zero.
func (s *Service) SetRating(ctx context.Context, team string, value int) (*ladder.Team, error) {
	return s.editTeam(ctx, team, func(t *ladder.Team) error {
		t.Rating = max(0, value)
		return nil
	})
}

// ClearTeams deletes every team and empties every queue and pool.
func (s *Service) ClearTeams(ctx context.Context, confirm bool) (int, error) {
	if !confirm {
		return 0, ladder.ErrConfirmationRequired
	}
	unlockMembership := s.locker.Lock(ladder.MembershipLock)
	defer unlockMembership()

	var removed int
	err := s.updateTeams(ctx, func(teams map[string]ladder.Team) error {
		removed = len(teams)
		clear(teams)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := s.clearQueues(ctx, true); err != nil {
		return removed, err
	}
	log.Warn("Cleared all teams", "count", removed)
	return removed, nil
}

// ResetSeason puts every team back to the base rating with no wins or losses and
// empties the manual queues. Match history is kept; the number of archived records
// is returned.
func (s *Service) ResetSeason(ctx context.Context) (int, error) {
	unlockMembership := s.locker.Lock(ladder.MembershipLock)
	defer unlockMembership()

	err := s.updateTeams(ctx, func(teams map[string]ladder.Team) error {
		for k, t := range teams {
			t.Rating = s.baseRating
			t.Wins = 0
			t.Losses = 0
			teams[k] = t
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := s.clearQueues(ctx, false); err != nil {
		return 0, err
	}
	history, err := s.store.LoadHistory(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load history: %w", err)
	}
	log.Info("Season reset", "archivedMatches", len(history))
	return len(history), nil
}

// clearQueues must be called with the membership lock held.
func (s *Service) clearQueues(ctx context.Context, pools bool) error {
	groups, err := s.store.QueueGroups(ctx)
	if err != nil {
		return fmt.Errorf("failed to list queues: %w", err)
	}
	for _, g := range groups {
		unlock := s.locker.Lock(ladder.QueueLock(g))
		err := s.store.SaveQueue(ctx, g, nil)
		unlock()
		if err != nil {
			return err
		}
	}
	if !pools {
		return nil
	}
	configs, err := s.store.ListConfigs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list groups: %w", err)
	}
	for _, cfg := range configs {
		unlock := s.locker.Lock(ladder.PoolLock(cfg.GroupID))
		err := s.store.SavePool(ctx, cfg.GroupID, nil)
		unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) updateTeams(ctx context.Context, fn func(map[string]ladder.Team) error) error {
	unlock := s.locker.Lock(ladder.TeamsLock)
	defer unlock()

	teams, err := s.store.LoadTeams(ctx)
	if err != nil {
		return fmt.Errorf("failed to load teams: %w", err)
	}
	if err := fn(teams); err != nil {
		return err
	}
	if err := s.store.SaveTeams(ctx, teams); err != nil {
		return fmt.Errorf("failed to save teams: %w", err)
	}
	return nil
}

func (s *Service) editTeam(ctx context.Context, team string, fn func(*ladder.Team) error) (*ladder.Team, error) {
	key := ladder.TeamKey(team)
	var edited ladder.Team
	err := s.updateTeams(ctx, func(teams map[string]ladder.Team) error {
		t, ok := teams[key]
		if !ok {
			return ladder.ErrTeamNotFound
		}
		if err := fn(&t); err != nil {
			return err
		}
		teams[key] = t
		edited = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &edited, nil
}

func (s *Service) team(ctx context.Context, team string) (ladder.Team, error) {
	teams, err := s.store.LoadTeams(ctx)
	if err != nil {
		return ladder.Team{}, fmt.Errorf("failed to load teams: %w", err)
	}
	t, ok := teams[ladder.TeamKey(team)]
	if !ok {
		return ladder.Team{}, ladder.ErrTeamNotFound
	}
	return t, nil
}
