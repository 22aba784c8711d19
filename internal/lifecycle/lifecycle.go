package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mauv0809/ranked-queue/internal/ladder"
	"github.com/mauv0809/ranked-queue/internal/metrics"
	"github.com/mauv0809/ranked-queue/internal/notifier"
	"github.com/mauv0809/ranked-queue/internal/pubsub"
	"github.com/mauv0809/ranked-queue/internal/rating"
	"github.com/mauv0809/ranked-queue/internal/session"
)

// channelNameLimit fits every supported chat platform.
const channelNameLimit = 80

// New creates a new Manager. A non-positive closeDelay uses DefaultCloseDelay.
func New(
	store ladder.Store,
	sessions session.Store,
	channels notifier.ChannelContext,
	notifier notifier.Notifier,
	events pubsub.PubSubClient,
	metrics metrics.Metrics,
	model rating.Model,
	locker *ladder.Locker,
	closeDelay time.Duration,
) *Manager {
	if closeDelay <= 0 {
		closeDelay = DefaultCloseDelay
	}
	return &Manager{
		store:      store,
		sessions:   sessions,
		channels:   channels,
		notifier:   notifier,
		events:     events,
		metrics:    metrics,
		model:      model,
		locker:     locker,
		closeDelay: closeDelay,
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
}

// Create opens a match between a and b. If the channel cannot be opened nothing is
// registered and the caller keeps both teams where they were.
func (m *Manager) Create(ctx context.Context, groupID string, a, b Contender, autoMatched bool) (*session.Session, error) {
	matchID := "match_" + m.newID()
	name := notifier.ChannelName(a.Name, b.Name, channelNameLimit)

	var participants []string
	for _, id := range []string{a.CaptainID, b.CaptainID} {
		if id != "" {
			participants = append(participants, id)
		}
	}

	channelID, err := m.channels.Create(ctx, groupID, name, participants)
	if err != nil {
		log.Error("Failed to open match channel", "error", err, "matchID", matchID, "teamA", a.TeamKey, "teamB", b.TeamKey)
		return nil, fmt.Errorf("failed to open match channel: %w", err)
	}

	now := m.now()
	s := session.Session{
		MatchID:     matchID,
		GroupID:     groupID,
		TeamA:       a.TeamKey,
		TeamB:       b.TeamKey,
		CaptainA:    a.CaptainID,
		CaptainB:    b.CaptainID,
		ChannelID:   channelID,
		Status:      session.StatusActive,
		Votes:       map[string]string{},
		AutoMatched: autoMatched,
		CreatedAt:   now,
	}
	if err := m.sessions.Create(ctx, s); err != nil {
		m.discardChannel(ctx, channelID)
		return nil, fmt.Errorf("failed to register match: %w", err)
	}

	if !autoMatched {
		start := ladder.MatchStart{
			ID:        matchID,
			GroupID:   groupID,
			Team1:     a.TeamKey,
			Team2:     b.TeamKey,
			ChannelID: channelID,
			Status:    ladder.MatchStartActive,
			CreatedAt: now,
		}
		if err := m.store.SaveMatchStart(ctx, start); err != nil {
			if delErr := m.sessions.Delete(ctx, matchID); delErr != nil {
				log.Error("Failed to remove session after match start error", "error", delErr, "matchID", matchID)
			}
			m.discardChannel(ctx, channelID)
			return nil, fmt.Errorf("failed to record match start: %w", err)
		}
	}

	m.metrics.IncMatchesCreated()
	log.Info("Match created", "matchID", matchID, "group", groupID, "teamA", a.TeamKey, "teamB", b.TeamKey, "auto", autoMatched)

	sideA := notifier.Side{Name: a.Name, Rating: a.Rating}
	sideB := notifier.Side{Name: b.Name, Rating: b.Rating}
	if err := m.channels.Post(ctx, channelID, notifier.MatchInfo(sideA, sideB, autoMatched)); err != nil {
		log.Warn("Failed to post match info", "error", err, "matchID", matchID)
	}
	m.dm(ctx, a.CaptainID, notifier.CaptainMatched(a.Name, sideB, "#"+name))
	m.dm(ctx, b.CaptainID, notifier.CaptainMatched(b.Name, sideA, "#"+name))

	m.publish(pubsub.MatchEvent{
		Type:        pubsub.EventMatchCreated,
		MatchID:     matchID,
		GroupID:     groupID,
		TeamA:       a.TeamKey,
		TeamB:       b.TeamKey,
		AutoMatched: autoMatched,
		OccurredAt:  now,
	})

	out := s.Clone()
	return &out, nil
}

// CastVote records one side's report. When both sides have reported the same
// participant the match settles; any other pair of reports is a dispute.
func (m *Manager) CastVote(ctx context.Context, v Vote) (*Result, error) {
	voting := ladder.TeamKey(v.VotingTeam)
	winner := ladder.TeamKey(v.VotedWinner)

	var outcome Outcome
	s, err := m.sessions.Update(ctx, v.MatchID, func(s *session.Session) error {
		if s.Status != session.StatusActive {
			return ErrSessionNotFound
		}
		if !s.IsParticipant(voting) {
			return ErrNotParticipant
		}
		s.Votes[voting] = winner

		_, votedA := s.Votes[s.TeamA]
		_, votedB := s.Votes[s.TeamB]
		if !votedA || !votedB {
			outcome = OutcomePending
			return nil
		}
		if _, ok := s.Agreement(); ok {
			at := m.now()
			s.Status = session.StatusCompleted
			s.CompletedAt = &at
			outcome = OutcomeSettled
			return nil
		}
		s.Votes = map[string]string{}
		s.DisputeRounds++
		outcome = OutcomeDisputed
		return nil
	})
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	result := &Result{Outcome: outcome, MatchID: s.MatchID, DisputeRounds: s.DisputeRounds}
	switch outcome {
	case OutcomePending:
		log.Info("Vote recorded", "matchID", s.MatchID, "team", voting, "winner", winner)
		if err := m.channels.Post(ctx, s.ChannelID, notifier.VoteRecorded(voting, winner)); err != nil {
			log.Warn("Failed to post vote acknowledgement", "error", err, "matchID", s.MatchID)
		}
	case OutcomeDisputed:
		m.metrics.IncDisputes()
		log.Warn("Captains disagree on the result", "matchID", s.MatchID, "round", s.DisputeRounds)
		msg := notifier.Dispute(s.DisputeRounds)
		if err := m.channels.Post(ctx, s.ChannelID, msg); err != nil {
			log.Warn("Failed to post dispute notice", "error", err, "matchID", s.MatchID)
		}
		m.dm(ctx, s.CaptainA, msg)
		m.dm(ctx, s.CaptainB, msg)
	case OutcomeSettled:
		record, err := m.settle(ctx, s)
		if err != nil {
			return nil, err
		}
		result.Record = record
	}
	return result, nil
}

// settle applies the rating change and persists the outcome. s has already been
// marked completed, so no other vote can reach this point for the same match.
func (m *Manager) settle(ctx context.Context, s *session.Session) (*ladder.MatchRecord, error) {
	winnerKey, _ := s.Agreement()
	loserKey := s.Opponent(winnerKey)

	unlock := m.locker.Lock(ladder.TeamsLock)
	teams, err := m.store.LoadTeams(ctx)
	if err != nil {
		unlock()
		m.reopen(ctx, s.MatchID)
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}
	winner, okW := teams[winnerKey]
	loser, okL := teams[loserKey]
	if !okW || !okL {
		unlock()
		m.abandon(ctx, s, "team no longer exists")
		return nil, ErrTeamNotFound
	}

	winnerChange, loserChange := m.model.Apply(&winner.Rating, &loser.Rating)
	winner.Wins++
	loser.Losses++
	record := ladder.MatchRecord{
		ID:                 s.MatchID,
		Team1:              s.TeamA,
		Team2:              s.TeamB,
		Winner:             winnerKey,
		WinnerRatingChange: winnerChange,
		LoserRatingChange:  loserChange,
		CompletedAt:        *s.CompletedAt,
	}
	err = m.store.RecordSettlement(ctx, []ladder.Team{winner, loser}, record)
	unlock()
	if err != nil {
		m.reopen(ctx, s.MatchID)
		return nil, fmt.Errorf("failed to record settlement: %w", err)
	}

	if !s.AutoMatched {
		if err := m.store.CompleteMatchStart(ctx, s.MatchID, record.CompletedAt); err != nil {
			log.Error("Failed to complete match start", "error", err, "matchID", s.MatchID)
		}
	}
	if err := m.sessions.Delete(ctx, s.MatchID); err != nil {
		log.Error("Failed to remove settled session", "error", err, "matchID", s.MatchID)
	}
	m.metrics.IncMatchesSettled()
	log.Info("Match settled", "matchID", s.MatchID, "winner", winnerKey, "winnerRating", winner.Rating, "loser", loserKey, "loserRating", loser.Rating, "disputes", s.DisputeRounds)

	msg := notifier.Settlement(
		notifier.Side{Name: winner.Name, Rating: winner.Rating},
		notifier.Side{Name: loser.Name, Rating: loser.Rating},
		winnerChange, loserChange,
	)
	if err := m.channels.Post(ctx, s.ChannelID, msg); err != nil {
		log.Warn("Failed to post settlement", "error", err, "matchID", s.MatchID)
	}
	m.postResults(ctx, s.GroupID, msg)
	if err := m.channels.Close(ctx, s.ChannelID, m.closeDelay); err != nil {
		log.Warn("Failed to close match channel", "error", err, "matchID", s.MatchID)
	}

	m.publish(pubsub.MatchEvent{
		Type:               pubsub.EventMatchSettled,
		MatchID:            s.MatchID,
		GroupID:            s.GroupID,
		TeamA:              s.TeamA,
		TeamB:              s.TeamB,
		AutoMatched:        s.AutoMatched,
		Winner:             winnerKey,
		WinnerRatingChange: winnerChange,
		LoserRatingChange:  loserChange,
		OccurredAt:         record.CompletedAt,
	})
	return &record, nil
}

// reopen puts a completed session back to active after a failed settlement so the
// next vote retries it. The recorded votes are kept.
func (m *Manager) reopen(ctx context.Context, matchID string) {
	_, err := m.sessions.Update(ctx, matchID, func(s *session.Session) error {
		s.Status = session.StatusActive
		s.CompletedAt = nil
		return nil
	})
	if err != nil {
		log.Error("Failed to reopen session after settlement error", "error", err, "matchID", matchID)
	}
}

func (m *Manager) abandon(ctx context.Context, s *session.Session, reason string) {
	if err := m.sessions.Delete(ctx, s.MatchID); err != nil {
		log.Error("Failed to remove abandoned session", "error", err, "matchID", s.MatchID)
	}
	if !s.AutoMatched {
		if err := m.store.CompleteMatchStart(ctx, s.MatchID, m.now()); err != nil {
			log.Error("Failed to complete match start", "error", err, "matchID", s.MatchID)
		}
	}
	m.metrics.IncSessionsAbandoned()
	log.Error("Match abandoned", "matchID", s.MatchID, "teamA", s.TeamA, "teamB", s.TeamB, "reason", reason)

	if err := m.channels.Post(ctx, s.ChannelID, "❌ This match was abandoned: "+reason+". No ratings were changed."); err != nil {
		log.Warn("Failed to post abandon notice", "error", err, "matchID", s.MatchID)
	}
	if err := m.channels.Close(ctx, s.ChannelID, m.closeDelay); err != nil {
		log.Warn("Failed to close match channel", "error", err, "matchID", s.MatchID)
	}
	m.publish(pubsub.MatchEvent{
		Type:        pubsub.EventMatchAbandoned,
		MatchID:     s.MatchID,
		GroupID:     s.GroupID,
		TeamA:       s.TeamA,
		TeamB:       s.TeamB,
		AutoMatched: s.AutoMatched,
		Reason:      reason,
		OccurredAt:  m.now(),
	})
}

// Cancel withdraws a match whose creator could not commit the queue change that went
// with it. The session is removed, its channel closed at once and nothing is recorded.
// A match that already reached settlement cannot be cancelled.
func (m *Manager) Cancel(ctx context.Context, matchID, reason string) error {
	s, err := m.sessions.Update(ctx, matchID, func(s *session.Session) error {
		if s.Status != session.StatusActive {
			return ErrSessionNotFound
		}
		s.Status = session.StatusCompleted
		return nil
	})
	if errors.Is(err, session.ErrNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}

	if err := m.sessions.Delete(ctx, matchID); err != nil {
		log.Error("Failed to remove cancelled session", "error", err, "matchID", matchID)
	}
	if !s.AutoMatched {
		if err := m.store.CompleteMatchStart(ctx, matchID, m.now()); err != nil {
			log.Error("Failed to complete match start", "error", err, "matchID", matchID)
		}
	}
	m.discardChannel(ctx, s.ChannelID)
	m.metrics.IncSessionsAbandoned()
	log.Warn("Match cancelled", "matchID", matchID, "teamA", s.TeamA, "teamB", s.TeamB, "reason", reason)

	m.publish(pubsub.MatchEvent{
		Type:        pubsub.EventMatchAbandoned,
		MatchID:     matchID,
		GroupID:     s.GroupID,
		TeamA:       s.TeamA,
		TeamB:       s.TeamB,
		AutoMatched: s.AutoMatched,
		Reason:      reason,
		OccurredAt:  m.now(),
	})
	return nil
}

// Session returns the match session for matchID.
func (m *Manager) Session(ctx context.Context, matchID string) (*session.Session, error) {
	s, err := m.sessions.Get(ctx, matchID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// Active lists matches still waiting for a result.
func (m *Manager) Active(ctx context.Context) ([]session.Session, error) {
	all, err := m.sessions.List(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]session.Session, 0, len(all))
	for _, s := range all {
		if s.Status == session.StatusActive {
			active = append(active, s)
		}
	}
	return active, nil
}

func (m *Manager) postResults(ctx context.Context, groupID, msg string) {
	cfg, err := m.store.LoadConfig(ctx, groupID)
	if err != nil {
		log.Warn("Failed to load group config for results", "error", err, "group", groupID)
		return
	}
	if cfg == nil || cfg.ResultsChannelID == "" {
		return
	}
	if _, err := m.notifier.PostChannel(ctx, cfg.ResultsChannelID, msg); err != nil {
		log.Warn("Failed to post to results channel", "error", err, "group", groupID)
	}
}

func (m *Manager) discardChannel(ctx context.Context, channelID string) {
	if err := m.channels.Close(ctx, channelID, 0); err != nil {
		log.Warn("Failed to close unused match channel", "error", err, "channel", channelID)
	}
}

func (m *Manager) dm(ctx context.Context, userID, content string) {
	if userID == "" {
		return
	}
	if err := m.notifier.DirectMessage(ctx, userID, content); err != nil {
		log.Warn("Failed to DM captain", "error", err, "user", userID)
	}
}

func (m *Manager) publish(event pubsub.MatchEvent) {
	if err := m.events.SendMessage(event.Type, event); err != nil {
		log.Warn("Failed to publish match event", "error", err, "type", event.Type, "matchID", event.MatchID)
	}
}
