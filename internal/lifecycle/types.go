package lifecycle

import (
	"errors"
	"time"

	"github.com/mauv0809/ranked-queue/internal/ladder"
	"github.com/mauv0809/ranked-queue/internal/metrics"
	"github.com/mauv0809/ranked-queue/internal/notifier"
	"github.com/mauv0809/ranked-queue/internal/pubsub"
	"github.com/mauv0809/ranked-queue/internal/rating"
	"github.com/mauv0809/ranked-queue/internal/session"
)

var (
	ErrSessionNotFound = errors.New("no active match with that id")
	ErrNotParticipant  = errors.New("team is not part of this match")
	ErrTeamNotFound    = errors.New("team no longer exists")
)

// DefaultCloseDelay is how long a finished match channel stays open.
const DefaultCloseDelay = 60 * time.Second

// Contender is one side of a match as seen when it is created.
type Contender struct {
	TeamKey   string
	Name      string
	CaptainID string
	Rating    int
}

// ContenderFromTeam builds a Contender from a registry entry.
func ContenderFromTeam(t ladder.Team) Contender {
	return Contender{TeamKey: t.Key, Name: t.Name, CaptainID: t.Captain(), Rating: t.Rating}
}

// Vote is a captain reporting the winner of a match on behalf of their team.
type Vote struct {
	MatchID     string `json:"match_id"`
	VotingTeam  string `json:"voting_team"`
	VotedWinner string `json:"voted_winner"`
}

// Outcome is what a vote led to.
type Outcome string

const (
	OutcomePending  Outcome = "pending"
	OutcomeDisputed Outcome = "disputed"
	OutcomeSettled  Outcome = "settled"
)

// Result is returned by CastVote. Record is set only when the match settled.
type Result struct {
	Outcome       Outcome             `json:"outcome"`
	MatchID       string              `json:"match_id"`
	DisputeRounds int                 `json:"dispute_rounds"`
	Record        *ladder.MatchRecord `json:"record,omitempty"`
}

// Manager runs matches from creation through settlement.
type Manager struct {
	store      ladder.Store
	sessions   session.Store
	channels   notifier.ChannelContext
	notifier   notifier.Notifier
	events     pubsub.PubSubClient
	metrics    metrics.Metrics
	model      rating.Model
	locker     *ladder.Locker
	closeDelay time.Duration

	now   func() time.Time
	newID func() string
}
