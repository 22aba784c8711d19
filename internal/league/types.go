package league

import (
	"context"
	"time"

	"github.com/mauv0809/ranked-queue/internal/ladder"
	"github.com/mauv0809/ranked-queue/internal/lifecycle"
	"github.com/mauv0809/ranked-queue/internal/notifier"
	"github.com/mauv0809/ranked-queue/internal/rating"
	"github.com/mauv0809/ranked-queue/internal/session"
)

// DefaultBaseRating is the rating of a new team and of every team after a season reset.
const DefaultBaseRating = 1000

// DefaultHistoryLimit is how many records History returns when no limit is given.
const DefaultHistoryLimit = 10

// MatchCreator opens a match between two teams and withdraws it again when the
// queue change that goes with it cannot be saved.
type MatchCreator interface {
	Create(ctx context.Context, groupID string, a, b lifecycle.Contender, autoMatched bool) (*session.Session, error)
	Cancel(ctx context.Context, matchID, reason string) error
}

// GroupPoller drives the automatic pool of each group.
type GroupPoller interface {
	Start(groupID string) bool
	Stop(groupID string)
	RefreshStatus(ctx context.Context, groupID string) error
	Interval() time.Duration
}

// Service implements team administration, queueing and ladder queries.
type Service struct {
	store      ladder.Store
	locker     *ladder.Locker
	matches    MatchCreator
	poller     GroupPoller
	notifier   notifier.Notifier
	tiers      []rating.Tier
	baseRating int
	now        func() time.Time
}

// QueueKind names which queue a team is waiting in.
type QueueKind string

const (
	QueueManual QueueKind = "manual"
	QueueAuto   QueueKind = "auto"
)

// JoinResult describes a manual-queue join. Match is set when the join completed a pair.
type JoinResult struct {
	Position int              `json:"position,omitempty"`
	Match    *session.Session `json:"match,omitempty"`
}

// Standing is one row of the leaderboard.
type Standing struct {
	Position int         `json:"position"`
	Team     ladder.Team `json:"team"`
	Tier     rating.Tier `json:"tier"`
}

// RankInfo is a team's place on the ladder.
type RankInfo struct {
	Position int             `json:"position"`
	Of       int             `json:"of"`
	Team     ladder.Team     `json:"team"`
	Progress rating.Progress `json:"progress"`
}

// QueuePosition is where a team waits inside a group.
type QueuePosition struct {
	GroupID  string        `json:"group_id"`
	Team     string        `json:"team"`
	Queue    QueueKind     `json:"queue"`
	Position int           `json:"position"`
	Of       int           `json:"of"`
	Wait     time.Duration `json:"wait"`
	Range    int           `json:"range,omitempty"`
	Uptime   time.Duration `json:"uptime,omitempty"`
}
