package ladder

import (
	"context"
	"time"
)

// Store persists the ladder's collections. Each call is atomic for the collection it touches;
// callers serialize read-modify-write sequences with a Locker.
type Store interface {
	// LoadTeams returns the whole registry keyed by team key.
	LoadTeams(ctx context.Context) (map[string]Team, error)
	// SaveTeams replaces the registry with teams.
	SaveTeams(ctx context.Context, teams map[string]Team) error

	// LoadQueue returns a group's manual queue in FIFO order.
	LoadQueue(ctx context.Context, groupID string) ([]QueueEntry, error)
	// SaveQueue replaces a group's manual queue.
	SaveQueue(ctx context.Context, groupID string, entries []QueueEntry) error
	// QueueGroups lists groups with a non-empty manual queue.
	QueueGroups(ctx context.Context) ([]string, error)

	// LoadPool returns a group's automatic pool in arrival order.
	LoadPool(ctx context.Context, groupID string) ([]AutoQueueEntry, error)
	// SavePool replaces a group's automatic pool.
	SavePool(ctx context.Context, groupID string, entries []AutoQueueEntry) error

	// LoadConfig returns a group's queue config, or nil when the group was never set up.
	LoadConfig(ctx context.Context, groupID string) (*QueueConfig, error)
	// SaveConfig upserts a group's queue config.
	SaveConfig(ctx context.Context, cfg QueueConfig) error
	// ListConfigs returns every known group config.
	ListConfigs(ctx context.Context) ([]QueueConfig, error)

	// LoadHistory returns all match records, oldest first.
	LoadHistory(ctx context.Context) ([]MatchRecord, error)
	// AppendHistory adds a match record.
	AppendHistory(ctx context.Context, record MatchRecord) error
	// RecordSettlement writes the updated teams and the match record in one unit.
	RecordSettlement(ctx context.Context, teams []Team, record MatchRecord) error

	// SaveMatchStart persists a manual-queue match start.
	SaveMatchStart(ctx context.Context, start MatchStart) error
	// CompleteMatchStart marks a match start as completed. Unknown ids are ignored.
	CompleteMatchStart(ctx context.Context, id string, at time.Time) error
	// ListMatchStarts returns every match start record, newest first.
	ListMatchStarts(ctx context.Context) ([]MatchStart, error)
}
