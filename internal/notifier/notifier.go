package notifier

import (
	"context"
	"time"
)

// Notifier delivers messages to users and channels. Direct messages are best effort:
// callers log failures and carry on.
type Notifier interface {
	// DirectMessage sends content privately to a user.
	DirectMessage(ctx context.Context, userID, content string) error
	// PostChannel posts content to a channel and returns the message id.
	PostChannel(ctx context.Context, channelID, content string) (string, error)
	// UpsertStatus edits messageID in place, or posts a new message when messageID is empty
	// or no longer exists. It returns the id of the message now holding the status.
	UpsertStatus(ctx context.Context, channelID, messageID, content string) (string, error)
}

// ChannelContext manages the isolated channel a match is reported in.
type ChannelContext interface {
	// Create opens a private channel named name inside groupID visible to participantIDs.
	Create(ctx context.Context, groupID, name string, participantIDs []string) (string, error)
	// Post writes content into the channel.
	Post(ctx context.Context, channelRef, content string) error
	// Close tears the channel down after delay. A zero delay closes it immediately.
	Close(ctx context.Context, channelRef string, delay time.Duration) error
}
