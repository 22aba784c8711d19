package slack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/ranked-queue/internal/metrics"
	"github.com/mauv0809/ranked-queue/internal/notifier"
	"github.com/slack-go/slack"
)

const (
	requestTimeout = 10 * time.Second
	maxChannelName = 80
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	UpdateMessageContext(ctx context.Context, channelID, timestamp string, options ...slack.MsgOption) (string, string, string, error)
	CreateConversationContext(ctx context.Context, params slack.CreateConversationParams) (*slack.Channel, error)
	InviteUsersToConversationContext(ctx context.Context, channelID string, users ...string) (*slack.Channel, error)
	ArchiveConversationContext(ctx context.Context, channelID string) error
	OpenConversationContext(ctx context.Context, params *slack.OpenConversationParameters) (*slack.Channel, bool, bool, error)
}

var (
	_ notifier.Notifier       = (*Notifier)(nil)
	_ notifier.ChannelContext = (*Notifier)(nil)
)

// Notifier handles sending notifications to a Slack workspace. Message ids are
// Slack timestamps.
type Notifier struct {
	api     slackClient
	metrics metrics.Metrics
}

// NewNotifier creates a new Notifier.
func NewNotifier(token string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:     slack.New(token),
		metrics: metrics,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:     api,
		metrics: metrics,
	}
}

func textBlocks(content string) slack.MsgOption {
	return slack.MsgOptionBlocks(
		slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", content, false, false), nil, nil),
	)
}

func (s *Notifier) sendMessage(ctx context.Context, channelID, content string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	_, timestamp, err := s.api.PostMessageContext(
		ctx,
		channelID,
		textBlocks(content),
		slack.MsgOptionText(content, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		s.metrics.IncNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", channelID)
		return "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return timestamp, nil
}

func (s *Notifier) DirectMessage(ctx context.Context, userID, content string) error {
	openCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	ch, _, _, err := s.api.OpenConversationContext(openCtx, &slack.OpenConversationParameters{Users: []string{userID}})
	cancel()
	if err != nil {
		s.metrics.IncNotifFailed()
		log.Error("Failed to open Slack DM", "error", err, "user", userID)
		return fmt.Errorf("failed to open DM: %w", err)
	}
	_, err = s.sendMessage(ctx, ch.ID, content)
	return err
}

func (s *Notifier) PostChannel(ctx context.Context, channelID, content string) (string, error) {
	return s.sendMessage(ctx, channelID, content)
}

func (s *Notifier) UpsertStatus(ctx context.Context, channelID, messageID, content string) (string, error) {
	if messageID != "" {
		updCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		_, timestamp, _, err := s.api.UpdateMessageContext(updCtx, channelID, messageID, textBlocks(content), slack.MsgOptionText(content, false))
		cancel()
		if err == nil {
			s.metrics.IncNotifSent()
			return timestamp, nil
		}
		if !isMessageGone(err) {
			s.metrics.IncNotifFailed()
			return "", fmt.Errorf("failed to update status message: %w", err)
		}
		log.Warn("Status message is gone, posting a new one", "channel", channelID, "timestamp", messageID)
	}
	return s.sendMessage(ctx, channelID, content)
}

func isMessageGone(err error) bool {
	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		return slackErr.Err == "message_not_found" || slackErr.Err == "channel_not_found"
	}
	return false
}

// Create opens a private channel and invites the participants. groupID is ignored
// because a bot token is bound to one workspace.
func (s *Notifier) Create(ctx context.Context, groupID, name string, participantIDs []string) (string, error) {
	if r := []rune(name); len(r) > maxChannelName {
		name = string(r[:maxChannelName])
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	ch, err := s.api.CreateConversationContext(ctx, slack.CreateConversationParams{ChannelName: name, IsPrivate: true})
	if err != nil {
		log.Error("Failed to create match channel", "error", err, "name", name)
		return "", fmt.Errorf("failed to create channel: %w", err)
	}
	if len(participantIDs) > 0 {
		if _, err := s.api.InviteUsersToConversationContext(ctx, ch.ID, participantIDs...); err != nil {
			// Roll back the half-created channel.
			if archErr := s.api.ArchiveConversationContext(ctx, ch.ID); archErr != nil {
				log.Warn("Failed to archive channel after invite error", "channel", ch.ID, "error", archErr)
			}
			return "", fmt.Errorf("failed to invite participants: %w", err)
		}
	}
	log.Info("Created match channel", "channel", ch.ID, "name", name)
	return ch.ID, nil
}

func (s *Notifier) Post(ctx context.Context, channelRef, content string) error {
	_, err := s.sendMessage(ctx, channelRef, content)
	return err
}

func (s *Notifier) Close(ctx context.Context, channelRef string, delay time.Duration) error {
	if delay <= 0 {
		return s.archive(ctx, channelRef)
	}
	time.AfterFunc(delay, func() {
		if err := s.archive(context.Background(), channelRef); err != nil {
			log.Warn("Delayed channel close failed", "channel", channelRef, "error", err)
		}
	})
	return nil
}

func (s *Notifier) archive(ctx context.Context, channelRef string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if err := s.api.ArchiveConversationContext(ctx, channelRef); err != nil {
		return fmt.Errorf("failed to archive channel %s: %w", channelRef, err)
	}
	log.Info("Archived match channel", "channel", channelRef)
	return nil
}
