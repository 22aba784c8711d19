package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
	"github.com/mauv0809/ranked-queue/internal/metrics"
	"github.com/mauv0809/ranked-queue/internal/notifier"
)

const requestTimeout = 10 * time.Second

// discordSession contains the methods from discordgo.Session that we use.
type discordSession interface {
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

var (
	_ notifier.Notifier       = (*Notifier)(nil)
	_ notifier.ChannelContext = (*Notifier)(nil)
)

// Notifier talks to a Discord guild. A group id is the guild id; match channels are
// private text channels under an optional category.
type Notifier struct {
	api        discordSession
	guildID    string
	categoryID string
	metrics    metrics.Metrics
}

// NewNotifier opens a bot session with token.
func NewNotifier(token, guildID, categoryID string, metrics metrics.Metrics) (*Notifier, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return NewNotifierWithAPI(s, guildID, categoryID, metrics), nil
}

// NewNotifierWithAPI creates a Notifier over an existing session. Useful for tests.
func NewNotifierWithAPI(api discordSession, guildID, categoryID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{api: api, guildID: guildID, categoryID: categoryID, metrics: metrics}
}

func (n *Notifier) guild(groupID string) string {
	if groupID != "" {
		return groupID
	}
	return n.guildID
}

func (n *Notifier) record(err error) {
	if err != nil {
		n.metrics.IncNotifFailed()
		return
	}
	n.metrics.IncNotifSent()
}

func (n *Notifier) send(ctx context.Context, channelID, content string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	msg, err := n.api.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	n.record(err)
	if err != nil {
		log.Error("Failed to send Discord message", "error", err, "channel", channelID)
		return "", fmt.Errorf("failed to post message: %w", err)
	}
	return msg.ID, nil
}

func (n *Notifier) DirectMessage(ctx context.Context, userID, content string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	dm, err := n.api.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		n.metrics.IncNotifFailed()
		log.Error("Failed to open Discord DM", "error", err, "user", userID)
		return fmt.Errorf("failed to open DM: %w", err)
	}
	_, err = n.send(ctx, dm.ID, content)
	return err
}

func (n *Notifier) PostChannel(ctx context.Context, channelID, content string) (string, error) {
	return n.send(ctx, channelID, content)
}

func (n *Notifier) UpsertStatus(ctx context.Context, channelID, messageID, content string) (string, error) {
	if messageID != "" {
		editCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		msg, err := n.api.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(editCtx))
		cancel()
		if err == nil {
			n.metrics.IncNotifSent()
			return msg.ID, nil
		}
		if !isNotFound(err) {
			n.metrics.IncNotifFailed()
			return "", fmt.Errorf("failed to edit status message: %w", err)
		}
		log.Warn("Status message is gone, posting a new one", "channel", channelID, "message", messageID)
	}
	return n.send(ctx, channelID, content)
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

func (n *Notifier) Create(ctx context.Context, groupID, name string, participantIDs []string) (string, error) {
	guildID := n.guild(groupID)
	// @everyone shares the guild's id.
	overwrites := []*discordgo.PermissionOverwrite{{
		ID:   guildID,
		Type: discordgo.PermissionOverwriteTypeRole,
		Deny: discordgo.PermissionViewChannel,
	}}
	for _, id := range participantIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    id,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	ch, err := n.api.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             n.categoryID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		log.Error("Failed to create match channel", "error", err, "guild", guildID, "name", name)
		return "", fmt.Errorf("failed to create channel: %w", err)
	}
	log.Info("Created match channel", "guild", guildID, "channel", ch.ID, "name", ch.Name)
	return ch.ID, nil
}

func (n *Notifier) Post(ctx context.Context, channelRef, content string) error {
	_, err := n.send(ctx, channelRef, content)
	return err
}

func (n *Notifier) Close(ctx context.Context, channelRef string, delay time.Duration) error {
	if delay <= 0 {
		return n.deleteChannel(ctx, channelRef)
	}
	time.AfterFunc(delay, func() {
		if err := n.deleteChannel(context.Background(), channelRef); err != nil {
			log.Warn("Delayed channel close failed", "channel", channelRef, "error", err)
		}
	})
	return nil
}

func (n *Notifier) deleteChannel(ctx context.Context, channelRef string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if _, err := n.api.ChannelDelete(channelRef, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete channel %s: %w", channelRef, err)
	}
	log.Info("Closed match channel", "channel", channelRef)
	return nil
}
