package slack

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mauv0809/ranked-queue/internal/metrics"
	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSlackAPI is a mock implementation of the parts of the slack.Client that we use.
type mockSlackAPI struct {
	mu sync.Mutex

	postMessageContextFunc   func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
	updateMessageContextFunc func(ctx context.Context, channelID, timestamp string, options ...slackapi.MsgOption) (string, string, string, error)
	inviteErr                error

	created  []slackapi.CreateConversationParams
	invited  map[string][]string
	archived []string
	opened   []string
}

func (m *mockSlackAPI) PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	if m.postMessageContextFunc != nil {
		return m.postMessageContextFunc(ctx, channelID, options...)
	}
	return channelID, "123456789.12345", nil
}

func (m *mockSlackAPI) UpdateMessageContext(ctx context.Context, channelID, timestamp string, options ...slackapi.MsgOption) (string, string, string, error) {
	if m.updateMessageContextFunc != nil {
		return m.updateMessageContextFunc(ctx, channelID, timestamp, options...)
	}
	return channelID, timestamp, "", nil
}

func (m *mockSlackAPI) CreateConversationContext(ctx context.Context, params slackapi.CreateConversationParams) (*slackapi.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, params)
	ch := &slackapi.Channel{}
	ch.ID = "G123"
	return ch, nil
}

func (m *mockSlackAPI) InviteUsersToConversationContext(ctx context.Context, channelID string, users ...string) (*slackapi.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inviteErr != nil {
		return nil, m.inviteErr
	}
	if m.invited == nil {
		m.invited = map[string][]string{}
	}
	m.invited[channelID] = append(m.invited[channelID], users...)
	return nil, nil
}

func (m *mockSlackAPI) ArchiveConversationContext(ctx context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archived = append(m.archived, channelID)
	return nil
}

func (m *mockSlackAPI) OpenConversationContext(ctx context.Context, params *slackapi.OpenConversationParameters) (*slackapi.Channel, bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = append(m.opened, params.Users...)
	ch := &slackapi.Channel{}
	ch.ID = "D-" + params.Users[0]
	return ch, false, false, nil
}

func (m *mockSlackAPI) archivedChannels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.archived...)
}

func TestSendMessage_Success(t *testing.T) {
	postMessageCalled := false
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			assert.Equal(t, "C123", channelID)
			return "C123", "ts123", nil
		},
	}

	metrics := metrics.NewMock()
	notifier := NewNotifierWithAPI(api, metrics)

	ts, err := notifier.PostChannel(context.Background(), "C123", "hello")

	require.NoError(t, err)
	assert.Equal(t, "ts123", ts)
	assert.True(t, postMessageCalled, "PostMessageContext should have been called")
	assert.Equal(t, 1, metrics.NotifSent())
	assert.Equal(t, 0, metrics.NotifFailed())
}

func TestSendMessage_Failure(t *testing.T) {
	expectedErr := errors.New("slack API is down")
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			return "", "", expectedErr
		},
	}

	metrics := metrics.NewMock()
	notifier := NewNotifierWithAPI(api, metrics)

	err := notifier.Post(context.Background(), "C123", "hello")

	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.Equal(t, 0, metrics.NotifSent())
	assert.Equal(t, 1, metrics.NotifFailed())
}

func TestDirectMessage_OpensConversation(t *testing.T) {
	var postedTo string
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postedTo = channelID
			return channelID, "ts", nil
		},
	}
	notifier := NewNotifierWithAPI(api, metrics.NewMock())

	require.NoError(t, notifier.DirectMessage(context.Background(), "U1", "matched"))
	assert.Equal(t, []string{"U1"}, api.opened)
	assert.Equal(t, "D-U1", postedTo)
}

func TestCreate(t *testing.T) {
	t.Run("private channel with participants", func(t *testing.T) {
		api := &mockSlackAPI{}
		notifier := NewNotifierWithAPI(api, metrics.NewMock())

		id, err := notifier.Create(context.Background(), "T1", "match-alpha-vs-beta", []string{"U1", "U2"})
		require.NoError(t, err)
		assert.Equal(t, "G123", id)
		require.Len(t, api.created, 1)
		assert.True(t, api.created[0].IsPrivate)
		assert.Equal(t, "match-alpha-vs-beta", api.created[0].ChannelName)
		assert.Equal(t, []string{"U1", "U2"}, api.invited["G123"])
	})

	t.Run("long names are truncated", func(t *testing.T) {
		api := &mockSlackAPI{}
		notifier := NewNotifierWithAPI(api, metrics.NewMock())

		_, err := notifier.Create(context.Background(), "T1", strings.Repeat("x", 120), nil)
		require.NoError(t, err)
		assert.Len(t, api.created[0].ChannelName, maxChannelName)
	})

	t.Run("invite failure archives the channel", func(t *testing.T) {
		api := &mockSlackAPI{inviteErr: errors.New("user_not_found")}
		notifier := NewNotifierWithAPI(api, metrics.NewMock())

		_, err := notifier.Create(context.Background(), "T1", "match-a-vs-b", []string{"U1"})
		require.Error(t, err)
		assert.Equal(t, []string{"G123"}, api.archivedChannels())
	})
}

func TestUpsertStatus(t *testing.T) {
	t.Run("updates existing message", func(t *testing.T) {
		posted := false
		api := &mockSlackAPI{
			postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
				posted = true
				return channelID, "new", nil
			},
		}
		notifier := NewNotifierWithAPI(api, metrics.NewMock())
		ts, err := notifier.UpsertStatus(context.Background(), "C1", "111.1", "status")
		require.NoError(t, err)
		assert.Equal(t, "111.1", ts)
		assert.False(t, posted)
	})

	t.Run("reposts when the message is gone", func(t *testing.T) {
		api := &mockSlackAPI{
			updateMessageContextFunc: func(ctx context.Context, channelID, timestamp string, options ...slackapi.MsgOption) (string, string, string, error) {
				return "", "", "", slackapi.SlackErrorResponse{Err: "message_not_found"}
			},
			postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
				return channelID, "222.2", nil
			},
		}
		notifier := NewNotifierWithAPI(api, metrics.NewMock())
		ts, err := notifier.UpsertStatus(context.Background(), "C1", "111.1", "status")
		require.NoError(t, err)
		assert.Equal(t, "222.2", ts)
	})

	t.Run("other errors are returned", func(t *testing.T) {
		api := &mockSlackAPI{
			updateMessageContextFunc: func(ctx context.Context, channelID, timestamp string, options ...slackapi.MsgOption) (string, string, string, error) {
				return "", "", "", errors.New("ratelimited")
			},
		}
		m := metrics.NewMock()
		notifier := NewNotifierWithAPI(api, m)
		_, err := notifier.UpsertStatus(context.Background(), "C1", "111.1", "status")
		assert.Error(t, err)
		assert.Equal(t, 1, m.NotifFailed())
	})
}

func TestClose(t *testing.T) {
	api := &mockSlackAPI{}
	notifier := NewNotifierWithAPI(api, metrics.NewMock())

	require.NoError(t, notifier.Close(context.Background(), "G1", 0))
	assert.Equal(t, []string{"G1"}, api.archivedChannels())

	require.NoError(t, notifier.Close(context.Background(), "G2", 10*time.Millisecond))
	assert.Eventually(t, func() bool { return len(api.archivedChannels()) == 2 }, time.Second, 5*time.Millisecond)
}
