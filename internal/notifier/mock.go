package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock is a mock implementation of Notifier and ChannelContext for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	DirectMessageFunc func(userID, content string) error
	PostChannelFunc   func(channelID, content string) (string, error)
	UpsertStatusFunc  func(channelID, messageID, content string) (string, error)
	CreateFunc        func(groupID, name string, participantIDs []string) (string, error)
	PostFunc          func(channelRef, content string) error

	DirectMessageCalls []DirectMessageCall
	PostChannelCalls   []PostCall
	UpsertStatusCalls  []UpsertStatusCall
	CreateCalls        []CreateCall
	PostCalls          []PostCall
	CloseCalls         []CloseCall

	created int
}

type DirectMessageCall struct {
	UserID  string
	Content string
}

type PostCall struct {
	ChannelID string
	Content   string
}

type UpsertStatusCall struct {
	ChannelID string
	MessageID string
	Content   string
}

type CreateCall struct {
	GroupID        string
	Name           string
	ParticipantIDs []string
}

type CloseCall struct {
	ChannelRef string
	Delay      time.Duration
}

var (
	_ Notifier       = (*Mock)(nil)
	_ ChannelContext = (*Mock)(nil)
)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DirectMessageCalls = nil
	m.PostChannelCalls = nil
	m.UpsertStatusCalls = nil
	m.CreateCalls = nil
	m.PostCalls = nil
	m.CloseCalls = nil
}

func (m *Mock) DirectMessage(ctx context.Context, userID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DirectMessageCalls = append(m.DirectMessageCalls, DirectMessageCall{UserID: userID, Content: content})
	if m.DirectMessageFunc != nil {
		return m.DirectMessageFunc(userID, content)
	}
	return nil
}

func (m *Mock) PostChannel(ctx context.Context, channelID, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PostChannelCalls = append(m.PostChannelCalls, PostCall{ChannelID: channelID, Content: content})
	if m.PostChannelFunc != nil {
		return m.PostChannelFunc(channelID, content)
	}
	return fmt.Sprintf("msg-%d", len(m.PostChannelCalls)), nil
}

func (m *Mock) UpsertStatus(ctx context.Context, channelID, messageID, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertStatusCalls = append(m.UpsertStatusCalls, UpsertStatusCall{ChannelID: channelID, MessageID: messageID, Content: content})
	if m.UpsertStatusFunc != nil {
		return m.UpsertStatusFunc(channelID, messageID, content)
	}
	if messageID == "" {
		return "status-1", nil
	}
	return messageID, nil
}

func (m *Mock) Create(ctx context.Context, groupID, name string, participantIDs []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls = append(m.CreateCalls, CreateCall{GroupID: groupID, Name: name, ParticipantIDs: participantIDs})
	if m.CreateFunc != nil {
		return m.CreateFunc(groupID, name, participantIDs)
	}
	m.created++
	return fmt.Sprintf("chan-%d", m.created), nil
}

func (m *Mock) Post(ctx context.Context, channelRef, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PostCalls = append(m.PostCalls, PostCall{ChannelID: channelRef, Content: content})
	if m.PostFunc != nil {
		return m.PostFunc(channelRef, content)
	}
	return nil
}

func (m *Mock) Close(ctx context.Context, channelRef string, delay time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls = append(m.CloseCalls, CloseCall{ChannelRef: channelRef, Delay: delay})
	return nil
}

// Snapshot helpers for assertions from other goroutines.

func (m *Mock) Creates() []CreateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CreateCall(nil), m.CreateCalls...)
}

func (m *Mock) Posts() []PostCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PostCall(nil), m.PostCalls...)
}

func (m *Mock) ChannelPosts() []PostCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PostCall(nil), m.PostChannelCalls...)
}

func (m *Mock) DirectMessages() []DirectMessageCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DirectMessageCall(nil), m.DirectMessageCalls...)
}

func (m *Mock) Closes() []CloseCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CloseCall(nil), m.CloseCalls...)
}

func (m *Mock) Statuses() []UpsertStatusCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UpsertStatusCall(nil), m.UpsertStatusCalls...)
}
