package session

import (
	"context"
	"sort"
	"sync"
)

// memoryStore keeps sessions in a guarded map. Suitable for single-instance deployments.
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

var _ Store = (*memoryStore)(nil)

func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[string]Session)}
}

func (m *memoryStore) Create(ctx context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.MatchID]; ok {
		return ErrExists
	}
	m.sessions[s.MatchID] = s.Clone()
	return nil
}

func (m *memoryStore) Get(ctx context.Context, matchID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[matchID]
	if !ok {
		return nil, ErrNotFound
	}
	c := s.Clone()
	return &c, nil
}

func (m *memoryStore) Update(ctx context.Context, matchID string, fn UpdateFunc) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[matchID]
	if !ok {
		return nil, ErrNotFound
	}
	working := s.Clone()
	if err := fn(&working); err != nil {
		return nil, err
	}
	m.sessions[matchID] = working.Clone()
	return &working, nil
}

func (m *memoryStore) Delete(ctx context.Context, matchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, matchID)
	return nil
}

func (m *memoryStore) List(ctx context.Context) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s.Clone())
	}
	sortSessions(list)
	return list, nil
}

func sortSessions(list []Session) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].MatchID < list[j].MatchID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
