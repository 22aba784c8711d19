package ladder

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// Mock is an in-memory Store for tests. Hooks, when set, replace the default behaviour
// of their method so failures can be injected. It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	Teams       map[string]Team
	Queues      map[string][]QueueEntry
	Pools       map[string][]AutoQueueEntry
	Configs     map[string]QueueConfig
	History     []MatchRecord
	MatchStarts map[string]MatchStart

	SaveTeamsFunc        func(teams map[string]Team) error
	SavePoolFunc         func(groupID string, entries []AutoQueueEntry) error
	RecordSettlementFunc func(teams []Team, record MatchRecord) error
	SaveMatchStartFunc   func(start MatchStart) error

	SavePoolCalls         int
	RecordSettlementCalls int
}

var _ Store = (*Mock)(nil)

// NewMock creates an empty in-memory store.
func NewMock() *Mock {
	m := &Mock{}
	m.Reset()
	return m
}

// Reset clears all stored data, hooks and call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Teams = make(map[string]Team)
	m.Queues = make(map[string][]QueueEntry)
	m.Pools = make(map[string][]AutoQueueEntry)
	m.Configs = make(map[string]QueueConfig)
	m.History = nil
	m.MatchStarts = make(map[string]MatchStart)
	m.SaveTeamsFunc = nil
	m.SavePoolFunc = nil
	m.RecordSettlementFunc = nil
	m.SaveMatchStartFunc = nil
	m.SavePoolCalls = 0
	m.RecordSettlementCalls = 0
}

func copyTeam(t Team) Team {
	t.Members = slices.Clone(t.Members)
	if t.CaptainID != nil {
		id := *t.CaptainID
		t.CaptainID = &id
	}
	return t
}

func (m *Mock) LoadTeams(ctx context.Context) (map[string]Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	teams := make(map[string]Team, len(m.Teams))
	for k, t := range m.Teams {
		teams[k] = copyTeam(t)
	}
	return teams, nil
}

func (m *Mock) SaveTeams(ctx context.Context, teams map[string]Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveTeamsFunc != nil {
		if err := m.SaveTeamsFunc(teams); err != nil {
			return err
		}
	}
	m.Teams = make(map[string]Team, len(teams))
	for k, t := range teams {
		m.Teams[k] = copyTeam(t)
	}
	return nil
}

func (m *Mock) LoadQueue(ctx context.Context, groupID string) ([]QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]QueueEntry{}, m.Queues[groupID]...), nil
}

func (m *Mock) SaveQueue(ctx context.Context, groupID string, entries []QueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(entries) == 0 {
		delete(m.Queues, groupID)
		return nil
	}
	m.Queues[groupID] = slices.Clone(entries)
	return nil
}

func (m *Mock) QueueGroups(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var groups []string
	for g, q := range m.Queues {
		if len(q) > 0 {
			groups = append(groups, g)
		}
	}
	sort.Strings(groups)
	return groups, nil
}

func (m *Mock) LoadPool(ctx context.Context, groupID string) ([]AutoQueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AutoQueueEntry{}, m.Pools[groupID]...), nil
}

func (m *Mock) SavePool(ctx context.Context, groupID string, entries []AutoQueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SavePoolCalls++
	if m.SavePoolFunc != nil {
		if err := m.SavePoolFunc(groupID, entries); err != nil {
			return err
		}
	}
	m.Pools[groupID] = slices.Clone(entries)
	return nil
}

func (m *Mock) LoadConfig(ctx context.Context, groupID string) (*QueueConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.Configs[groupID]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (m *Mock) SaveConfig(ctx context.Context, cfg QueueConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Configs[cfg.GroupID] = cfg
	return nil
}

func (m *Mock) ListConfigs(ctx context.Context) ([]QueueConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	configs := make([]QueueConfig, 0, len(m.Configs))
	for _, cfg := range m.Configs {
		configs = append(configs, cfg)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].GroupID < configs[j].GroupID })
	return configs, nil
}

func (m *Mock) LoadHistory(ctx context.Context) ([]MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MatchRecord{}, m.History...), nil
}

func (m *Mock) AppendHistory(ctx context.Context, record MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.History = append(m.History, record)
	return nil
}

func (m *Mock) RecordSettlement(ctx context.Context, teams []Team, record MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordSettlementCalls++
	if m.RecordSettlementFunc != nil {
		if err := m.RecordSettlementFunc(teams, record); err != nil {
			return err
		}
	}
	for _, t := range teams {
		m.Teams[t.Key] = copyTeam(t)
	}
	m.History = append(m.History, record)
	return nil
}

func (m *Mock) SaveMatchStart(ctx context.Context, start MatchStart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveMatchStartFunc != nil {
		if err := m.SaveMatchStartFunc(start); err != nil {
			return err
		}
	}
	m.MatchStarts[start.ID] = start
	return nil
}

func (m *Mock) CompleteMatchStart(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	start, ok := m.MatchStarts[id]
	if !ok {
		return nil
	}
	start.Status = MatchStartCompleted
	start.CompletedAt = &at
	m.MatchStarts[id] = start
	return nil
}

func (m *Mock) ListMatchStarts(ctx context.Context) ([]MatchStart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	starts := make([]MatchStart, 0, len(m.MatchStarts))
	for _, s := range m.MatchStarts {
		starts = append(starts, s)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].CreatedAt.After(starts[j].CreatedAt) })
	return starts, nil
}

// PutTeam seeds a team directly.
func (m *Mock) PutTeam(t Team) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Teams[t.Key] = copyTeam(t)
}
