package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                sync.Mutex
	pollTicks         int
	tickDurations     []float64
	poolSizes         map[string]int
	matchesCreated    int
	matchesSettled    int
	disputes          int
	sessionsAbandoned int
	notifSent         int
	notifFailed       int
	startupTime       float64
}

var _ Metrics = (*Mock)(nil)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		tickDurations: make([]float64, 0),
		poolSizes:     make(map[string]int),
	}
}

func (m *Mock) IncPollTicks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollTicks++
}

func (m *Mock) ObserveTickDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickDurations = append(m.tickDurations, duration)
}

func (m *Mock) SetPoolSize(groupID string, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poolSizes[groupID] = size
}

func (m *Mock) IncMatchesCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesCreated++
}

func (m *Mock) IncMatchesSettled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesSettled++
}

func (m *Mock) IncDisputes() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disputes++
}

func (m *Mock) IncSessionsAbandoned() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionsAbandoned++
}

func (m *Mock) IncNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifSent++
}

func (m *Mock) IncNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// PollTicks returns the number of times IncPollTicks was called.
func (m *Mock) PollTicks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pollTicks
}

// PoolSize returns the last size reported for a group.
func (m *Mock) PoolSize(groupID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.poolSizes[groupID]
}

// MatchesCreated returns the number of times IncMatchesCreated was called.
func (m *Mock) MatchesCreated() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesCreated
}

// MatchesSettled returns the number of times IncMatchesSettled was called.
func (m *Mock) MatchesSettled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesSettled
}

// Disputes returns the number of times IncDisputes was called.
func (m *Mock) Disputes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disputes
}

// SessionsAbandoned returns the number of times IncSessionsAbandoned was called.
func (m *Mock) SessionsAbandoned() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionsAbandoned
}

// NotifSent returns the number of times IncNotifSent was called.
func (m *Mock) NotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifSent
}

// NotifFailed returns the number of times IncNotifFailed was called.
func (m *Mock) NotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifFailed
}

// TickDurations returns every observed tick duration in order.
func (m *Mock) TickDurations() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64{}, m.tickDurations...)
}
