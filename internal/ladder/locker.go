package ladder

import "sync"

// Lock keys for the shared collections.
const (
	TeamsLock      = "teams"
	MembershipLock = "membership"
)

// QueueLock is the lock key for a group's manual queue.
func QueueLock(groupID string) string { return "queue:" + groupID }

// PoolLock is the lock key for a group's automatic pool.
func PoolLock(groupID string) string { return "pool:" + groupID }

// Locker hands out one mutex per collection key.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its release func.
func (l *Locker) Lock(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
