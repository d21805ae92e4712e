// internal/pipeline/clinical-triage/locks.go
package clinicaltriage

import "sync"

type refMutex struct {
	mu   sync.Mutex
	refs int
}

// sessionLocks hands out one mutex per session id. Entries are dropped when
// the last holder releases them.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*refMutex)}
}

// lock blocks until the session's mutex is held and returns its release func.
func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &refMutex{}
		l.locks[id] = m
	}
	m.refs++
	l.mu.Unlock()

	m.mu.Lock()
	return func() {
		m.mu.Unlock()
		l.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
