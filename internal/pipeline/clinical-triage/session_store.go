// internal/pipeline/clinical-triage/session_store.go
package clinicaltriage

import (
	"context"
	"errors"
	"sync"
	"time"

	"clinical-decision-pipeline/internal/common/metrics"
)

var ErrSessionNotFound = errors.New("SESSION_NOT_FOUND")

// SessionStore owns session state outside the service. Implementations expire
// sessions after their TTL; Get and Delete return ErrSessionNotFound for
// unknown or expired ids.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	session   *Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process. Expired entries are invisible to Get
// and are removed by Sweep.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || !m.now().Before(entry.expiresAt) {
		return nil, ErrSessionNotFound
	}
	return entry.session.Clone(), nil
}

// Save stores a copy and refreshes the TTL.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = memoryEntry{session: s.Clone(), expiresAt: m.now().Add(m.ttl)}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	if !m.now().Before(entry.expiresAt) {
		return ErrSessionNotFound
	}
	return nil
}

// Sweep removes expired sessions and returns how many were evicted.
func (m *MemoryStore) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, entry := range m.sessions {
		if !now.Before(entry.expiresAt) {
			delete(m.sessions, id)
			evicted++
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return evicted
}

// Len counts stored sessions, including expired ones not yet swept.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(evicted int)) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}
