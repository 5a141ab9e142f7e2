package session

import (
	"context"
	"sync"
	"time"

	"fileshell/internal/metrics"
	"fileshell/util"
)

// Manager owns every session record. It is the only component that
// creates or destroys sessions; handlers get a *Session from it and
// work under the session's own lock.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	idle    time.Duration
	logger  *util.Logger
	metrics *metrics.Collector
}

// NewManager returns a Manager evicting sessions idle longer than
// idleTimeout.
func NewManager(idleTimeout time.Duration, logger *util.Logger, m *metrics.Collector) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		idle:     idleTimeout,
		logger:   logger,
		metrics:  m,
	}
}

// GetOrCreate returns the session for key, creating it on first
// contact. The second result reports whether it was created.
func (m *Manager) GetOrCreate(key string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[key]; ok {
		return s, false
	}
	s := newSession(key, time.Now())
	m.sessions[key] = s
	m.metrics.SessionOpened()
	m.logger.Verbose("session %s: new client %s", s.ID, key)
	return s, true
}

// Get returns the session for key if one exists.
func (m *Manager) Get(key string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	return s, ok
}

// Remove destroys the session for key, closing any in-progress
// transfer first. Used by the stream transport on disconnect.
func (m *Manager) Remove(key string) {
	m.mu.Lock()
	s, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()
	if !ok {
		return
	}

	s.Lock()
	s.CloseTransfer()
	s.Unlock()
	m.metrics.SessionClosed()
	m.logger.Verbose("session %s: closed", s.ID)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ExpireIdle evicts every session idle longer than the timeout,
// releasing any open transfer handle. It acquires each session's lock
// before deciding, so it never races an in-flight request: a request
// holding the lock refreshes the activity stamp before the sweeper can
// observe it. Eviction is silent — no client is notified.
func (m *Manager) ExpireIdle(now time.Time) int {
	m.mu.Lock()
	candidates := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		candidates = append(candidates, s)
	}
	m.mu.Unlock()

	evicted := 0
	for _, s := range candidates {
		s.Lock()
		if s.IdleSince(now) < m.idle {
			s.Unlock()
			continue
		}
		s.CloseTransfer()
		s.Unlock()

		m.mu.Lock()
		// Re-check under the table lock; the key may have been removed
		// already.
		if cur, ok := m.sessions[s.Key]; ok && cur == s {
			delete(m.sessions, s.Key)
			evicted++
			m.metrics.SessionSwept()
			m.logger.Verbose("session %s: expired after %s idle", s.ID, m.idle)
		}
		m.mu.Unlock()
	}
	return evicted
}

// Sweep runs ExpireIdle on a fixed interval until ctx is cancelled.
// It runs independently of request traffic.
func (m *Manager) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.ExpireIdle(now); n > 0 {
				m.logger.Debug("sweep evicted %d idle session(s)", n)
			}
		}
	}
}
