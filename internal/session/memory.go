package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/nutrobot/core/logger"
)

// MemoryStore is the in-process Store backend. Expiry is checked lazily
// on access and a janitor sweeps abandoned sessions so the map does not
// grow with every user who ever wrote to the bot.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[int64]*Session
	now      func() time.Time
}

// NewMemory builds a memory store evicting sessions idle longer than ttl.
func NewMemory(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[int64]*Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) expired(s *Session) bool {
	return m.ttl > 0 && m.now().Sub(s.LastActivity) > m.ttl
}

// Get returns a copy of the user's session, or a fresh idle one when none
// exists or the stored one sat idle past the timeout. Eviction discards
// the partial accumulator by design; the caller only ever sees "idle".
func (m *MemoryStore) Get(_ context.Context, userID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return NewIdle()
	}
	if m.expired(s) {
		delete(m.sessions, userID)
		return NewIdle()
	}
	return s.Clone()
}

// Put replaces the stored session and refreshes its last-activity stamp.
func (m *MemoryStore) Put(_ context.Context, userID int64, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := s.Clone()
	cp.LastActivity = m.now()
	m.sessions[userID] = cp
	return nil
}

// Clear removes the user's session entirely.
func (m *MemoryStore) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// InProgress reports whether the user has an unexpired non-idle session.
func (m *MemoryStore) InProgress(_ context.Context, userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return ok && !m.expired(s) && s.State != StateIdle
}

// ActiveCount counts unexpired non-idle sessions.
func (m *MemoryStore) ActiveCount(_ context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if !m.expired(s) && s.State != StateIdle {
			n++
		}
	}
	return n
}

// sweep drops every session past the timeout and reports how many went.
func (m *MemoryStore) sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps expired sessions until ctx is done. Interval
// defaults to half the TTL.
func (m *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = m.ttl / 2
	}
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := m.sweep(); removed > 0 {
					logger.Debug(ctx, "sessions", "session.sweep",
						slog.Int("removed", removed),
					)
				}
			}
		}
	}()
}
