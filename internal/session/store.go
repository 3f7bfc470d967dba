// Package session keeps per-session conversation history with inactivity
// expiry. Sessions are created lazily on first access and removed by
// explicit reset or by the sweep.
package session

import (
	"context"
	"sync"
	"time"

	"helpdesk/internal/claude"
	"helpdesk/internal/logging"
)

// Info is session metadata for diagnostics.
type Info struct {
	Exists       bool
	MessageCount int
	CreatedAt    time.Time
	LastActivity time.Time
}

// Store is the conversation history contract. Implementations must
// preserve message order and refresh activity on every access.
type Store interface {
	// History returns the session's messages, creating the session if it
	// does not exist.
	History(id string) []claude.Message
	// Append adds one message to the session.
	Append(id string, msg claude.Message)
	// SetHistory replaces the session's full history.
	SetHistory(id string, msgs []claude.Message)
	// Reset removes the session; reports whether it existed.
	Reset(id string) bool
	// Sweep removes sessions idle past the timeout; returns removed count.
	Sweep() int
	// Count returns the number of active sessions after sweeping.
	Count() int
	// Info returns session metadata without creating the session.
	Info(id string) Info
	// LockSession serializes concurrent chats for one session. The
	// returned func releases the lock.
	LockSession(id string) func()
	// Close releases backing resources.
	Close() error
}

type memorySession struct {
	messages     []claude.Message
	createdAt    time.Time
	lastActivity time.Time
}

// MemoryStore is the default in-process store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	timeout  time.Duration

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewMemoryStore creates a store with the given inactivity timeout.
func NewMemoryStore(timeout time.Duration) *MemoryStore {
	if timeout <= 0 {
		timeout = time.Hour
	}
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		timeout:  timeout,
		locks:    make(map[string]*sync.Mutex),
	}
}

// History returns the session's messages, creating the session lazily.
func (s *MemoryStore) History(id string) []claude.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.getOrCreateLocked(id)
	entry.lastActivity = time.Now()

	out := make([]claude.Message, len(entry.messages))
	copy(out, entry.messages)
	return out
}

// Append adds one message and refreshes activity.
func (s *MemoryStore) Append(id string, msg claude.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.getOrCreateLocked(id)
	entry.messages = append(entry.messages, msg)
	entry.lastActivity = time.Now()
}

// SetHistory replaces the session's history and refreshes activity.
func (s *MemoryStore) SetHistory(id string, msgs []claude.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.getOrCreateLocked(id)
	entry.messages = make([]claude.Message, len(msgs))
	copy(entry.messages, msgs)
	entry.lastActivity = time.Now()
}

// Reset removes the session; reports whether it existed.
func (s *MemoryStore) Reset(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.sessions[id]
	delete(s.sessions, id)
	if existed {
		logging.Session("session %s reset", id)
	}
	return existed
}

// Sweep removes sessions idle past the timeout.
func (s *MemoryStore) Sweep() int {
	cutoff := time.Now().Add(-s.timeout)

	// Collect candidates under the read lock so request handling stays
	// unblocked during the scan.
	s.mu.RLock()
	var expired []string
	for id, entry := range s.sessions {
		if entry.lastActivity.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	if len(expired) == 0 {
		return 0
	}

	removed := 0
	s.mu.Lock()
	for _, id := range expired {
		// Re-check: the session may have been touched since the scan.
		if entry, ok := s.sessions[id]; ok && entry.lastActivity.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		logging.Session("swept %d expired sessions", removed)
	}
	return removed
}

// Count returns the number of active sessions after sweeping.
func (s *MemoryStore) Count() int {
	s.Sweep()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Info returns metadata without creating the session.
func (s *MemoryStore) Info(id string) Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[id]
	if !ok {
		return Info{}
	}
	return Info{
		Exists:       true,
		MessageCount: len(entry.messages),
		CreatedAt:    entry.createdAt,
		LastActivity: entry.lastActivity,
	}
}

// LockSession serializes chats for one session without blocking others.
func (s *MemoryStore) LockSession(id string) func() {
	s.lockMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.lockMu.Unlock()

	l.Lock()
	return l.Unlock
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) getOrCreateLocked(id string) *memorySession {
	entry, ok := s.sessions[id]
	if !ok {
		now := time.Now()
		entry = &memorySession{createdAt: now, lastActivity: now}
		s.sessions[id] = entry
		logging.SessionDebug("session %s created", id)
	}
	return entry
}

var _ Store = (*MemoryStore)(nil)

// Sweeper runs periodic expiry sweeps until its context is canceled.
type Sweeper struct {
	store    Store
	interval time.Duration
}

// NewSweeper creates a sweeper with the given interval.
func NewSweeper(store Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{store: store, interval: interval}
}

// Run blocks until ctx is canceled, sweeping on each tick.
func (w *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logging.Session("sweeper started, interval %v", w.interval)
	for {
		select {
		case <-ctx.Done():
			logging.Session("sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			w.store.Sweep()
		}
	}
}
