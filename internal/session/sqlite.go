package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"helpdesk/internal/claude"
	"helpdesk/internal/logging"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	messages      TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	last_activity INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_last_activity ON sessions(last_activity);
`

// SQLiteStore persists sessions in SQLite for deployments that need history
// to survive restarts. Same contract as MemoryStore; messages are stored
// JSON-encoded, so content blocks round-trip as generic maps, which marshal
// identically when replayed to the API.
type SQLiteStore struct {
	db      *sql.DB
	timeout time.Duration

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string, timeout time.Duration) (*SQLiteStore, error) {
	if timeout <= 0 {
		timeout = time.Hour
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	// Single writer; WAL keeps readers unblocked during sweeps.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logging.Session("sqlite session store opened at %s", path)
	return &SQLiteStore{
		db:      db,
		timeout: timeout,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// History returns the session's messages, creating the session lazily.
func (s *SQLiteStore) History(id string) []claude.Message {
	now := time.Now().UnixMilli()

	var raw string
	err := s.db.QueryRow("SELECT messages FROM sessions WHERE id = ?", id).Scan(&raw)
	if err == sql.ErrNoRows {
		_, _ = s.db.Exec(
			"INSERT INTO sessions (id, messages, created_at, last_activity) VALUES (?, '[]', ?, ?)",
			id, now, now)
		return nil
	}
	if err != nil {
		logging.SessionDebug("history read failed for %s: %v", id, err)
		return nil
	}

	_, _ = s.db.Exec("UPDATE sessions SET last_activity = ? WHERE id = ?", now, id)

	var msgs []claude.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		logging.SessionDebug("history decode failed for %s: %v", id, err)
		return nil
	}
	return msgs
}

// Append adds one message to the session.
func (s *SQLiteStore) Append(id string, msg claude.Message) {
	msgs := s.History(id)
	s.SetHistory(id, append(msgs, msg))
}

// SetHistory replaces the session's full history.
func (s *SQLiteStore) SetHistory(id string, msgs []claude.Message) {
	data, err := json.Marshal(msgs)
	if err != nil {
		logging.SessionDebug("history encode failed for %s: %v", id, err)
		return
	}
	now := time.Now().UnixMilli()
	_, _ = s.db.Exec(`
		INSERT INTO sessions (id, messages, created_at, last_activity) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET messages = excluded.messages, last_activity = excluded.last_activity`,
		id, string(data), now, now)
}

// Reset removes the session; reports whether it existed.
func (s *SQLiteStore) Reset(id string) bool {
	res, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return false
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logging.Session("session %s reset", id)
	}
	return n > 0
}

// Sweep removes sessions idle past the timeout.
func (s *SQLiteStore) Sweep() int {
	cutoff := time.Now().Add(-s.timeout).UnixMilli()
	res, err := s.db.Exec("DELETE FROM sessions WHERE last_activity < ?", cutoff)
	if err != nil {
		return 0
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logging.Session("swept %d expired sessions", n)
	}
	return int(n)
}

// Count returns the number of active sessions after sweeping.
func (s *SQLiteStore) Count() int {
	s.Sweep()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&n); err != nil {
		return 0
	}
	return n
}

// Info returns metadata without creating the session.
func (s *SQLiteStore) Info(id string) Info {
	var raw string
	var createdAt, lastActivity int64
	err := s.db.QueryRow(
		"SELECT messages, created_at, last_activity FROM sessions WHERE id = ?", id).
		Scan(&raw, &createdAt, &lastActivity)
	if err != nil {
		return Info{}
	}

	var msgs []claude.Message
	_ = json.Unmarshal([]byte(raw), &msgs)
	return Info{
		Exists:       true,
		MessageCount: len(msgs),
		CreatedAt:    time.UnixMilli(createdAt),
		LastActivity: time.UnixMilli(lastActivity),
	}
}

// LockSession serializes chats for one session without blocking others.
func (s *SQLiteStore) LockSession(id string) func() {
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

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
