package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"classwatch/pkg/types"
)

// Well-known cache keys. classInfo is owned by this client; the auth
// keys belong to the login collaborator and pass through uninterpreted.
const (
	KeyClassInfo = "classInfo"
	KeyAuthUser  = "authUser"
	KeyAuthToken = "authToken"
)

// Store is the durable local recovery cache, a single key/value table
// on SQLite. Reads that find nothing usable resolve to absent rather
// than erroring; writes overwrite unconditionally.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex // serialize writes; SQLite dislikes write contention
	closed bool
}

// NewStore opens (and if needed creates) the cache at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open recovery cache: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS recovery (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize recovery cache: %w", err)
	}

	return &Store{db: db}, nil
}

// Get returns the raw value for key. ok is false when the key is
// missing; only infrastructure failures produce an error.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM recovery WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return value, true, nil
}

// Set overwrites the value for key.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, err := s.db.Exec(
		`INSERT INTO recovery (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// LoadClassInfo reads the cached operator-entered class metadata.
// A missing key or a malformed stored value both resolve to absent:
// the worst case is the operator filling the form again.
func (s *Store) LoadClassInfo() (*types.ClassSessionInfo, bool, error) {
	raw, ok, err := s.Get(KeyClassInfo)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	var info types.ClassSessionInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		zap.S().Warnw("discarding malformed cached class info", "error", err)
		return nil, false, nil
	}
	if info.Validate() != nil {
		zap.S().Warnw("discarding invalid cached class info",
			"subject", info.Subject, "studentCount", info.StudentCount)
		return nil, false, nil
	}
	return &info, true, nil
}

// SaveClassInfo overwrites the cached class metadata. The cache always
// reflects the last successful submission; there is no expiry.
func (s *Store) SaveClassInfo(info *types.ClassSessionInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode class info: %w", err)
	}
	return s.Set(KeyClassInfo, string(data))
}

// Close releases the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
