package multiplayer

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// RecordStore is the persistence boundary for game records. The sqlite
// implementation backs production; the memory implementation backs tests.
type RecordStore interface {
	Get(code string) (*GameRecord, error)
	Put(record *GameRecord) error
	Delete(code string) error
}

// SQLiteStore keeps each record as a JSON document keyed by code, with the
// version denormalized for cheap monotonicity checks.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore prepares the backing table and returns the store.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS game_records (
		code       TEXT PRIMARY KEY,
		version    INTEGER NOT NULL,
		record     TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	);`)
	if err != nil {
		return nil, fmt.Errorf("create game_records: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(code string) (*GameRecord, error) {
	var doc string
	err := s.db.QueryRow(`SELECT record FROM game_records WHERE code = ?`, code).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query game_records: %w", err)
	}
	var record GameRecord
	if err := json.Unmarshal([]byte(doc), &record); err != nil {
		return nil, fmt.Errorf("decode game record %s: %w", code, err)
	}
	return &record, nil
}

func (s *SQLiteStore) Put(record *GameRecord) error {
	doc, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO game_records (code, version, record, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(code) DO UPDATE SET version = excluded.version,
			record = excluded.record, updated_at = excluded.updated_at`,
		record.Code, record.Version, string(doc))
	if err != nil {
		return fmt.Errorf("upsert game record %s: %w", record.Code, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(code string) error {
	if _, err := s.db.Exec(`DELETE FROM game_records WHERE code = ?`, code); err != nil {
		return fmt.Errorf("delete game record %s: %w", code, err)
	}
	return nil
}

// isBusy reports whether an error is a transient SQLITE_BUSY/LOCKED, the
// only class the join path retries.
func isBusy(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked
	}
	return false
}

// MemoryStore is the in-memory RecordStore used by tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]GameRecord
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]GameRecord)}
}

func (m *MemoryStore) Get(code string) (*GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[code]
	if !ok {
		return nil, ErrGameNotFound
	}
	cp := record.clone()
	return &cp, nil
}

func (m *MemoryStore) Put(record *GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.Code] = record.clone()
	return nil
}

func (m *MemoryStore) Delete(code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, code)
	return nil
}
