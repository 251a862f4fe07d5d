package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite. Values are kept
// as JSON text in a single slots table, one row per slot.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewFromDB wraps an existing sql.DB.
func NewFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Migrate runs the slot table migrations.
func (s *SQLiteStore) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS slots (
			slot TEXT PRIMARY KEY,
			value_json TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_slots_updated_at ON slots(updated_at DESC)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save upserts the JSON serialization of value under slot.
func (s *SQLiteStore) Save(slot string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return &StorageError{Slot: slot, Op: "save", Err: err}
	}
	_, err = s.db.Exec(`
		INSERT INTO slots (slot, value_json, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(slot) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at
	`, slot, string(data))
	if err != nil {
		return &StorageError{Slot: slot, Op: "save", Err: err}
	}
	return nil
}

// Load reads the slot into dest. A missing row or a value that no longer
// unmarshals reports (false, nil); dest is untouched in both cases.
func (s *SQLiteStore) Load(slot string, dest any) (bool, error) {
	var raw string
	err := s.db.QueryRow("SELECT value_json FROM slots WHERE slot = ?", slot).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &StorageError{Slot: slot, Op: "load", Err: err}
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		// Corrupt stored state is treated as absence.
		return false, nil
	}
	return true, nil
}

// Clear removes the slot.
func (s *SQLiteStore) Clear(slot string) error {
	if _, err := s.db.Exec("DELETE FROM slots WHERE slot = ?", slot); err != nil {
		return &StorageError{Slot: slot, Op: "clear", Err: err}
	}
	return nil
}

// Exists reports whether the slot holds a value.
func (s *SQLiteStore) Exists(slot string) (bool, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM slots WHERE slot = ?", slot).Scan(&n)
	if err != nil {
		return false, &StorageError{Slot: slot, Op: "exists", Err: err}
	}
	return n > 0, nil
}
