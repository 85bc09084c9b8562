package device

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the best-effort structured-database tier of the chain,
// third in line after the file and session tiers. Errors are reported but
// the chain treats them as misses.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS device_identity (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM device_identity WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, value != ""
}

func (s *SQLiteStore) Set(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO device_identity (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
