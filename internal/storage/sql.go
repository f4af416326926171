package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore is a Store backed by a kv table in SQLite or PostgreSQL.
type SQLStore struct {
	db *sqlx.DB
}

// Open connects to the database selected by environment variables.
//
// DB_TYPE=sqlite (default) opens the file at DB_PATH (default data/cardsync.db).
// DB_TYPE=postgres connects using DATABASE_URL.
func Open() (*SQLStore, error) {
	dbType := os.Getenv("DB_TYPE")
	if dbType == "" {
		dbType = "sqlite"
	}

	var db *sqlx.DB
	var err error

	if dbType == "postgres" {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
		}
		db, err = sqlx.Connect("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %v", err)
		}
	} else {
		dbPath := os.Getenv("DB_PATH")
		if dbPath == "" {
			// Create data directory if it doesn't exist
			if err := os.MkdirAll("data", 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %v", err)
			}
			dbPath = filepath.Join("data", "cardsync.db")
		}
		db, err = sqlx.Connect("sqlite3", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %v", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	return NewSQLStore(db)
}

// NewSQLStore wraps an existing connection and initializes the schema
func NewSQLStore(db *sqlx.DB) (*SQLStore, error) {
	s := &SQLStore{db: db}
	if err := s.initializeSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// initializeSchema creates the kv table if it doesn't exist
func (s *SQLStore) initializeSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create kv_store table: %v", err)
	}
	return nil
}

// Get implements Store
func (s *SQLStore) Get(key string, dest interface{}) (bool, error) {
	var raw string
	err := s.db.Get(&raw, "SELECT value FROM kv_store WHERE key = $1", key)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read key %q: %v", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("failed to decode value for key %q: %v", key, err)
	}
	return true, nil
}

// Set implements Store. The write is synchronous: when Set returns nil
// the value is durable.
func (s *SQLStore) Set(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for key %q: %v", key, err)
	}
	// Один и тот же upsert работает в sqlite и postgres
	_, err = s.db.Exec(`
		INSERT INTO kv_store (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, string(raw))
	if err != nil {
		return fmt.Errorf("failed to write key %q: %v", key, err)
	}
	return nil
}

// Remove implements Store
func (s *SQLStore) Remove(key string) error {
	_, err := s.db.Exec("DELETE FROM kv_store WHERE key = $1", key)
	if err != nil {
		return fmt.Errorf("failed to remove key %q: %v", key, err)
	}
	return nil
}
