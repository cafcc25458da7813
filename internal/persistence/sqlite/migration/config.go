package migration

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteConfig describes how the SQLite database is opened.
type SQLiteConfig struct {
	// Path is the database file path or DSN. ":memory:" opens an in-process
	// database, which tests rely on.
	Path string
	// BusyTimeout bounds how long a connection waits on a locked database.
	BusyTimeout time.Duration
	// MaxOpenConns caps the pool size. SQLite serialises writers, so a small
	// pool is sufficient.
	MaxOpenConns int
}

// DefaultConfig returns a configuration with sensible defaults for the
// provided path.
func DefaultConfig(path string) SQLiteConfig {
	return SQLiteConfig{
		Path:         path,
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
}

// ConnectionManager opens database handles according to an SQLiteConfig.
type ConnectionManager struct {
	config SQLiteConfig
}

// NewConnectionManager constructs a manager for the provided configuration.
func NewConnectionManager(config SQLiteConfig) *ConnectionManager {
	return &ConnectionManager{config: config}
}

// GetConnection opens a pooled database handle with foreign keys enforced.
func (m *ConnectionManager) GetConnection() (*sql.DB, error) {
	if strings.TrimSpace(m.config.Path) == "" {
		return nil, fmt.Errorf("migration: database path is required")
	}

	db, err := sql.Open("sqlite", m.dsn())
	if err != nil {
		return nil, fmt.Errorf("migration: failed to open database: %w", err)
	}

	maxConns := m.config.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 1
	}
	// In-memory databases vanish when their last connection closes, so the
	// pool must never shrink to zero nor fan out to independent handles.
	if m.inMemory() {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	return db, nil
}

func (m *ConnectionManager) dsn() string {
	path := m.config.Path
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	if m.config.BusyTimeout > 0 {
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", m.config.BusyTimeout.Milliseconds()))
	}
	if strings.Contains(path, "?") {
		return path + "&" + params.Encode()
	}
	return path + "?" + params.Encode()
}

func (m *ConnectionManager) inMemory() bool {
	return strings.Contains(m.config.Path, ":memory:") || strings.Contains(m.config.Path, "mode=memory")
}
