package ygggo_mockdb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	// Database file path, use ":memory:" for in-memory database
	Path string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// SQLite-specific settings, applied as pragmas on every connection
	BusyTimeout time.Duration
	JournalMode string // WAL, DELETE, TRUNCATE, PERSIST, MEMORY, OFF
	Synchronous string // FULL, NORMAL, OFF
	ForeignKeys bool
}

// DefaultSQLiteConfig returns an in-memory configuration. A single connection
// is used because every in-memory connection is a separate database.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path:            ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		BusyTimeout:     time.Second,
		JournalMode:     "MEMORY",
		Synchronous:     "OFF",
		ForeignKeys:     true,
	}
}

// NewSQLiteClientFactory opens a modernc.org/sqlite database and returns a
// provider factory over it.
func NewSQLiteClientFactory(ctx context.Context, configs ...SQLiteConfig) (*SQLClientFactory, error) {
	config := DefaultSQLiteConfig()
	if len(configs) > 0 {
		config = configs[0]
	}

	dsn := buildSQLiteDSN(config)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	cs := NewConnectionStringBuilder().Set(KeyDataSource, config.Path).String()
	return NewSQLClientFactory(db, cs), nil
}

// buildSQLiteDSN builds a modernc.org/sqlite DSN with one _pragma per setting.
func buildSQLiteDSN(config SQLiteConfig) string {
	q := url.Values{}
	if config.BusyTimeout > 0 {
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", config.BusyTimeout.Milliseconds()))
	}
	if config.JournalMode != "" {
		q.Add("_pragma", fmt.Sprintf("journal_mode(%s)", config.JournalMode))
	}
	if config.Synchronous != "" {
		q.Add("_pragma", fmt.Sprintf("synchronous(%s)", config.Synchronous))
	}
	if config.ForeignKeys {
		q.Add("_pragma", "foreign_keys(1)")
	}
	if len(q) == 0 {
		return config.Path
	}
	return config.Path + "?" + q.Encode()
}
