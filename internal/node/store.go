package node

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DBName is the database file created under the files directory.
const DBName = "corebridge.db"

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS bot_heartbeats (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	at INTEGER NOT NULL
);`

const settingNetworkConfig = "network_config"

// store persists node settings and bot activity in SQLite.
type store struct {
	db *sql.DB
}

func openStore(dir string) (*store, error) {
	path := filepath.Join(filepath.Clean(dir), DBName)
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &store{db: db}, nil
}

func (s *store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// setting returns the value stored under key, or ok=false if absent.
func (s *store) setting(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %q: %w", key, err)
	}
	return value, true, nil
}

func (s *store) setSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("write setting %q: %w", key, err)
	}
	return nil
}

func (s *store) recordHeartbeat(ctx context.Context, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO bot_heartbeats (at) VALUES (?)`, at.UTC().UnixMilli()); err != nil {
		return fmt.Errorf("record heartbeat: %w", err)
	}
	return nil
}

func (s *store) heartbeats(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bot_heartbeats`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count heartbeats: %w", err)
	}
	return n, nil
}

// removeStore deletes the database and its WAL side files under dir.
func removeStore(dir string) error {
	base := filepath.Join(filepath.Clean(dir), DBName)
	for _, p := range []string{base, base + "-wal", base + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}
