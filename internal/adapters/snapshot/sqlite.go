package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tg-ext-bot/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bot_snapshots (
	key TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLite хранит снимки в локальной базе SQLite.
type SQLite struct {
	db *sql.DB
}

var _ domain.SnapshotStore = (*SQLite)(nil)

// NewSQLite создаёт хранилище и таблицу снимков.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Load читает снимок.
func (s *SQLite) Load(ctx context.Context, key string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM bot_snapshots WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return []byte(data), nil
}

// Save перезаписывает снимок.
func (s *SQLite) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_snapshots (key, data, updated_at)
		VALUES (?, ?, strftime('%s', 'now'))
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, key, string(data))
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}
