package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tg-ext-bot/internal/domain"
	"tg-ext-bot/internal/infra/metrics"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS bot_snapshots (
	key TEXT PRIMARY KEY,
	data JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres хранит снимки в таблице bot_snapshots.
type Postgres struct {
	db pgQuerier
}

var _ domain.SnapshotStore = (*Postgres)(nil)

// NewPostgres создаёт хранилище поверх пула pgx.
func NewPostgres(db pgQuerier) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// EnsureSchema создаёт таблицу снимков.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	if _, err := p.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create bot_snapshots: %w", err)
	}
	return nil
}

// Load читает снимок.
func (p *Postgres) Load(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	var data string
	err := p.db.QueryRow(ctx, `SELECT data::text FROM bot_snapshots WHERE key = $1`, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveNetworkRequest("postgres", "snapshot_load", key, start, nil)
		return nil, domain.ErrSnapshotNotFound
	}
	metrics.ObserveNetworkRequest("postgres", "snapshot_load", key, start, err)
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return []byte(data), nil
}

// Save перезаписывает снимок.
func (p *Postgres) Save(ctx context.Context, key string, data []byte) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	_, err := p.db.Exec(ctx, `
INSERT INTO bot_snapshots (key, data, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`, key, string(data))
	metrics.ObserveNetworkRequest("postgres", "snapshot_save", key, start, err)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}
