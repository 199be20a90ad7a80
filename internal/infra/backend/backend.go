package backend

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tg-ext-bot/internal/adapters/snapshot"
	"tg-ext-bot/internal/domain"
	"tg-ext-bot/internal/infra/cache"
	"tg-ext-bot/internal/infra/config"
	"tg-ext-bot/internal/infra/db"
)

// Backends держит открытые подключения.
type Backends struct {
	Store domain.SnapshotStore
	Cache domain.Cache

	pool  *pgxpool.Pool
	sqlDB *sql.DB
	redis *redis.Client
}

// Open выбирает хранилище снимков по STORAGE_BACKEND. Redis при наличии REDIS_ADDR служит ещё и кэшем.
func Open(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*Backends, error) {
	b := &Backends{}
	if cfg.RedisAddr != "" {
		b.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		b.Cache = cache.NewRedis(b.redis, cfg.Storage.KeyPrefix)
	} else {
		b.Cache = cache.NewMemory()
	}

	switch cfg.Storage.Backend {
	case config.StorageFile, "":
		b.Store = snapshot.NewFile(cfg.DataDir)
	case config.StorageRedis:
		if b.redis == nil {
			b.Close()
			return nil, fmt.Errorf("STORAGE_BACKEND=redis требует REDIS_ADDR")
		}
		b.Store = snapshot.NewRedis(b.redis, cfg.Storage.KeyPrefix)
	case config.StoragePostgres:
		pool, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		b.pool = pool
		pg := snapshot.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, err
		}
		b.Store = pg
	case config.StorageSQLite:
		sqlDB, err := db.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.sqlDB = sqlDB
		store, err := snapshot.NewSQLite(sqlDB)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Store = store
	default:
		b.Close()
		return nil, fmt.Errorf("неизвестный STORAGE_BACKEND %q", cfg.Storage.Backend)
	}
	logger.Info().Str("backend", cfg.Storage.Backend).Bool("redis_cache", b.redis != nil).Msg("хранилище открыто")
	return b, nil
}

// Close закрывает открытые подключения.
func (b *Backends) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.sqlDB != nil {
		_ = b.sqlDB.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}
