package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"tg-ext-bot/internal/adapters/snapshot"
	"tg-ext-bot/internal/domain"
	"tg-ext-bot/internal/infra/cache"
	"tg-ext-bot/internal/infra/config"
)

func TestOpenFileWithMemoryCache(t *testing.T) {
	var cfg config.AppConfig
	cfg.Storage.Backend = config.StorageFile
	cfg.DataDir = t.TempDir()
	b, err := Open(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	defer b.Close()
	if _, ok := b.Store.(*snapshot.File); !ok {
		t.Fatalf("ожидали файловое хранилище, получили %T", b.Store)
	}
	if _, ok := b.Cache.(*cache.MemoryCache); !ok {
		t.Fatalf("ожидали кэш в памяти, получили %T", b.Cache)
	}
}

func TestOpenSQLite(t *testing.T) {
	var cfg config.AppConfig
	cfg.Storage.Backend = config.StorageSQLite
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "bot.db")
	b, err := Open(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	defer b.Close()
	ctx := context.Background()
	if _, err := b.Store.Load(ctx, "groups"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("ожидали ErrSnapshotNotFound, получили %v", err)
	}
	if err := b.Store.Save(ctx, "groups", []byte(`{}`)); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
}

func TestOpenRejects(t *testing.T) {
	tests := []struct {
		name    string
		backend string
	}{
		{name: "redis without addr", backend: config.StorageRedis},
		{name: "unknown backend", backend: "mongo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg config.AppConfig
			cfg.Storage.Backend = tt.backend
			if _, err := Open(context.Background(), cfg, zerolog.Nop()); err == nil {
				t.Fatal("ожидали ошибку")
			}
		})
	}
}
