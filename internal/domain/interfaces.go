package domain

import (
	"context"
	"errors"
	"time"
)

// ErrSnapshotNotFound возвращается хранилищем, если снимка ещё нет.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrCacheMiss возвращается кэшем при отсутствии ключа.
var ErrCacheMiss = errors.New("cache miss")

// SnapshotStore хранит полные снимки небольших реестров по ключу.
type SnapshotStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// BotContext передаётся каждому вызову расширения.
type BotContext interface {
	Info() BotInfo
	Send(ctx context.Context, target SendTarget, resp Response) SendResult
}

// Transport: возможности чат-транспорта, которые нужны ядру.
type Transport interface {
	Self() Identity
	SendTo(ctx context.Context, target SendTarget, resp Response) error
}

// GroupSource возвращает актуальный список групп аккаунта.
type GroupSource interface {
	ListGroups(ctx context.Context) ([]LiveGroup, error)
}

// QuoteSource загружает «слово дня».
type QuoteSource interface {
	Quote(ctx context.Context, day string) (string, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}
