package snapshot

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"tg-ext-bot/internal/domain"
)

// Redis хранит снимки строковыми ключами без TTL.
type Redis struct {
	client *redis.Client
	prefix string
}

var _ domain.SnapshotStore = (*Redis)(nil)

// NewRedis создаёт хранилище снимков в Redis.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// Load читает снимок.
func (r *Redis) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save перезаписывает снимок.
func (r *Redis) Save(ctx context.Context, key string, data []byte) error {
	return r.client.Set(ctx, r.prefix+key, data, 0).Err()
}
