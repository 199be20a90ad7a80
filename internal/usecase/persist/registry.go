package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"tg-ext-bot/internal/domain"
	"tg-ext-bot/internal/infra/metrics"
)

// Registry загружает и перезаписывает JSON-снимок состояния T по одному ключу.
type Registry[T any] struct {
	store domain.SnapshotStore
	key   string
	log   zerolog.Logger
}

// New создаёт реестр поверх хранилища снимков.
func New[T any](store domain.SnapshotStore, key string, log zerolog.Logger) *Registry[T] {
	return &Registry[T]{
		store: store,
		key:   key,
		log:   log.With().Str("component", "persist").Str("key", key).Logger(),
	}
}

// Key возвращает ключ снимка.
func (r *Registry[T]) Key() string {
	return r.key
}

// Load читает снимок. Отсутствующий снимок даёт пустое состояние; ошибка чтения или
// разбора логируется и тоже даёт пустое состояние (данные при этом теряются).
func (r *Registry[T]) Load(ctx context.Context) T {
	var zero T
	data, err := r.store.Load(ctx, r.key)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		r.log.Debug().Msg("снимок не найден, начинаем с пустого состояния")
		return zero
	}
	if err != nil {
		r.log.Error().Err(err).Msg("не удалось прочитать снимок")
		return zero
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return zero
	}
	var state T
	if err := json.Unmarshal(data, &state); err != nil {
		r.log.Error().Err(err).Msg("снимок повреждён, используем пустое состояние")
		return zero
	}
	return state
}

// Save перезаписывает снимок целиком. Ошибка логируется и возвращается;
// состояние в памяти остаётся основным до конца жизни процесса.
// Запись не прерывается отменой ctx: изменение в памяти уже применено.
func (r *Registry[T]) Save(ctx context.Context, state T) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		r.log.Error().Err(err).Msg("не удалось сериализовать снимок")
		return fmt.Errorf("marshal snapshot %s: %w", r.key, err)
	}
	if err := r.store.Save(context.WithoutCancel(ctx), r.key, data); err != nil {
		metrics.SnapshotWriteErrors.WithLabelValues(r.key).Inc()
		r.log.Error().Err(err).Msg("не удалось сохранить снимок")
		return fmt.Errorf("save snapshot %s: %w", r.key, err)
	}
	return nil
}
