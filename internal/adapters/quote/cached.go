package quote

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"tg-ext-bot/internal/domain"
)

const cacheTTL = 36 * time.Hour

// Cached хранит цитату дня в кэше, чтобы перезапуск в течение суток не менял её.
type Cached struct {
	next  domain.QuoteSource
	cache domain.Cache
	log   zerolog.Logger
}

var _ domain.QuoteSource = (*Cached)(nil)

// NewCached оборачивает источник кэшем.
func NewCached(next domain.QuoteSource, cache domain.Cache, log zerolog.Logger) *Cached {
	return &Cached{next: next, cache: cache, log: log.With().Str("component", "quote").Logger()}
}

func (c *Cached) key(day string) string {
	return "quote:" + day
}

// Quote возвращает цитату дня из кэша или источника.
func (c *Cached) Quote(ctx context.Context, day string) (string, error) {
	data, err := c.cache.Get(ctx, c.key(day))
	if err == nil && len(data) > 0 {
		return string(data), nil
	}
	if err != nil && !errors.Is(err, domain.ErrCacheMiss) {
		c.log.Warn().Err(err).Msg("кэш цитаты недоступен")
	}
	text, err := c.next.Quote(ctx, day)
	if err != nil {
		return "", err
	}
	if err := c.cache.Set(ctx, c.key(day), []byte(text), cacheTTL); err != nil {
		c.log.Warn().Err(err).Msg("не удалось сохранить цитату в кэш")
	}
	return text, nil
}
