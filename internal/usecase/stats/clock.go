package stats

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tg-ext-bot/internal/domain"
	"tg-ext-bot/internal/infra/metrics"
)

// DayLayout: формат календарного дня.
const DayLayout = "2006-01-02"

// DefaultFallback используется, если источник слова дня недоступен.
const DefaultFallback = "今天也要开开心心的呀！"

// Option настраивает Clock.
type Option func(*Clock)

// WithInterval задаёт период опроса.
func WithInterval(d time.Duration) Option {
	return func(c *Clock) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLocation задаёт часовой пояс, в котором считаются сутки.
func WithLocation(loc *time.Location) Option {
	return func(c *Clock) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithNow подменяет источник времени.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		if now != nil {
			c.now = now
		}
	}
}

// WithFallback задаёт запасное слово дня.
func WithFallback(text string) Option {
	return func(c *Clock) {
		if strings.TrimSpace(text) != "" {
			c.fallback = text
		}
	}
}

// WithQuoteTimeout ограничивает загрузку слова дня.
func WithQuoteTimeout(d time.Duration) Option {
	return func(c *Clock) {
		if d > 0 {
			c.quoteTimeout = d
		}
	}
}

// Clock сбрасывает счётчик ответов при смене календарного дня.
type Clock struct {
	mu    sync.Mutex
	stats domain.DailyStats

	quotes       domain.QuoteSource
	interval     time.Duration
	loc          *time.Location
	now          func() time.Time
	fallback     string
	quoteTimeout time.Duration
	log          zerolog.Logger

	refreshing sync.WaitGroup
}

// NewClock создаёт часы. при quotes == nil всегда используется запасное слово.
func NewClock(quotes domain.QuoteSource, log zerolog.Logger, opts ...Option) *Clock {
	c := &Clock{
		quotes:       quotes,
		interval:     time.Minute,
		loc:          time.Local,
		now:          time.Now,
		fallback:     DefaultFallback,
		quoteTimeout: 10 * time.Second,
		log:          log.With().Str("component", "stats").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.stats.DailyWord = c.fallback
	c.stats.LastResetDate = c.Today()
	return c
}

// Today возвращает текущий календарный день.
func (c *Clock) Today() string {
	return c.now().In(c.loc).Format(DayLayout)
}

// Check сбрасывает счётчик, если день сменился. Возвращает true при сбросе.
func (c *Clock) Check(ctx context.Context) bool {
	today := c.Today()
	c.mu.Lock()
	if c.stats.LastResetDate == today {
		c.mu.Unlock()
		return false
	}
	previous := c.stats.LastResetDate
	c.stats.ReplyCount = 0
	c.stats.LastResetDate = today
	c.mu.Unlock()

	metrics.DailyReplies.Set(0)
	c.log.Info().Str("previous", previous).Str("today", today).Msg("дневная статистика сброшена")
	c.refreshQuote(ctx, today)
	return true
}

func (c *Clock) refreshQuote(ctx context.Context, day string) {
	if c.quotes == nil {
		c.setWord(day, c.fallback)
		return
	}
	c.refreshing.Add(1)
	go func() {
		defer c.refreshing.Done()
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.quoteTimeout)
		defer cancel()
		word, err := c.quotes.Quote(qctx, day)
		if err != nil || strings.TrimSpace(word) == "" {
			c.log.Warn().Err(err).Msg("не удалось получить слово дня, используем запасное")
			word = c.fallback
		}
		c.setWord(day, word)
	}()
}

func (c *Clock) setWord(day, word string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// поздний ответ за прошлый день не перетирает текущий
	if c.stats.LastResetDate == day {
		c.stats.DailyWord = word
	}
}

// Wait дожидается загрузки слова дня, запущенной последним сбросом.
func (c *Clock) Wait() {
	c.refreshing.Wait()
}

// Increment увеличивает счётчик ответов и возвращает новое значение.
func (c *Clock) Increment() int {
	c.mu.Lock()
	c.stats.ReplyCount++
	n := c.stats.ReplyCount
	c.mu.Unlock()
	metrics.DailyReplies.Set(float64(n))
	return n
}

// Snapshot возвращает копию статистики.
func (c *Clock) Snapshot() domain.DailyStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Run загружает слово дня и затем проверяет смену дня с заданным периодом до отмены контекста.
func (c *Clock) Run(ctx context.Context) {
	c.refreshQuote(ctx, c.Snapshot().LastResetDate)
	c.Check(ctx)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}
