package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tg-ext-bot/internal/domain"
	"tg-ext-bot/internal/infra/metrics"
)

var (
	ErrGroupDisabled     = errors.New("该群已被禁用")
	ErrUnsupportedTarget = errors.New("不支持的消息类型")
	ErrEmptyMessage      = errors.New("消息内容不能为空")
)

// Gate проверяет, включена ли группа.
type Gate interface {
	IsEnabled(id string) bool
}

// Counter: дневной счётчик ответов.
type Counter interface {
	Increment() int
	Snapshot() domain.DailyStats
}

// Service реализует domain.BotContext поверх транспорта.
type Service struct {
	transport domain.Transport
	gate      Gate
	counter   Counter
	startedAt time.Time
	now       func() time.Time
	log       zerolog.Logger
}

var _ domain.BotContext = (*Service)(nil)

// NewService создаёт контекст бота. Время запуска фиксируется при создании.
func NewService(transport domain.Transport, gate Gate, counter Counter, log zerolog.Logger) *Service {
	return &Service{
		transport: transport,
		gate:      gate,
		counter:   counter,
		startedAt: time.Now(),
		now:       time.Now,
		log:       log.With().Str("component", "bot").Logger(),
	}
}

// Info возвращает живые данные о боте.
func (s *Service) Info() domain.BotInfo {
	self := s.transport.Self()
	stats := s.counter.Snapshot()
	return domain.BotInfo{
		SelfID:       self.ID,
		Nickname:     self.Nickname,
		Online:       self.Online,
		Friends:      self.Friends,
		Groups:       self.Groups,
		Platform:     self.Platform,
		StartedAt:    s.startedAt,
		Uptime:       s.now().Sub(s.startedAt),
		DailyReplies: stats.ReplyCount,
		DailyWord:    stats.DailyWord,
	}
}

// Send отправляет сообщение вне обработки события. В выключенную группу отправка запрещена.
// Ошибки не повторяются и возвращаются в SendResult.
func (s *Service) Send(ctx context.Context, target domain.SendTarget, resp domain.Response) domain.SendResult {
	if err := s.send(ctx, target, resp); err != nil {
		return domain.SendResult{Success: false, Error: err.Error()}
	}
	return domain.SendResult{Success: true}
}

func (s *Service) send(ctx context.Context, target domain.SendTarget, resp domain.Response) error {
	if !target.Scope.Valid() || strings.TrimSpace(target.ID) == "" {
		return ErrUnsupportedTarget
	}
	if resp.Empty() {
		return ErrEmptyMessage
	}
	if target.Scope == domain.ScopeGroup && !s.gate.IsEnabled(target.ID) {
		return ErrGroupDisabled
	}
	if err := s.transport.SendTo(ctx, target, resp); err != nil {
		metrics.BotSendErrors.Inc()
		s.log.Error().Err(err).Str("scope", string(target.Scope)).Str("target_id", target.ID).Msg("не удалось отправить сообщение")
		return fmt.Errorf("отправка: %w", err)
	}
	metrics.BotRepliesTotal.WithLabelValues("manual").Inc()
	s.counter.Increment()
	return nil
}
