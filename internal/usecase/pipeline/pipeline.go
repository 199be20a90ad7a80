package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tg-ext-bot/internal/domain"
	"tg-ext-bot/internal/infra/metrics"
	"tg-ext-bot/internal/usecase/normalize"
)

// Gate проверяет включённость группы.
type Gate interface {
	IsEnabled(id string) bool
}

// Extensions: упорядоченный набор расширений с флагами включения.
type Extensions interface {
	Extensions() []domain.Extension
	IsEnabled(name string) bool
}

// Commands обрабатывает встроенные команды.
type Commands interface {
	Match(text string) bool
	Route(ctx context.Context, text string, event domain.ChatEvent, bot domain.BotContext) domain.Response
}

// Counter: дневной счётчик ответов.
type Counter interface {
	Increment() int
}

// Stage: чем закончилась обработка события.
type Stage string

const (
	StageInvalid   Stage = "invalid"
	StageRejected  Stage = "rejected"
	StageCommand   Stage = "command"
	StageExtension Stage = "extension"
	StageSilent    Stage = "silent"
)

// InvocationStatus: результат вызова одного расширения.
type InvocationStatus string

const (
	InvocationReplied    InvocationStatus = "replied"
	InvocationNoResponse InvocationStatus = "no_response"
	InvocationFailed     InvocationStatus = "failed"
)

// Invocation описывает вызов обработчика расширения.
type Invocation struct {
	Extension string
	Status    InvocationStatus
	Err       error
	Duration  time.Duration
}

// Outcome: итог обработки события.
type Outcome struct {
	EventID     string
	Text        string
	Stage       Stage
	Extension   string
	Reply       domain.Response
	Sent        bool
	SendErr     error
	Invocations []Invocation
}

// Pipeline обрабатывает входящие события.
type Pipeline struct {
	gate     Gate
	exts     Extensions
	commands Commands
	counter  Counter
	bot      domain.BotContext
	log      zerolog.Logger
}

// New создаёт конвейер.
func New(gate Gate, exts Extensions, commands Commands, counter Counter, bot domain.BotContext, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		gate:     gate,
		exts:     exts,
		commands: commands,
		counter:  counter,
		bot:      bot,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// Dispatch обрабатывает одно событие: гейт группы, затем команда или расширения.
// Расширения вызываются строго по очереди; побеждает первый непустой ответ.
func (p *Pipeline) Dispatch(ctx context.Context, event domain.ChatEvent) Outcome {
	start := time.Now()
	defer func() { metrics.DispatchSeconds.Observe(time.Since(start).Seconds()) }()

	out := Outcome{EventID: event.ID}
	if err := event.Validate(); err != nil {
		out.Stage = StageInvalid
		p.log.Warn().Err(err).Str("event_id", event.ID).Msg("событие отброшено")
		return out
	}
	metrics.EventsTotal.WithLabelValues(string(event.Scope)).Inc()

	if event.IsGroup() && !p.gate.IsEnabled(event.GroupID) {
		out.Stage = StageRejected
		metrics.GateRejections.WithLabelValues("group").Inc()
		p.log.Debug().Str("group_id", event.GroupID).Msg("группа выключена, событие пропущено")
		return out
	}

	out.Text = normalize.Text(event.Message)
	if p.commands.Match(out.Text) {
		out.Stage = StageCommand
		out.Reply = p.commands.Route(ctx, out.Text, event, p.bot)
		p.deliver(ctx, event, &out, "command")
		return out
	}

	out.Stage = StageSilent
	for _, ext := range p.exts.Extensions() {
		handler := ext.Handler(event.Scope)
		if handler == nil {
			continue
		}
		if !p.exts.IsEnabled(ext.Name) {
			metrics.GateRejections.WithLabelValues("extension").Inc()
			continue
		}
		inv, resp := p.invoke(ctx, ext.Name, handler, out.Text, event)
		out.Invocations = append(out.Invocations, inv)
		if inv.Status != InvocationReplied {
			continue
		}
		out.Stage = StageExtension
		out.Extension = ext.Name
		out.Reply = resp
		p.deliver(ctx, event, &out, "extension")
		break
	}
	return out
}

func (p *Pipeline) invoke(ctx context.Context, name string, handler domain.HandlerFunc, text string, event domain.ChatEvent) (inv Invocation, resp domain.Response) {
	inv.Extension = name
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			inv.Status = InvocationFailed
			inv.Err = fmt.Errorf("panic: %v", r)
			resp = nil
		}
		inv.Duration = time.Since(start)
		if inv.Status == InvocationFailed {
			metrics.ExtensionFailures.WithLabelValues(name).Inc()
			p.log.Error().Err(inv.Err).Str("extension", name).Str("event_id", event.ID).Msg("ошибка обработчика расширения")
		}
	}()

	resp, err := handler(ctx, text, event, p.bot)
	switch {
	case err != nil:
		inv.Status = InvocationFailed
		inv.Err = err
		return inv, nil
	case resp.Empty():
		inv.Status = InvocationNoResponse
		return inv, nil
	default:
		inv.Status = InvocationReplied
		return inv, resp
	}
}

func (p *Pipeline) deliver(ctx context.Context, event domain.ChatEvent, out *Outcome, source string) {
	if out.Reply.Empty() {
		return
	}
	if err := event.Send(ctx, out.Reply); err != nil {
		out.SendErr = err
		metrics.BotSendErrors.Inc()
		p.log.Error().Err(err).Str("event_id", event.ID).Str("source", source).Msg("не удалось отправить ответ")
		return
	}
	out.Sent = true
	metrics.BotRepliesTotal.WithLabelValues(source).Inc()
	p.counter.Increment()
}

// Handle обрабатывает событие и логирует итог. Используется транспортом.
func (p *Pipeline) Handle(ctx context.Context, event domain.ChatEvent) {
	out := p.Dispatch(ctx, event)
	if out.Stage == StageCommand || out.Stage == StageExtension {
		p.log.Info().
			Str("event_id", out.EventID).
			Str("scope", string(event.Scope)).
			Str("sender_id", event.SenderID).
			Str("stage", string(out.Stage)).
			Str("extension", out.Extension).
			Bool("sent", out.Sent).
			Msg("ответ на событие")
	}
}
