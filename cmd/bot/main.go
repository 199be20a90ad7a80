package main

import (
	"context"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"tg-ext-bot/internal/adapters/admin"
	"tg-ext-bot/internal/adapters/manifest"
	"tg-ext-bot/internal/adapters/mtproto"
	"tg-ext-bot/internal/adapters/quote"
	"tg-ext-bot/internal/adapters/telegram"
	"tg-ext-bot/internal/domain"
	builtin "tg-ext-bot/internal/extensions"
	"tg-ext-bot/internal/infra/backend"
	"tg-ext-bot/internal/infra/config"
	httpinfra "tg-ext-bot/internal/infra/http"
	"tg-ext-bot/internal/infra/log"
	"tg-ext-bot/internal/infra/loghub"
	"tg-ext-bot/internal/infra/metrics"
	"tg-ext-bot/internal/infra/openai"
	"tg-ext-bot/internal/usecase/bot"
	"tg-ext-bot/internal/usecase/commands"
	"tg-ext-bot/internal/usecase/extensions"
	"tg-ext-bot/internal/usecase/groups"
	"tg-ext-bot/internal/usecase/pipeline"
	"tg-ext-bot/internal/usecase/stats"
)

func main() {
	cfg := config.Load()
	hub := loghub.New(loghub.DefaultCapacity)
	logger := log.NewLogger(cfg.AppEnv, hub)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("bot: не удалось открыть хранилище")
	}
	defer backends.Close()

	loc, err := stats.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.TZ).Msg("bot: неверный часовой пояс")
	}

	quotes := quote.NewCached(quote.NewHitokoto(cfg.Stats.QuoteURL, quote.WithTimeout(cfg.Stats.QuoteTimeout)), backends.Cache, logger)
	clock := stats.NewClock(quotes, logger,
		stats.WithInterval(cfg.Stats.PollInterval),
		stats.WithLocation(loc),
		stats.WithFallback(cfg.Stats.QuoteFallback),
		stats.WithQuoteTimeout(cfg.Stats.QuoteTimeout),
	)

	groupRegistry := groups.NewService(backends.Store, logger)
	groupRegistry.Load(ctx)

	opts := builtin.Options{Location: loc}
	if cfg.OpenAI.APIKey != "" {
		opts.AI = openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
	}
	sources := []extensions.Source{extensions.Static("builtin", builtin.Builtin(opts)...)}
	if cfg.Extensions.Manifest != "" {
		sources = append(sources, manifest.NewSource(cfg.Extensions.Manifest))
	}
	extRegistry := extensions.NewRegistry(backends.Store, logger)
	discovered := extRegistry.Discover(ctx, sources...)
	extRegistry.Load(ctx)
	logger.Info().Int("extensions", discovered).Msg("bot: расширения загружены")

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("bot: не удалось создать бота")
	}
	transport := telegram.New(botAPI, botAPI.Self, cfg.Bot.Platform, logger)

	botService := bot.NewService(transport, groupRegistry, clock, logger)
	router := commands.NewRouter(cfg.Bot.CommandPrefix, extRegistry)
	p := pipeline.New(groupRegistry, extRegistry, router, clock, botService, logger)
	transport.SetHandler(p.Handle)

	var groupSource domain.GroupSource = transport
	if cfg.Groups.Source == config.GroupSourceMTProto {
		groupSource = mtproto.NewGroupSource(cfg.Telegram.APIID, cfg.Telegram.APIHash, mtproto.Storage(cfg.MTProto.SessionFile, backends.Store), logger)
	}
	syncer := newGroupSyncer(groupRegistry, groupSource, logger)
	transport.OnGroupsChanged(syncer.Trigger)

	if len(cfg.Bot.Admins) > 0 {
		logger.Info().Strs("admins", cfg.Bot.Admins).Msg("bot: администраторы из конфига")
	}

	server := httpinfra.NewServer(logger)
	admin.New(admin.Deps{
		Groups:      groupRegistry,
		Extensions:  extRegistry,
		Bot:         botService,
		GroupSource: groupSource,
		Logs:        hub,
	}, logger).Mount(server.Router, cfg.Admin.Token)
	if cfg.Admin.Token == "" {
		logger.Warn().Msg("bot: ADMIN_TOKEN не задан, API консоли открыт")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		clock.Run(ctx)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		syncer.Run(ctx, cfg.Groups.SyncInterval)
	}()

	if cfg.Telegram.WebhookURL != "" {
		server.Router.Post("/bot/webhook", transport.WebhookHandler())
		wh, err := tgbotapi.NewWebhook(cfg.Telegram.WebhookURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("bot: неверный TG_WEBHOOK_URL")
		}
		if _, err := botAPI.Request(wh); err != nil {
			logger.Fatal().Err(err).Msg("bot: не удалось установить вебхук")
		}
		logger.Info().Str("url", cfg.Telegram.WebhookURL).Msg("bot: вебхук установлен")
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := transport.Run(ctx, cfg.Telegram.PollTimeout); err != nil {
				logger.Error().Err(err).Msg("bot: long polling остановлен")
				stop()
			}
		}()
	}

	go func() {
		if err := server.Start(":" + strconv.Itoa(cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("bot: HTTP сервер остановлен")
			stop()
		}
	}()

	logger.Info().Str("bot", botAPI.Self.UserName).Msg("bot: запущен")
	<-ctx.Done()
	logger.Info().Msg("bot: остановка")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("bot: ошибка остановки HTTP сервера")
	}
	wg.Wait()
	transport.Wait()
	clock.Wait()
}

type groupSyncer struct {
	groups  *groups.Service
	source  domain.GroupSource
	log     zerolog.Logger
	pending chan struct{}
}

func newGroupSyncer(g *groups.Service, source domain.GroupSource, logger zerolog.Logger) *groupSyncer {
	return &groupSyncer{
		groups:  g,
		source:  source,
		log:     logger.With().Str("component", "group_sync").Logger(),
		pending: make(chan struct{}, 1),
	}
}

// Trigger просит внеочередную синхронизацию и не блокируется.
func (s *groupSyncer) Trigger(context.Context) {
	select {
	case s.pending <- struct{}{}:
	default:
	}
}

// Run синхронизирует группы при старте, по таймеру и по Trigger.
func (s *groupSyncer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.sync(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sync(ctx)
		case <-s.pending:
			s.sync(ctx)
		}
	}
}

func (s *groupSyncer) sync(ctx context.Context) {
	added, err := s.groups.SyncFrom(ctx, s.source)
	if err != nil {
		s.log.Warn().Err(err).Msg("синхронизация групп не удалась")
		return
	}
	if added > 0 {
		s.log.Info().Int("added", added).Msg("найдены новые группы")
	}
}
