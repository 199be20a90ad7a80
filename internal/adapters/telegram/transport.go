package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-ext-bot/internal/domain"
	"tg-ext-bot/internal/infra/metrics"
)

// BotAPI: методы tgbotapi.BotAPI, которые использует транспорт.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChatMembersCount(config tgbotapi.ChatMemberCountConfig) (int, error)
	GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// EventHandler получает нормализованные события.
type EventHandler func(ctx context.Context, event domain.ChatEvent)

type observedGroup struct {
	title string
}

// Transport превращает апдейты Telegram в события и доставляет ответы.
type Transport struct {
	api      BotAPI
	self     tgbotapi.User
	platform string
	log      zerolog.Logger

	handler       EventHandler
	groupsChanged func(ctx context.Context)

	mu      sync.RWMutex
	groups  map[int64]observedGroup
	friends map[int64]struct{}
	online  bool

	inflight sync.WaitGroup
}

var (
	_ domain.Transport   = (*Transport)(nil)
	_ domain.GroupSource = (*Transport)(nil)
)

// New создаёт транспорт. self: учётная запись бота (BotAPI.Self).
func New(api BotAPI, self tgbotapi.User, platform string, log zerolog.Logger) *Transport {
	if platform == "" {
		platform = "Telegram"
	}
	return &Transport{
		api:      api,
		self:     self,
		platform: platform,
		log:      log.With().Str("component", "telegram").Logger(),
		groups:   make(map[int64]observedGroup),
		friends:  make(map[int64]struct{}),
	}
}

// SetHandler задаёт обработчик событий.
func (t *Transport) SetHandler(h EventHandler) {
	t.handler = h
}

// OnGroupsChanged задаёт колбэк на появление или исчезновение группы.
func (t *Transport) OnGroupsChanged(fn func(ctx context.Context)) {
	t.groupsChanged = fn
}

// Self возвращает данные учётной записи бота.
func (t *Transport) Self() domain.Identity {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return domain.Identity{
		ID:       strconv.FormatInt(t.self.ID, 10),
		Nickname: displayName(&t.self),
		Online:   t.online,
		Friends:  len(t.friends),
		Groups:   len(t.groups),
		Platform: t.platform,
	}
}

// Run читает апдейты long polling до отмены контекста.
// Каждый апдейт обрабатывается в своей горутине.
func (t *Transport) Run(ctx context.Context, timeout int) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = timeout
	cfg.AllowedUpdates = []string{"message", "my_chat_member"}
	updates := t.api.GetUpdatesChan(cfg)
	t.setOnline(true)
	t.log.Info().Msg("long polling запущен")
	defer func() {
		t.setOnline(false)
		t.api.StopReceivingUpdates()
		t.inflight.Wait()
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return fmt.Errorf("канал апдейтов закрыт")
			}
			t.dispatch(ctx, upd)
		}
	}
}

// WebhookHandler принимает апдейты через вебхук и отвечает сразу, не дожидаясь обработки.
func (t *Transport) WebhookHandler() http.HandlerFunc {
	t.setOnline(true)
	return func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		t.dispatch(context.WithoutCancel(r.Context()), update)
		w.WriteHeader(http.StatusOK)
	}
}

// Wait дожидается обработки всех принятых апдейтов.
func (t *Transport) Wait() {
	t.inflight.Wait()
}

func (t *Transport) dispatch(ctx context.Context, upd tgbotapi.Update) {
	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()
		t.HandleUpdate(ctx, upd)
	}()
}

func (t *Transport) setOnline(v bool) {
	t.mu.Lock()
	t.online = v
	t.mu.Unlock()
}

// HandleUpdate обрабатывает один апдейт синхронно.
func (t *Transport) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.MyChatMember != nil:
		t.handleMembership(ctx, upd.MyChatMember)
	case upd.Message != nil:
		event, ok := t.toEvent(upd.Message)
		if !ok {
			return
		}
		if t.handler != nil {
			t.handler(ctx, event)
		}
	}
}

func (t *Transport) handleMembership(ctx context.Context, upd *tgbotapi.ChatMemberUpdated) {
	chat := upd.Chat
	if !chat.IsGroup() && !chat.IsSuperGroup() {
		return
	}
	status := upd.NewChatMember.Status
	t.mu.Lock()
	if status == "left" || status == "kicked" {
		delete(t.groups, chat.ID)
	} else {
		t.groups[chat.ID] = observedGroup{title: chat.Title}
	}
	t.mu.Unlock()
	t.log.Info().Int64("chat_id", chat.ID).Str("status", status).Msg("изменилось членство бота в группе")
	t.notifyGroups(ctx)
}

func (t *Transport) notifyGroups(ctx context.Context) {
	if t.groupsChanged != nil {
		t.groupsChanged(ctx)
	}
}

func (t *Transport) toEvent(msg *tgbotapi.Message) (domain.ChatEvent, bool) {
	if msg.Chat == nil || msg.From == nil || msg.From.ID == t.self.ID {
		return domain.ChatEvent{}, false
	}
	event := domain.ChatEvent{
		ID:         uuid.NewString(),
		SenderID:   strconv.FormatInt(msg.From.ID, 10),
		SenderName: displayName(msg.From),
		Message:    domain.InboundMessage{RawText: msg.Text, Segments: segments(msg)},
		ReceivedAt: msg.Time(),
	}
	var target domain.SendTarget
	switch {
	case msg.Chat.IsPrivate():
		event.Scope = domain.ScopePrivate
		target = domain.SendTarget{Scope: domain.ScopePrivate, ID: strconv.FormatInt(msg.Chat.ID, 10)}
		t.mu.Lock()
		t.friends[msg.Chat.ID] = struct{}{}
		t.mu.Unlock()
	case msg.Chat.IsGroup() || msg.Chat.IsSuperGroup():
		event.Scope = domain.ScopeGroup
		event.GroupID = strconv.FormatInt(msg.Chat.ID, 10)
		target = domain.SendTarget{Scope: domain.ScopeGroup, ID: event.GroupID}
		if t.observe(msg.Chat) {
			t.notifyGroups(context.Background())
		}
	default:
		return domain.ChatEvent{}, false
	}
	event.Reply = func(ctx context.Context, resp domain.Response) error {
		return t.SendTo(ctx, target, resp)
	}
	return event, true
}

// observe запоминает группу и сообщает, новая ли она.
func (t *Transport) observe(chat *tgbotapi.Chat) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, known := t.groups[chat.ID]
	t.groups[chat.ID] = observedGroup{title: chat.Title}
	return !known
}

func segments(msg *tgbotapi.Message) []domain.Segment {
	var segs []domain.Segment
	if len(msg.Photo) > 0 {
		segs = append(segs, domain.Segment{Type: domain.SegmentImage, File: msg.Photo[len(msg.Photo)-1].FileID})
	}
	if msg.Sticker != nil {
		segs = append(segs, domain.Segment{Type: domain.SegmentSticker, Text: msg.Sticker.Emoji, File: msg.Sticker.FileID})
	}
	if msg.Document != nil {
		segs = append(segs, domain.Segment{Type: domain.SegmentFile, Text: msg.Document.FileName, File: msg.Document.FileID})
	}
	if msg.Text != "" {
		segs = append(segs, domain.Segment{Type: domain.SegmentText, Text: msg.Text})
	}
	if msg.Caption != "" {
		segs = append(segs, domain.Segment{Type: domain.SegmentText, Text: msg.Caption})
	}
	return segs
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}

// SendTo доставляет ответ в личный чат или группу.
func (t *Transport) SendTo(ctx context.Context, target domain.SendTarget, resp domain.Response) error {
	chatID, err := strconv.ParseInt(target.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("некорректный chat id %q: %w", target.ID, err)
	}
	for _, m := range planMessages(resp) {
		if err := ctx.Err(); err != nil {
			return err
		}
		var (
			chattable tgbotapi.Chattable
			operation = "send_message"
		)
		if m.photo != "" {
			chattable = tgbotapi.NewPhoto(chatID, photoFile(m.photo))
			operation = "send_photo"
		} else {
			chattable = tgbotapi.NewMessage(chatID, m.text)
		}
		start := time.Now()
		_, err := t.api.Send(chattable)
		metrics.ObserveNetworkRequest("telegram_bot", operation, string(target.Scope), start, err)
		if err != nil {
			return fmt.Errorf("telegram %s: %w", operation, err)
		}
	}
	return nil
}

func photoFile(ref string) tgbotapi.RequestFileData {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return tgbotapi.FileURL(ref)
	}
	if strings.ContainsAny(ref, `/\`) {
		return tgbotapi.FilePath(ref)
	}
	return tgbotapi.FileID(ref)
}

// ListGroups возвращает группы, в которых бот видел сообщения или членство,
// с числом участников, владельцем и признаком администратора.
func (t *Transport) ListGroups(ctx context.Context) ([]domain.LiveGroup, error) {
	t.mu.RLock()
	ids := make([]int64, 0, len(t.groups))
	titles := make(map[int64]string, len(t.groups))
	for id, g := range t.groups {
		ids = append(ids, id)
		titles[id] = g.title
	}
	t.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	live := make([]domain.LiveGroup, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		group := domain.LiveGroup{ID: strconv.FormatInt(id, 10), Name: titles[id]}
		chat := tgbotapi.ChatConfig{ChatID: id}

		start := time.Now()
		count, err := t.api.GetChatMembersCount(tgbotapi.ChatMemberCountConfig{ChatConfig: chat})
		metrics.ObserveNetworkRequest("telegram_bot", "get_chat_members_count", "group", start, err)
		if err != nil {
			t.log.Warn().Err(err).Int64("chat_id", id).Msg("не удалось получить число участников")
		} else {
			group.MemberCount = count
		}

		start = time.Now()
		admins, err := t.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{ChatConfig: chat})
		metrics.ObserveNetworkRequest("telegram_bot", "get_chat_administrators", "group", start, err)
		if err != nil {
			t.log.Warn().Err(err).Int64("chat_id", id).Msg("не удалось получить администраторов")
		}
		for _, member := range admins {
			if member.User == nil {
				continue
			}
			if member.Status == "creator" {
				group.OwnerID = strconv.FormatInt(member.User.ID, 10)
			}
			if member.User.ID == t.self.ID {
				group.AdminFlag = true
			}
		}
		live = append(live, group)
	}
	return live, nil
}
