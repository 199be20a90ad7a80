package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"tg-ext-bot/internal/domain"
	"tg-ext-bot/internal/infra/loghub"
	"tg-ext-bot/internal/usecase/extensions"
	"tg-ext-bot/internal/usecase/groups"
)

type memStore map[string][]byte

func (m memStore) Load(_ context.Context, key string) ([]byte, error) {
	data, ok := m[key]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return data, nil
}

func (m memStore) Save(_ context.Context, key string, data []byte) error {
	m[key] = data
	return nil
}

type stubBot struct {
	sent []domain.SendTarget
}

func (b *stubBot) Info() domain.BotInfo { return domain.BotInfo{SelfID: "100", Nickname: "bot"} }

func (b *stubBot) Send(_ context.Context, target domain.SendTarget, resp domain.Response) domain.SendResult {
	if target.Scope == domain.ScopeGroup {
		return domain.SendResult{Success: false, Error: "该群已被禁用"}
	}
	b.sent = append(b.sent, target)
	return domain.SendResult{Success: true}
}

type stubSource []domain.LiveGroup

func (s stubSource) ListGroups(context.Context) ([]domain.LiveGroup, error) { return s, nil }

const token = "s3cret"

func newServer(t *testing.T) (*httptest.Server, *stubBot, *loghub.Hub) {
	t.Helper()
	ctx := context.Background()
	store := memStore{}
	grp := groups.NewService(store, zerolog.Nop())
	grp.Load(ctx)
	reg := extensions.NewRegistry(store, zerolog.Nop())
	reg.Discover(ctx, extensions.Static("test", domain.Extension{
		Name: "Ping", Description: "pong",
		Handle: func(context.Context, string, domain.ChatEvent, domain.BotContext) (domain.Response, error) { return nil, nil },
	}))
	reg.Load(ctx)
	bot := &stubBot{}
	hub := loghub.New(10)

	api := New(Deps{
		Groups:      grp,
		Extensions:  reg,
		Bot:         bot,
		GroupSource: stubSource{{ID: "42", Name: "chat"}},
		Logs:        hub,
	}, zerolog.Nop())
	r := chi.NewRouter()
	api.Mount(r, token)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, bot, hub
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("не удалось разобрать ответ: %v", err)
		}
	}
	return resp.StatusCode
}

func TestUnauthorized(t *testing.T) {
	srv, _, _ := newServer(t)
	resp, err := srv.Client().Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("ожидали 401, получили %d", resp.StatusCode)
	}
}

func TestGroupsFlow(t *testing.T) {
	srv, _, _ := newServer(t)

	if code := do(t, srv, http.MethodPost, "/api/groups/42/enable", "", nil); code != http.StatusNotFound {
		t.Fatalf("до синхронизации ожидали 404, получили %d", code)
	}
	var synced SyncResult
	if code := do(t, srv, http.MethodPost, "/api/groups/sync", "", &synced); code != http.StatusOK || synced.Added != 1 {
		t.Fatalf("sync: code=%d result=%+v", code, synced)
	}
	if code := do(t, srv, http.MethodPost, "/api/groups/42/enable", "", nil); code != http.StatusOK {
		t.Fatalf("enable: %d", code)
	}
	var list []domain.GroupRecord
	do(t, srv, http.MethodGet, "/api/groups", "", &list)
	if len(list) != 1 || !list[0].Enabled || list[0].Name != "chat" {
		t.Fatalf("groups = %+v", list)
	}
	var st Status
	do(t, srv, http.MethodGet, "/api/status", "", &st)
	if st.Groups != 1 || st.EnabledGroups != 1 || st.Extensions != 1 || st.Bot.SelfID != "100" {
		t.Fatalf("status = %+v", st)
	}
	if code := do(t, srv, http.MethodDelete, "/api/groups/42", "", nil); code != http.StatusOK {
		t.Fatalf("delete: %d", code)
	}
}

func TestExtensionsFlow(t *testing.T) {
	srv, _, _ := newServer(t)
	if code := do(t, srv, http.MethodPost, "/api/extensions/Missing/enable", "", nil); code != http.StatusNotFound {
		t.Fatalf("ожидали 404, получили %d", code)
	}
	if code := do(t, srv, http.MethodPost, "/api/extensions/Ping/enable", "", nil); code != http.StatusOK {
		t.Fatalf("enable: %d", code)
	}
	var list []domain.ExtensionInfo
	do(t, srv, http.MethodGet, "/api/extensions", "", &list)
	if len(list) != 1 || !list[0].Enabled || !list[0].Private || list[0].Group {
		t.Fatalf("extensions = %+v", list)
	}
}

func TestSend(t *testing.T) {
	srv, bot, _ := newServer(t)
	var res domain.SendResult
	if code := do(t, srv, http.MethodPost, "/api/send", `{"type":"private","target_id":"7","message":"hi"}`, &res); code != http.StatusOK || !res.Success {
		t.Fatalf("code=%d res=%+v", code, res)
	}
	if len(bot.sent) != 1 || bot.sent[0].ID != "7" {
		t.Fatalf("sent = %+v", bot.sent)
	}
	if code := do(t, srv, http.MethodPost, "/api/send", `{"type":"group","target_id":"1","message":"hi"}`, &res); code != http.StatusUnprocessableEntity || res.Success {
		t.Fatalf("code=%d res=%+v", code, res)
	}
}

func TestLogs(t *testing.T) {
	srv, _, hub := newServer(t)
	logger := zerolog.New(hub)
	logger.Info().Msg("first")
	logger.Warn().Msg("second")

	var entries []loghub.Entry
	do(t, srv, http.MethodGet, "/api/logs?limit=1", "", &entries)
	if len(entries) != 1 || entries[0].Message != "second" {
		t.Fatalf("entries = %+v", entries)
	}
	do(t, srv, http.MethodPost, "/api/logs/clear", "", nil)
	do(t, srv, http.MethodGet, "/api/logs", "", &entries)
	if len(entries) != 0 {
		t.Fatalf("после очистки ожидали пустой журнал: %+v", entries)
	}
}

func TestLogStream(t *testing.T) {
	srv, _, hub := newServer(t)
	logger := zerolog.New(hub)
	logger.Info().Msg("backlog")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/logs/stream?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("не удалось подключиться: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg StreamMessage
	if err := conn.ReadJSON(&msg); err != nil || msg.Entry == nil || msg.Entry.Message != "backlog" {
		t.Fatalf("ожидали запись из буфера: %+v (%v)", msg, err)
	}

	// подписка оформляется до отправки буфера, поэтому новая запись не теряется
	logger.Info().Msg("live")
	if err := conn.ReadJSON(&msg); err != nil || msg.Entry == nil || msg.Entry.Message != "live" {
		t.Fatalf("ожидали новую запись: %+v (%v)", msg, err)
	}
	hub.Clear()
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "clear" {
		t.Fatalf("ожидали очистку: %+v (%v)", msg, err)
	}
}
