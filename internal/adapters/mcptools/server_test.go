package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"tg-ext-bot/internal/adapters/admin"
	"tg-ext-bot/internal/domain"
	"tg-ext-bot/internal/infra/loghub"
)

type stubAdmin struct {
	groups  map[string]bool
	sent    []admin.SendRequest
	limit   int
	enabled []string
}

func (s *stubAdmin) Status(context.Context) (admin.Status, error) {
	return admin.Status{Bot: domain.BotInfo{SelfID: "1", Nickname: "bot", Uptime: 90 * time.Second}, Groups: 2, EnabledGroups: 1}, nil
}

func (s *stubAdmin) Groups(context.Context) ([]domain.GroupRecord, error) {
	return []domain.GroupRecord{{ID: "42", Name: "чат", Enabled: s.groups["42"]}}, nil
}

func (s *stubAdmin) SyncGroups(context.Context) (admin.SyncResult, error) {
	return admin.SyncResult{Added: 1, Groups: 1}, nil
}

func (s *stubAdmin) EnableGroup(_ context.Context, id string) error {
	if _, ok := s.groups[id]; !ok {
		return errors.New("not found")
	}
	s.groups[id] = true
	return nil
}

func (s *stubAdmin) DisableGroup(_ context.Context, id string) error {
	if _, ok := s.groups[id]; !ok {
		return errors.New("not found")
	}
	s.groups[id] = false
	return nil
}

func (s *stubAdmin) Extensions(context.Context) ([]domain.ExtensionInfo, error) {
	return []domain.ExtensionInfo{{Name: "Ping", Help: ">ping - pong", Private: true, Group: true}}, nil
}

func (s *stubAdmin) EnableExtension(_ context.Context, name string) error {
	s.enabled = append(s.enabled, name)
	return nil
}

func (s *stubAdmin) DisableExtension(context.Context, string) error { return nil }

func (s *stubAdmin) Send(_ context.Context, req admin.SendRequest) (domain.SendResult, error) {
	s.sent = append(s.sent, req)
	return domain.SendResult{Success: true}, nil
}

func (s *stubAdmin) Logs(_ context.Context, limit int) ([]loghub.Entry, error) {
	s.limit = limit
	return []loghub.Entry{{Level: "info", Message: "старт"}}, nil
}

func connect(t *testing.T, adm Admin) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	srv := NewServer(adm, "test")
	ct, st := mcp.NewInMemoryTransports()
	ss, err := srv.MCP().Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("не удалось подключить сервер: %v", err)
	}
	t.Cleanup(func() { _ = ss.Close() })
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("не удалось подключить клиента: %v", err)
	}
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("вызов %s: %v", name, err)
	}
	if out != nil && !res.IsError {
		raw, err := json.Marshal(res.StructuredContent)
		if err != nil {
			t.Fatalf("не удалось сериализовать результат: %v", err)
		}
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("не удалось разобрать результат %s: %v", raw, err)
		}
	}
	return res
}

func TestListTools(t *testing.T) {
	cs := connect(t, &stubAdmin{})
	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"bot_status", "list_groups", "sync_groups", "set_group_enabled", "list_extensions", "set_extension_enabled", "send_message", "recent_logs"} {
		if !names[want] {
			t.Fatalf("нет инструмента %s среди %v", want, names)
		}
	}
}

func TestStatusIsFlattened(t *testing.T) {
	cs := connect(t, &stubAdmin{})
	var out StatusOutput
	call(t, cs, "bot_status", map[string]any{}, &out)
	if out.SelfID != "1" || out.Uptime != "0天0小时1分30秒" || out.Groups != 2 || out.EnabledGroups != 1 {
		t.Fatalf("неожиданный статус: %+v", out)
	}
}

func TestSetGroupEnabled(t *testing.T) {
	adm := &stubAdmin{groups: map[string]bool{"42": false}}
	cs := connect(t, adm)
	var out ToggleOutput
	call(t, cs, "set_group_enabled", map[string]any{"group_id": "42", "enabled": true}, &out)
	if !out.Success || !adm.groups["42"] {
		t.Fatalf("группа не включена: %+v", out)
	}
	res := call(t, cs, "set_group_enabled", map[string]any{"group_id": "7", "enabled": true}, nil)
	if !res.IsError {
		t.Fatal("ожидали ошибку инструмента для неизвестной группы")
	}
}

func TestSendAndLogs(t *testing.T) {
	adm := &stubAdmin{}
	cs := connect(t, adm)
	var sent domain.SendResult
	call(t, cs, "send_message", map[string]any{"type": "private", "target_id": "5", "message": "привет"}, &sent)
	if !sent.Success || len(adm.sent) != 1 || adm.sent[0].TargetID != "5" || adm.sent[0].Message != "привет" {
		t.Fatalf("неожиданная отправка: %+v, %+v", sent, adm.sent)
	}
	var logs LogsOutput
	call(t, cs, "recent_logs", map[string]any{}, &logs)
	if adm.limit != 50 || len(logs.Entries) != 1 || logs.Entries[0].Message != "старт" {
		t.Fatalf("неожиданный журнал: limit=%d %+v", adm.limit, logs)
	}
}
