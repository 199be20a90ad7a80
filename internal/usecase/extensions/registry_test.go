package extensions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"tg-ext-bot/internal/domain"
)

type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Load(_ context.Context, key string) ([]byte, error) {
	data, ok := m.data[key]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return data, nil
}

func (m *memStore) Save(_ context.Context, key string, data []byte) error {
	m.data[key] = append([]byte(nil), data...)
	return nil
}

type failingSource struct{}

func (failingSource) Name() string { return "broken" }

func (failingSource) Extensions(context.Context) ([]domain.Extension, error) {
	return nil, errors.New("manifest missing")
}

func noop(context.Context, string, domain.ChatEvent, domain.BotContext) (domain.Response, error) {
	return nil, nil
}

func sample() []domain.Extension {
	return []domain.Extension{
		{Name: "Ping", Description: "pong", Handle: noop, HandleGroup: noop},
		{Name: "", Description: "без имени", Handle: noop},
		{Name: "Secret", Description: "только личка", Handle: noop, Help: &domain.Help{Command: ">s"}},
		{Name: "Broken", Description: "нет обработчиков"},
		{Name: "Ping", Description: "дубль", Handle: noop},
		{Name: "Group", Description: "только группы", HandleGroup: noop},
	}
}

func newRegistry(store *memStore) *Registry {
	reg := NewRegistry(store, zerolog.Nop())
	reg.Discover(context.Background(), failingSource{}, Static("builtin", sample()...))
	reg.Load(context.Background())
	return reg
}

func TestDiscoverSkipsInvalid(t *testing.T) {
	reg := newRegistry(newMemStore())
	exts := reg.Extensions()
	want := []string{"Ping", "Secret", "Group"}
	if len(exts) != len(want) {
		t.Fatalf("ожидали %d расширения, получили %d", len(want), len(exts))
	}
	for i, name := range want {
		if exts[i].Name != name {
			t.Fatalf("порядок нарушен: позиция %d = %s, want %s", i, exts[i].Name, name)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		ext     domain.Extension
		wantErr bool
	}{
		{name: "ok", ext: domain.Extension{Name: "A", Description: "d", HandleGroup: noop}},
		{name: "blank name", ext: domain.Extension{Name: " ", Description: "d", Handle: noop}, wantErr: true},
		{name: "no description", ext: domain.Extension{Name: "A", Handle: noop}, wantErr: true},
		{name: "no handlers", ext: domain.Extension{Name: "A", Description: "d"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.ext)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidExtension) {
				t.Fatalf("ожидали ErrInvalidExtension, получили %v", err)
			}
		})
	}
}

func TestEnableDisable(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(newMemStore())
	if reg.IsEnabled("Ping") {
		t.Fatal("без снимка расширения выключены")
	}
	if err := reg.Enable(ctx, "Missing"); !errors.Is(err, ErrUnknownExtension) {
		t.Fatalf("ожидали ErrUnknownExtension, получили %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := reg.Enable(ctx, "Ping"); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}
	if !reg.IsEnabled("Ping") {
		t.Fatal("ожидали включённое расширение")
	}
	if err := reg.Disable(ctx, "Ping"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if reg.IsEnabled("Ping") {
		t.Fatal("ожидали выключенное расширение")
	}
	infos := reg.List()
	if len(infos) != 3 || infos[0].Name != "Ping" || infos[0].Enabled {
		t.Fatalf("List() = %+v", infos)
	}
}

func TestRoundTripKeepsUnknownNames(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.data[SnapshotKey] = []byte(`{"enabledPlugins":["Gone"]}`)
	reg := newRegistry(store)
	if reg.IsEnabled("Gone") {
		t.Fatal("неизвестное имя не должно считаться включённым")
	}
	if err := reg.Enable(ctx, "Secret"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := reg.Enable(ctx, "Group"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	var saved snapshot
	if err := json.Unmarshal(store.data[SnapshotKey], &saved); err != nil {
		t.Fatalf("снимок не читается: %v", err)
	}
	want := []string{"Gone", "Group", "Secret"}
	if len(saved.EnabledPlugins) != len(want) {
		t.Fatalf("снимок = %v, want %v", saved.EnabledPlugins, want)
	}
	for i := range want {
		if saved.EnabledPlugins[i] != want[i] {
			t.Fatalf("снимок = %v, want %v", saved.EnabledPlugins, want)
		}
	}

	reloaded := newRegistry(store)
	if !reloaded.IsEnabled("Secret") || !reloaded.IsEnabled("Group") || reloaded.IsEnabled("Ping") {
		t.Fatalf("после перезагрузки набор изменился: %+v", reloaded.List())
	}
}

func TestHelpLinesIgnoreEnabledState(t *testing.T) {
	reg := newRegistry(newMemStore())
	private := reg.HelpLines(domain.ScopePrivate)
	if len(private) != 2 || private[0] != ">ping - pong" || private[1] != ">s - только личка" {
		t.Fatalf("HelpLines(private) = %v", private)
	}
	group := reg.HelpLines(domain.ScopeGroup)
	if len(group) != 2 || group[1] != ">group - только группы" {
		t.Fatalf("HelpLines(group) = %v", group)
	}
}
