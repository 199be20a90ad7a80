package groups

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"tg-ext-bot/internal/domain"
)

type memStore struct {
	data    map[string][]byte
	saveErr error
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
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}

type stubSource struct {
	groups []domain.LiveGroup
	err    error
}

func (s stubSource) ListGroups(context.Context) ([]domain.LiveGroup, error) {
	return s.groups, s.err
}

func newService(store *memStore) *Service {
	svc := NewService(store, zerolog.Nop())
	svc.Load(context.Background())
	return svc
}

func TestUnknownGroupIsDisabled(t *testing.T) {
	svc := newService(newMemStore())
	if svc.IsEnabled("42") {
		t.Fatal("неизвестная группа должна быть выключена")
	}
	if err := svc.Enable(context.Background(), "42"); !errors.Is(err, ErrUnknownGroup) {
		t.Fatalf("ожидали ErrUnknownGroup, получили %v", err)
	}
	if _, ok := svc.Get("42"); ok {
		t.Fatal("Enable не должен создавать запись")
	}
}

func TestSyncKeepsEnabledAndAddsDisabled(t *testing.T) {
	ctx := context.Background()
	svc := newService(newMemStore())
	svc.Sync(ctx, []domain.LiveGroup{{ID: "G", Name: "old"}})
	if err := svc.Enable(ctx, "G"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	added := svc.Sync(ctx, []domain.LiveGroup{
		{ID: "G", Name: "renamed", MemberCount: 10, OwnerID: "7", AdminFlag: true},
		{ID: "H", Name: "new"},
	})
	if added != 1 {
		t.Fatalf("ожидали одну новую группу, получили %d", added)
	}
	if !svc.IsEnabled("G") {
		t.Fatal("синхронизация не должна выключать группу")
	}
	if svc.IsEnabled("H") {
		t.Fatal("новая группа должна быть выключена")
	}
	g, _ := svc.Get("G")
	if g.Name != "renamed" || g.MemberCount != 10 || g.OwnerID != "7" || !g.AdminFlag {
		t.Fatalf("метаданные не обновились: %+v", g)
	}
}

func TestSyncNeverRemoves(t *testing.T) {
	ctx := context.Background()
	svc := newService(newMemStore())
	svc.Sync(ctx, []domain.LiveGroup{{ID: "A"}, {ID: "B"}})
	svc.Sync(ctx, []domain.LiveGroup{{ID: "B"}})
	if len(svc.List()) != 2 {
		t.Fatalf("ожидали 2 записи, получили %+v", svc.List())
	}
	if err := svc.Remove(ctx, "A"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := svc.Remove(ctx, "A"); !errors.Is(err, ErrUnknownGroup) {
		t.Fatalf("ожидали ErrUnknownGroup, получили %v", err)
	}
}

func TestEnableIsIdempotentAndSurvivesReload(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newService(store)
	svc.Sync(ctx, []domain.LiveGroup{{ID: "1"}, {ID: "2"}, {ID: "3"}})
	for _, id := range []string{"1", "1", "3"} {
		if err := svc.Enable(ctx, id); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}
	if err := svc.Disable(ctx, "3"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	reloaded := newService(store)
	for id, want := range map[string]bool{"1": true, "2": false, "3": false} {
		if got := reloaded.IsEnabled(id); got != want {
			t.Fatalf("группа %s: ожидали %v, получили %v", id, want, got)
		}
	}
}

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newService(store)
	svc.Sync(ctx, []domain.LiveGroup{{ID: "1"}})
	store.saveErr = errors.New("read-only")
	if err := svc.Enable(ctx, "1"); err != nil {
		t.Fatalf("ошибка записи не должна возвращаться: %v", err)
	}
	if !svc.IsEnabled("1") {
		t.Fatal("состояние в памяти должно сохраниться")
	}
}

func TestSyncFrom(t *testing.T) {
	ctx := context.Background()
	svc := newService(newMemStore())
	if _, err := svc.SyncFrom(ctx, stubSource{err: errors.New("offline")}); err == nil {
		t.Fatal("ожидали ошибку источника")
	}
	added, err := svc.SyncFrom(ctx, stubSource{groups: []domain.LiveGroup{{ID: "9", Name: "chat"}}})
	if err != nil || added != 1 {
		t.Fatalf("added=%d err=%v", added, err)
	}
}

func TestSnapshotFormat(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newService(store)
	svc.Sync(ctx, []domain.LiveGroup{{ID: "42", Name: "chat", MemberCount: 3}})
	store.data[SnapshotKey] = []byte(`{"42":{"name":"chat","enabled":true,"member_count":3,"owner_id":"","admin_flag":false}}`)
	if !newService(store).IsEnabled("42") {
		t.Fatal("ожидали включённую группу из снимка")
	}
}
