package groups

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"tg-ext-bot/internal/domain"
	"tg-ext-bot/internal/usecase/persist"
)

// SnapshotKey: ключ снимка групп в хранилище.
const SnapshotKey = "groups"

// ErrUnknownGroup возвращается для группы, которой нет в реестре.
var ErrUnknownGroup = errors.New("неизвестная группа")

type entry struct {
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	MemberCount int    `json:"member_count"`
	OwnerID     string `json:"owner_id"`
	AdminFlag   bool   `json:"admin_flag"`
}

type snapshot map[string]entry

// Service хранит включённость групп. Неизвестная группа всегда выключена.
type Service struct {
	mu      sync.RWMutex
	records snapshot
	store   *persist.Registry[snapshot]
	log     zerolog.Logger
}

// NewService создаёт реестр групп поверх хранилища снимков.
func NewService(store domain.SnapshotStore, log zerolog.Logger) *Service {
	return &Service{
		records: snapshot{},
		store:   persist.New[snapshot](store, SnapshotKey, log),
		log:     log.With().Str("component", "groups").Logger(),
	}
}

// Load читает снимок групп. Вызывается один раз при старте.
func (s *Service) Load(ctx context.Context) {
	loaded := s.store.Load(ctx)
	if loaded == nil {
		loaded = snapshot{}
	}
	s.mu.Lock()
	s.records = loaded
	s.mu.Unlock()
	s.log.Info().Int("groups", len(loaded)).Msg("реестр групп загружен")
}

// Sync сверяет реестр с живым списком групп: новые группы добавляются выключенными,
// у известных обновляются только метаданные. Записи не удаляются.
func (s *Service) Sync(ctx context.Context, live []domain.LiveGroup) int {
	s.mu.Lock()
	added := 0
	for _, g := range live {
		id := strings.TrimSpace(g.ID)
		if id == "" {
			continue
		}
		rec, ok := s.records[id]
		if !ok {
			added++
		}
		rec.Name = g.Name
		rec.MemberCount = g.MemberCount
		rec.OwnerID = g.OwnerID
		rec.AdminFlag = g.AdminFlag
		s.records[id] = rec
	}
	state := s.cloneLocked()
	s.mu.Unlock()

	s.persist(ctx, state)
	s.log.Info().Int("live", len(live)).Int("added", added).Msg("группы синхронизированы")
	return added
}

// SyncFrom загружает живой список из источника и вызывает Sync.
func (s *Service) SyncFrom(ctx context.Context, source domain.GroupSource) (int, error) {
	live, err := source.ListGroups(ctx)
	if err != nil {
		return 0, fmt.Errorf("получение списка групп: %w", err)
	}
	return s.Sync(ctx, live), nil
}

// Enable включает бота в группе.
func (s *Service) Enable(ctx context.Context, id string) error {
	return s.setEnabled(ctx, id, true)
}

// Disable выключает бота в группе.
func (s *Service) Disable(ctx context.Context, id string) error {
	return s.setEnabled(ctx, id, false)
}

func (s *Service) setEnabled(ctx context.Context, id string, enabled bool) error {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownGroup
	}
	if rec.Enabled == enabled {
		s.mu.Unlock()
		return nil
	}
	rec.Enabled = enabled
	s.records[id] = rec
	state := s.cloneLocked()
	s.mu.Unlock()

	// снимок пишется вне блокировки: параллельные переключения могут сохраниться не по порядку
	s.persist(ctx, state)
	s.log.Info().Str("group_id", id).Bool("enabled", enabled).Msg("статус группы изменён")
	return nil
}

// Remove удаляет запись группы. Используется только из консоли.
func (s *Service) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.records[id]; !ok {
		s.mu.Unlock()
		return ErrUnknownGroup
	}
	delete(s.records, id)
	state := s.cloneLocked()
	s.mu.Unlock()

	s.persist(ctx, state)
	s.log.Info().Str("group_id", id).Msg("группа удалена из реестра")
	return nil
}

// IsEnabled сообщает, включён ли бот в группе.
func (s *Service) IsEnabled(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[id].Enabled
}

// Get возвращает запись группы.
func (s *Service) Get(id string) (domain.GroupRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return domain.GroupRecord{}, false
	}
	return toRecord(id, rec), true
}

// List возвращает все группы, отсортированные по id.
func (s *Service) List() []domain.GroupRecord {
	s.mu.RLock()
	out := make([]domain.GroupRecord, 0, len(s.records))
	for id, rec := range s.records {
		out = append(out, toRecord(id, rec))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Service) cloneLocked() snapshot {
	out := make(snapshot, len(s.records))
	for id, rec := range s.records {
		out[id] = rec
	}
	return out
}

func (s *Service) persist(ctx context.Context, state snapshot) {
	// ошибка уже залогирована реестром, состояние в памяти остаётся основным
	_ = s.store.Save(ctx, state)
}

func toRecord(id string, rec entry) domain.GroupRecord {
	return domain.GroupRecord{
		ID:          id,
		Name:        rec.Name,
		Enabled:     rec.Enabled,
		MemberCount: rec.MemberCount,
		OwnerID:     rec.OwnerID,
		AdminFlag:   rec.AdminFlag,
	}
}
