package extensions

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

// SnapshotKey: ключ снимка включённых расширений.
const SnapshotKey = "plugins"

var (
	ErrUnknownExtension = errors.New("неизвестное расширение")
	ErrInvalidExtension = errors.New("некорректное расширение")
)

// Source перечисляет расширения одного источника (встроенные, манифест).
type Source interface {
	Name() string
	Extensions(ctx context.Context) ([]domain.Extension, error)
}

type staticSource struct {
	name string
	exts []domain.Extension
}

// Static создаёт источник из заранее собранного списка.
func Static(name string, exts ...domain.Extension) Source {
	return staticSource{name: name, exts: exts}
}

func (s staticSource) Name() string { return s.name }

func (s staticSource) Extensions(context.Context) ([]domain.Extension, error) {
	return s.exts, nil
}

type snapshot struct {
	EnabledPlugins []string `json:"enabledPlugins"`
}

// Registry хранит упорядоченный список расширений и набор включённых имён.
type Registry struct {
	mu      sync.RWMutex
	exts    []domain.Extension
	index   map[string]int
	enabled map[string]struct{}
	store   *persist.Registry[snapshot]
	log     zerolog.Logger
}

// NewRegistry создаёт пустой реестр.
func NewRegistry(store domain.SnapshotStore, log zerolog.Logger) *Registry {
	return &Registry{
		index:   map[string]int{},
		enabled: map[string]struct{}{},
		store:   persist.New[snapshot](store, SnapshotKey, log),
		log:     log.With().Str("component", "extensions").Logger(),
	}
}

// Validate проверяет форму расширения.
func Validate(ext domain.Extension) error {
	if strings.TrimSpace(ext.Name) == "" {
		return fmt.Errorf("%w: пустое имя", ErrInvalidExtension)
	}
	if strings.TrimSpace(ext.Description) == "" {
		return fmt.Errorf("%w: %s: пустое описание", ErrInvalidExtension, ext.Name)
	}
	if ext.Handle == nil && ext.HandleGroup == nil {
		return fmt.Errorf("%w: %s: нет ни одного обработчика", ErrInvalidExtension, ext.Name)
	}
	return nil
}

// Discover регистрирует расширения источников по порядку. Некорректные расширения
// и сбойные источники логируются и пропускаются. Возвращает число добавленных.
func (r *Registry) Discover(ctx context.Context, sources ...Source) int {
	added := 0
	for _, src := range sources {
		exts, err := src.Extensions(ctx)
		if err != nil {
			r.log.Error().Err(err).Str("source", src.Name()).Msg("источник расширений недоступен")
			continue
		}
		for _, ext := range exts {
			if err := r.register(ext); err != nil {
				r.log.Warn().Err(err).Str("source", src.Name()).Str("extension", ext.Name).Msg("расширение пропущено")
				continue
			}
			added++
			r.log.Debug().Str("source", src.Name()).Str("extension", ext.Name).Msg("расширение зарегистрировано")
		}
	}
	r.log.Info().Int("extensions", added).Msg("расширения загружены")
	return added
}

func (r *Registry) register(ext domain.Extension) error {
	if err := Validate(ext); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[ext.Name]; ok {
		return fmt.Errorf("%w: %s: имя уже занято", ErrInvalidExtension, ext.Name)
	}
	r.index[ext.Name] = len(r.exts)
	r.exts = append(r.exts, ext)
	return nil
}

// Load читает набор включённых имён. Неизвестные имена сохраняются, но ни на что не влияют.
func (r *Registry) Load(ctx context.Context) {
	state := r.store.Load(ctx)
	r.mu.Lock()
	r.enabled = make(map[string]struct{}, len(state.EnabledPlugins))
	for _, name := range state.EnabledPlugins {
		r.enabled[name] = struct{}{}
	}
	r.mu.Unlock()
}

// Extensions возвращает расширения в порядке регистрации.
func (r *Registry) Extensions() []domain.Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Extension, len(r.exts))
	copy(out, r.exts)
	return out
}

// IsEnabled сообщает, включено ли расширение.
func (r *Registry) IsEnabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.index[name]; !ok {
		return false
	}
	_, ok := r.enabled[name]
	return ok
}

// List возвращает метаданные расширений с текущим флагом включения.
func (r *Registry) List() []domain.ExtensionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ExtensionInfo, 0, len(r.exts))
	for _, ext := range r.exts {
		_, enabled := r.enabled[ext.Name]
		out = append(out, domain.ExtensionInfo{
			Name:        ext.Name,
			Description: ext.Description,
			Help:        ext.HelpLine(),
			Private:     ext.Supports(domain.ScopePrivate),
			Group:       ext.Supports(domain.ScopeGroup),
			Enabled:     enabled,
		})
	}
	return out
}

// HelpLines возвращает строки справки расширений с обработчиком для области,
// независимо от того, включены ли они.
func (r *Registry) HelpLines(scope domain.Scope) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var lines []string
	for _, ext := range r.exts {
		if ext.Supports(scope) {
			lines = append(lines, ext.HelpLine())
		}
	}
	return lines
}

// Enable включает расширение.
func (r *Registry) Enable(ctx context.Context, name string) error {
	return r.setEnabled(ctx, name, true)
}

// Disable выключает расширение.
func (r *Registry) Disable(ctx context.Context, name string) error {
	return r.setEnabled(ctx, name, false)
}

func (r *Registry) setEnabled(ctx context.Context, name string, enabled bool) error {
	r.mu.Lock()
	if _, ok := r.index[name]; !ok {
		r.mu.Unlock()
		return ErrUnknownExtension
	}
	if enabled {
		r.enabled[name] = struct{}{}
	} else {
		delete(r.enabled, name)
	}
	names := make([]string, 0, len(r.enabled))
	for n := range r.enabled {
		names = append(names, n)
	}
	r.mu.Unlock()

	sort.Strings(names)
	// ошибка записи уже залогирована; включение в памяти действует до перезапуска
	_ = r.store.Save(ctx, snapshot{EnabledPlugins: names})
	r.log.Info().Str("extension", name).Bool("enabled", enabled).Msg("статус расширения изменён")
	return nil
}
