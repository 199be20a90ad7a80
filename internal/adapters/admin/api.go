package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"tg-ext-bot/internal/domain"
	apphttp "tg-ext-bot/internal/infra/http"
	"tg-ext-bot/internal/infra/loghub"
	"tg-ext-bot/internal/usecase/extensions"
	"tg-ext-bot/internal/usecase/groups"
)

// Groups: операции реестра групп, доступные консоли.
type Groups interface {
	List() []domain.GroupRecord
	Enable(ctx context.Context, id string) error
	Disable(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	SyncFrom(ctx context.Context, source domain.GroupSource) (int, error)
}

// Extensions: операции реестра расширений, доступные консоли.
type Extensions interface {
	List() []domain.ExtensionInfo
	Enable(ctx context.Context, name string) error
	Disable(ctx context.Context, name string) error
}

// Logs: журнал с подпиской.
type Logs interface {
	Entries(limit int) []loghub.Entry
	Clear()
	Subscribe() (<-chan loghub.Event, func())
}

// Deps собирает зависимости API.
type Deps struct {
	Groups      Groups
	Extensions  Extensions
	Bot         domain.BotContext
	GroupSource domain.GroupSource
	Logs        Logs
}

// API обслуживает /api/*.
type API struct {
	deps Deps
	log  zerolog.Logger
}

// New создаёт API консоли.
func New(deps Deps, log zerolog.Logger) *API {
	return &API{deps: deps, log: log.With().Str("component", "admin").Logger()}
}

// Status: сводка для консоли.
type Status struct {
	Bot               domain.BotInfo `json:"bot"`
	Groups            int            `json:"groups"`
	EnabledGroups     int            `json:"enabled_groups"`
	Extensions        int            `json:"extensions"`
	EnabledExtensions int            `json:"enabled_extensions"`
}

// SendRequest: тело POST /api/send.
type SendRequest struct {
	Type     domain.Scope    `json:"type"`
	TargetID string          `json:"target_id"`
	Message  string          `json:"message,omitempty"`
	Parts    domain.Response `json:"parts,omitempty"`
}

// SyncResult: ответ POST /api/groups/sync.
type SyncResult struct {
	Added  int `json:"added"`
	Groups int `json:"groups"`
}

// StreamMessage: сообщение websocket-потока журнала.
type StreamMessage struct {
	Type  string        `json:"type"`
	Entry *loghub.Entry `json:"entry,omitempty"`
}

// Mount подключает маршруты под /api с проверкой токена.
func (a *API) Mount(r chi.Router, token string) {
	r.Route("/api", func(r chi.Router) {
		r.Use(apphttp.BearerAuthMiddleware(token))
		r.Get("/logs/stream", a.streamLogs)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Get("/status", a.status)
			r.Get("/groups", a.listGroups)
			r.Post("/groups/sync", a.syncGroups)
			r.Post("/groups/{id}/enable", a.toggleGroup(true))
			r.Post("/groups/{id}/disable", a.toggleGroup(false))
			r.Delete("/groups/{id}", a.removeGroup)
			r.Get("/extensions", a.listExtensions)
			r.Post("/extensions/{name}/enable", a.toggleExtension(true))
			r.Post("/extensions/{name}/disable", a.toggleExtension(false))
			r.Post("/send", a.send)
			r.Get("/logs", a.logs)
			r.Post("/logs/clear", a.clearLogs)
		})
	})
}

func (a *API) status(w http.ResponseWriter, r *http.Request) {
	st := Status{Bot: a.deps.Bot.Info()}
	for _, g := range a.deps.Groups.List() {
		st.Groups++
		if g.Enabled {
			st.EnabledGroups++
		}
	}
	for _, e := range a.deps.Extensions.List() {
		st.Extensions++
		if e.Enabled {
			st.EnabledExtensions++
		}
	}
	apphttp.WriteJSON(w, http.StatusOK, st)
}

func (a *API) listGroups(w http.ResponseWriter, r *http.Request) {
	apphttp.WriteJSON(w, http.StatusOK, a.deps.Groups.List())
}

func (a *API) syncGroups(w http.ResponseWriter, r *http.Request) {
	if a.deps.GroupSource == nil {
		apphttp.WriteError(w, http.StatusServiceUnavailable, errors.New("источник групп не настроен"))
		return
	}
	added, err := a.deps.Groups.SyncFrom(r.Context(), a.deps.GroupSource)
	if err != nil {
		a.log.Error().Err(err).Str("request_id", apphttp.RequestID(r)).Msg("синхронизация групп не удалась")
		apphttp.WriteError(w, http.StatusBadGateway, err)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, SyncResult{Added: added, Groups: len(a.deps.Groups.List())})
}

func (a *API) toggleGroup(enable bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		op := a.deps.Groups.Disable
		if enable {
			op = a.deps.Groups.Enable
		}
		if err := op(r.Context(), id); err != nil {
			writeRegistryError(w, err)
			return
		}
		apphttp.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "enabled": enable})
	}
}

func (a *API) removeGroup(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.Groups.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeRegistryError(w, err)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) listExtensions(w http.ResponseWriter, r *http.Request) {
	apphttp.WriteJSON(w, http.StatusOK, a.deps.Extensions.List())
}

func (a *API) toggleExtension(enable bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		op := a.deps.Extensions.Disable
		if enable {
			op = a.deps.Extensions.Enable
		}
		if err := op(r.Context(), name); err != nil {
			writeRegistryError(w, err)
			return
		}
		apphttp.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "enabled": enable})
	}
}

func writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, groups.ErrUnknownGroup), errors.Is(err, extensions.ErrUnknownExtension):
		apphttp.WriteError(w, http.StatusNotFound, err)
	default:
		apphttp.WriteError(w, http.StatusInternalServerError, err)
	}
}

func (a *API) send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apphttp.WriteError(w, http.StatusBadRequest, err)
		return
	}
	resp := req.Parts
	if req.Message != "" {
		resp = append(domain.Text(req.Message), resp...)
	}
	result := a.deps.Bot.Send(r.Context(), domain.SendTarget{Scope: req.Type, ID: req.TargetID}, resp)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	apphttp.WriteJSON(w, status, result)
}

func (a *API) logs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries := a.deps.Logs.Entries(limit)
	if entries == nil {
		entries = []loghub.Entry{}
	}
	apphttp.WriteJSON(w, http.StatusOK, entries)
}

func (a *API) clearLogs(w http.ResponseWriter, r *http.Request) {
	a.deps.Logs.Clear()
	apphttp.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}
