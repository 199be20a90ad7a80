package mtproto

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/session"

	"tg-ext-bot/internal/domain"
)

// SessionKey: ключ сессии в хранилище снимков.
const SessionKey = "mtproto_session"

// SessionStore хранит сессию gotd в том же хранилище, что и реестры.
type SessionStore struct {
	store domain.SnapshotStore
}

var _ session.Storage = (*SessionStore)(nil)

// NewSessionStore создаёт хранилище сессии.
func NewSessionStore(store domain.SnapshotStore) *SessionStore {
	return &SessionStore{store: store}
}

// LoadSession загружает сессию.
func (s *SessionStore) LoadSession(ctx context.Context) ([]byte, error) {
	data, err := s.store.Load(ctx, SessionKey)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		return nil, session.ErrNotFound
	}
	return data, err
}

// StoreSession сохраняет сессию.
func (s *SessionStore) StoreSession(ctx context.Context, data []byte) error {
	return s.store.Save(ctx, SessionKey, data)
}

// Storage выбирает файл сессии, если путь задан, иначе хранилище снимков.
func Storage(path string, store domain.SnapshotStore) session.Storage {
	if path != "" {
		return &session.FileStorage{Path: path}
	}
	return NewSessionStore(store)
}

// ValidateSession проверяет, что данные являются сессией gotd поддерживаемой версии.
func ValidateSession(ctx context.Context, data []byte) error {
	mem := &session.StorageMemory{}
	if err := mem.StoreSession(ctx, data); err != nil {
		return err
	}
	loader := session.Loader{Storage: mem}
	if _, err := loader.Load(ctx); err != nil {
		return fmt.Errorf("invalid gotd session: %w", err)
	}
	return nil
}
