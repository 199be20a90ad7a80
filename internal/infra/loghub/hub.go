package loghub

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"
)

// DefaultCapacity: сколько записей хранится в кольцевом буфере.
const DefaultCapacity = 1000

const subscriberBuffer = 64

// Entry: одна запись журнала.
type Entry struct {
	Time    time.Time      `json:"timestamp"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Event уведомляет подписчика о новой записи или об очистке журнала.
type Event struct {
	Entry   Entry
	Cleared bool
}

// Hub реализует io.Writer для zerolog и список подписчиков.
type Hub struct {
	mu       sync.RWMutex
	capacity int
	entries  []Entry
	subs     map[int]chan Event
	nextID   int
	now      func() time.Time
}

// New создаёт хаб с заданной ёмкостью буфера.
func New(capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Hub{
		capacity: capacity,
		subs:     make(map[int]chan Event),
		now:      time.Now,
	}
}

// Write принимает одну JSON-запись zerolog.
func (h *Hub) Write(p []byte) (int, error) {
	entry := h.parse(p)
	h.mu.Lock()
	h.entries = append(h.entries, entry)
	if over := len(h.entries) - h.capacity; over > 0 {
		h.entries = append(h.entries[:0:0], h.entries[over:]...)
	}
	h.mu.Unlock()
	h.broadcast(Event{Entry: entry})
	return len(p), nil
}

func (h *Hub) parse(p []byte) Entry {
	raw := map[string]any{}
	entry := Entry{Time: h.now()}
	if err := json.Unmarshal(bytes.TrimSpace(p), &raw); err != nil {
		entry.Level = "info"
		entry.Message = string(bytes.TrimSpace(p))
		return entry
	}
	if lvl, ok := raw["level"].(string); ok {
		entry.Level = lvl
	}
	if msg, ok := raw["message"].(string); ok {
		entry.Message = msg
	}
	if ts, ok := raw["time"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			entry.Time = parsed
		}
	}
	delete(raw, "level")
	delete(raw, "message")
	delete(raw, "time")
	if len(raw) > 0 {
		entry.Fields = raw
	}
	return entry
}

// Entries возвращает последние limit записей (все, если limit <= 0).
func (h *Hub) Entries(limit int) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	start := 0
	if limit > 0 && len(h.entries) > limit {
		start = len(h.entries) - limit
	}
	out := make([]Entry, len(h.entries)-start)
	copy(out, h.entries[start:])
	return out
}

// Clear очищает буфер и уведомляет подписчиков.
func (h *Hub) Clear() {
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
	h.broadcast(Event{Cleared: true})
}

// Subscribe регистрирует подписчика. cancel нужно вызвать, когда подписка больше не нужна.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// broadcast не блокирует запись журнала: медленный подписчик теряет события.
func (h *Hub) broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
