package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Scope описывает происхождение события: личный чат или группа.
type Scope string

const (
	ScopePrivate Scope = "private"
	ScopeGroup   Scope = "group"
)

// Valid сообщает, известна ли область.
func (s Scope) Valid() bool {
	return s == ScopePrivate || s == ScopeGroup
}

// SegmentType описывает тип фрагмента структурированного сообщения.
type SegmentType string

const (
	SegmentText    SegmentType = "text"
	SegmentImage   SegmentType = "image"
	SegmentSticker SegmentType = "sticker"
	SegmentFile    SegmentType = "file"
	SegmentMention SegmentType = "mention"
)

// Segment — один фрагмент входящего сообщения.
type Segment struct {
	Type SegmentType
	Text string
	File string
}

// String приводит фрагмент к строке. Нетекстовые фрагменты выводятся в квадратных скобках.
func (s Segment) String() string {
	switch s.Type {
	case SegmentText:
		return s.Text
	case SegmentMention:
		return "@" + s.Text
	case "":
		return s.Text
	}
	if s.Text != "" {
		return "[" + string(s.Type) + ":" + s.Text + "]"
	}
	return "[" + string(s.Type) + "]"
}

// InboundMessage хранит входящее сообщение в исходном виде.
type InboundMessage struct {
	RawText  string
	Segments []Segment
}

// ReplyFunc доставляет ответ туда, откуда пришло событие.
type ReplyFunc func(ctx context.Context, resp Response) error

// ErrInvalidEvent возвращается для событий с нарушенным инвариантом области.
var ErrInvalidEvent = errors.New("invalid chat event")

// ChatEvent — нормализованное входящее событие. Передаётся по значению и не меняется после создания.
type ChatEvent struct {
	ID         string
	Scope      Scope
	SenderID   string
	SenderName string
	GroupID    string
	Message    InboundMessage
	ReceivedAt time.Time
	Reply      ReplyFunc
}

// Validate проверяет, что GroupID задан тогда и только тогда, когда событие групповое.
func (e ChatEvent) Validate() error {
	if !e.Scope.Valid() {
		return ErrInvalidEvent
	}
	hasGroup := strings.TrimSpace(e.GroupID) != ""
	if (e.Scope == ScopeGroup) != hasGroup {
		return ErrInvalidEvent
	}
	return nil
}

// IsGroup сообщает, пришло ли событие из группы.
func (e ChatEvent) IsGroup() bool {
	return e.Scope == ScopeGroup
}

// Send отправляет ответ через привязанную к событию функцию.
func (e ChatEvent) Send(ctx context.Context, resp Response) error {
	if e.Reply == nil {
		return errors.New("event has no reply capability")
	}
	return e.Reply(ctx, resp)
}

// GroupRecord — сохранённое состояние группы.
type GroupRecord struct {
	ID          string `json:"group_id"`
	Name        string `json:"group_name"`
	Enabled     bool   `json:"enabled"`
	MemberCount int    `json:"member_count"`
	OwnerID     string `json:"owner_id"`
	AdminFlag   bool   `json:"admin_flag"`
}

// LiveGroup — группа из актуального списка транспорта.
type LiveGroup struct {
	ID          string
	Name        string
	MemberCount int
	OwnerID     string
	AdminFlag   bool
}

// DailyStats содержит дневную статистику бота.
type DailyStats struct {
	ReplyCount    int    `json:"reply_count"`
	LastResetDate string `json:"last_reset_date"`
	DailyWord     string `json:"daily_word"`
}

// Identity описывает учётную запись бота в транспорте.
type Identity struct {
	ID       string
	Nickname string
	Online   bool
	Friends  int
	Groups   int
	Platform string
}

// BotInfo — живые данные о боте для команды info и консоли.
type BotInfo struct {
	SelfID       string        `json:"self_id"`
	Nickname     string        `json:"nickname"`
	Online       bool          `json:"online"`
	Friends      int           `json:"friends"`
	Groups       int           `json:"groups"`
	Platform     string        `json:"platform"`
	StartedAt    time.Time     `json:"started_at"`
	Uptime       time.Duration `json:"uptime"`
	DailyReplies int           `json:"daily_replies"`
	DailyWord    string        `json:"daily_word"`
}

// SendTarget адресует внеочередную отправку.
type SendTarget struct {
	Scope Scope  `json:"type"`
	ID    string `json:"target_id"`
}

// SendResult — структурированный результат внеочередной отправки.
type SendResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
