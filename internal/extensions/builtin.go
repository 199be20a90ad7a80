package extensions

import (
	"context"
	"time"

	"tg-ext-bot/internal/domain"
)

// Chatter: языковая модель для расширения AI.
type Chatter interface {
	Chat(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Options настраивает встроенные расширения.
type Options struct {
	Location *time.Location
	Now      func() time.Time
	// AI включает расширение AI, если задан.
	AI Chatter
}

// Builtin возвращает встроенные расширения в порядке регистрации.
func Builtin(opts Options) []domain.Extension {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	exts := []domain.Extension{
		Hello(),
		Time(opts.Location, opts.Now),
		Ping(),
	}
	if opts.AI != nil {
		exts = append(exts, AI(opts.AI))
	}
	return exts
}

func mention(event domain.ChatEvent) string {
	name := event.SenderName
	if name == "" {
		name = event.SenderID
	}
	return "@" + name + " "
}
