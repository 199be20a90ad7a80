package extensions

import (
	"context"
	"strings"
	"time"

	"tg-ext-bot/internal/domain"
)

const timeTrigger = ">时间"

// Time сообщает текущее время в часовом поясе бота.
func Time(loc *time.Location, now func() time.Time) domain.Extension {
	current := func() string {
		return "现在是：" + now().In(loc).Format("2006/1/2 15:04:05")
	}
	return domain.Extension{
		Name:        "Time",
		Description: `回复包含"时间"的消息`,
		Help:        &domain.Help{Command: timeTrigger, Usage: "查看当前时间"},
		Handle: func(_ context.Context, text string, _ domain.ChatEvent, _ domain.BotContext) (domain.Response, error) {
			if !strings.Contains(text, timeTrigger) {
				return nil, nil
			}
			return domain.Text(current()), nil
		},
		HandleGroup: func(_ context.Context, text string, event domain.ChatEvent, _ domain.BotContext) (domain.Response, error) {
			if !strings.Contains(text, timeTrigger) {
				return nil, nil
			}
			return domain.Text(mention(event) + current()), nil
		},
	}
}
