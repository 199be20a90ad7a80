package extensions

import (
	"context"
	"strings"

	"tg-ext-bot/internal/domain"
)

const helloTrigger = ">你好"

// Hello отвечает на приветствие.
func Hello() domain.Extension {
	const greeting = "你好！我是机器人，很高兴见到你！"
	return domain.Extension{
		Name:        "Hello",
		Description: `回复包含"你好"的消息`,
		Help:        &domain.Help{Command: helloTrigger, Usage: "向机器人打招呼"},
		Handle: func(_ context.Context, text string, _ domain.ChatEvent, _ domain.BotContext) (domain.Response, error) {
			if !strings.Contains(text, helloTrigger) {
				return nil, nil
			}
			return domain.Text(greeting), nil
		},
		HandleGroup: func(_ context.Context, text string, event domain.ChatEvent, _ domain.BotContext) (domain.Response, error) {
			if !strings.Contains(text, helloTrigger) {
				return nil, nil
			}
			return domain.Text(mention(event) + greeting), nil
		},
	}
}
