package extensions

import (
	"context"
	"strings"

	"tg-ext-bot/internal/domain"
)

// Ping отвечает pong на «>ping».
func Ping() domain.Extension {
	handle := func(_ context.Context, text string, _ domain.ChatEvent, _ domain.BotContext) (domain.Response, error) {
		if !strings.EqualFold(strings.TrimSpace(text), ">ping") {
			return nil, nil
		}
		return domain.Text("pong"), nil
	}
	return domain.Extension{
		Name:        "Ping",
		Description: "测试机器人是否响应",
		Help:        &domain.Help{Usage: "回复 pong"},
		Handle:      handle,
		HandleGroup: handle,
	}
}
