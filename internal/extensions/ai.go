package extensions

import (
	"context"
	"strings"

	"tg-ext-bot/internal/domain"
)

const (
	aiTrigger = ">ai"
	aiPrompt  = "你是一个群聊机器人，回答简洁友好，不超过300字。"
)

// AI передаёт вопрос после «>ai» языковой модели.
func AI(chat Chatter) domain.Extension {
	ask := func(ctx context.Context, text string) (string, bool, error) {
		question, ok := strings.CutPrefix(strings.TrimSpace(text), aiTrigger)
		if !ok || (question != "" && question[0] != ' ') {
			return "", false, nil
		}
		question = strings.TrimSpace(question)
		if question == "" {
			return "用法：" + aiTrigger + " <问题>", true, nil
		}
		answer, err := chat.Chat(ctx, aiPrompt, question)
		if err != nil {
			return "", false, err
		}
		return answer, true, nil
	}
	return domain.Extension{
		Name:        "AI",
		Description: "调用大模型回答问题",
		Help:        &domain.Help{Command: aiTrigger + " <问题>", Usage: "向 AI 提问"},
		Handle: func(ctx context.Context, text string, _ domain.ChatEvent, _ domain.BotContext) (domain.Response, error) {
			answer, ok, err := ask(ctx, text)
			if err != nil || !ok {
				return nil, err
			}
			return domain.Text(answer), nil
		},
		HandleGroup: func(ctx context.Context, text string, event domain.ChatEvent, _ domain.BotContext) (domain.Response, error) {
			answer, ok, err := ask(ctx, text)
			if err != nil || !ok {
				return nil, err
			}
			return domain.Text(mention(event) + answer), nil
		},
	}
}
