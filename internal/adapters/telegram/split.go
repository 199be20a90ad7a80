package telegram

import (
	"strings"

	"tg-ext-bot/internal/domain"
)

const messageLimit = 4096

// SplitMessage breaks the text into chunks that respect Telegram's message size limit.
// It prefers to split on newline boundaries so formatted blocks stay intact.
func SplitMessage(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(trimmed)
	if len(runes) <= messageLimit {
		return []string{trimmed}
	}

	var parts []string
	for start := 0; start < len(runes); {
		end := start + messageLimit
		if end >= len(runes) {
			if chunk := strings.Trim(string(runes[start:]), "\n"); chunk != "" {
				parts = append(parts, chunk)
			}
			break
		}

		split := end
		for i := end; i > start; i-- {
			if runes[i-1] == '\n' {
				split = i
				break
			}
		}
		if chunk := strings.Trim(string(runes[start:split]), "\n"); chunk != "" {
			parts = append(parts, chunk)
		}
		start = split
		for start < len(runes) && runes[start] == '\n' {
			start++
		}
	}
	return parts
}

// outgoing: одно сообщение Telegram: текст или фото.
type outgoing struct {
	text  string
	photo string
}

// planMessages склеивает соседние текстовые части ответа и режет их по лимиту.
// Каждая картинка уходит отдельным фото.
func planMessages(resp domain.Response) []outgoing {
	var (
		out     []outgoing
		pending []string
	)
	flush := func() {
		for _, chunk := range SplitMessage(strings.Join(pending, "\n")) {
			out = append(out, outgoing{text: chunk})
		}
		pending = pending[:0]
	}
	for _, part := range resp {
		switch part.Type {
		case domain.PartImage:
			if part.File == "" {
				continue
			}
			flush()
			out = append(out, outgoing{photo: part.File})
		default:
			if part.Text != "" {
				pending = append(pending, part.Text)
			}
		}
	}
	flush()
	return out
}
