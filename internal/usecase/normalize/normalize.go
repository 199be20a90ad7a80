package normalize

import (
	"strings"

	"tg-ext-bot/internal/domain"
)

// Text возвращает текст сообщения и никогда не падает.
// Порядок: RawText, первый непустой текстовый фрагмент, склейка всех фрагментов.
func Text(msg domain.InboundMessage) string {
	if strings.TrimSpace(msg.RawText) != "" {
		return strings.TrimSpace(msg.RawText)
	}
	for _, seg := range msg.Segments {
		if seg.Type == domain.SegmentText && strings.TrimSpace(seg.Text) != "" {
			return strings.TrimSpace(seg.Text)
		}
	}
	var b strings.Builder
	for _, seg := range msg.Segments {
		b.WriteString(seg.String())
	}
	return strings.TrimSpace(b.String())
}
