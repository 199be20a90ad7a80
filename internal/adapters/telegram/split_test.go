package telegram

import (
	"strings"
	"testing"

	"tg-ext-bot/internal/domain"
)

func TestSplitMessageRespectsLimit(t *testing.T) {
	var builder strings.Builder
	builder.WriteString(strings.Repeat("a", 3000))
	builder.WriteString("\n\n")
	builder.WriteString(strings.Repeat("b", 2000))
	builder.WriteString("\n")
	builder.WriteString(strings.Repeat("c", 500))

	parts := SplitMessage(builder.String())
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	for i, part := range parts {
		if length := len([]rune(part)); length > messageLimit {
			t.Fatalf("part %d exceeds limit: %d", i, length)
		}
	}
	if parts[0] != strings.Repeat("a", 3000) {
		t.Fatalf("unexpected content in first part")
	}
}

func TestSplitMessageWithoutNewlines(t *testing.T) {
	parts := SplitMessage(strings.Repeat("я", messageLimit*2+10))
	if len(parts) != 3 || len([]rune(parts[2])) != 10 {
		t.Fatalf("unexpected split: %d parts", len(parts))
	}
}

func TestPlanMessages(t *testing.T) {
	resp := domain.Response{
		{Type: domain.PartText, Text: "a"},
		{Type: domain.PartText, Text: "b"},
		{Type: domain.PartImage, File: "https://example.com/cat.png"},
		{Type: domain.PartText, Text: "c"},
	}
	plan := planMessages(resp)
	if len(plan) != 3 {
		t.Fatalf("ожидали 3 сообщения, получили %+v", plan)
	}
	if plan[0].text != "a\nb" || plan[1].photo == "" || plan[2].text != "c" {
		t.Fatalf("неожиданный план: %+v", plan)
	}
}
