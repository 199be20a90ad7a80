package commands

import (
	"context"
	"strings"
	"testing"
	"time"

	"tg-ext-bot/internal/domain"
)

type stubHelp map[domain.Scope][]string

func (s stubHelp) HelpLines(scope domain.Scope) []string { return s[scope] }

type stubBot struct{ info domain.BotInfo }

func (s stubBot) Info() domain.BotInfo { return s.info }

func (s stubBot) Send(context.Context, domain.SendTarget, domain.Response) domain.SendResult {
	return domain.SendResult{Success: true}
}

func TestParse(t *testing.T) {
	p := Parser{}
	tests := []struct {
		text    string
		command bool
		name    string
		args    int
	}{
		{text: "/help", command: true, name: "help"},
		{text: "  /PING@my_bot extra arg", command: true, name: "ping", args: 2},
		{text: "/", command: true, name: ""},
		{text: ">ping", command: false},
		{text: "", command: false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := p.Parse(tt.text)
			if got.IsCommand != tt.command || got.Name != tt.name || len(got.Args) != tt.args {
				t.Fatalf("Parse(%q) = %+v", tt.text, got)
			}
		})
	}
}

func TestRoute(t *testing.T) {
	help := stubHelp{
		domain.ScopePrivate: {">你好 - 打招呼"},
		domain.ScopeGroup:   {">ping - pong"},
	}
	r := NewRouter("/", help)
	bot := stubBot{info: domain.BotInfo{SelfID: "1", Nickname: "bot", Online: true, Uptime: 90 * time.Second, DailyReplies: 3}}
	private := domain.ChatEvent{Scope: domain.ScopePrivate, SenderID: "u"}
	group := domain.ChatEvent{Scope: domain.ScopeGroup, SenderID: "u", GroupID: "g"}
	ctx := context.Background()

	if got := r.Route(ctx, "/ping", private, bot).PlainText(); got != "pong!" {
		t.Fatalf("ping = %q", got)
	}
	if got := r.Route(ctx, "/whatever", private, bot).PlainText(); got != UnknownReply {
		t.Fatalf("unknown = %q", got)
	}
	privateHelp := r.Route(ctx, "/HELP", private, bot).PlainText()
	if !strings.HasPrefix(privateHelp, "可用命令:") || !strings.HasSuffix(privateHelp, ">你好 - 打招呼") {
		t.Fatalf("help(private) = %q", privateHelp)
	}
	groupHelp := r.Route(ctx, "/help", group, bot).PlainText()
	if !strings.HasPrefix(groupHelp, "群可用命令:") || strings.Contains(groupHelp, "你好") {
		t.Fatalf("help(group) = %q", groupHelp)
	}
	info := r.Route(ctx, "/info", group, bot).PlainText()
	if !strings.Contains(info, "运行时间: 0天0小时1分30秒") || !strings.Contains(info, "今日回复: 3次") {
		t.Fatalf("info = %q", info)
	}
}

func TestCustomPrefix(t *testing.T) {
	r := NewRouter("!", stubHelp{})
	if r.Match("/ping") || !r.Match("!ping") {
		t.Fatal("префикс не учитывается")
	}
}
