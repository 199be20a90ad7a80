package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tg-ext-bot/internal/domain"
)

// UnknownReply: ответ на неизвестную команду.
const UnknownReply = "未知命令，输入 /help 查看帮助"

// HelpSource отдаёт строки справки расширений для области.
type HelpSource interface {
	HelpLines(scope domain.Scope) []string
}

// Router обрабатывает встроенные команды help, info и ping.
type Router struct {
	parser Parser
	help   HelpSource
}

// NewRouter создаёт маршрутизатор команд.
func NewRouter(prefix string, help HelpSource) *Router {
	return &Router{parser: Parser{Prefix: prefix}, help: help}
}

// Prefix возвращает префикс команд.
func (r *Router) Prefix() string {
	if r.parser.Prefix == "" {
		return DefaultPrefix
	}
	return r.parser.Prefix
}

// Match сообщает, является ли текст командой.
func (r *Router) Match(text string) bool {
	return r.parser.Parse(text).IsCommand
}

// Route строит ответ на команду. Авторизация не проверяется: область берётся из события.
func (r *Router) Route(_ context.Context, text string, event domain.ChatEvent, bot domain.BotContext) domain.Response {
	cmd := r.parser.Parse(text)
	switch cmd.Name {
	case "help":
		return domain.Text(r.helpText(event.Scope))
	case "info":
		return domain.Text(FormatInfo(bot.Info()))
	case "ping":
		return domain.Text("pong!")
	default:
		return domain.Text(UnknownReply)
	}
}

func (r *Router) helpText(scope domain.Scope) string {
	p := r.Prefix()
	header := "可用命令:"
	if scope == domain.ScopeGroup {
		header = "群可用命令:"
	}
	var b strings.Builder
	b.WriteString(header + "\n")
	b.WriteString(p + "help - 显示帮助\n")
	b.WriteString(p + "info - 显示机器人信息\n")
	b.WriteString(p + "ping - 测试机器人是否在线\n\n")
	b.WriteString("插件命令:")
	for _, line := range r.help.HelpLines(scope) {
		b.WriteString("\n" + line)
	}
	return b.String()
}

// FormatInfo выводит живые данные о боте.
func FormatInfo(info domain.BotInfo) string {
	status := "离线"
	if info.Online {
		status = "在线"
	}
	lines := []string{
		"机器人信息：",
		"ID: " + info.SelfID,
		"昵称: " + info.Nickname,
		"在线状态: " + status,
		fmt.Sprintf("好友数量: %d", info.Friends),
		fmt.Sprintf("群聊数量: %d", info.Groups),
		"登录设备: " + info.Platform,
		"运行时间: " + FormatUptime(info.Uptime),
		fmt.Sprintf("今日回复: %d次", info.DailyReplies),
		"每日一言: " + info.DailyWord,
	}
	return strings.Join(lines, "\n")
}

// FormatUptime выводит длительность как «1天2小时3分4秒».
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60
	return fmt.Sprintf("%d天%d小时%d分%d秒", days, hours, minutes, seconds)
}
