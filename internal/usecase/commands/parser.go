package commands

import "strings"

// DefaultPrefix: префикс команд по умолчанию.
const DefaultPrefix = "/"

// ParseResult: разобранная команда.
type ParseResult struct {
	IsCommand bool
	Name      string
	Args      []string
	Raw       string
}

// Parser определяет команды по префиксу.
type Parser struct {
	Prefix string
}

// Parse разбирает текст. Правила как у Telegram: «/help@my_bot arg» даёт команду help.
// Текст с префиксом без имени команды тоже считается командой (с пустым именем).
func (p Parser) Parse(text string) ParseResult {
	prefix := p.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, prefix) {
		return ParseResult{Raw: text}
	}
	fields := strings.Fields(strings.TrimPrefix(trimmed, prefix))
	res := ParseResult{IsCommand: true, Raw: text}
	if len(fields) == 0 {
		return res
	}
	name := fields[0]
	if idx := strings.IndexRune(name, '@'); idx >= 0 {
		name = name[:idx]
	}
	res.Name = strings.ToLower(name)
	res.Args = fields[1:]
	return res
}
