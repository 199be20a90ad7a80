package domain

import (
	"context"
	"strings"
)

// HandlerFunc обрабатывает текст события. Пустой ответ без ошибки означает, что расширение не сработало.
type HandlerFunc func(ctx context.Context, text string, event ChatEvent, bot BotContext) (Response, error)

// Help описывает строку справки расширения.
type Help struct {
	Command string `yaml:"command" json:"command,omitempty"`
	Usage   string `yaml:"usage" json:"usage,omitempty"`
}

// Extension: подключаемый обработчик сообщений. Флаг включения хранится в реестре, а не здесь.
type Extension struct {
	Name        string
	Description string
	Help        *Help
	Handle      HandlerFunc
	HandleGroup HandlerFunc
}

// Handler возвращает обработчик для области или nil.
func (e Extension) Handler(scope Scope) HandlerFunc {
	switch scope {
	case ScopePrivate:
		return e.Handle
	case ScopeGroup:
		return e.HandleGroup
	}
	return nil
}

// Supports сообщает, есть ли у расширения обработчик для области.
func (e Extension) Supports(scope Scope) bool {
	return e.Handler(scope) != nil
}

// HelpLine строит строку «команда - описание».
// По умолчанию команда собирается из «>» и имени в нижнем регистре, описание берётся из Description.
func (e Extension) HelpLine() string {
	command := ">" + strings.ToLower(e.Name)
	usage := e.Description
	if e.Help != nil {
		if e.Help.Command != "" {
			command = e.Help.Command
		}
		if e.Help.Usage != "" {
			usage = e.Help.Usage
		}
	}
	return command + " - " + usage
}

// ExtensionInfo: метаданные расширения для консоли.
type ExtensionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Help        string `json:"help"`
	Private     bool   `json:"private"`
	Group       bool   `json:"group"`
	Enabled     bool   `json:"enabled"`
}
