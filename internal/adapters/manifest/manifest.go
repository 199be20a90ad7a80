package manifest

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"tg-ext-bot/internal/domain"
)

// Типы правил совпадения.
const (
	MatchEquals   = "equals"
	MatchPrefix   = "prefix"
	MatchContains = "contains"
	MatchRegex    = "regex"
)

// File: содержимое манифеста.
type File struct {
	Extensions []Entry `yaml:"extensions"`
}

// Entry описывает одно расширение с ответом по шаблону.
type Entry struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Help        *domain.Help `yaml:"help,omitempty"`
	Scopes      []string     `yaml:"scopes"`
	Match       Match        `yaml:"match"`
	Reply       string       `yaml:"reply"`
	Image       string       `yaml:"image,omitempty"`
}

// Match: правило срабатывания.
type Match struct {
	Type       string `yaml:"type"`
	Pattern    string `yaml:"pattern"`
	IgnoreCase bool   `yaml:"ignore_case"`
}

// Source читает манифест при каждом обнаружении расширений.
type Source struct {
	path string
}

// NewSource создаёт источник расширений из файла.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Name возвращает имя источника для логов.
func (s *Source) Name() string {
	return "manifest:" + s.path
}

// Extensions читает и разбирает манифест. Запись с некорректным правилом
// возвращается без обработчиков и отсеивается общей проверкой реестра.
func (s *Source) Extensions(ctx context.Context) ([]domain.Extension, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse разбирает YAML манифеста.
func Parse(data []byte) ([]domain.Extension, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	exts := make([]domain.Extension, 0, len(file.Extensions))
	for _, entry := range file.Extensions {
		exts = append(exts, entry.Extension())
	}
	return exts, nil
}

// Extension строит расширение из записи.
func (e Entry) Extension() domain.Extension {
	ext := domain.Extension{Name: e.Name, Description: e.Description, Help: e.Help}
	match, err := e.Match.compile()
	if err != nil || (e.Reply == "" && e.Image == "") {
		return ext
	}
	handler := func(_ context.Context, text string, event domain.ChatEvent, _ domain.BotContext) (domain.Response, error) {
		if !match(text) {
			return nil, nil
		}
		resp := domain.Text(render(e.Reply, text, event))
		return append(resp, domain.Image(e.Image)...), nil
	}
	scopes := e.Scopes
	if len(scopes) == 0 {
		scopes = []string{string(domain.ScopePrivate), string(domain.ScopeGroup)}
	}
	for _, scope := range scopes {
		switch domain.Scope(strings.ToLower(scope)) {
		case domain.ScopePrivate:
			ext.Handle = handler
		case domain.ScopeGroup:
			ext.HandleGroup = handler
		}
	}
	return ext
}

func (m Match) compile() (func(string) bool, error) {
	pattern := m.Pattern
	if pattern == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	fold := func(s string) string { return s }
	if m.IgnoreCase {
		fold = strings.ToLower
		pattern = strings.ToLower(pattern)
	}
	switch strings.ToLower(m.Type) {
	case MatchEquals, "":
		return func(text string) bool { return fold(strings.TrimSpace(text)) == pattern }, nil
	case MatchPrefix:
		return func(text string) bool { return strings.HasPrefix(fold(text), pattern) }, nil
	case MatchContains:
		return func(text string) bool { return strings.Contains(fold(text), pattern) }, nil
	case MatchRegex:
		if m.IgnoreCase {
			pattern = "(?i)" + m.Pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		return re.MatchString, nil
	default:
		return nil, fmt.Errorf("unknown match type %q", m.Type)
	}
}

func render(tpl, text string, event domain.ChatEvent) string {
	sender := event.SenderName
	if sender == "" {
		sender = event.SenderID
	}
	return strings.NewReplacer("{sender}", sender, "{text}", text, "{group}", event.GroupID).Replace(tpl)
}
