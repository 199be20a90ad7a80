package mcptools

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"tg-ext-bot/internal/adapters/admin"
	"tg-ext-bot/internal/domain"
	"tg-ext-bot/internal/infra/loghub"
	"tg-ext-bot/internal/usecase/commands"
)

// Admin: операции консоли, которые вызывают инструменты.
type Admin interface {
	Status(ctx context.Context) (admin.Status, error)
	Groups(ctx context.Context) ([]domain.GroupRecord, error)
	SyncGroups(ctx context.Context) (admin.SyncResult, error)
	EnableGroup(ctx context.Context, id string) error
	DisableGroup(ctx context.Context, id string) error
	Extensions(ctx context.Context) ([]domain.ExtensionInfo, error)
	EnableExtension(ctx context.Context, name string) error
	DisableExtension(ctx context.Context, name string) error
	Send(ctx context.Context, req admin.SendRequest) (domain.SendResult, error)
	Logs(ctx context.Context, limit int) ([]loghub.Entry, error)
}

// Server: MCP-сервер поверх API консоли.
type Server struct {
	server *mcp.Server
	admin  Admin
}

// NewServer регистрирует инструменты.
func NewServer(adm Admin, version string) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{Name: "tg-ext-bot", Version: version}, nil),
		admin:  adm,
	}
	s.registerTools()
	return s
}

// Run обслуживает MCP по stdio до отмены контекста.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCP возвращает нижележащий сервер.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "bot_status",
		Description: "Show bot identity, uptime, daily reply count and how many groups and extensions are enabled.",
	}, s.status)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_groups",
		Description: "List known groups with their enabled flag.",
	}, s.listGroups)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_groups",
		Description: "Refresh the group list from the chat platform. New groups start disabled.",
	}, s.syncGroups)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "set_group_enabled",
		Description: "Enable or disable bot replies in a group.",
	}, s.setGroupEnabled)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_extensions",
		Description: "List discovered extensions with help lines and enabled flags.",
	}, s.listExtensions)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "set_extension_enabled",
		Description: "Enable or disable an extension by name.",
	}, s.setExtensionEnabled)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "send_message",
		Description: "Send a text message to a private chat or an enabled group.",
	}, s.send)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "recent_logs",
		Description: "Return the most recent bot log entries.",
	}, s.logs)
}

type empty struct{}

type GroupsOutput struct {
	Groups []domain.GroupRecord `json:"groups"`
}

type ExtensionsOutput struct {
	Extensions []domain.ExtensionInfo `json:"extensions"`
}

type ToggleGroupInput struct {
	GroupID string `json:"group_id" jsonschema:"the group id as shown by list_groups"`
	Enabled bool   `json:"enabled" jsonschema:"true to enable, false to disable"`
}

type ToggleExtensionInput struct {
	Name    string `json:"name" jsonschema:"the extension name as shown by list_extensions"`
	Enabled bool   `json:"enabled" jsonschema:"true to enable, false to disable"`
}

type ToggleOutput struct {
	Success bool `json:"success"`
	Enabled bool `json:"enabled"`
}

type SendInput struct {
	Type     domain.Scope `json:"type" jsonschema:"private or group"`
	TargetID string       `json:"target_id" jsonschema:"user id for private, group id for group"`
	Message  string       `json:"message" jsonschema:"text to send"`
}

type LogsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of entries, default 50"`
}

type LogLine struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type LogsOutput struct {
	Entries []LogLine `json:"entries"`
}

// StatusOutput: плоская сводка без time-полей.
type StatusOutput struct {
	SelfID            string `json:"self_id"`
	Nickname          string `json:"nickname"`
	Online            bool   `json:"online"`
	Platform          string `json:"platform"`
	Uptime            string `json:"uptime"`
	DailyReplies      int    `json:"daily_replies"`
	DailyWord         string `json:"daily_word"`
	Groups            int    `json:"groups"`
	EnabledGroups     int    `json:"enabled_groups"`
	Extensions        int    `json:"extensions"`
	EnabledExtensions int    `json:"enabled_extensions"`
}

func (s *Server) status(ctx context.Context, _ *mcp.CallToolRequest, _ empty) (*mcp.CallToolResult, StatusOutput, error) {
	st, err := s.admin.Status(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{
		SelfID:            st.Bot.SelfID,
		Nickname:          st.Bot.Nickname,
		Online:            st.Bot.Online,
		Platform:          st.Bot.Platform,
		Uptime:            commands.FormatUptime(st.Bot.Uptime),
		DailyReplies:      st.Bot.DailyReplies,
		DailyWord:         st.Bot.DailyWord,
		Groups:            st.Groups,
		EnabledGroups:     st.EnabledGroups,
		Extensions:        st.Extensions,
		EnabledExtensions: st.EnabledExtensions,
	}, nil
}

func (s *Server) listGroups(ctx context.Context, _ *mcp.CallToolRequest, _ empty) (*mcp.CallToolResult, GroupsOutput, error) {
	groups, err := s.admin.Groups(ctx)
	if err != nil {
		return nil, GroupsOutput{}, err
	}
	return nil, GroupsOutput{Groups: groups}, nil
}

func (s *Server) syncGroups(ctx context.Context, _ *mcp.CallToolRequest, _ empty) (*mcp.CallToolResult, admin.SyncResult, error) {
	res, err := s.admin.SyncGroups(ctx)
	return nil, res, err
}

func (s *Server) setGroupEnabled(ctx context.Context, _ *mcp.CallToolRequest, in ToggleGroupInput) (*mcp.CallToolResult, ToggleOutput, error) {
	op := s.admin.DisableGroup
	if in.Enabled {
		op = s.admin.EnableGroup
	}
	if err := op(ctx, in.GroupID); err != nil {
		return nil, ToggleOutput{}, err
	}
	return nil, ToggleOutput{Success: true, Enabled: in.Enabled}, nil
}

func (s *Server) listExtensions(ctx context.Context, _ *mcp.CallToolRequest, _ empty) (*mcp.CallToolResult, ExtensionsOutput, error) {
	exts, err := s.admin.Extensions(ctx)
	if err != nil {
		return nil, ExtensionsOutput{}, err
	}
	return nil, ExtensionsOutput{Extensions: exts}, nil
}

func (s *Server) setExtensionEnabled(ctx context.Context, _ *mcp.CallToolRequest, in ToggleExtensionInput) (*mcp.CallToolResult, ToggleOutput, error) {
	op := s.admin.DisableExtension
	if in.Enabled {
		op = s.admin.EnableExtension
	}
	if err := op(ctx, in.Name); err != nil {
		return nil, ToggleOutput{}, err
	}
	return nil, ToggleOutput{Success: true, Enabled: in.Enabled}, nil
}

func (s *Server) send(ctx context.Context, _ *mcp.CallToolRequest, in SendInput) (*mcp.CallToolResult, domain.SendResult, error) {
	res, err := s.admin.Send(ctx, admin.SendRequest{Type: in.Type, TargetID: in.TargetID, Message: in.Message})
	if err != nil {
		return nil, domain.SendResult{Error: err.Error()}, nil
	}
	return nil, res, nil
}

func (s *Server) logs(ctx context.Context, _ *mcp.CallToolRequest, in LogsInput) (*mcp.CallToolResult, LogsOutput, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = 50
	}
	entries, err := s.admin.Logs(ctx, limit)
	if err != nil {
		return nil, LogsOutput{}, err
	}
	out := LogsOutput{Entries: make([]LogLine, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, LogLine{Time: e.Time.Format(time.RFC3339), Level: e.Level, Message: e.Message})
	}
	return nil, out, nil
}
