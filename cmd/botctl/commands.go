package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"tg-ext-bot/internal/adapters/admin"
	"tg-ext-bot/internal/adapters/mcptools"
	"tg-ext-bot/internal/domain"
	"tg-ext-bot/internal/usecase/commands"
)

func newStatusCmd(flags *globalFlags, connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Состояние бота",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			st, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			if flags.json {
				return printJSON(cmd, st)
			}
			online := "离线"
			if st.Bot.Online {
				online = "在线"
			}
			cmd.Printf("%s (%s) %s %s\n", st.Bot.Nickname, st.Bot.SelfID, st.Bot.Platform, online)
			cmd.Printf("运行时间: %s\n", commands.FormatUptime(st.Bot.Uptime))
			cmd.Printf("今日回复: %d\n", st.Bot.DailyReplies)
			cmd.Printf("每日一言: %s\n", st.Bot.DailyWord)
			cmd.Printf("群: %d/%d, 插件: %d/%d\n", st.EnabledGroups, st.Groups, st.EnabledExtensions, st.Extensions)
			return nil
		},
	}
}

func newGroupsCmd(flags *globalFlags, connect connectFunc) *cobra.Command {
	groups := &cobra.Command{
		Use:   "groups",
		Short: "Группы и их переключатели",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Список групп",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			items, err := client.Groups(cmd.Context())
			if err != nil {
				return err
			}
			if flags.json {
				return printJSON(cmd, items)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tMEMBERS\tENABLED")
			for _, g := range items {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%t\n", g.ID, g.Name, g.MemberCount, g.Enabled)
			}
			return tw.Flush()
		},
	}

	sync := &cobra.Command{
		Use:   "sync",
		Short: "Синхронизировать список групп с платформой",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			res, err := client.SyncGroups(cmd.Context())
			if err != nil {
				return err
			}
			if flags.json {
				return printJSON(cmd, res)
			}
			cmd.Printf("добавлено %d, всего %d\n", res.Added, res.Groups)
			return nil
		},
	}

	toggle := func(use, short string, enable bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <group-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := connect()
				if err != nil {
					return err
				}
				op := client.DisableGroup
				if enable {
					op = client.EnableGroup
				}
				if err := op(cmd.Context(), args[0]); err != nil {
					return err
				}
				cmd.Printf("группа %s: enabled=%t\n", args[0], enable)
				return nil
			},
		}
	}

	remove := &cobra.Command{
		Use:   "remove <group-id>",
		Short: "Забыть группу",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			if err := client.RemoveGroup(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Printf("группа %s удалена\n", args[0])
			return nil
		},
	}

	groups.AddCommand(list, sync, toggle("enable", "Включить ответы в группе", true), toggle("disable", "Выключить ответы в группе", false), remove)
	return groups
}

func newExtensionsCmd(flags *globalFlags, connect connectFunc) *cobra.Command {
	exts := &cobra.Command{
		Use:     "extensions",
		Aliases: []string{"plugins"},
		Short:   "Расширения и их переключатели",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Список расширений",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			items, err := client.Extensions(cmd.Context())
			if err != nil {
				return err
			}
			if flags.json {
				return printJSON(cmd, items)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSCOPES\tENABLED\tHELP")
			for _, e := range items {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", e.Name, scopes(e), e.Enabled, e.Help)
			}
			return tw.Flush()
		},
	}

	toggle := func(use, short string, enable bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <name>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := connect()
				if err != nil {
					return err
				}
				op := client.DisableExtension
				if enable {
					op = client.EnableExtension
				}
				if err := op(cmd.Context(), args[0]); err != nil {
					return err
				}
				cmd.Printf("расширение %s: enabled=%t\n", args[0], enable)
				return nil
			},
		}
	}

	exts.AddCommand(list, toggle("enable", "Включить расширение", true), toggle("disable", "Выключить расширение", false))
	return exts
}

func scopes(e domain.ExtensionInfo) string {
	var out []string
	if e.Private {
		out = append(out, string(domain.ScopePrivate))
	}
	if e.Group {
		out = append(out, string(domain.ScopeGroup))
	}
	return strings.Join(out, ",")
}

func newSendCmd(flags *globalFlags, connect connectFunc) *cobra.Command {
	var image string
	cmd := &cobra.Command{
		Use:   "send <private|group> <target-id> <text>",
		Short: "Отправить сообщение от имени бота",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := domain.Scope(args[0])
			if !scope.Valid() {
				return fmt.Errorf("неизвестный тип %q: ожидали private или group", args[0])
			}
			client, err := connect()
			if err != nil {
				return err
			}
			req := admin.SendRequest{Type: scope, TargetID: args[1], Message: strings.Join(args[2:], " ")}
			if image != "" {
				req.Parts = domain.Image(image)
			}
			res, err := client.Send(cmd.Context(), req)
			if err != nil {
				return err
			}
			if flags.json {
				return printJSON(cmd, res)
			}
			if !res.Success {
				return errors.New(res.Error)
			}
			cmd.Println("отправлено")
			return nil
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "URL или путь картинки")
	return cmd
}

func newLogsCmd(flags *globalFlags, connect connectFunc) *cobra.Command {
	var (
		limit int
		clearLog bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Последние записи журнала",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			if clearLog {
				if err := client.ClearLogs(cmd.Context()); err != nil {
					return err
				}
				cmd.Println("журнал очищен")
				return nil
			}
			entries, err := client.Logs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if flags.json {
				return printJSON(cmd, entries)
			}
			for _, e := range entries {
				cmd.Printf("%s %-5s %s\n", e.Time.Format(time.DateTime), strings.ToUpper(e.Level), e.Message)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "сколько записей вывести")
	cmd.Flags().BoolVar(&clearLog, "clear", false, "очистить журнал")
	return cmd
}

func newMCPCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "MCP-сервер по stdio с инструментами консоли",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			return mcptools.NewServer(client, version).Run(cmd.Context())
		},
	}
}
