package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tg-ext-bot/internal/adapters/adminclient"
	"tg-ext-bot/internal/infra/config"
)

const version = "v1.0.0"

type globalFlags struct {
	url     string
	token   string
	timeout time.Duration
	json    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "конфиг: %v\n", err)
		os.Exit(1)
	}
	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ошибка: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(cfg config.AppConfig) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "botctl",
		Short:         "Управление ботом через API консоли",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.url, "url", cfg.Admin.URL, "адрес API консоли (ADMIN_URL)")
	root.PersistentFlags().StringVar(&flags.token, "token", cfg.Admin.Token, "токен консоли (ADMIN_TOKEN)")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 70*time.Second, "таймаут запроса")
	root.PersistentFlags().BoolVar(&flags.json, "json", false, "вывод в JSON")

	connect := func() (*adminclient.Client, error) {
		return adminclient.New(flags.url, adminclient.WithToken(flags.token), adminclient.WithTimeout(flags.timeout))
	}

	root.AddCommand(
		newStatusCmd(flags, connect),
		newGroupsCmd(flags, connect),
		newExtensionsCmd(flags, connect),
		newSendCmd(flags, connect),
		newLogsCmd(flags, connect),
		newMCPCmd(connect),
	)
	return root
}

type connectFunc func() (*adminclient.Client, error)

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
