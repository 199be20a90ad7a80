package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"tg-ext-bot/internal/adapters/mtproto"
	"tg-ext-bot/internal/infra/backend"
	"tg-ext-bot/internal/infra/config"
	"tg-ext-bot/internal/infra/log"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to gotd session JSON file")
	flag.Parse()

	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	if filePath == "" {
		logger.Fatal().Msg("mtproto-importer: path to session file is required (-file)")
	}
	sessionData, err := os.ReadFile(filePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("mtproto-importer: failed to read session file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := mtproto.ValidateSession(ctx, sessionData); err != nil {
		logger.Fatal().Err(err).Msg("mtproto-importer: unsupported MTProto session format")
	}

	backends, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("mtproto-importer: failed to open storage")
	}
	defer backends.Close()

	if err := mtproto.NewSessionStore(backends.Store).StoreSession(ctx, sessionData); err != nil {
		logger.Fatal().Err(err).Msg("mtproto-importer: failed to store session")
	}
	if cfg.MTProto.SessionFile != "" {
		logger.Warn().Str("file", cfg.MTProto.SessionFile).Msg("mtproto-importer: MTPROTO_SESSION_FILE задан, бот будет читать сессию из файла")
	}
	fmt.Printf("Stored MTProto session (%d bytes) in %s storage\n", len(sessionData), cfg.Storage.Backend)
}
