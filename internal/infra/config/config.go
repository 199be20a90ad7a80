package config

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Поддерживаемые хранилища снимков.
const (
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Источники списка групп.
const (
	GroupSourceTelegram = "telegram"
	GroupSourceMTProto  = "mtproto"
)

// AppConfig описывает конфигурацию бота.
type AppConfig struct {
	AppEnv  string `envconfig:"APP_ENV" default:"dev"`
	TZ      string `envconfig:"TZ" default:"Asia/Shanghai"`
	Port    int    `envconfig:"PORT" default:"8080"`
	DataDir string `envconfig:"DATA_DIR" default:"./data"`

	Bot struct {
		CommandPrefix string   `envconfig:"COMMAND_PREFIX" default:"/"`
		Admins        []string `envconfig:"ADMIN_IDS"`
		Platform      string   `envconfig:"BOT_PLATFORM" default:"Telegram"`
	} `envconfig:""`

	Admin struct {
		Token string `envconfig:"ADMIN_TOKEN"`
		URL   string `envconfig:"ADMIN_URL" default:"http://localhost:8080"`
	} `envconfig:""`

	Storage struct {
		Backend    string `envconfig:"STORAGE_BACKEND" default:"file"`
		SQLitePath string `envconfig:"SQLITE_PATH" default:"./data/bot.db"`
		KeyPrefix  string `envconfig:"STORAGE_KEY_PREFIX" default:"bot:"`
	} `envconfig:""`

	PGDSN     string `envconfig:"PG_DSN"`
	RedisAddr string `envconfig:"REDIS_ADDR"`

	Telegram struct {
		Token       string `envconfig:"TG_BOT_TOKEN"`
		WebhookURL  string `envconfig:"TG_WEBHOOK_URL"`
		APIID       int    `envconfig:"TG_API_ID"`
		APIHash     string `envconfig:"TG_API_HASH"`
		PollTimeout int    `envconfig:"TG_POLL_TIMEOUT" default:"30"`
	} `envconfig:""`

	MTProto struct {
		SessionFile string `envconfig:"MTPROTO_SESSION_FILE"`
	} `envconfig:""`

	Groups struct {
		Source       string        `envconfig:"GROUP_SOURCE" default:"telegram"`
		SyncInterval time.Duration `envconfig:"GROUP_SYNC_INTERVAL" default:"10m"`
	} `envconfig:""`

	Stats struct {
		PollInterval  time.Duration `envconfig:"STATS_POLL_INTERVAL" default:"1m"`
		QuoteURL      string        `envconfig:"QUOTE_URL" default:"https://v1.hitokoto.cn"`
		QuoteFallback string        `envconfig:"QUOTE_FALLBACK" default:"今天也要开开心心的呀！"`
		QuoteTimeout  time.Duration `envconfig:"QUOTE_TIMEOUT" default:"10s"`
	} `envconfig:""`

	Extensions struct {
		Manifest string `envconfig:"EXTENSIONS_MANIFEST"`
	} `envconfig:""`

	OpenAI struct {
		APIKey  string        `envconfig:"OPENAI_API_KEY"`
		BaseURL string        `envconfig:"OPENAI_BASE_URL"`
		Model   string        `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`
		Timeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"30s"`
	} `envconfig:""`
}

// Load загружает конфиг из .env (если есть) и окружения.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Parse работает как Load, но не завершает процесс.
func Parse() (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return AppConfig{}, err
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
