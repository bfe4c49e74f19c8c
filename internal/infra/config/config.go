package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	TZ          string `envconfig:"TZ" default:"America/New_York"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	Telegram struct {
		Token      string  `envconfig:"TG_BOT_TOKEN"`
		WebhookURL string  `envconfig:"TG_WEBHOOK_URL"`
		ChatID     int64   `envconfig:"TG_CHAT_ID"`
		AdminIDs   []int64 `envconfig:"TG_ADMIN_IDS"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr   string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RabbitMQURL string `envconfig:"RABBITMQ_URL"`

	Outlets struct {
		ConfigPath string `envconfig:"OUTLETS_CONFIG"`
	} `envconfig:""`

	Reference struct {
		URL        string `envconfig:"REFERENCE_URL"`
		CacheKey   string `envconfig:"REFERENCE_CACHE_KEY" default:"gapwatch:reference"`
		MinStories int    `envconfig:"REFERENCE_MIN_STORIES" default:"30"`
	} `envconfig:""`

	Limits struct {
		TopGaps        int           `envconfig:"GAP_TOP_N" default:"10"`
		DigestMax      int           `envconfig:"DIGEST_MAX_ITEMS" default:"10"`
		StoryWindow    time.Duration `envconfig:"STORY_WINDOW" default:"36h"`
		StoryRetention time.Duration `envconfig:"STORY_RETENTION" default:"168h"`
		NotifyTTL      time.Duration `envconfig:"NOTIFY_TTL" default:"24h"`
		FetchTimeout   time.Duration `envconfig:"FETCH_TIMEOUT" default:"20s"`
	} `envconfig:""`

	Features struct {
		Highlight bool `envconfig:"GAP_HIGHLIGHT" default:"true"`
	} `envconfig:""`

	Schedule struct {
		RefreshCron string `envconfig:"REFRESH_CRON" default:"*/30 * * * *"`
	} `envconfig:""`

	Queues struct {
		Driver  string `envconfig:"QUEUE_DRIVER" default:"redis"`
		Refresh string `envconfig:"REFRESH_QUEUE_KEY" default:"gap_refresh_jobs"`
	} `envconfig:""`

	API struct {
		AdminToken string `envconfig:"ADMIN_TOKEN"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Parse читает конфиг из окружения и возвращает ошибку вместо завершения процесса.
func Parse() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
