package main

import (
	"context"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"gapwatch/internal/adapters/telegram"
	"gapwatch/internal/app"
	"gapwatch/internal/infra/config"
	applog "gapwatch/internal/infra/log"
	"gapwatch/internal/infra/metrics"
	"gapwatch/internal/infra/queue"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv, "notifier")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	rt, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("notifier: не удалось инициализировать сервисы")
	}
	defer rt.Close()

	jobs, closeQueue, err := queue.Open(cfg.Queues.Driver, rt.Redis, cfg.RabbitMQURL, cfg.Queues.Refresh)
	if err != nil {
		logger.Fatal().Err(err).Msg("notifier: не удалось открыть очередь")
	}
	defer func() { _ = closeQueue() }()

	if cfg.Telegram.Token == "" {
		logger.Fatal().Msg("notifier: не указан токен Telegram (TG_BOT_TOKEN)")
	}
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("notifier: не удалось создать бота")
	}

	worker := &jobWorker{
		log:    logger,
		queue:  jobs,
		gaps:   rt.Gaps,
		cache:  rt.Cache,
		out:    telegram.NewSender(botAPI, logger),
		chatID: cfg.Telegram.ChatID,
		limit:  cfg.Limits.DigestMax,
		ttl:    cfg.Limits.NotifyTTL,
	}

	logger.Info().Msg("notifier: запуск обработки очереди")
	worker.Run(ctx)
	logger.Info().Msg("notifier: остановлен")
}
