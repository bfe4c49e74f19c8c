package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"gapwatch/internal/adapters/feeds"
	"gapwatch/internal/adapters/reference"
	"gapwatch/internal/app"
	"gapwatch/internal/domain"
	"gapwatch/internal/infra/config"
	applog "gapwatch/internal/infra/log"
	"gapwatch/internal/infra/metrics"
	"gapwatch/internal/infra/queue"
	"gapwatch/internal/usecase/refresh"
	"gapwatch/internal/usecase/schedule"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv, "scheduler")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	rt, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: не удалось инициализировать сервисы")
	}
	defer rt.Close()

	jobs, closeQueue, err := queue.Open(cfg.Queues.Driver, rt.Redis, cfg.RabbitMQURL, cfg.Queues.Refresh)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: не удалось открыть очередь")
	}
	defer func() { _ = closeQueue() }()

	var updater refresh.ReferenceUpdater
	if cfg.Reference.URL != "" {
		loader := reference.NewLoader(cfg.Limits.FetchTimeout, logger)
		updater = reference.NewUpdater(loader, rt.References, cfg.Reference.URL, cfg.Reference.MinStories)
	} else {
		logger.Warn().Msg("scheduler: REFERENCE_URL не задан, эталонный список не обновляется")
	}

	fetcher := feeds.NewRSSFetcher(cfg.Limits.FetchTimeout, logger)
	refresher := refresh.NewService(fetcher, rt.Stories, updater, jobs, rt.Outlets, refresh.Options{Retention: cfg.Limits.StoryRetention}, logger)
	refresher.UseRevisions(rt.Shared)

	scheduler, err := schedule.NewService(cfg.TZ, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: некорректный часовой пояс")
	}
	err = scheduler.Add("refresh", cfg.Schedule.RefreshCron, func(ctx context.Context) error {
		_, err := refresher.Run(ctx, domain.RefreshCauseScheduled)
		return err
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: некорректное расписание REFRESH_CRON")
	}

	if _, err := refresher.Run(ctx, domain.RefreshCauseScheduled); err != nil {
		logger.Error().Err(err).Msg("scheduler: первичное обновление не выполнено")
	}

	logger.Info().Str("cron", cfg.Schedule.RefreshCron).Str("tz", scheduler.Location().String()).Msg("scheduler: запущен")
	scheduler.Run(ctx)
	logger.Info().Msg("scheduler: остановлен")
}
