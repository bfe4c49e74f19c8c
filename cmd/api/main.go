package main

import (
	"context"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"gapwatch/internal/app"
	"gapwatch/internal/infra/config"
	httpinfra "gapwatch/internal/infra/http"
	applog "gapwatch/internal/infra/log"
	"gapwatch/internal/infra/metrics"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv, "api")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось инициализировать сервисы")
	}
	defer rt.Close()

	if cfg.API.AdminToken == "" {
		logger.Warn().Msg("api: ADMIN_TOKEN не задан, административные эндпоинты отключены")
	}

	srv := httpinfra.NewServer(logger)
	handlers := &api{gaps: rt.Gaps, outlets: rt.Outlets, log: logger}
	handlers.routes(srv.Router, cfg.API.AdminToken)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("api: ошибка остановки HTTP сервера")
		}
	}()

	if err := srv.Start(":" + strconv.Itoa(cfg.Port)); err != nil {
		logger.Fatal().Err(err).Msg("api: HTTP сервер остановлен с ошибкой")
	}
	logger.Info().Msg("api: остановлен")
}
