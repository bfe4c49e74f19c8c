package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"gapwatch/internal/adapters/bot"
	"gapwatch/internal/adapters/telegram"
	"gapwatch/internal/app"
	"gapwatch/internal/infra/config"
	httpinfra "gapwatch/internal/infra/http"
	applog "gapwatch/internal/infra/log"
	"gapwatch/internal/infra/metrics"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv, "bot-gateway")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telegram.Token == "" {
		logger.Fatal().Msg("bot: не указан токен Telegram (TG_BOT_TOKEN)")
	}
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("bot: не удалось создать бота")
	}
	if cfg.Telegram.WebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.Telegram.WebhookURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("bot: некорректный TG_WEBHOOK_URL")
		}
		if _, err := botAPI.Request(wh); err != nil {
			logger.Error().Err(err).Msg("bot: не удалось зарегистрировать вебхук")
		}
	}

	rt, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("bot: не удалось инициализировать сервисы")
	}
	defer rt.Close()

	sender := telegram.NewSender(botAPI, logger)
	h := bot.NewHandler(sender, logger, rt.Gaps, rt.Outlets, cfg.Telegram.AdminIDs, cfg.Limits.TopGaps)

	srv := httpinfra.NewServer(logger)
	srv.Router.Post("/bot/webhook", func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			httpinfra.WriteError(w, http.StatusBadRequest, err)
			return
		}
		h.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		<-ctx.Done()
		logger.Info().Msg("bot: остановка")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Start(":" + strconv.Itoa(cfg.Port)); err != nil {
		logger.Fatal().Err(err).Msg("bot: HTTP сервер остановлен с ошибкой")
	}
}
