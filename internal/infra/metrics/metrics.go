package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	FeedItemsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_items_total",
		Help: "Количество заголовков, полученных из лент изданий",
	}, []string{"outlet"})
	FeedFetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_fetch_errors_total",
		Help: "Ошибки загрузки лент изданий",
	}, []string{"outlet"})
	ReferenceStories = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reference_stories",
		Help: "Размер последнего принятого эталонного списка",
	})
	ReferenceRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reference_rejected_total",
		Help: "Эталонные списки, отклонённые защитой от усечения",
	})
	GapBuildSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gap_build_seconds",
		Help:    "Время пересчёта пробелов в покрытии",
		Buckets: prometheus.DefBuckets,
	})
	GapGroups = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gap_groups",
		Help: "Количество групп в последнем ранжированном списке",
	})
	GapStories = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gap_stories",
		Help: "Количество заголовков, не найденных в эталонном списке",
	})
	MembershipQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "membership_queries_total",
		Help: "Проверки принадлежности заголовка к пробелам",
	}, []string{"result"})
	GapNotifications = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gap_notifications_total",
		Help: "Отправленные сводки пробелов",
	})
	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60, 90, 120},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		FeedItemsTotal,
		FeedFetchErrors,
		ReferenceStories,
		ReferenceRejected,
		GapBuildSeconds,
		GapGroups,
		GapStories,
		MembershipQueries,
		GapNotifications,
		BotSendErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveFeedFetch учитывает результат загрузки ленты издания.
func ObserveFeedFetch(outlet string, items int, err error) {
	if outlet == "" {
		outlet = "unknown"
	}
	if err != nil {
		FeedFetchErrors.WithLabelValues(outlet).Inc()
		return
	}
	FeedItemsTotal.WithLabelValues(outlet).Add(float64(items))
}

// ObserveGapBuild записывает длительность и размер пересчёта.
func ObserveGapBuild(duration time.Duration, groups, gapStories int) {
	GapBuildSeconds.Observe(duration.Seconds())
	GapGroups.Set(float64(groups))
	GapStories.Set(float64(gapStories))
}

// ObserveMembership учитывает проверку заголовка.
func ObserveMembership(gap bool) {
	result := "miss"
	if gap {
		result = "gap"
	}
	MembershipQueries.WithLabelValues(result).Inc()
}
