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
	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	PushEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "push_events_total",
		Help: "Полученные push-события",
	}, []string{"source", "event"})

	PushReconnectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "push_reconnect_attempts_total",
		Help: "Попытки переподключения push-канала",
	}, []string{"source", "status"})

	PushConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "push_connected",
		Help: "Состояние push-канала (1 — подключён)",
	})

	FeedMergesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_merges_total",
		Help: "Слияния ленты с результатом перезапроса",
	}, []string{"mode"})

	FeedPinnedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_pinned_total",
		Help: "Слияния, в которых локально созданный пост закреплён первым",
	})

	StoreErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_errors_total",
		Help: "Ошибки операций хранилищ",
	}, []string{"store", "operation"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		NetworkRequestDuration,
		NetworkRequestTotal,
		PushEventsTotal,
		PushReconnectsTotal,
		PushConnected,
		FeedMergesTotal,
		FeedPinnedTotal,
		StoreErrorsTotal,
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

// ObservePushEvent учитывает полученное push-событие.
func ObservePushEvent(source, event string) {
	PushEventsTotal.WithLabelValues(source, event).Inc()
}

// ObservePushAttempt учитывает попытку подключения push-канала.
func ObservePushAttempt(source string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	PushReconnectsTotal.WithLabelValues(source, status).Inc()
}

// SetPushConnected выставляет состояние push-канала.
func SetPushConnected(connected bool) {
	if connected {
		PushConnected.Set(1)
		return
	}
	PushConnected.Set(0)
}

// ObserveFeedMerge учитывает слияние ленты.
func ObserveFeedMerge(mode string, pinned bool) {
	FeedMergesTotal.WithLabelValues(mode).Inc()
	if pinned {
		FeedPinnedTotal.Inc()
	}
}

// IncStoreError увеличивает счётчик ошибок хранилища.
func IncStoreError(store, operation string) {
	StoreErrorsTotal.WithLabelValues(store, operation).Inc()
}
