package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"social-sync/internal/adapters/api"
	"social-sync/internal/adapters/httpapi"
	"social-sync/internal/adapters/push"
	"social-sync/internal/domain"
	"social-sync/internal/infra/config"
	httpinfra "social-sync/internal/infra/http"
	logpkg "social-sync/internal/infra/log"
	"social-sync/internal/infra/metrics"
	"social-sync/internal/usecase/auth"
	"social-sync/internal/usecase/communities"
	"social-sync/internal/usecase/facade"
	"social-sync/internal/usecase/messages"
	"social-sync/internal/usecase/notifications"
	"social-sync/internal/usecase/posts"
	"social-sync/internal/usecase/schedule"
)

func main() {
	cfg := config.Load()
	logger := logpkg.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(logpkg.Component(logger, "api")),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("syncd: не удалось создать клиент API")
	}

	channel, closeSource, err := newPushChannel(cfg, logpkg.Component(logger, "push"))
	if err != nil {
		logger.Fatal().Err(err).Msg("syncd: не удалось создать push-канал")
	}
	defer closeSource()

	authStore := auth.NewStore(client, logpkg.Component(logger, "auth"))
	f, err := facade.New(facade.Deps{
		Auth:          authStore,
		Posts:         posts.NewStore(client, logpkg.Component(logger, "posts")),
		Notifications: notifications.NewStore(client, authStore, logpkg.Component(logger, "notifications")),
		Messages:      messages.NewStore(client, logpkg.Component(logger, "messages"), cfg.Sync.MessagePageSize),
		Communities:   communities.NewStore(client, logpkg.Component(logger, "communities"), cfg.Sync.MessagePageSize),
		Channel:       channel,
		Logger:        logpkg.Component(logger, "facade"),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("syncd: не удалось собрать фасад")
	}
	defer f.Close()

	if cfg.Session.Username != "" {
		creds := domain.Credentials{Username: cfg.Session.Username, Password: cfg.Session.Password}
		if _, err := f.Login(ctx, creds); err != nil {
			logger.Error().Err(err).Msg("syncd: вход при старте не выполнен, ожидаем вход через интерфейс")
		}
	}

	scheduler := schedule.NewService(f, cfg.Sync.Interval, logpkg.Component(logger, "schedule"))
	go scheduler.Run(ctx)

	metrics.StartServer(ctx, logpkg.Component(logger, "metrics"), cfg.MetricsAddr)

	srv := httpinfra.NewServer(logpkg.Component(logger, "http"))
	httpapi.NewHandler(f, cfg.UIToken, logpkg.Component(logger, "httpapi")).Register(srv.Router)
	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("syncd: сервер остановлен")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("syncd: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// newPushChannel выбирает источник push-событий по конфигу.
func newPushChannel(cfg config.AppConfig, logger zerolog.Logger) (domain.PushChannel, func(), error) {
	settings := push.Settings{MaxAttempts: cfg.Push.MaxAttempts, Backoff: cfg.Push.Backoff, PingInterval: cfg.Push.PingInterval}
	switch strings.ToLower(cfg.Push.Source) {
	case config.PushSourceWebsocket, "":
		ch, err := push.NewWebsocketChannel(cfg.Push.URL, settings, logger)
		if err != nil {
			return nil, nil, err
		}
		return ch, func() {}, nil
	case config.PushSourceRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ch, err := push.NewRedisChannel(rdb, cfg.Push.RedisPrefix, settings, logger)
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return ch, func() { _ = rdb.Close() }, nil
	default:
		return nil, nil, errors.New("неизвестный PUSH_SOURCE: " + cfg.Push.Source)
	}
}
