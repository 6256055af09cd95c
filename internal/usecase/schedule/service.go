package schedule

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval период фонового перезапроса.
const DefaultInterval = 30 * time.Second

// Syncer операции, которые сервис повторяет по таймеру.
type Syncer interface {
	CurrentUserID() string
	FetchPosts(ctx context.Context) error
	FetchNotifications(ctx context.Context)
}

// Service периодически перезапрашивает ленту и уведомления пользователя сессии.
type Service struct {
	sync     Syncer
	interval time.Duration
	log      zerolog.Logger
}

// NewService создаёт сервис.
func NewService(sync Syncer, interval time.Duration, logger zerolog.Logger) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{sync: sync, interval: interval, log: logger}
}

// Run работает до отмены ctx.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.log.Info().Dur("interval", s.interval).Msg("schedule: запущен")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("schedule: остановлен")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick выполняет один проход. Без сессии ничего не делает.
func (s *Service) Tick(ctx context.Context) {
	if s.sync.CurrentUserID() == "" {
		return
	}
	if err := s.sync.FetchPosts(ctx); err != nil {
		s.log.Debug().Err(err).Msg("schedule: лента не обновлена")
	}
	s.sync.FetchNotifications(ctx)
}
