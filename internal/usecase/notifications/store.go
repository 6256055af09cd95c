package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"social-sync/internal/domain"
	"social-sync/internal/infra/metrics"
	"social-sync/internal/usecase/reconcile"
)

const storeName = "notifications"

// State снимок уведомлений только для чтения.
type State struct {
	Notifications []domain.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
	Loading       bool                  `json:"loading"`
	Error         string                `json:"error,omitempty"`
}

// Store владеет уведомлениями текущего пользователя.
// Id пользователя читается из хранилища сессии и никогда не меняется отсюда.
type Store struct {
	api   domain.NotificationAPI
	users domain.UserIDSource
	log   zerolog.Logger

	mu            sync.Mutex
	notifications []domain.Notification
	loading       bool
	err           string
}

// NewStore создаёт хранилище уведомлений.
func NewStore(api domain.NotificationAPI, users domain.UserIDSource, logger zerolog.Logger) *Store {
	return &Store{api: api, users: users, log: logger}
}

// FetchNotifications загружает уведомления. Ошибки чтения не пробрасываются.
func (s *Store) FetchNotifications(ctx context.Context) {
	userID := s.users.CurrentUserID()
	if userID == "" {
		return
	}
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	raw, err := s.api.GetNotifications(ctx, userID)
	if err != nil {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.recordError("fetch_notifications", err)
		return
	}

	items := make([]domain.Notification, 0, len(raw))
	for _, r := range raw {
		n, err := NormalizeNotification(r)
		switch {
		case errors.Is(err, ErrBadTimestamp):
			s.log.Warn().Err(err).Msg("notifications: время создания не распознано")
		case err != nil:
			s.log.Warn().Err(err).Msg("notifications: пропущено некорректное уведомление")
			continue
		}
		if n.UserID == "" {
			n.UserID = userID
		}
		items = append(items, n)
	}

	s.mu.Lock()
	s.notifications = reconcile.DedupeByID(items, idOf)
	s.loading = false
	s.err = ""
	s.mu.Unlock()
}

// MarkNotificationAsRead помечает одно уведомление прочитанным после ответа сервера.
func (s *Store) MarkNotificationAsRead(ctx context.Context, notificationID string) error {
	if strings.TrimSpace(notificationID) == "" {
		return domain.Required("notificationId")
	}
	if err := s.api.MarkNotificationRead(ctx, notificationID); err != nil {
		s.recordError("mark_read", err)
		return nil
	}
	s.mu.Lock()
	for i := range s.notifications {
		if s.notifications[i].ID == notificationID {
			updated := append([]domain.Notification(nil), s.notifications...)
			updated[i].IsRead = true
			s.notifications = updated
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// MarkAllNotificationsAsRead помечает все удерживаемые уведомления прочитанными после ответа
// сервера и возвращает количество, сообщённое сервером. Локальный набор с этим числом не сверяется.
func (s *Store) MarkAllNotificationsAsRead(ctx context.Context) (int, error) {
	userID := s.users.CurrentUserID()
	if userID == "" {
		return 0, domain.ErrNotAuthenticated
	}
	updated, err := s.api.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		s.recordError("mark_all_read", err)
		return 0, fmt.Errorf("отметка всех уведомлений: %w", err)
	}
	s.mu.Lock()
	next := make([]domain.Notification, len(s.notifications))
	local := 0
	for i, n := range s.notifications {
		if !n.IsRead {
			local++
		}
		n.IsRead = true
		next[i] = n
	}
	s.notifications = next
	s.mu.Unlock()
	if local != updated {
		s.log.Debug().Int("server", updated).Int("local", local).Msg("notifications: счётчики прочтения расходятся")
	}
	return updated, nil
}

// UnreadCount возвращает число непрочитанных уведомлений.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countUnread(s.notifications)
}

// Reset очищает состояние при выходе из сессии.
func (s *Store) Reset() {
	s.mu.Lock()
	s.notifications = nil
	s.loading = false
	s.err = ""
	s.mu.Unlock()
}

// Snapshot возвращает копию состояния.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Notifications: append([]domain.Notification(nil), s.notifications...),
		Unread:        countUnread(s.notifications),
		Loading:       s.loading,
		Error:         s.err,
	}
}

func (s *Store) recordError(op string, err error) {
	metrics.IncStoreError(storeName, op)
	s.log.Error().Err(err).Str("op", op).Msg("notifications: операция не выполнена")
	s.mu.Lock()
	s.err = err.Error()
	s.mu.Unlock()
}

func countUnread(items []domain.Notification) int {
	n := 0
	for _, item := range items {
		if !item.IsRead {
			n++
		}
	}
	return n
}

func idOf(n domain.Notification) string { return n.ID }
