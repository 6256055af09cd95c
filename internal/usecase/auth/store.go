package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"social-sync/internal/domain"
	"social-sync/internal/infra/metrics"
)

const storeName = "auth"

// State снимок сессии только для чтения.
type State struct {
	User       *domain.User      `json:"user"`
	Following  []string          `json:"following"`
	Activities []domain.Activity `json:"activities"`
	Loading    bool              `json:"loading"`
	Error      string            `json:"error,omitempty"`
}

// Store владеет сессией, профилем и списком подписок.
type Store struct {
	api domain.AuthAPI
	log zerolog.Logger

	mu         sync.Mutex
	user       *domain.User
	following  domain.Set[string]
	activities []domain.Activity
	loading    bool
	err        string
}

var _ domain.UserIDSource = (*Store)(nil)

// NewStore создаёт хранилище сессии.
func NewStore(api domain.AuthAPI, logger zerolog.Logger) *Store {
	return &Store{api: api, log: logger, following: domain.NewSet[string]()}
}

// Login выполняет вход. Ошибки возвращаются вызывающему.
func (s *Store) Login(ctx context.Context, creds domain.Credentials) (domain.User, error) {
	if err := validateCredentials(creds, false); err != nil {
		return domain.User{}, err
	}
	session, err := s.api.Login(ctx, creds)
	if err != nil {
		s.recordError("login", err)
		return domain.User{}, fmt.Errorf("вход: %w", err)
	}
	s.startSession(session)
	return session.User, nil
}

// Signup регистрирует пользователя и открывает сессию.
func (s *Store) Signup(ctx context.Context, creds domain.Credentials) (domain.User, error) {
	if err := validateCredentials(creds, true); err != nil {
		return domain.User{}, err
	}
	session, err := s.api.Signup(ctx, creds)
	if err != nil {
		s.recordError("signup", err)
		return domain.User{}, fmt.Errorf("регистрация: %w", err)
	}
	s.startSession(session)
	return session.User, nil
}

// Logout закрывает сессию. Локальное состояние очищается даже при ошибке сервера.
func (s *Store) Logout(ctx context.Context) {
	if err := s.api.Logout(ctx); err != nil {
		metrics.IncStoreError(storeName, "logout")
		s.log.Warn().Err(err).Msg("auth: ошибка выхода на сервере")
	}
	s.api.SetToken("")
	s.mu.Lock()
	s.user = nil
	s.following = domain.NewSet[string]()
	s.activities = nil
	s.loading = false
	s.err = ""
	s.mu.Unlock()
}

// CurrentUserID возвращает id текущего пользователя или пустую строку.
func (s *Store) CurrentUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// UpdateProfile обновляет профиль текущего пользователя.
func (s *Store) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (domain.User, error) {
	userID := s.CurrentUserID()
	if userID == "" {
		return domain.User{}, domain.ErrNotAuthenticated
	}
	user, err := s.api.UpdateProfile(ctx, userID, update)
	if err != nil {
		s.recordError("update_profile", err)
		return domain.User{}, fmt.Errorf("обновление профиля: %w", err)
	}
	s.mu.Lock()
	if s.user != nil && s.user.ID == user.ID {
		u := user
		s.user = &u
	}
	s.mu.Unlock()
	return user, nil
}

// FollowUser подписывает текущего пользователя на targetID.
func (s *Store) FollowUser(ctx context.Context, targetID string) error {
	return s.follow(ctx, targetID, true)
}

// UnfollowUser отменяет подписку.
func (s *Store) UnfollowUser(ctx context.Context, targetID string) error {
	return s.follow(ctx, targetID, false)
}

func (s *Store) follow(ctx context.Context, targetID string, add bool) error {
	if strings.TrimSpace(targetID) == "" {
		return domain.Required("targetId")
	}
	userID := s.CurrentUserID()
	if userID == "" {
		return domain.ErrNotAuthenticated
	}
	op, call := "follow_user", s.api.FollowUser
	if !add {
		op, call = "unfollow_user", s.api.UnfollowUser
	}
	if err := call(ctx, userID, targetID); err != nil {
		s.recordError(op, err)
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var changed bool
	if add {
		changed = s.following.Add(targetID)
	} else {
		changed = s.following.Remove(targetID)
	}
	if changed && s.user != nil {
		u := *s.user
		if add {
			u.FollowingCount++
		} else if u.FollowingCount > 0 {
			u.FollowingCount--
		}
		s.user = &u
	}
	return nil
}

// IsFollowing сообщает, подписан ли пользователь на targetID.
func (s *Store) IsFollowing(targetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.following.Has(targetID)
}

// FetchActivities загружает ленту активности. Ошибки не пробрасываются.
func (s *Store) FetchActivities(ctx context.Context) {
	userID := s.CurrentUserID()
	if userID == "" {
		return
	}
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	activities, err := s.api.GetActivities(ctx, userID)
	if err != nil {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.recordError("fetch_activities", err)
		return
	}
	s.mu.Lock()
	s.activities = activities
	s.loading = false
	s.err = ""
	s.mu.Unlock()
}

// Snapshot возвращает копию состояния.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Following:  domain.SortedStrings(s.following),
		Activities: append([]domain.Activity(nil), s.activities...),
		Loading:    s.loading,
		Error:      s.err,
	}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}
	return st
}

func (s *Store) startSession(session domain.Session) {
	s.api.SetToken(session.Token)
	u := session.User
	s.mu.Lock()
	s.user = &u
	s.following = domain.NewSet[string]()
	s.err = ""
	s.mu.Unlock()
	s.log.Info().Str("user", u.ID).Msg("auth: сессия открыта")
}

func (s *Store) recordError(op string, err error) {
	metrics.IncStoreError(storeName, op)
	s.log.Error().Err(err).Str("op", op).Msg("auth: операция не выполнена")
	s.mu.Lock()
	s.err = err.Error()
	s.mu.Unlock()
}

func validateCredentials(creds domain.Credentials, signup bool) error {
	if strings.TrimSpace(creds.Username) == "" && strings.TrimSpace(creds.Email) == "" {
		return domain.Required("username")
	}
	if creds.Password == "" {
		return domain.Required("password")
	}
	if signup && strings.TrimSpace(creds.Email) == "" {
		return domain.Required("email")
	}
	return nil
}
