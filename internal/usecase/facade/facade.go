package facade

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"social-sync/internal/domain"
	"social-sync/internal/usecase/auth"
	"social-sync/internal/usecase/communities"
	"social-sync/internal/usecase/messages"
	"social-sync/internal/usecase/notifications"
	"social-sync/internal/usecase/posts"
)

// refreshLimit ограничивает число параллельных перезапросов после переподключения.
const refreshLimit = 4

// Deps зависимости фасада.
type Deps struct {
	Auth          *auth.Store
	Posts         *posts.Store
	Notifications *notifications.Store
	Messages      *messages.Store
	Communities   *communities.Store
	Channel       domain.PushChannel
	Logger        zerolog.Logger
}

// State агрегированный снимок всех хранилищ.
type State struct {
	Auth          auth.State          `json:"auth"`
	Posts         posts.State         `json:"posts"`
	Notifications notifications.State `json:"notifications"`
	Messages      messages.State      `json:"messages"`
	Communities   communities.State   `json:"communities"`
	PushConnected bool                `json:"pushConnected"`
}

// Facade единая точка входа для интерфейса: по методу на операцию и снимок состояния.
type Facade struct {
	auth          *auth.Store
	posts         *posts.Store
	notifications *notifications.Store
	messages      *messages.Store
	communities   *communities.Store
	channel       domain.PushChannel
	log           zerolog.Logger

	// ctx живёт до Close и используется для перезапросов по push-событиям.
	ctx    context.Context
	cancel context.CancelFunc
}

// New собирает фасад и подписывает хранилища на push-события.
func New(deps Deps) (*Facade, error) {
	if deps.Auth == nil || deps.Posts == nil || deps.Notifications == nil || deps.Messages == nil || deps.Communities == nil {
		return nil, errors.New("facade: все хранилища обязательны")
	}
	ctx, cancel := context.WithCancel(context.Background())
	f := &Facade{
		auth:          deps.Auth,
		posts:         deps.Posts,
		notifications: deps.Notifications,
		messages:      deps.Messages,
		communities:   deps.Communities,
		channel:       deps.Channel,
		log:           deps.Logger,
		ctx:           ctx,
		cancel:        cancel,
	}
	if f.channel != nil {
		f.channel.Subscribe(domain.EventNewDirectMessage, f.onDirectMessage)
		f.channel.Subscribe(domain.EventNewGroupMessage, f.onGroupMessage)
		f.channel.OnConnect(f.onConnect)
	}
	return f, nil
}

// Close отписывается от событий и закрывает канал.
func (f *Facade) Close() {
	f.cancel()
	if f.channel == nil {
		return
	}
	f.channel.Unsubscribe(domain.EventNewDirectMessage)
	f.channel.Unsubscribe(domain.EventNewGroupMessage)
	f.channel.Close()
}

// Login открывает сессию, подключает push-канал и загружает начальное состояние.
func (f *Facade) Login(ctx context.Context, creds domain.Credentials) (domain.User, error) {
	user, err := f.auth.Login(ctx, creds)
	if err != nil {
		return domain.User{}, err
	}
	f.startSession(ctx, user.ID)
	return user, nil
}

// Signup регистрирует пользователя и открывает сессию.
func (f *Facade) Signup(ctx context.Context, creds domain.Credentials) (domain.User, error) {
	user, err := f.auth.Signup(ctx, creds)
	if err != nil {
		return domain.User{}, err
	}
	f.startSession(ctx, user.ID)
	return user, nil
}

// Logout закрывает сессию и очищает все хранилища.
func (f *Facade) Logout(ctx context.Context) {
	if f.channel != nil {
		f.channel.SetUser("")
	}
	f.auth.Logout(ctx)
	f.posts.Reset()
	f.notifications.Reset()
	f.messages.Reset()
	f.communities.Reset()
}

func (f *Facade) startSession(ctx context.Context, userID string) {
	if f.channel != nil {
		f.channel.SetUser(userID)
	}
	f.Bootstrap(ctx)
}

// Bootstrap параллельно загружает ленту, отметки, уведомления, переписки и сообщества.
// Ошибки чтения поглощаются хранилищами и видны в их снимках.
func (f *Facade) Bootstrap(ctx context.Context) {
	userID := f.auth.CurrentUserID()
	if userID == "" {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { f.posts.FetchPosts(gctx, userID); return nil })
	g.Go(func() error { f.posts.FetchEngagement(gctx, userID); return nil })
	g.Go(func() error { f.notifications.FetchNotifications(gctx); return nil })
	g.Go(func() error { f.messages.GetMessageThreads(gctx, userID); return nil })
	g.Go(func() error { f.communities.FetchCommunities(gctx, userID); return nil })
	g.Go(func() error { f.auth.FetchActivities(gctx); return nil })
	_ = g.Wait()
	f.log.Debug().Str("user_id", userID).Msg("facade: начальное состояние загружено")
}

// CurrentUserID id пользователя сессии.
func (f *Facade) CurrentUserID() string {
	return f.auth.CurrentUserID()
}

// UpdateProfile обновляет профиль.
func (f *Facade) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (domain.User, error) {
	return f.auth.UpdateProfile(ctx, update)
}

// FollowUser подписывает на пользователя.
func (f *Facade) FollowUser(ctx context.Context, targetID string) error {
	return f.auth.FollowUser(ctx, targetID)
}

// UnfollowUser отписывает от пользователя.
func (f *Facade) UnfollowUser(ctx context.Context, targetID string) error {
	return f.auth.UnfollowUser(ctx, targetID)
}

// FetchPosts перезапрашивает ленту со слиянием.
func (f *Facade) FetchPosts(ctx context.Context) error {
	userID, err := f.requireUser()
	if err != nil {
		return err
	}
	f.posts.FetchPosts(ctx, userID)
	return nil
}

// RefreshPosts заменяет ленту целиком.
func (f *Facade) RefreshPosts(ctx context.Context) error {
	userID, err := f.requireUser()
	if err != nil {
		return err
	}
	f.posts.RefreshPosts(ctx, userID)
	return nil
}

// CreatePost публикует пост от имени пользователя сессии.
func (f *Facade) CreatePost(ctx context.Context, data domain.NewPost) (domain.Post, error) {
	if data.UserID == "" {
		data.UserID = f.auth.CurrentUserID()
	}
	return f.posts.CreatePost(ctx, data)
}

func (f *Facade) Like(ctx context.Context, postID string) error {
	return f.posts.Like(ctx, postID, f.auth.CurrentUserID())
}

func (f *Facade) Unlike(ctx context.Context, postID string) error {
	return f.posts.Unlike(ctx, postID, f.auth.CurrentUserID())
}

func (f *Facade) Retweet(ctx context.Context, postID string) error {
	return f.posts.Retweet(ctx, postID, f.auth.CurrentUserID())
}

func (f *Facade) Unretweet(ctx context.Context, postID string) error {
	return f.posts.Unretweet(ctx, postID, f.auth.CurrentUserID())
}

func (f *Facade) Bookmark(ctx context.Context, postID string) error {
	return f.posts.Bookmark(ctx, postID, f.auth.CurrentUserID())
}

func (f *Facade) Unbookmark(ctx context.Context, postID string) error {
	return f.posts.Unbookmark(ctx, postID, f.auth.CurrentUserID())
}

func (f *Facade) ViewPost(ctx context.Context, postID string) error {
	return f.posts.ViewPost(ctx, postID, f.auth.CurrentUserID())
}

// CommentOnPost комментирует пост от имени пользователя сессии.
func (f *Facade) CommentOnPost(ctx context.Context, postID, content string) (domain.Comment, error) {
	return f.posts.CommentOnPost(ctx, postID, domain.NewComment{UserID: f.auth.CurrentUserID(), Content: content})
}

// FetchNotifications перезапрашивает уведомления.
func (f *Facade) FetchNotifications(ctx context.Context) {
	f.notifications.FetchNotifications(ctx)
}

// MarkNotificationAsRead отмечает одно уведомление прочитанным.
func (f *Facade) MarkNotificationAsRead(ctx context.Context, id string) error {
	return f.notifications.MarkNotificationAsRead(ctx, id)
}

// MarkAllNotificationsAsRead отмечает все уведомления и возвращает число от сервера.
func (f *Facade) MarkAllNotificationsAsRead(ctx context.Context) (int, error) {
	return f.notifications.MarkAllNotificationsAsRead(ctx)
}

// GetMessageThreads загружает переписки пользователя сессии.
func (f *Facade) GetMessageThreads(ctx context.Context) error {
	userID, err := f.requireUser()
	if err != nil {
		return err
	}
	f.messages.GetMessageThreads(ctx, userID)
	return nil
}

// FetchThreadMessages загружает сообщения переписки.
func (f *Facade) FetchThreadMessages(ctx context.Context, threadID string) {
	f.messages.FetchThreadMessages(ctx, threadID)
}

// SendMessage отправляет сообщение в переписку.
func (f *Facade) SendMessage(ctx context.Context, threadID, content string) (domain.ThreadMessage, error) {
	return f.messages.SendMessage(ctx, threadID, f.auth.CurrentUserID(), content)
}

// CreateThread создаёт переписку. Пользователь сессии всегда входит в участники.
func (f *Facade) CreateThread(ctx context.Context, data domain.NewThread) (domain.MessageThread, error) {
	if userID := f.auth.CurrentUserID(); userID != "" && !slices.Contains(data.ParticipantIDs, userID) {
		data.ParticipantIDs = append([]string{userID}, data.ParticipantIDs...)
	}
	return f.messages.CreateThread(ctx, data)
}

// AddParticipant добавляет участника в групповую переписку.
func (f *Facade) AddParticipant(ctx context.Context, threadID, userID string) (domain.MessageThread, error) {
	return f.messages.AddParticipant(ctx, threadID, userID)
}

// FetchCommunities загружает сообщества.
func (f *Facade) FetchCommunities(ctx context.Context) error {
	userID, err := f.requireUser()
	if err != nil {
		return err
	}
	f.communities.FetchCommunities(ctx, userID)
	return nil
}

// CreateCommunity создаёт сообщество от имени пользователя сессии.
func (f *Facade) CreateCommunity(ctx context.Context, data domain.NewCommunity) (domain.Community, error) {
	if data.CreatorID == "" {
		data.CreatorID = f.auth.CurrentUserID()
	}
	return f.communities.CreateCommunity(ctx, data)
}

func (f *Facade) JoinCommunity(ctx context.Context, communityID string) (domain.Community, error) {
	return f.communities.JoinCommunity(ctx, communityID, f.auth.CurrentUserID())
}

func (f *Facade) LeaveCommunity(ctx context.Context, communityID string) (domain.Community, error) {
	return f.communities.LeaveCommunity(ctx, communityID, f.auth.CurrentUserID())
}

// FetchCommunityMessages загружает чат сообщества.
func (f *Facade) FetchCommunityMessages(ctx context.Context, communityID string) {
	f.communities.FetchCommunityMessages(ctx, communityID)
}

// SendCommunityMessage отправляет сообщение в чат сообщества.
func (f *Facade) SendCommunityMessage(ctx context.Context, communityID, content string) (domain.CommunityMessage, error) {
	return f.communities.SendCommunityMessage(ctx, communityID, f.auth.CurrentUserID(), content)
}

// Snapshot возвращает копию состояния всех хранилищ.
func (f *Facade) Snapshot() State {
	st := State{
		Auth:          f.auth.Snapshot(),
		Posts:         f.posts.Snapshot(),
		Notifications: f.notifications.Snapshot(),
		Messages:      f.messages.Snapshot(),
		Communities:   f.communities.Snapshot(),
	}
	if f.channel != nil {
		st.PushConnected = f.channel.Connected()
	}
	return st
}

// PushConnected сообщает состояние push-канала.
func (f *Facade) PushConnected() bool {
	return f.channel != nil && f.channel.Connected()
}

func (f *Facade) onDirectMessage(ev domain.PushEvent) {
	if ev.ThreadID == "" {
		f.log.Debug().Str("event", ev.Name).Msg("facade: событие без id переписки")
		return
	}
	f.messages.RefreshThread(f.ctx, ev.ThreadID)
}

func (f *Facade) onGroupMessage(ev domain.PushEvent) {
	if ev.CommunityID == "" {
		f.log.Debug().Str("event", ev.Name).Msg("facade: событие без id сообщества")
		return
	}
	f.communities.RefreshCommunity(f.ctx, ev.CommunityID)
}

// onConnect перезапрашивает переписки и сообщества: пропущенные за время обрыва события не приходят.
func (f *Facade) onConnect() {
	userID := f.auth.CurrentUserID()
	if userID == "" {
		return
	}
	f.messages.GetMessageThreads(f.ctx, userID)
	f.communities.FetchCommunities(f.ctx, userID)

	g, gctx := errgroup.WithContext(f.ctx)
	g.SetLimit(refreshLimit)
	for _, id := range f.messages.ThreadIDs() {
		id := id
		g.Go(func() error { f.messages.RefreshThread(gctx, id); return nil })
	}
	for _, id := range f.communities.CommunityIDs() {
		id := id
		g.Go(func() error { f.communities.RefreshCommunity(gctx, id); return nil })
	}
	_ = g.Wait()
}

func (f *Facade) requireUser() (string, error) {
	userID := f.auth.CurrentUserID()
	if strings.TrimSpace(userID) == "" {
		return "", domain.ErrNotAuthenticated
	}
	return userID, nil
}
