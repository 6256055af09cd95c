package domain

import (
	"context"
	"encoding/json"
)

// AuthAPI удалённые операции сессии и профиля.
type AuthAPI interface {
	Login(ctx context.Context, creds Credentials) (Session, error)
	Signup(ctx context.Context, creds Credentials) (Session, error)
	Logout(ctx context.Context) error
	GetUser(ctx context.Context, userID string) (User, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (User, error)
	FollowUser(ctx context.Context, userID, targetID string) error
	UnfollowUser(ctx context.Context, userID, targetID string) error
	GetActivities(ctx context.Context, userID string) ([]Activity, error)
	SetToken(token string)
}

// PostAPI удалённые операции с постами и отметками.
type PostAPI interface {
	GetPosts(ctx context.Context, userID string) ([]Post, error)
	CreatePost(ctx context.Context, data NewPost) (Post, error)
	LikePost(ctx context.Context, postID, userID string) error
	UnlikePost(ctx context.Context, postID, userID string) error
	RetweetPost(ctx context.Context, postID, userID string) error
	UnretweetPost(ctx context.Context, postID, userID string) error
	BookmarkPost(ctx context.Context, postID, userID string) error
	UnbookmarkPost(ctx context.Context, postID, userID string) error
	ViewPost(ctx context.Context, postID, userID string) error
	CommentOnPost(ctx context.Context, postID string, data NewComment) (Comment, error)
	GetEngagement(ctx context.Context, userID string) (Engagement, error)
}

// NotificationAPI удалённые операции с уведомлениями.
// Уведомления возвращаются в сыром виде: схема источника не контролируется клиентом.
type NotificationAPI interface {
	GetNotifications(ctx context.Context, userID string) ([]json.RawMessage, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int, error)
}

// MessageAPI удалённые операции с личными переписками.
type MessageAPI interface {
	GetMessageThreads(ctx context.Context, userID string) ([]MessageThread, error)
	GetThreadMessages(ctx context.Context, threadID string, limit int) ([]ThreadMessage, error)
	SendMessage(ctx context.Context, threadID, senderID, content string) (ThreadMessage, error)
	CreateThread(ctx context.Context, data NewThread) (MessageThread, error)
	AddThreadParticipant(ctx context.Context, threadID, userID string) (MessageThread, error)
}

// CommunityAPI удалённые операции с сообществами.
type CommunityAPI interface {
	GetCommunities(ctx context.Context, userID string) ([]Community, error)
	CreateCommunity(ctx context.Context, data NewCommunity) (Community, error)
	JoinCommunity(ctx context.Context, communityID, userID string) (Community, error)
	LeaveCommunity(ctx context.Context, communityID, userID string) (Community, error)
	GetCommunityMessages(ctx context.Context, communityID string, limit int) ([]CommunityMessage, error)
	SendCommunityMessage(ctx context.Context, communityID, senderID, content string) (CommunityMessage, error)
}

// EventHandler обрабатывает нормализованное push-событие.
type EventHandler func(event PushEvent)

// PushChannel постоянное соединение для серверных событий.
type PushChannel interface {
	Subscribe(event string, handler EventHandler)
	Unsubscribe(event string)
	// SetUser устанавливает пользователя сессии. Пустая строка закрывает соединение.
	SetUser(userID string)
	// OnConnect вызывается после каждого (пере)подключения: пропущенные события не воспроизводятся.
	OnConnect(fn func())
	Connected() bool
	Close()
}

// UserIDSource отдаёт идентификатор текущего пользователя (только чтение).
type UserIDSource interface {
	CurrentUserID() string
}
