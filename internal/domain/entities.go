package domain

import "time"

// User описывает профиль пользователя платформы.
type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	DisplayName    string `json:"displayName,omitempty"`
	Bio            string `json:"bio,omitempty"`
	AvatarURL      string `json:"avatarUrl,omitempty"`
	FollowerCount  int    `json:"followerCount"`
	FollowingCount int    `json:"followingCount"`
}

// Session хранит результат входа.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Credentials используются для входа и регистрации.
type Credentials struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// ProfileUpdate содержит изменяемые поля профиля.
type ProfileUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
}

// Activity описывает запись ленты активности пользователя.
type Activity struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Kind      string    `json:"kind"`
	PostID    string    `json:"postId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Post представляет пост в ленте.
type Post struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"authorId"`
	Content      string    `json:"content"`
	MediaURL     string    `json:"mediaUrl,omitempty"`
	ViewCount    int       `json:"viewCount"`
	LikeCount    int       `json:"likeCount"`
	CommentCount int       `json:"commentCount"`
	RetweetCount int       `json:"retweetCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewPost описывает данные для создания поста.
type NewPost struct {
	UserID   string `json:"userId"`
	Content  string `json:"content"`
	MediaURL string `json:"mediaUrl,omitempty"`
}

// Comment описывает комментарий к посту.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewComment описывает данные для комментария.
type NewComment struct {
	UserID  string `json:"userId"`
	Content string `json:"content"`
}

// EngagementKind задаёт один из независимых наборов отметок пользователя.
type EngagementKind string

const (
	EngagementLiked      EngagementKind = "liked"
	EngagementRetweeted  EngagementKind = "retweeted"
	EngagementBookmarked EngagementKind = "bookmarked"
	EngagementViewed     EngagementKind = "viewed"
)

// EngagementKinds перечисляет все наборы в стабильном порядке.
var EngagementKinds = []EngagementKind{EngagementLiked, EngagementRetweeted, EngagementBookmarked, EngagementViewed}

// Engagement содержит идентификаторы постов по каждому набору отметок.
type Engagement struct {
	Liked      []string `json:"liked"`
	Retweeted  []string `json:"retweeted"`
	Bookmarked []string `json:"bookmarked"`
	Viewed     []string `json:"viewed"`
}

// IDs возвращает идентификаторы для набора.
func (e Engagement) IDs(kind EngagementKind) []string {
	switch kind {
	case EngagementLiked:
		return e.Liked
	case EngagementRetweeted:
		return e.Retweeted
	case EngagementBookmarked:
		return e.Bookmarked
	case EngagementViewed:
		return e.Viewed
	}
	return nil
}

// NotificationType перечисляет типы уведомлений.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationRetweet NotificationType = "retweet"
	NotificationFollow  NotificationType = "follow"
	NotificationComment NotificationType = "comment"
	NotificationMention NotificationType = "mention"
)

// Valid сообщает, известен ли тип.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationLike, NotificationRetweet, NotificationFollow, NotificationComment, NotificationMention:
		return true
	}
	return false
}

// Notification описывает уведомление получателя в каноничной форме.
type Notification struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	Type        NotificationType `json:"type"`
	ActorID     string           `json:"actorId"`
	IsRead      bool             `json:"isRead"`
	CreatedAt   time.Time        `json:"createdAt"`
	ActorName   string           `json:"actorName,omitempty"`
	ActorAvatar string           `json:"actorAvatar,omitempty"`
	PostID      string           `json:"postId,omitempty"`
	PostExcerpt string           `json:"postExcerpt,omitempty"`
}

// MessageThread описывает переписку.
type MessageThread struct {
	ID             string   `json:"id"`
	ParticipantIDs []string `json:"participantIds"`
	IsGroup        bool     `json:"isGroup"`
	Name           string   `json:"name,omitempty"`
}

// NewThread описывает данные для создания переписки.
type NewThread struct {
	ParticipantIDs []string `json:"participantIds"`
	IsGroup        bool     `json:"isGroup"`
	Name           string   `json:"name,omitempty"`
}

// ThreadMessage сообщение внутри переписки.
type ThreadMessage struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"threadId"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Community описывает сообщество с точки зрения текущего пользователя.
type Community struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CreatorID   string     `json:"creatorId"`
	JoinedAt    *time.Time `json:"joinedAt"`
	IsAdmin     bool       `json:"isAdmin"`
	MemberCount int        `json:"memberCount"`
}

// Joined сообщает, состоит ли текущий пользователь в сообществе.
func (c Community) Joined() bool {
	return c.JoinedAt != nil
}

// NewCommunity описывает данные для создания сообщества.
type NewCommunity struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatorID   string `json:"creatorId"`
}

// CommunityMessage сообщение в чате сообщества.
type CommunityMessage struct {
	ID          string    `json:"id"`
	CommunityID string    `json:"communityId"`
	SenderID    string    `json:"senderId"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Push-события, которые пересылает канал.
const (
	EventNewDirectMessage = "new_direct_message"
	EventNewGroupMessage  = "new_group_message"
)

// PushEvent нормализованное событие push-канала.
type PushEvent struct {
	Name        string `json:"event"`
	ThreadID    string `json:"threadId,omitempty"`
	CommunityID string `json:"communityId,omitempty"`
	MessageID   string `json:"messageId,omitempty"`
	SenderID    string `json:"senderId,omitempty"`
	Content     string `json:"content,omitempty"`
}
