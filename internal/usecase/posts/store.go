package posts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"social-sync/internal/domain"
	"social-sync/internal/infra/metrics"
	"social-sync/internal/usecase/reconcile"
)

const storeName = "posts"

// FeedEntry пост ленты вместе с локальной отметкой создания.
type FeedEntry struct {
	domain.Post
	LocallyCreated bool       `json:"isLocallyCreated,omitempty"`
	LocalCreatedAt *time.Time `json:"localCreatedAt,omitempty"`
}

// State снимок хранилища постов только для чтения.
type State struct {
	Posts      []FeedEntry `json:"posts"`
	Liked      []string    `json:"liked"`
	Retweeted  []string    `json:"retweeted"`
	Bookmarked []string    `json:"bookmarked"`
	Viewed     []string    `json:"viewed"`
	Loading    bool        `json:"loading"`
	Error      string      `json:"error,omitempty"`
}

// Store владеет лентой и наборами отметок пользователя.
// Сетевые вызовы выполняются вне блокировки, переходы состояния целиком под ней.
type Store struct {
	api domain.PostAPI
	log zerolog.Logger
	now func() time.Time

	mu         sync.Mutex
	posts      []domain.Post
	pending    []reconcile.Pending
	engagement map[domain.EngagementKind]domain.Set[string]
	loading    bool
	err        string
}

// NewStore создаёт хранилище постов.
func NewStore(api domain.PostAPI, logger zerolog.Logger) *Store {
	s := &Store{api: api, log: logger, now: time.Now}
	s.engagement = emptyEngagement()
	return s
}

func emptyEngagement() map[domain.EngagementKind]domain.Set[string] {
	sets := make(map[domain.EngagementKind]domain.Set[string], len(domain.EngagementKinds))
	for _, kind := range domain.EngagementKinds {
		sets[kind] = domain.NewSet[string]()
	}
	return sets
}

// FetchPosts перезапрашивает ленту и сливает её с удерживаемой, не теряя локально созданных постов.
// Ошибки чтения не возвращаются: они логируются и попадают в поле Error.
func (s *Store) FetchPosts(ctx context.Context, userID string) {
	s.setLoading()
	fetched, err := s.api.GetPosts(ctx, userID)
	if err != nil {
		s.fail("fetch_posts", err)
		return
	}

	s.mu.Lock()
	res := reconcile.MergeFeed(s.posts, s.pending, fetched)
	s.posts = res.Posts
	s.pending = res.Pending
	s.loading = false
	s.err = ""
	s.mu.Unlock()

	metrics.ObserveFeedMerge("merge", res.Pinned != "")
	s.log.Debug().Int("posts", len(res.Posts)).Str("pinned", res.Pinned).Msg("posts: feed merged")
}

// RefreshPosts безусловно заменяет ленту и сбрасывает все локальные отметки.
func (s *Store) RefreshPosts(ctx context.Context, userID string) {
	s.setLoading()
	fetched, err := s.api.GetPosts(ctx, userID)
	if err != nil {
		s.fail("refresh_posts", err)
		return
	}

	s.mu.Lock()
	s.posts = reconcile.DedupeByID(fetched, idOf)
	s.pending = nil
	s.loading = false
	s.err = ""
	s.mu.Unlock()

	metrics.ObserveFeedMerge("refresh", false)
}

// CreatePost создаёт пост и ставит его первым в ленте до следующего перезапроса.
func (s *Store) CreatePost(ctx context.Context, data domain.NewPost) (domain.Post, error) {
	if strings.TrimSpace(data.UserID) == "" {
		return domain.Post{}, domain.Required("userId")
	}
	if strings.TrimSpace(data.Content) == "" && strings.TrimSpace(data.MediaURL) == "" {
		return domain.Post{}, domain.Required("content")
	}
	created, err := s.api.CreatePost(ctx, data)
	if err == nil && strings.TrimSpace(created.ID) == "" {
		err = &domain.APIError{Message: "create_post: ответ сервера без id поста"}
	}
	if err != nil {
		s.recordError("create_post", err)
		return domain.Post{}, fmt.Errorf("создание поста: %w", err)
	}

	s.mu.Lock()
	s.posts = reconcile.Prepend(s.posts, created, idOf)
	s.pending = append(removePending(s.pending, created.ID), reconcile.Pending{ID: created.ID, LocalCreatedAt: s.now()})
	s.mu.Unlock()
	return created, nil
}

// Like отмечает пост понравившимся.
func (s *Store) Like(ctx context.Context, postID, userID string) error {
	return s.engage(ctx, "like", postID, userID, s.api.LikePost, domain.EngagementLiked, true)
}

// Unlike снимает отметку «нравится».
func (s *Store) Unlike(ctx context.Context, postID, userID string) error {
	return s.engage(ctx, "unlike", postID, userID, s.api.UnlikePost, domain.EngagementLiked, false)
}

// Retweet делает ретвит поста.
func (s *Store) Retweet(ctx context.Context, postID, userID string) error {
	return s.engage(ctx, "retweet", postID, userID, s.api.RetweetPost, domain.EngagementRetweeted, true)
}

// Unretweet отменяет ретвит.
func (s *Store) Unretweet(ctx context.Context, postID, userID string) error {
	return s.engage(ctx, "unretweet", postID, userID, s.api.UnretweetPost, domain.EngagementRetweeted, false)
}

// Bookmark добавляет пост в закладки.
func (s *Store) Bookmark(ctx context.Context, postID, userID string) error {
	return s.engage(ctx, "bookmark", postID, userID, s.api.BookmarkPost, domain.EngagementBookmarked, true)
}

// Unbookmark убирает пост из закладок.
func (s *Store) Unbookmark(ctx context.Context, postID, userID string) error {
	return s.engage(ctx, "unbookmark", postID, userID, s.api.UnbookmarkPost, domain.EngagementBookmarked, false)
}

// ViewPost учитывает просмотр. Повторный просмотр того же поста не отправляется.
func (s *Store) ViewPost(ctx context.Context, postID, userID string) error {
	if err := validateEngagement(postID, userID); err != nil {
		return err
	}
	s.mu.Lock()
	seen := s.engagement[domain.EngagementViewed].Has(postID)
	s.mu.Unlock()
	if seen {
		return nil
	}
	return s.engage(ctx, "view", postID, userID, s.api.ViewPost, domain.EngagementViewed, true)
}

// CommentOnPost публикует комментарий. Ошибки возвращаются вызывающему.
func (s *Store) CommentOnPost(ctx context.Context, postID string, data domain.NewComment) (domain.Comment, error) {
	if strings.TrimSpace(postID) == "" {
		return domain.Comment{}, domain.Required("postId")
	}
	if strings.TrimSpace(data.UserID) == "" {
		return domain.Comment{}, domain.Required("userId")
	}
	if strings.TrimSpace(data.Content) == "" {
		return domain.Comment{}, domain.Required("content")
	}
	comment, err := s.api.CommentOnPost(ctx, postID, data)
	if err != nil {
		s.recordError("comment_post", err)
		return domain.Comment{}, fmt.Errorf("комментарий к посту: %w", err)
	}
	s.mu.Lock()
	s.updatePost(postID, func(p *domain.Post) { p.CommentCount++ })
	s.mu.Unlock()
	return comment, nil
}

// FetchEngagement загружает наборы отметок пользователя с сервера.
func (s *Store) FetchEngagement(ctx context.Context, userID string) {
	eng, err := s.api.GetEngagement(ctx, userID)
	if err != nil {
		s.recordError("fetch_engagement", err)
		return
	}
	sets := make(map[domain.EngagementKind]domain.Set[string], len(domain.EngagementKinds))
	for _, kind := range domain.EngagementKinds {
		sets[kind] = domain.NewSet(eng.IDs(kind)...)
	}
	s.mu.Lock()
	s.engagement = sets
	s.mu.Unlock()
}

// Has сообщает, входит ли пост в набор отметок.
func (s *Store) Has(kind domain.EngagementKind, postID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engagement[kind].Has(postID)
}

// Reset очищает состояние при выходе из сессии.
func (s *Store) Reset() {
	s.mu.Lock()
	s.posts = nil
	s.pending = nil
	s.engagement = emptyEngagement()
	s.loading = false
	s.err = ""
	s.mu.Unlock()
}

// Snapshot возвращает копию состояния.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	local := make(map[string]time.Time, len(s.pending))
	for _, p := range s.pending {
		local[p.ID] = p.LocalCreatedAt
	}
	entries := make([]FeedEntry, 0, len(s.posts))
	for _, p := range s.posts {
		entry := FeedEntry{Post: p}
		if at, ok := local[p.ID]; ok {
			entry.LocallyCreated = true
			entry.LocalCreatedAt = &at
		}
		entries = append(entries, entry)
	}
	return State{
		Posts:      entries,
		Liked:      domain.SortedStrings(s.engagement[domain.EngagementLiked]),
		Retweeted:  domain.SortedStrings(s.engagement[domain.EngagementRetweeted]),
		Bookmarked: domain.SortedStrings(s.engagement[domain.EngagementBookmarked]),
		Viewed:     domain.SortedStrings(s.engagement[domain.EngagementViewed]),
		Loading:    s.loading,
		Error:      s.err,
	}
}

type remoteEngagement func(ctx context.Context, postID, userID string) error

// engage дожидается удалённого вызова и только затем меняет набор.
// Сбой сети оставляет состояние без изменений: откатывать нечего.
func (s *Store) engage(ctx context.Context, op, postID, userID string, remote remoteEngagement, kind domain.EngagementKind, add bool) error {
	if err := validateEngagement(postID, userID); err != nil {
		return err
	}
	if err := remote(ctx, postID, userID); err != nil {
		s.recordError(op, err)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.engagement[kind]
	var changed bool
	if add {
		changed = set.Add(postID)
	} else {
		changed = set.Remove(postID)
	}
	if !changed {
		return nil
	}
	delta := 1
	if !add {
		delta = -1
	}
	s.updatePost(postID, func(p *domain.Post) {
		switch kind {
		case domain.EngagementLiked:
			p.LikeCount = clamp(p.LikeCount + delta)
		case domain.EngagementRetweeted:
			p.RetweetCount = clamp(p.RetweetCount + delta)
		case domain.EngagementViewed:
			p.ViewCount = clamp(p.ViewCount + delta)
		}
	})
	return nil
}

// updatePost применяет изменение к посту по id. Вызывается под блокировкой.
func (s *Store) updatePost(id string, fn func(p *domain.Post)) {
	for i := range s.posts {
		if s.posts[i].ID == id {
			updated := append([]domain.Post(nil), s.posts...)
			fn(&updated[i])
			s.posts = updated
			return
		}
	}
}

func (s *Store) setLoading() {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
}

func (s *Store) fail(op string, err error) {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
	s.recordError(op, err)
}

func (s *Store) recordError(op string, err error) {
	metrics.IncStoreError(storeName, op)
	s.log.Error().Err(err).Str("op", op).Msg("posts: операция не выполнена")
	s.mu.Lock()
	s.err = err.Error()
	s.mu.Unlock()
}

func validateEngagement(postID, userID string) error {
	if strings.TrimSpace(postID) == "" {
		return domain.Required("postId")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.Required("userId")
	}
	return nil
}

func removePending(pending []reconcile.Pending, id string) []reconcile.Pending {
	out := make([]reconcile.Pending, 0, len(pending))
	for _, p := range pending {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func idOf(p domain.Post) string { return p.ID }
