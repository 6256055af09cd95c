package posts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"social-sync/internal/domain"
)

type stubAPI struct {
	mu       sync.Mutex
	feed     []domain.Post
	created  domain.Post
	failWith error
	calls    map[string]int
	// beforeReturn вызывается до ответа GetPosts: имитирует гонку с оптимистичной вставкой.
	beforeReturn func()
}

func newStubAPI() *stubAPI {
	return &stubAPI{calls: make(map[string]int)}
}

func (s *stubAPI) hit(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.failWith
}

func (s *stubAPI) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *stubAPI) GetPosts(context.Context, string) ([]domain.Post, error) {
	if err := s.hit("get_posts"); err != nil {
		return nil, err
	}
	if s.beforeReturn != nil {
		s.beforeReturn()
	}
	return append([]domain.Post(nil), s.feed...), nil
}

func (s *stubAPI) CreatePost(_ context.Context, data domain.NewPost) (domain.Post, error) {
	if err := s.hit("create_post"); err != nil {
		return domain.Post{}, err
	}
	p := s.created
	p.AuthorID = data.UserID
	p.Content = data.Content
	return p, nil
}

func (s *stubAPI) LikePost(context.Context, string, string) error       { return s.hit("like") }
func (s *stubAPI) UnlikePost(context.Context, string, string) error     { return s.hit("unlike") }
func (s *stubAPI) RetweetPost(context.Context, string, string) error    { return s.hit("retweet") }
func (s *stubAPI) UnretweetPost(context.Context, string, string) error  { return s.hit("unretweet") }
func (s *stubAPI) BookmarkPost(context.Context, string, string) error   { return s.hit("bookmark") }
func (s *stubAPI) UnbookmarkPost(context.Context, string, string) error { return s.hit("unbookmark") }
func (s *stubAPI) ViewPost(context.Context, string, string) error       { return s.hit("view") }
func (s *stubAPI) CommentOnPost(_ context.Context, postID string, data domain.NewComment) (domain.Comment, error) {
	if err := s.hit("comment"); err != nil {
		return domain.Comment{}, err
	}
	return domain.Comment{ID: "c1", PostID: postID, AuthorID: data.UserID, Content: data.Content}, nil
}
func (s *stubAPI) GetEngagement(context.Context, string) (domain.Engagement, error) {
	if err := s.hit("engagement"); err != nil {
		return domain.Engagement{}, err
	}
	return domain.Engagement{Liked: []string{"p1"}, Bookmarked: []string{"p2"}}, nil
}

func newTestStore(api *stubAPI) *Store {
	s := NewStore(api, zerolog.Nop())
	s.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return s
}

func feedIDs(st State) []string {
	out := make([]string, 0, len(st.Posts))
	for _, p := range st.Posts {
		out = append(out, p.ID)
	}
	return out
}

func TestCreatePostRequiresUserID(t *testing.T) {
	api := newStubAPI()
	s := newTestStore(api)
	_, err := s.CreatePost(context.Background(), domain.NewPost{Content: "hi"})
	if !domain.IsValidation(err) {
		t.Fatalf("ожидали ошибку проверки, получили %v", err)
	}
	if api.count("create_post") != 0 {
		t.Fatalf("сетевой вызов не должен выполняться при ошибке проверки")
	}
}

func TestCreatePostPrependsAndMarksLocal(t *testing.T) {
	api := newStubAPI()
	api.feed = []domain.Post{{ID: "p0"}}
	api.created = domain.Post{ID: "p1"}
	s := newTestStore(api)
	s.FetchPosts(context.Background(), "u1")

	if _, err := s.CreatePost(context.Background(), domain.NewPost{UserID: "u1", Content: "hi"}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	st := s.Snapshot()
	if got := feedIDs(st); len(got) != 2 || got[0] != "p1" {
		t.Fatalf("ожидали p1 первым, получили %v", got)
	}
	if !st.Posts[0].LocallyCreated || st.Posts[0].LocalCreatedAt == nil {
		t.Fatalf("ожидали локальную отметку у p1")
	}
	if st.Posts[1].LocallyCreated {
		t.Fatalf("p0 не создавался локально")
	}
}

func TestCreatePostPropagatesRemoteError(t *testing.T) {
	api := newStubAPI()
	api.failWith = &domain.APIError{Status: 500, Message: "boom"}
	s := newTestStore(api)
	_, err := s.CreatePost(context.Background(), domain.NewPost{UserID: "u1", Content: "hi"})
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("ожидали APIError, получили %v", err)
	}
}

func TestCreatePostRejectsEchoWithoutID(t *testing.T) {
	api := newStubAPI()
	s := newTestStore(api)
	_, err := s.CreatePost(context.Background(), domain.NewPost{UserID: "u1", Content: "hi"})
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("ожидали APIError для ответа без id, получили %v", err)
	}
	st := s.Snapshot()
	if len(st.Posts) != 0 || st.Error == "" {
		t.Fatalf("пустой ответ не должен попасть в ленту: %+v", st)
	}
}

func TestFetchPostsKeepsPinnedPost(t *testing.T) {
	api := newStubAPI()
	api.created = domain.Post{ID: "p1"}
	api.feed = []domain.Post{{ID: "p0"}}
	s := newTestStore(api)
	s.FetchPosts(context.Background(), "u1")
	if _, err := s.CreatePost(context.Background(), domain.NewPost{UserID: "u1", Content: "x"}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	api.feed = []domain.Post{{ID: "p0"}, {ID: "p1", LikeCount: 2}}
	s.FetchPosts(context.Background(), "u1")

	st := s.Snapshot()
	if got := feedIDs(st); len(got) != 2 || got[0] != "p1" || got[1] != "p0" {
		t.Fatalf("ожидали [p1 p0], получили %v", got)
	}
	if !st.Posts[0].LocallyCreated {
		t.Fatalf("отметка локального создания должна сохраниться")
	}
	if st.Posts[0].LikeCount != 2 {
		t.Fatalf("серверная копия должна побеждать по полям")
	}
}

func TestFetchPostsRacingCreate(t *testing.T) {
	api := newStubAPI()
	api.created = domain.Post{ID: "p1"}
	api.feed = []domain.Post{{ID: "p0"}}
	s := newTestStore(api)

	// Оптимистичная вставка завершается, пока перезапрос ещё в полёте.
	api.beforeReturn = func() {
		api.beforeReturn = nil
		if _, err := s.CreatePost(context.Background(), domain.NewPost{UserID: "u1", Content: "x"}); err != nil {
			t.Errorf("не ожидали ошибку: %v", err)
		}
	}
	s.FetchPosts(context.Background(), "u1")

	got := feedIDs(s.Snapshot())
	if len(got) != 2 || got[0] != "p1" || got[1] != "p0" {
		t.Fatalf("созданный пост не должен теряться при гонке, получили %v", got)
	}
}

func TestRefreshPostsStripsLocalMarks(t *testing.T) {
	api := newStubAPI()
	api.created = domain.Post{ID: "p1"}
	s := newTestStore(api)
	if _, err := s.CreatePost(context.Background(), domain.NewPost{UserID: "u1", Content: "x"}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	api.feed = []domain.Post{{ID: "p0"}, {ID: "p1"}, {ID: "p0"}}
	s.RefreshPosts(context.Background(), "u1")

	st := s.Snapshot()
	if got := feedIDs(st); len(got) != 2 || got[0] != "p0" {
		t.Fatalf("ожидали порядок сервера без дублей, получили %v", got)
	}
	for _, p := range st.Posts {
		if p.LocallyCreated || p.LocalCreatedAt != nil {
			t.Fatalf("после refresh локальных отметок быть не должно: %+v", p)
		}
	}
}

func TestFetchPostsFailureKeepsState(t *testing.T) {
	api := newStubAPI()
	api.feed = []domain.Post{{ID: "p0"}}
	s := newTestStore(api)
	s.FetchPosts(context.Background(), "u1")

	api.failWith = errors.New("offline")
	s.FetchPosts(context.Background(), "u1")

	st := s.Snapshot()
	if st.Loading {
		t.Fatalf("флаг загрузки должен сбрасываться")
	}
	if st.Error == "" {
		t.Fatalf("ожидали заполненное поле ошибки")
	}
	if len(st.Posts) != 1 {
		t.Fatalf("при ошибке чтения лента не меняется")
	}
}

func TestLikeIsIdempotent(t *testing.T) {
	api := newStubAPI()
	api.feed = []domain.Post{{ID: "p1", LikeCount: 5}}
	s := newTestStore(api)
	s.FetchPosts(context.Background(), "u1")

	for i := 0; i < 2; i++ {
		if err := s.Like(context.Background(), "p1", "u1"); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}
	st := s.Snapshot()
	if len(st.Liked) != 1 {
		t.Fatalf("повторный лайк не меняет набор, получили %v", st.Liked)
	}
	if st.Posts[0].LikeCount != 6 {
		t.Fatalf("счётчик меняется только при изменении набора, получили %d", st.Posts[0].LikeCount)
	}

	if err := s.Unlike(context.Background(), "p2", "u1"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(s.Snapshot().Liked) != 1 {
		t.Fatalf("снятие отсутствующей отметки — no-op")
	}
}

func TestEngagementFailureLeavesStateUnchanged(t *testing.T) {
	api := newStubAPI()
	api.failWith = &domain.APIError{Status: 500, Message: "boom"}
	s := newTestStore(api)

	if err := s.Bookmark(context.Background(), "p1", "u1"); err != nil {
		t.Fatalf("ошибки сети не пробрасываются, получили %v", err)
	}
	if s.Has(domain.EngagementBookmarked, "p1") {
		t.Fatalf("при ошибке набор не меняется")
	}
	if s.Snapshot().Error != "boom" {
		t.Fatalf("ожидали текст ошибки в состоянии")
	}
}

func TestEngagementValidation(t *testing.T) {
	s := newTestStore(newStubAPI())
	if err := s.Retweet(context.Background(), "", "u1"); !domain.IsValidation(err) {
		t.Fatalf("ожидали ошибку проверки, получили %v", err)
	}
	if err := s.Like(context.Background(), "p1", ""); !domain.IsValidation(err) {
		t.Fatalf("ожидали ошибку проверки, получили %v", err)
	}
}

func TestViewPostOnce(t *testing.T) {
	api := newStubAPI()
	api.feed = []domain.Post{{ID: "p1"}}
	s := newTestStore(api)
	s.FetchPosts(context.Background(), "u1")

	_ = s.ViewPost(context.Background(), "p1", "u1")
	_ = s.ViewPost(context.Background(), "p1", "u1")
	if api.count("view") != 1 {
		t.Fatalf("повторный просмотр не отправляется, вызовов %d", api.count("view"))
	}
	if s.Snapshot().Posts[0].ViewCount != 1 {
		t.Fatalf("ожидали viewCount=1")
	}
}

func TestCommentOnPost(t *testing.T) {
	api := newStubAPI()
	api.feed = []domain.Post{{ID: "p1", CommentCount: 1}}
	s := newTestStore(api)
	s.FetchPosts(context.Background(), "u1")

	comment, err := s.CommentOnPost(context.Background(), "p1", domain.NewComment{UserID: "u1", Content: "nice"})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if comment.PostID != "p1" {
		t.Fatalf("неожиданный комментарий %+v", comment)
	}
	if s.Snapshot().Posts[0].CommentCount != 2 {
		t.Fatalf("ожидали увеличение commentCount")
	}

	api.failWith = errors.New("offline")
	if _, err := s.CommentOnPost(context.Background(), "p1", domain.NewComment{UserID: "u1", Content: "again"}); err == nil {
		t.Fatalf("ошибка комментария должна пробрасываться")
	}
}

func TestFetchEngagementReplacesSets(t *testing.T) {
	s := newTestStore(newStubAPI())
	s.FetchEngagement(context.Background(), "u1")
	if !s.Has(domain.EngagementLiked, "p1") || !s.Has(domain.EngagementBookmarked, "p2") {
		t.Fatalf("ожидали наборы с сервера: %+v", s.Snapshot())
	}
	s.Reset()
	if s.Has(domain.EngagementLiked, "p1") {
		t.Fatalf("Reset очищает наборы")
	}
}
