package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"social-sync/internal/adapters/api"
	"social-sync/internal/domain"
	httpinfra "social-sync/internal/infra/http"
	"social-sync/internal/usecase/auth"
	"social-sync/internal/usecase/communities"
	"social-sync/internal/usecase/facade"
	"social-sync/internal/usecase/messages"
	"social-sync/internal/usecase/notifications"
	"social-sync/internal/usecase/posts"
)

// newUpstream поддельный REST сервер платформы.
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds domain.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, domain.Session{User: domain.User{ID: "u1", Username: creds.Username}, Token: "tok"})
	})
	r.Post("/auth/logout", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	r.Get("/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []domain.Post{{ID: "p1", LikeCount: 2}}})
	})
	r.Post("/posts", func(w http.ResponseWriter, r *http.Request) {
		var req domain.NewPost
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Content == "boom" {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "posts are down"})
			return
		}
		writeJSON(w, http.StatusCreated, domain.Post{ID: "p2", AuthorID: req.UserID, Content: req.Content})
	})
	r.Post("/posts/{id}/like", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	r.Get("/notifications", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"id": "n1", "is_read": false}, {"id": "n2", "read": true}})
	})
	r.Put("/notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"updated": 1})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T, token string) http.Handler {
	t.Helper()
	upstream := newUpstream(t)
	logger := zerolog.Nop()
	client, err := api.New(upstream.URL, api.WithLogger(logger))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	authStore := auth.NewStore(client, logger)
	f, err := facade.New(facade.Deps{
		Auth:          authStore,
		Posts:         posts.NewStore(client, logger),
		Notifications: notifications.NewStore(client, authStore, logger),
		Messages:      messages.NewStore(client, logger, 0),
		Communities:   communities.NewStore(client, logger, 0),
		Logger:        logger,
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	t.Cleanup(f.Close)

	srv := httpinfra.NewServer(logger)
	NewHandler(f, token, logger).Register(srv.Router)
	return srv.Router
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func loginAlice(t *testing.T, h http.Handler) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/login", domain.Credentials{Username: "alice", Password: "secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("вход: ожидали 200, получили %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLoginBootstrapsState(t *testing.T) {
	h := newTestRouter(t, "")
	loginAlice(t, h)

	rec := do(t, h, http.MethodGet, "/api/v1/state", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	var st facade.State
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Auth.User == nil || st.Auth.User.ID != "u1" {
		t.Fatalf("ожидали пользователя u1: %+v", st.Auth)
	}
	if len(st.Posts.Posts) != 1 || st.Notifications.Unread != 1 {
		t.Fatalf("начальная загрузка не применилась: %+v", st)
	}
}

func TestLoginErrorsMapToStatuses(t *testing.T) {
	h := newTestRouter(t, "")

	rec := do(t, h, http.MethodPost, "/api/v1/login", domain.Credentials{Username: "alice"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ошибка проверки: ожидали 400, получили %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/login", domain.Credentials{Username: "alice", Password: "nope"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("ошибка сервера платформы: ожидали 502, получили %d", rec.Code)
	}
	var body httpinfra.ErrorResponse
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body.Error == "" {
		t.Fatalf("ожидали текст ошибки в теле")
	}
}

func TestCreatePostAndFeedPin(t *testing.T) {
	h := newTestRouter(t, "")
	loginAlice(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/posts", map[string]string{"content": "hello"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("ожидали 201, получили %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/v1/state/posts", nil)
	var st posts.State
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(st.Posts) != 2 || st.Posts[0].ID != "p2" || !st.Posts[0].LocallyCreated {
		t.Fatalf("новый пост закреплён первым: %+v", st.Posts)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/posts", map[string]string{"content": "boom"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("ожидали 502, получили %d", rec.Code)
	}
}

func TestEngagementRoutes(t *testing.T) {
	h := newTestRouter(t, "")
	loginAlice(t, h)

	if rec := do(t, h, http.MethodPost, "/api/v1/posts/p1/like", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("ожидали 204, получили %d", rec.Code)
	}
	rec := do(t, h, http.MethodGet, "/api/v1/state/posts", nil)
	var st posts.State
	_ = json.NewDecoder(rec.Body).Decode(&st)
	if len(st.Liked) != 1 || st.Liked[0] != "p1" || st.Posts[0].LikeCount != 3 {
		t.Fatalf("отметка не применилась: %+v", st)
	}
	if rec := do(t, h, http.MethodPost, "/api/v1/posts/p1/dance", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("неизвестное действие: ожидали 404, получили %d", rec.Code)
	}
}

func TestMarkAllRead(t *testing.T) {
	h := newTestRouter(t, "")
	loginAlice(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/notifications/read-all", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	var body map[string]int
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body["updated"] != 1 {
		t.Fatalf("ожидали число от сервера, получили %v", body)
	}
}

func TestRequiresSession(t *testing.T) {
	h := newTestRouter(t, "")
	if rec := do(t, h, http.MethodPost, "/api/v1/posts/fetch", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("без сессии ожидали 401, получили %d", rec.Code)
	}
}

func TestTokenProtectsAPI(t *testing.T) {
	h := newTestRouter(t, "s3cret")
	if rec := do(t, h, http.MethodGet, "/api/v1/state", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("без токена ожидали 401, получили %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz доступен без токена, получили %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: domain.Required("content"), want: http.StatusBadRequest},
		{err: fmt.Errorf("wrap: %w", domain.ErrNotAuthenticated), want: http.StatusUnauthorized},
		{err: fmt.Errorf("wrap: %w", &domain.APIError{Status: 503, Message: "down"}), want: http.StatusBadGateway},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Fatalf("%v: ожидали %d, получили %d", tt.err, tt.want, got)
		}
	}
}
