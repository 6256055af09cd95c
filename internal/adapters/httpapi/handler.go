package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"social-sync/internal/domain"
	httpinfra "social-sync/internal/infra/http"
	"social-sync/internal/usecase/facade"
)

// Handler отдаёт фасад локальному интерфейсу по JSON HTTP.
type Handler struct {
	facade *facade.Facade
	token  string
	log    zerolog.Logger
}

// NewHandler создаёт обработчики. Пустой token отключает проверку доступа.
func NewHandler(f *facade.Facade, token string, logger zerolog.Logger) *Handler {
	return &Handler{facade: f, token: token, log: logger}
}

// Register монтирует маршруты.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.health)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(httpinfra.TokenAuthMiddleware(h.token))

		api.Get("/state", h.state)
		api.Get("/state/{domain}", h.domainState)

		api.Post("/login", h.login)
		api.Post("/signup", h.signup)
		api.Post("/logout", h.logout)
		api.Put("/profile", h.updateProfile)

		api.Post("/posts", h.createPost)
		api.Post("/posts/fetch", h.fetchPosts)
		api.Post("/posts/refresh", h.refreshPosts)
		api.Post("/posts/{id}/comments", h.comment)
		api.Post("/posts/{id}/{action}", h.engage)

		api.Post("/users/{id}/follow", h.follow)
		api.Post("/users/{id}/unfollow", h.unfollow)

		api.Post("/notifications/refresh", h.fetchNotifications)
		api.Post("/notifications/read-all", h.markAllRead)
		api.Post("/notifications/{id}/read", h.markRead)

		api.Post("/threads", h.createThread)
		api.Post("/threads/refresh", h.fetchThreads)
		api.Post("/threads/{id}/refresh", h.fetchThreadMessages)
		api.Post("/threads/{id}/messages", h.sendMessage)
		api.Post("/threads/{id}/participants", h.addParticipant)

		api.Post("/communities", h.createCommunity)
		api.Post("/communities/refresh", h.fetchCommunities)
		api.Post("/communities/{id}/join", h.joinCommunity)
		api.Post("/communities/{id}/leave", h.leaveCommunity)
		api.Post("/communities/{id}/refresh", h.fetchCommunityMessages)
		api.Post("/communities/{id}/messages", h.sendCommunityMessage)
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	httpinfra.WriteJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"loggedIn":      h.facade.CurrentUserID() != "",
		"pushConnected": h.facade.PushConnected(),
	})
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	httpinfra.WriteJSON(w, http.StatusOK, h.facade.Snapshot())
}

func (h *Handler) domainState(w http.ResponseWriter, r *http.Request) {
	st := h.facade.Snapshot()
	var out any
	switch chi.URLParam(r, "domain") {
	case "auth":
		out = st.Auth
	case "posts":
		out = st.Posts
	case "notifications":
		out = st.Notifications
	case "messages":
		out = st.Messages
	case "communities":
		out = st.Communities
	default:
		httpinfra.WriteError(w, http.StatusNotFound, errors.New("неизвестный раздел состояния"))
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if !h.decode(w, r, &creds) {
		return
	}
	user, err := h.facade.Login(r.Context(), creds)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if !h.decode(w, r, &creds) {
		return
	}
	user, err := h.facade.Signup(r.Context(), creds)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.facade.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var update domain.ProfileUpdate
	if !h.decode(w, r, &update) {
		return
	}
	user, err := h.facade.UpdateProfile(r.Context(), update)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	var req domain.NewPost
	if !h.decode(w, r, &req) {
		return
	}
	post, err := h.facade.CreatePost(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, post)
}

func (h *Handler) fetchPosts(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.facade.FetchPosts(r.Context()))
}

func (h *Handler) refreshPosts(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.facade.RefreshPosts(r.Context()))
}

type contentRequest struct {
	Content string `json:"content"`
}

func (h *Handler) comment(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if !h.decode(w, r, &req) {
		return
	}
	comment, err := h.facade.CommentOnPost(r.Context(), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, comment)
}

func (h *Handler) engage(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")
	var err error
	switch chi.URLParam(r, "action") {
	case "like":
		err = h.facade.Like(r.Context(), postID)
	case "unlike":
		err = h.facade.Unlike(r.Context(), postID)
	case "retweet":
		err = h.facade.Retweet(r.Context(), postID)
	case "unretweet":
		err = h.facade.Unretweet(r.Context(), postID)
	case "bookmark":
		err = h.facade.Bookmark(r.Context(), postID)
	case "unbookmark":
		err = h.facade.Unbookmark(r.Context(), postID)
	case "view":
		err = h.facade.ViewPost(r.Context(), postID)
	default:
		httpinfra.WriteError(w, http.StatusNotFound, errors.New("неизвестное действие"))
		return
	}
	h.noContent(w, r, err)
}

func (h *Handler) follow(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.facade.FollowUser(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) unfollow(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.facade.UnfollowUser(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) fetchNotifications(w http.ResponseWriter, r *http.Request) {
	h.facade.FetchNotifications(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.facade.MarkNotificationAsRead(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.facade.MarkAllNotificationsAsRead(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (h *Handler) createThread(w http.ResponseWriter, r *http.Request) {
	var req domain.NewThread
	if !h.decode(w, r, &req) {
		return
	}
	thread, err := h.facade.CreateThread(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, thread)
}

func (h *Handler) fetchThreads(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.facade.GetMessageThreads(r.Context()))
}

func (h *Handler) fetchThreadMessages(w http.ResponseWriter, r *http.Request) {
	h.facade.FetchThreadMessages(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if !h.decode(w, r, &req) {
		return
	}
	msg, err := h.facade.SendMessage(r.Context(), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, msg)
}

type participantRequest struct {
	UserID string `json:"userId"`
}

func (h *Handler) addParticipant(w http.ResponseWriter, r *http.Request) {
	var req participantRequest
	if !h.decode(w, r, &req) {
		return
	}
	thread, err := h.facade.AddParticipant(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, thread)
}

func (h *Handler) createCommunity(w http.ResponseWriter, r *http.Request) {
	var req domain.NewCommunity
	if !h.decode(w, r, &req) {
		return
	}
	community, err := h.facade.CreateCommunity(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, community)
}

func (h *Handler) fetchCommunities(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.facade.FetchCommunities(r.Context()))
}

func (h *Handler) joinCommunity(w http.ResponseWriter, r *http.Request) {
	community, err := h.facade.JoinCommunity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, community)
}

func (h *Handler) leaveCommunity(w http.ResponseWriter, r *http.Request) {
	community, err := h.facade.LeaveCommunity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, community)
}

func (h *Handler) fetchCommunityMessages(w http.ResponseWriter, r *http.Request) {
	h.facade.FetchCommunityMessages(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sendCommunityMessage(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if !h.decode(w, r, &req) {
		return
	}
	msg, err := h.facade.SendCommunityMessage(r.Context(), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, msg)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, errors.New("некорректное тело запроса"))
		return false
	}
	return true
}

func (h *Handler) noContent(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Str("path", r.URL.Path).Msg("httpapi: запрос не выполнен")
	}
	httpinfra.WriteError(w, status, err)
}

// StatusFor сопоставляет ошибку HTTP-статусу.
func StatusFor(err error) int {
	var apiErr *domain.APIError
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
