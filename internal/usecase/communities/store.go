package communities

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"social-sync/internal/domain"
	"social-sync/internal/infra/metrics"
	"social-sync/internal/usecase/reconcile"
)

const (
	storeName = "communities"
	// DefaultPageSize размер страницы при перезапросе чата сообщества.
	DefaultPageSize = 50
)

// State снимок сообществ только для чтения.
type State struct {
	Communities       []domain.Community                   `json:"communities"`
	CommunityMessages map[string][]domain.CommunityMessage `json:"communityMessages"`
	Loading           bool                                 `json:"loading"`
	Error             string                               `json:"error,omitempty"`
}

// Store владеет списком сообществ и их чатами.
// Членство меняется только по ответу сервера.
type Store struct {
	api      domain.CommunityAPI
	log      zerolog.Logger
	pageSize int

	mu          sync.Mutex
	communities []domain.Community
	messages    map[string][]domain.CommunityMessage
	loading     bool
	err         string
}

// NewStore создаёт хранилище сообществ.
func NewStore(api domain.CommunityAPI, logger zerolog.Logger, pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Store{api: api, log: logger, pageSize: pageSize, messages: make(map[string][]domain.CommunityMessage)}
}

// FetchCommunities загружает сообщества с отметками членства для пользователя.
func (s *Store) FetchCommunities(ctx context.Context, userID string) {
	s.setLoading(true)
	list, err := s.api.GetCommunities(ctx, userID)
	if err != nil {
		s.setLoading(false)
		s.recordError("fetch_communities", err)
		return
	}
	s.mu.Lock()
	s.communities = reconcile.DedupeByID(list, communityID)
	s.loading = false
	s.err = ""
	s.mu.Unlock()
}

// CreateCommunity создаёт сообщество. Ошибки возвращаются вызывающему.
func (s *Store) CreateCommunity(ctx context.Context, data domain.NewCommunity) (domain.Community, error) {
	if strings.TrimSpace(data.Name) == "" {
		return domain.Community{}, domain.Required("name")
	}
	if strings.TrimSpace(data.CreatorID) == "" {
		return domain.Community{}, domain.Required("creatorId")
	}
	created, err := s.api.CreateCommunity(ctx, data)
	if err != nil {
		s.recordError("create_community", err)
		return domain.Community{}, fmt.Errorf("создание сообщества: %w", err)
	}
	s.mu.Lock()
	s.communities = reconcile.Prepend(s.communities, created, communityID)
	s.mu.Unlock()
	return created, nil
}

// JoinCommunity вступает в сообщество и принимает объект из ответа сервера.
func (s *Store) JoinCommunity(ctx context.Context, id, userID string) (domain.Community, error) {
	return s.membership(ctx, "join_community", id, userID, s.api.JoinCommunity)
}

// LeaveCommunity выходит из сообщества.
func (s *Store) LeaveCommunity(ctx context.Context, id, userID string) (domain.Community, error) {
	return s.membership(ctx, "leave_community", id, userID, s.api.LeaveCommunity)
}

type remoteMembership func(ctx context.Context, communityID, userID string) (domain.Community, error)

func (s *Store) membership(ctx context.Context, op, id, userID string, remote remoteMembership) (domain.Community, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Community{}, domain.Required("communityId")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.Community{}, domain.Required("userId")
	}
	community, err := remote(ctx, id, userID)
	if err != nil {
		s.recordError(op, err)
		return domain.Community{}, fmt.Errorf("%s: %w", op, err)
	}
	if community.ID == "" {
		community.ID = id
	}
	s.mu.Lock()
	s.communities = reconcile.Upsert(s.communities, community, communityID)
	s.mu.Unlock()
	return community, nil
}

// FetchCommunityMessages загружает страницу чата и заменяет последовательность.
func (s *Store) FetchCommunityMessages(ctx context.Context, id string) {
	s.refresh(ctx, "fetch_community_messages", id)
}

// RefreshCommunity вызывается по push-событию. Повторное применение идемпотентно.
func (s *Store) RefreshCommunity(ctx context.Context, id string) {
	s.refresh(ctx, "refresh_community", id)
}

func (s *Store) refresh(ctx context.Context, op, id string) {
	if strings.TrimSpace(id) == "" {
		return
	}
	page, err := s.api.GetCommunityMessages(ctx, id, s.pageSize)
	if err != nil {
		s.recordError(op, err)
		return
	}
	s.mu.Lock()
	reconcile.ReplaceSequence(s.messages, id, page, messageID)
	s.mu.Unlock()
}

// SendCommunityMessage отправляет сообщение и добавляет эхо сервера в конец чата.
func (s *Store) SendCommunityMessage(ctx context.Context, id, senderID, content string) (domain.CommunityMessage, error) {
	if strings.TrimSpace(id) == "" {
		return domain.CommunityMessage{}, domain.Required("communityId")
	}
	if strings.TrimSpace(senderID) == "" {
		return domain.CommunityMessage{}, domain.Required("senderId")
	}
	if strings.TrimSpace(content) == "" {
		return domain.CommunityMessage{}, domain.Required("content")
	}
	msg, err := s.api.SendCommunityMessage(ctx, id, senderID, content)
	if err != nil {
		s.recordError("send_community_message", err)
		return domain.CommunityMessage{}, fmt.Errorf("сообщение в сообщество: %w", err)
	}
	if msg.CommunityID == "" {
		msg.CommunityID = id
	}
	s.mu.Lock()
	reconcile.AppendSequence(s.messages, msg.CommunityID, msg, messageID)
	s.mu.Unlock()
	return msg, nil
}

// CommunityIDs возвращает id сообществ, в которых состоит пользователь.
func (s *Store) CommunityIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.communities))
	for _, c := range s.communities {
		if c.Joined() {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func (s *Store) Reset() {
	s.mu.Lock()
	s.communities = nil
	s.messages = make(map[string][]domain.CommunityMessage)
	s.loading = false
	s.err = ""
	s.mu.Unlock()
}

// Snapshot возвращает копию состояния.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make(map[string][]domain.CommunityMessage, len(s.messages))
	for id, seq := range s.messages {
		msgs[id] = append([]domain.CommunityMessage(nil), seq...)
	}
	return State{
		Communities:       append([]domain.Community(nil), s.communities...),
		CommunityMessages: msgs,
		Loading:           s.loading,
		Error:             s.err,
	}
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Store) recordError(op string, err error) {
	metrics.IncStoreError(storeName, op)
	s.log.Error().Err(err).Str("op", op).Msg("communities: операция не выполнена")
	s.mu.Lock()
	s.err = err.Error()
	s.mu.Unlock()
}

func communityID(c domain.Community) string { return c.ID }
func messageID(m domain.CommunityMessage) string { return m.ID }
