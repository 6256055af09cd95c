package messages

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
	storeName = "messages"
	// DefaultPageSize размер страницы при перезапросе переписки.
	DefaultPageSize = 50
)

// State снимок переписок только для чтения.
type State struct {
	Threads        []domain.MessageThread            `json:"threads"`
	ThreadMessages map[string][]domain.ThreadMessage `json:"threadMessages"`
	Loading        bool                              `json:"loading"`
	Error          string                            `json:"error,omitempty"`
}

// Store владеет списком переписок и сообщениями по каждой из них.
//
// Локально отправленное сообщение добавляется в конец: это прямой ответ на собственный
// запрос. Push-события всегда приводят к полному перезапросу страницы и замене
// последовательности, поэтому повторы и устаревшие события безвредны.
type Store struct {
	api      domain.MessageAPI
	log      zerolog.Logger
	pageSize int

	mu       sync.Mutex
	threads  []domain.MessageThread
	messages map[string][]domain.ThreadMessage
	loading  bool
	err      string
}

// NewStore создаёт хранилище переписок.
func NewStore(api domain.MessageAPI, logger zerolog.Logger, pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Store{api: api, log: logger, pageSize: pageSize, messages: make(map[string][]domain.ThreadMessage)}
}

// GetMessageThreads загружает список переписок пользователя. Ошибки не пробрасываются.
func (s *Store) GetMessageThreads(ctx context.Context, userID string) {
	if strings.TrimSpace(userID) == "" {
		return
	}
	s.setLoading(true)
	threads, err := s.api.GetMessageThreads(ctx, userID)
	if err != nil {
		s.setLoading(false)
		s.recordError("get_threads", err)
		return
	}
	s.mu.Lock()
	s.threads = reconcile.DedupeByID(threads, threadID)
	s.loading = false
	s.err = ""
	s.mu.Unlock()
}

// FetchThreadMessages загружает страницу сообщений и заменяет последовательность переписки.
func (s *Store) FetchThreadMessages(ctx context.Context, id string) {
	s.refresh(ctx, "fetch_thread_messages", id)
}

// RefreshThread вызывается по push-событию. Повторное применение идемпотентно.
func (s *Store) RefreshThread(ctx context.Context, id string) {
	s.refresh(ctx, "refresh_thread", id)
}

func (s *Store) refresh(ctx context.Context, op, id string) {
	if strings.TrimSpace(id) == "" {
		return
	}
	page, err := s.api.GetThreadMessages(ctx, id, s.pageSize)
	if err != nil {
		s.recordError(op, err)
		return
	}
	s.mu.Lock()
	reconcile.ReplaceSequence(s.messages, id, page, messageID)
	s.mu.Unlock()
}

// SendMessage отправляет сообщение и добавляет эхо сервера в конец переписки.
func (s *Store) SendMessage(ctx context.Context, id, senderID, content string) (domain.ThreadMessage, error) {
	if strings.TrimSpace(id) == "" {
		return domain.ThreadMessage{}, domain.Required("threadId")
	}
	if strings.TrimSpace(senderID) == "" {
		return domain.ThreadMessage{}, domain.Required("senderId")
	}
	if strings.TrimSpace(content) == "" {
		return domain.ThreadMessage{}, domain.Required("content")
	}
	msg, err := s.api.SendMessage(ctx, id, senderID, content)
	if err != nil {
		s.recordError("send_message", err)
		return domain.ThreadMessage{}, fmt.Errorf("отправка сообщения: %w", err)
	}
	if msg.ThreadID == "" {
		msg.ThreadID = id
	}
	s.mu.Lock()
	reconcile.AppendSequence(s.messages, msg.ThreadID, msg, messageID)
	s.mu.Unlock()
	return msg, nil
}

// CreateThread создаёт переписку. Групповой переписке нужно имя.
func (s *Store) CreateThread(ctx context.Context, data domain.NewThread) (domain.MessageThread, error) {
	if len(data.ParticipantIDs) == 0 {
		return domain.MessageThread{}, domain.Required("participantIds")
	}
	if data.IsGroup && strings.TrimSpace(data.Name) == "" {
		return domain.MessageThread{}, domain.Required("name")
	}
	thread, err := s.api.CreateThread(ctx, data)
	if err != nil {
		s.recordError("create_thread", err)
		return domain.MessageThread{}, fmt.Errorf("создание переписки: %w", err)
	}
	s.mu.Lock()
	s.threads = reconcile.Prepend(s.threads, thread, threadID)
	s.mu.Unlock()
	return thread, nil
}

// AddParticipant добавляет участника. Состав меняется только по ответу сервера.
func (s *Store) AddParticipant(ctx context.Context, id, userID string) (domain.MessageThread, error) {
	if strings.TrimSpace(id) == "" {
		return domain.MessageThread{}, domain.Required("threadId")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.MessageThread{}, domain.Required("userId")
	}
	thread, err := s.api.AddThreadParticipant(ctx, id, userID)
	if err != nil {
		s.recordError("add_participant", err)
		return domain.MessageThread{}, fmt.Errorf("добавление участника: %w", err)
	}
	if thread.ID == "" {
		thread.ID = id
	}
	s.mu.Lock()
	s.threads = reconcile.Upsert(s.threads, thread, threadID)
	s.mu.Unlock()
	return thread, nil
}

// ThreadIDs возвращает id удерживаемых переписок.
func (s *Store) ThreadIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.threads))
	for _, t := range s.threads {
		ids = append(ids, t.ID)
	}
	return ids
}

// Reset очищает состояние при выходе из сессии.
func (s *Store) Reset() {
	s.mu.Lock()
	s.threads = nil
	s.messages = make(map[string][]domain.ThreadMessage)
	s.loading = false
	s.err = ""
	s.mu.Unlock()
}

// Snapshot возвращает копию состояния.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make(map[string][]domain.ThreadMessage, len(s.messages))
	for id, seq := range s.messages {
		msgs[id] = append([]domain.ThreadMessage(nil), seq...)
	}
	return State{
		Threads:        append([]domain.MessageThread(nil), s.threads...),
		ThreadMessages: msgs,
		Loading:        s.loading,
		Error:          s.err,
	}
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Store) recordError(op string, err error) {
	metrics.IncStoreError(storeName, op)
	s.log.Error().Err(err).Str("op", op).Msg("messages: операция не выполнена")
	s.mu.Lock()
	s.err = err.Error()
	s.mu.Unlock()
}

func threadID(t domain.MessageThread) string { return t.ID }
func messageID(m domain.ThreadMessage) string { return m.ID }
