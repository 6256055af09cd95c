package messages

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"social-sync/internal/domain"
)

type stubAPI struct {
	threads   []domain.MessageThread
	page      []domain.ThreadMessage
	failWith  error
	lastLimit int
	sent      int
}

func (s *stubAPI) GetMessageThreads(context.Context, string) ([]domain.MessageThread, error) {
	return s.threads, s.failWith
}

func (s *stubAPI) GetThreadMessages(_ context.Context, _ string, limit int) ([]domain.ThreadMessage, error) {
	s.lastLimit = limit
	if s.failWith != nil {
		return nil, s.failWith
	}
	return append([]domain.ThreadMessage(nil), s.page...), nil
}

func (s *stubAPI) SendMessage(_ context.Context, threadID, senderID, content string) (domain.ThreadMessage, error) {
	if s.failWith != nil {
		return domain.ThreadMessage{}, s.failWith
	}
	s.sent++
	return domain.ThreadMessage{ID: "local-" + content, ThreadID: threadID, SenderID: senderID, Content: content}, nil
}

func (s *stubAPI) CreateThread(_ context.Context, data domain.NewThread) (domain.MessageThread, error) {
	if s.failWith != nil {
		return domain.MessageThread{}, s.failWith
	}
	return domain.MessageThread{ID: "t-new", ParticipantIDs: data.ParticipantIDs, IsGroup: data.IsGroup, Name: data.Name}, nil
}

func (s *stubAPI) AddThreadParticipant(_ context.Context, threadID, userID string) (domain.MessageThread, error) {
	if s.failWith != nil {
		return domain.MessageThread{}, s.failWith
	}
	return domain.MessageThread{ID: threadID, ParticipantIDs: []string{"u1", userID}, IsGroup: true, Name: "g"}, nil
}

func TestSendAppendsExactlyOne(t *testing.T) {
	api := &stubAPI{page: []domain.ThreadMessage{{ID: "m1", ThreadID: "t1"}, {ID: "m2", ThreadID: "t1"}}}
	s := NewStore(api, zerolog.Nop(), 0)
	s.FetchThreadMessages(context.Background(), "t1")

	if _, err := s.SendMessage(context.Background(), "t1", "u1", "hi"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	seq := s.Snapshot().ThreadMessages["t1"]
	if len(seq) != 3 || seq[2].Content != "hi" {
		t.Fatalf("ожидали добавление ровно одного сообщения в конец, получили %+v", seq)
	}
	if api.lastLimit != DefaultPageSize {
		t.Fatalf("ожидали страницу %d, получили %d", DefaultPageSize, api.lastLimit)
	}
}

func TestRefreshReplacesAndIsIdempotent(t *testing.T) {
	api := &stubAPI{}
	s := NewStore(api, zerolog.Nop(), 20)
	if _, err := s.SendMessage(context.Background(), "t1", "u1", "hi"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	api.page = []domain.ThreadMessage{{ID: "m1"}, {ID: "local-hi"}, {ID: "m3"}}
	s.RefreshThread(context.Background(), "t1")
	s.RefreshThread(context.Background(), "t1")

	seq := s.Snapshot().ThreadMessages["t1"]
	if len(seq) != 3 {
		t.Fatalf("повтор события не удваивает последовательность, получили %d", len(seq))
	}
	if seq[0].ID != "m1" || seq[2].ID != "m3" {
		t.Fatalf("последовательность заменяется страницей сервера: %+v", seq)
	}
	if api.lastLimit != 20 {
		t.Fatalf("ожидали размер страницы 20, получили %d", api.lastLimit)
	}
}

func TestRefreshFailureKeepsSequence(t *testing.T) {
	api := &stubAPI{page: []domain.ThreadMessage{{ID: "m1"}}}
	s := NewStore(api, zerolog.Nop(), 0)
	s.RefreshThread(context.Background(), "t1")
	api.failWith = errors.New("offline")
	s.RefreshThread(context.Background(), "t1")

	st := s.Snapshot()
	if len(st.ThreadMessages["t1"]) != 1 || st.Error == "" {
		t.Fatalf("ошибка перезапроса не трогает данные: %+v", st)
	}
}

func TestSendValidation(t *testing.T) {
	api := &stubAPI{}
	s := NewStore(api, zerolog.Nop(), 0)
	if _, err := s.SendMessage(context.Background(), "t1", "u1", "  "); !domain.IsValidation(err) {
		t.Fatalf("ожидали ошибку проверки, получили %v", err)
	}
	if api.sent != 0 {
		t.Fatalf("сетевой вызов не выполняется")
	}
}

func TestSendPropagatesError(t *testing.T) {
	s := NewStore(&stubAPI{failWith: errors.New("boom")}, zerolog.Nop(), 0)
	if _, err := s.SendMessage(context.Background(), "t1", "u1", "hi"); err == nil {
		t.Fatalf("ожидали ошибку")
	}
	if len(s.Snapshot().ThreadMessages["t1"]) != 0 {
		t.Fatalf("при ошибке ничего не добавляется")
	}
}

func TestGetMessageThreadsDedupes(t *testing.T) {
	api := &stubAPI{threads: []domain.MessageThread{{ID: "t1"}, {ID: "t2"}, {ID: "t1"}}}
	s := NewStore(api, zerolog.Nop(), 0)
	s.GetMessageThreads(context.Background(), "u1")
	if ids := s.ThreadIDs(); len(ids) != 2 {
		t.Fatalf("ожидали 2 переписки, получили %v", ids)
	}
}

func TestCreateGroupThreadRequiresName(t *testing.T) {
	s := NewStore(&stubAPI{}, zerolog.Nop(), 0)
	_, err := s.CreateThread(context.Background(), domain.NewThread{ParticipantIDs: []string{"u1", "u2"}, IsGroup: true})
	if !domain.IsValidation(err) {
		t.Fatalf("ожидали ошибку проверки, получили %v", err)
	}
	thread, err := s.CreateThread(context.Background(), domain.NewThread{ParticipantIDs: []string{"u1", "u2"}})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if ids := s.ThreadIDs(); len(ids) != 1 || ids[0] != thread.ID {
		t.Fatalf("созданная переписка должна появиться в списке")
	}
}

func TestAddParticipantIsRemoteAuthoritative(t *testing.T) {
	api := &stubAPI{threads: []domain.MessageThread{{ID: "t1", ParticipantIDs: []string{"u1"}, IsGroup: true, Name: "g"}}}
	s := NewStore(api, zerolog.Nop(), 0)
	s.GetMessageThreads(context.Background(), "u1")

	api.failWith = errors.New("forbidden")
	if _, err := s.AddParticipant(context.Background(), "t1", "u2"); err == nil {
		t.Fatalf("ошибка должна пробрасываться")
	}
	if got := s.Snapshot().Threads[0].ParticipantIDs; len(got) != 1 {
		t.Fatalf("участник не добавляется до ответа сервера: %v", got)
	}

	api.failWith = nil
	if _, err := s.AddParticipant(context.Background(), "t1", "u2"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	threads := s.Snapshot().Threads
	if len(threads) != 1 || len(threads[0].ParticipantIDs) != 2 {
		t.Fatalf("ожидали состав из ответа сервера: %+v", threads)
	}
}
