package push

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"social-sync/internal/domain"
)

// ErrEmptyEvent кадр без имени события.
var ErrEmptyEvent = errors.New("push: пустое имя события")

type frame struct {
	Event string          `json:"event"`
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
}

// DecodeEvent разбирает кадр {"event": "...", "data": {...}} и приводит поля данных к одному виду.
func DecodeEvent(raw []byte) (domain.PushEvent, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return domain.PushEvent{}, fmt.Errorf("decode frame: %w", err)
	}
	name := strings.TrimSpace(f.Event)
	if name == "" {
		name = strings.TrimSpace(f.Type)
	}
	if name == "" {
		return domain.PushEvent{}, ErrEmptyEvent
	}

	ev := domain.PushEvent{Name: name}
	if len(f.Data) == 0 || string(f.Data) == "null" {
		return ev, nil
	}
	var data map[string]any
	if err := json.Unmarshal(f.Data, &data); err != nil {
		return domain.PushEvent{}, fmt.Errorf("decode data: %w", err)
	}
	ev.ThreadID = pick(data, "threadId", "thread_id", "conversationId")
	ev.CommunityID = pick(data, "communityId", "community_id", "groupId", "group_id")
	ev.MessageID = pick(data, "messageId", "message_id", "id")
	ev.SenderID = pick(data, "senderId", "sender_id")
	ev.Content = pick(data, "content", "message")
	return ev, nil
}

func pick(data map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := data[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
