package notifications

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"social-sync/internal/domain"
)

// rawNotification принимает все известные варианты имён полей источника.
type rawNotification struct {
	ID          json.RawMessage `json:"id"`
	IDAlt       json.RawMessage `json:"_id"`
	UserID      *string         `json:"userId"`
	UserIDSnake *string         `json:"user_id"`
	RecipientID *string         `json:"recipientId"`
	Type        string          `json:"type"`
	ActorID     *string         `json:"actorId"`
	ActorSnake  *string         `json:"actor_id"`
	IsRead      flexBool        `json:"isRead"`
	IsReadSnake flexBool        `json:"is_read"`
	Read        flexBool        `json:"read"`
	CreatedAt   json.RawMessage `json:"createdAt"`
	CreatedSnk  json.RawMessage `json:"created_at"`
	ActorName   *string         `json:"actorName"`
	ActorNameS  *string         `json:"actor_name"`
	ActorAvatar *string         `json:"actorAvatar"`
	ActorAvS    *string         `json:"actor_avatar"`
	PostID      *string         `json:"postId"`
	PostIDSnake *string         `json:"post_id"`
	PostExcerpt *string         `json:"postExcerpt"`
	PostExcS    *string         `json:"post_excerpt"`
	PostContent *string         `json:"postContent"`
	Actor       *struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
		Avatar   string `json:"avatar"`
	} `json:"actor"`
}

// ErrBadTimestamp время создания не распознано. Уведомление при этом разобрано и годно к показу.
var ErrBadTimestamp = errors.New("неизвестный формат времени")

// timeLayouts форматы времени, которые встречаются у источника. Время без зоны считается UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05-07",
	"2006-01-02 15:04:05-07",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// flexBool принимает true/false, 0/1 и их строковые записи. Прочие значения считаются отсутствующими.
type flexBool struct {
	value bool
	valid bool
}

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case bool:
		b.value, b.valid = x, true
	case float64:
		b.value, b.valid = x != 0, true
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
			b.value, b.valid = parsed, true
		}
	}
	return nil
}

// NormalizeNotification приводит уведомление источника к каноничной форме.
// При нераспознанном времени возвращает уведомление с нулевым CreatedAt и ErrBadTimestamp.
func NormalizeNotification(raw json.RawMessage) (domain.Notification, error) {
	var r rawNotification
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.Notification{}, fmt.Errorf("разбор уведомления: %w", err)
	}
	id := rawID(r.ID)
	if id == "" {
		id = rawID(r.IDAlt)
	}
	if id == "" {
		return domain.Notification{}, domain.Required("id")
	}
	n := domain.Notification{
		ID:          id,
		UserID:      firstString(r.UserID, r.UserIDSnake, r.RecipientID),
		Type:        domain.NotificationType(strings.ToLower(strings.TrimSpace(r.Type))),
		ActorID:     firstString(r.ActorID, r.ActorSnake),
		IsRead:      firstBool(r.IsRead, r.IsReadSnake, r.Read),
		ActorName:   firstString(r.ActorName, r.ActorNameS),
		ActorAvatar: firstString(r.ActorAvatar, r.ActorAvS),
		PostID:      firstString(r.PostID, r.PostIDSnake),
		PostExcerpt: firstString(r.PostExcerpt, r.PostExcS, r.PostContent),
	}
	if r.Actor != nil {
		if n.ActorID == "" {
			n.ActorID = r.Actor.ID
		}
		if n.ActorName == "" {
			n.ActorName = r.Actor.Name
			if n.ActorName == "" {
				n.ActorName = r.Actor.Username
			}
		}
		if n.ActorAvatar == "" {
			n.ActorAvatar = r.Actor.Avatar
		}
	}
	ts := rawID(r.CreatedAt)
	if ts == "" {
		ts = rawID(r.CreatedSnk)
	}
	if ts != "" {
		parsed, err := parseTime(ts)
		if err != nil {
			return n, fmt.Errorf("createdAt уведомления %s: %w", id, err)
		}
		n.CreatedAt = parsed
	}
	return n, nil
}

func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String()
	}
	return ""
}

func firstString(values ...*string) string {
	for _, v := range values {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

func firstBool(values ...flexBool) bool {
	for _, v := range values {
		if v.valid {
			return v.value
		}
	}
	return false
}

func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	if epoch, err := strconv.ParseInt(value, 10, 64); err == nil {
		// до 11 цифр это секунды, иначе миллисекунды
		if len(strings.TrimPrefix(value, "-")) <= 10 {
			return time.Unix(epoch, 0).UTC(), nil
		}
		return time.UnixMilli(epoch).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w %q", ErrBadTimestamp, value)
}
