package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"social-sync/internal/domain"
)

// GetNotifications возвращает уведомления без разбора: нормализация выполняется хранилищем.
func (c *Client) GetNotifications(ctx context.Context, userID string) ([]json.RawMessage, error) {
	query := url.Values{}
	query.Set("userId", userID)
	return call[[]json.RawMessage](ctx, c, http.MethodGet, "get_notifications", "/notifications", query, nil)
}

func (c *Client) MarkNotificationRead(ctx context.Context, notificationID string) error {
	return c.send(ctx, http.MethodPut, "mark_notification_read", "/notifications/"+url.PathEscape(notificationID)+"/read", nil)
}

type markAllResponse struct {
	Updated *int `json:"updated"`
	Count   *int `json:"count"`
}

// MarkAllNotificationsRead возвращает количество уведомлений, обновлённых сервером.
func (c *Client) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	payload := map[string]string{"userId": userID}
	resp, err := call[markAllResponse](ctx, c, http.MethodPut, "mark_all_notifications_read", "/notifications/read-all", nil, payload)
	if err != nil {
		return 0, err
	}
	switch {
	case resp.Updated != nil:
		return *resp.Updated, nil
	case resp.Count != nil:
		return *resp.Count, nil
	}
	return 0, nil
}

var _ domain.NotificationAPI = (*Client)(nil)
