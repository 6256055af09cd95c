package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"social-sync/internal/domain"
)

func (c *Client) GetMessageThreads(ctx context.Context, userID string) ([]domain.MessageThread, error) {
	query := url.Values{}
	query.Set("userId", userID)
	return call[[]domain.MessageThread](ctx, c, http.MethodGet, "get_message_threads", "/messages/threads", query, nil)
}

func (c *Client) GetThreadMessages(ctx context.Context, threadID string, limit int) ([]domain.ThreadMessage, error) {
	return call[[]domain.ThreadMessage](ctx, c, http.MethodGet, "get_thread_messages", "/messages/threads/"+url.PathEscape(threadID)+"/messages", limitQuery(limit), nil)
}

func (c *Client) SendMessage(ctx context.Context, threadID, senderID, content string) (domain.ThreadMessage, error) {
	payload := map[string]string{"senderId": senderID, "content": content}
	return call[domain.ThreadMessage](ctx, c, http.MethodPost, "send_message", "/messages/threads/"+url.PathEscape(threadID)+"/messages", nil, payload)
}

func (c *Client) CreateThread(ctx context.Context, data domain.NewThread) (domain.MessageThread, error) {
	return call[domain.MessageThread](ctx, c, http.MethodPost, "create_thread", "/messages/threads", nil, data)
}

func (c *Client) AddThreadParticipant(ctx context.Context, threadID, userID string) (domain.MessageThread, error) {
	payload := map[string]string{"userId": userID}
	return call[domain.MessageThread](ctx, c, http.MethodPost, "add_thread_participant", "/messages/threads/"+url.PathEscape(threadID)+"/participants", nil, payload)
}

func limitQuery(limit int) url.Values {
	if limit <= 0 {
		return nil
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	return query
}

var _ domain.MessageAPI = (*Client)(nil)
