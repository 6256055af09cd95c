package api

import (
	"context"
	"net/http"
	"net/url"

	"social-sync/internal/domain"
)

func (c *Client) GetCommunities(ctx context.Context, userID string) ([]domain.Community, error) {
	query := url.Values{}
	query.Set("userId", userID)
	return call[[]domain.Community](ctx, c, http.MethodGet, "get_communities", "/communities", query, nil)
}

func (c *Client) CreateCommunity(ctx context.Context, data domain.NewCommunity) (domain.Community, error) {
	return call[domain.Community](ctx, c, http.MethodPost, "create_community", "/communities", nil, data)
}

func (c *Client) JoinCommunity(ctx context.Context, communityID, userID string) (domain.Community, error) {
	payload := map[string]string{"userId": userID}
	return call[domain.Community](ctx, c, http.MethodPost, "join_community", "/communities/"+url.PathEscape(communityID)+"/join", nil, payload)
}

func (c *Client) LeaveCommunity(ctx context.Context, communityID, userID string) (domain.Community, error) {
	payload := map[string]string{"userId": userID}
	return call[domain.Community](ctx, c, http.MethodPost, "leave_community", "/communities/"+url.PathEscape(communityID)+"/leave", nil, payload)
}

func (c *Client) GetCommunityMessages(ctx context.Context, communityID string, limit int) ([]domain.CommunityMessage, error) {
	return call[[]domain.CommunityMessage](ctx, c, http.MethodGet, "get_community_messages", "/communities/"+url.PathEscape(communityID)+"/messages", limitQuery(limit), nil)
}

func (c *Client) SendCommunityMessage(ctx context.Context, communityID, senderID, content string) (domain.CommunityMessage, error) {
	payload := map[string]string{"senderId": senderID, "content": content}
	return call[domain.CommunityMessage](ctx, c, http.MethodPost, "send_community_message", "/communities/"+url.PathEscape(communityID)+"/messages", nil, payload)
}

var _ domain.CommunityAPI = (*Client)(nil)
