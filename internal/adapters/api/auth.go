package api

import (
	"context"
	"net/http"
	"net/url"

	"social-sync/internal/domain"
)

func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	return call[domain.Session](ctx, c, http.MethodPost, "login", "/auth/login", nil, creds)
}

func (c *Client) Signup(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	return call[domain.Session](ctx, c, http.MethodPost, "signup", "/auth/signup", nil, creds)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "logout", "/auth/logout", nil)
}

func (c *Client) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return call[domain.User](ctx, c, http.MethodGet, "get_user", "/users/"+url.PathEscape(userID), nil, nil)
}

func (c *Client) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (domain.User, error) {
	return call[domain.User](ctx, c, http.MethodPut, "update_profile", "/users/"+url.PathEscape(userID), nil, update)
}

func (c *Client) FollowUser(ctx context.Context, userID, targetID string) error {
	payload := map[string]string{"followerId": userID}
	return c.send(ctx, http.MethodPost, "follow_user", "/users/"+url.PathEscape(targetID)+"/follow", payload)
}

func (c *Client) UnfollowUser(ctx context.Context, userID, targetID string) error {
	payload := map[string]string{"followerId": userID}
	return c.send(ctx, http.MethodDelete, "unfollow_user", "/users/"+url.PathEscape(targetID)+"/follow", payload)
}

func (c *Client) GetActivities(ctx context.Context, userID string) ([]domain.Activity, error) {
	return call[[]domain.Activity](ctx, c, http.MethodGet, "get_activities", "/users/"+url.PathEscape(userID)+"/activities", nil, nil)
}

var _ domain.AuthAPI = (*Client)(nil)
