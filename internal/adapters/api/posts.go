package api

import (
	"context"
	"net/http"
	"net/url"

	"social-sync/internal/domain"
)

func (c *Client) GetPosts(ctx context.Context, userID string) ([]domain.Post, error) {
	query := url.Values{}
	if userID != "" {
		query.Set("userId", userID)
	}
	return call[[]domain.Post](ctx, c, http.MethodGet, "get_posts", "/posts", query, nil)
}

func (c *Client) CreatePost(ctx context.Context, data domain.NewPost) (domain.Post, error) {
	return call[domain.Post](ctx, c, http.MethodPost, "create_post", "/posts", nil, data)
}

func (c *Client) LikePost(ctx context.Context, postID, userID string) error {
	return c.engage(ctx, http.MethodPost, "like_post", postID, "like", userID)
}

func (c *Client) UnlikePost(ctx context.Context, postID, userID string) error {
	return c.engage(ctx, http.MethodDelete, "unlike_post", postID, "like", userID)
}

func (c *Client) RetweetPost(ctx context.Context, postID, userID string) error {
	return c.engage(ctx, http.MethodPost, "retweet_post", postID, "retweet", userID)
}

func (c *Client) UnretweetPost(ctx context.Context, postID, userID string) error {
	return c.engage(ctx, http.MethodDelete, "unretweet_post", postID, "retweet", userID)
}

func (c *Client) BookmarkPost(ctx context.Context, postID, userID string) error {
	return c.engage(ctx, http.MethodPost, "bookmark_post", postID, "bookmark", userID)
}

func (c *Client) UnbookmarkPost(ctx context.Context, postID, userID string) error {
	return c.engage(ctx, http.MethodDelete, "unbookmark_post", postID, "bookmark", userID)
}

func (c *Client) ViewPost(ctx context.Context, postID, userID string) error {
	return c.engage(ctx, http.MethodPost, "view_post", postID, "view", userID)
}

func (c *Client) CommentOnPost(ctx context.Context, postID string, data domain.NewComment) (domain.Comment, error) {
	return call[domain.Comment](ctx, c, http.MethodPost, "comment_post", "/posts/"+url.PathEscape(postID)+"/comments", nil, data)
}

func (c *Client) GetEngagement(ctx context.Context, userID string) (domain.Engagement, error) {
	return call[domain.Engagement](ctx, c, http.MethodGet, "get_engagement", "/users/"+url.PathEscape(userID)+"/engagement", nil, nil)
}

func (c *Client) engage(ctx context.Context, method, op, postID, action, userID string) error {
	payload := map[string]string{"userId": userID}
	return c.send(ctx, method, op, "/posts/"+url.PathEscape(postID)+"/"+action, payload)
}

var _ domain.PostAPI = (*Client)(nil)
