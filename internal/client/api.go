package client

import (
	"context"
	"strconv"

	"github.com/zfogg/huddle/internal/dto"
)

// FeedParams selects a page of posts
type FeedParams struct {
	UserID string
	Sort   string // "latest" or "recommended"
	Page   int
	Limit  int
}

// FeedPage is one page of GET /posts
type FeedPage struct {
	Posts []dto.PostResponse `json:"posts"`
	Meta  struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
		Count int `json:"count"`
	} `json:"meta"`
}

// Register creates an account and stores the returned token
func (c *Client) Register(req dto.RegisterRequest) (*dto.AuthResponse, error) {
	var resp dto.AuthResponse
	if err := c.post("/api/v1/auth/register", req, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	c.logger.Debug("Registered", "username", resp.User.Username)
	return &resp, nil
}

// Login authenticates and stores the returned token
func (c *Client) Login(login, password string) (*dto.AuthResponse, error) {
	var resp dto.AuthResponse
	if err := c.post("/api/v1/auth/login", dto.LoginRequest{Login: login, Password: password}, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	c.logger.Debug("Login successful", "username", resp.User.Username)
	return &resp, nil
}

// Me returns the authenticated user
func (c *Client) Me() (*dto.UserDetailResponse, error) {
	var user dto.UserDetailResponse
	if err := c.get("/api/v1/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListPosts fetches a page of the feed
func (c *Client) ListPosts(params FeedParams) (*FeedPage, error) {
	query := map[string]string{}
	if params.UserID != "" {
		query["user"] = params.UserID
	}
	if params.Sort != "" {
		query["sort"] = params.Sort
	}
	if params.Page > 0 {
		query["page"] = strconv.Itoa(params.Page)
	}
	if params.Limit > 0 {
		query["limit"] = strconv.Itoa(params.Limit)
	}

	var page FeedPage
	if err := c.get("/api/v1/posts", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPost fetches a single post with its thread
func (c *Client) GetPost(postID string) (*dto.PostResponse, error) {
	var post dto.PostResponse
	if err := c.get("/api/v1/posts/"+postID, nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// CreatePost publishes a post
func (c *Client) CreatePost(req dto.CreatePostRequest) (*dto.PostResponse, error) {
	var post dto.PostResponse
	if err := c.post("/api/v1/posts", req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost deletes one of the caller's posts
func (c *Client) DeletePost(postID string) error {
	return c.delete("/api/v1/posts/"+postID, nil)
}

// Like likes a post. Liking twice is an error.
func (c *Client) Like(postID string) (*dto.LikeResponse, error) {
	var resp dto.LikeResponse
	if err := c.post("/api/v1/posts/"+postID+"/like", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Unlike removes the caller's like
func (c *Client) Unlike(postID string) (*dto.LikeResponse, error) {
	var resp dto.LikeResponse
	if err := c.delete("/api/v1/posts/"+postID+"/like", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Comment comments on a post and returns all of its comments
func (c *Client) Comment(postID, content string) ([]dto.CommentResponse, error) {
	var resp struct {
		Comments []dto.CommentResponse `json:"comments"`
	}
	if err := c.post("/api/v1/posts/"+postID+"/comment", dto.ContentRequest{Content: content}, &resp); err != nil {
		return nil, err
	}
	return resp.Comments, nil
}

// Reply replies to a comment and returns all of its replies
func (c *Client) Reply(postID, commentID, content string) ([]dto.ReplyResponse, error) {
	var resp struct {
		Replies []dto.ReplyResponse `json:"replies"`
	}
	path := "/api/v1/posts/" + postID + "/comment/" + commentID + "/reply"
	if err := c.post(path, dto.ContentRequest{Content: content}, &resp); err != nil {
		return nil, err
	}
	return resp.Replies, nil
}

// Share reposts a post, optionally with a quote
func (c *Client) Share(postID, quote string) (*dto.ShareResponse, error) {
	var resp dto.ShareResponse
	if err := c.post("/api/v1/posts/"+postID+"/share", dto.ShareRequest{Content: quote}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Follow follows a user
func (c *Client) Follow(userID string) (*dto.FollowResponse, error) {
	var resp dto.FollowResponse
	if err := c.post("/api/v1/users/"+userID+"/follow", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Unfollow unfollows a user
func (c *Client) Unfollow(userID string) (*dto.FollowResponse, error) {
	var resp dto.FollowResponse
	if err := c.delete("/api/v1/users/"+userID+"/follow", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Profile fetches a user's public profile
func (c *Client) Profile(userID string) (*dto.ProfileResponse, error) {
	var profile dto.ProfileResponse
	if err := c.get("/api/v1/users/"+userID, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Notifications lists the caller's notifications, newest first
func (c *Client) Notifications(page, limit int) ([]dto.NotificationResponse, error) {
	query := map[string]string{}
	if page > 0 {
		query["page"] = strconv.Itoa(page)
	}
	if limit > 0 {
		query["limit"] = strconv.Itoa(limit)
	}

	var resp struct {
		Notifications []dto.NotificationResponse `json:"notifications"`
	}
	if err := c.get("/api/v1/notifications", query, &resp); err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}

// UnreadCount returns the number of unread notifications
func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	var resp dto.UnreadCountResponse
	if err := c.getContext(ctx, "/api/v1/notifications/unread-count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.UnreadCount, nil
}

// MarkRead marks one notification read
func (c *Client) MarkRead(notificationID string) error {
	return c.post("/api/v1/notifications/"+notificationID+"/read", nil, nil)
}

// MarkAllRead marks every notification read and returns how many changed
func (c *Client) MarkAllRead() (int64, error) {
	var resp struct {
		Updated int64 `json:"updated"`
	}
	if err := c.post("/api/v1/notifications/read-all", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

// ChatHistory returns the most recent messages in a room, oldest first
func (c *Client) ChatHistory(room string) ([]dto.ChatMessageResponse, error) {
	var resp struct {
		Messages []dto.ChatMessageResponse `json:"messages"`
	}
	if err := c.get("/api/v1/chat/"+room, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SendChat posts a message to a room
func (c *Client) SendChat(room, content string) (*dto.ChatMessageResponse, error) {
	var msg dto.ChatMessageResponse
	if err := c.post("/api/v1/chat/"+room, dto.ContentRequest{Content: content}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
