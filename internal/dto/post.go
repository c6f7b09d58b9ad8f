package dto

import (
	"time"

	"github.com/zfogg/huddle/internal/models"
)

// PostResponse is a post with its author, like set and comment thread resolved
type PostResponse struct {
	ID           string            `json:"id"`
	Author       PublicUser        `json:"author"`
	Content      string            `json:"content"`
	ImageURL     *string           `json:"image_url,omitempty"`
	Likes        []string          `json:"likes"`
	LikeCount    int               `json:"like_count"`
	Comments     []CommentResponse `json:"comments"`
	Shares       int               `json:"shares"`
	SharedFromID *string           `json:"shared_from_id,omitempty"`
	SharedFrom   *PostSummary      `json:"shared_from,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// PostSummary is the shared post embedded in a repost
type PostSummary struct {
	ID        string     `json:"id"`
	Author    PublicUser `json:"author"`
	Content   string     `json:"content"`
	ImageURL  *string    `json:"image_url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// CommentResponse is a comment with its replies, oldest first
type CommentResponse struct {
	ID        string          `json:"id"`
	PostID    string          `json:"post_id"`
	Author    PublicUser      `json:"author"`
	Content   string          `json:"content"`
	Replies   []ReplyResponse `json:"replies"`
	CreatedAt time.Time       `json:"created_at"`
}

// ReplyResponse is a reply to a comment
type ReplyResponse struct {
	ID        string     `json:"id"`
	CommentID string     `json:"comment_id"`
	Author    PublicUser `json:"author"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
}

// LikeResponse is the post's like set after a like or unlike
type LikeResponse struct {
	Likes     []string `json:"likes"`
	LikeCount int      `json:"like_count"`
}

// ShareResponse is the post's new share count and the repost it produced
type ShareResponse struct {
	Shares int          `json:"shares"`
	Repost PostResponse `json:"repost"`
}

// CreatePostRequest creates a post; content may be empty only when image_url is set
type CreatePostRequest struct {
	Content  string  `json:"content"`
	ImageURL *string `json:"image_url,omitempty"`
}

// ContentRequest is the body of comment, reply and chat sends
type ContentRequest struct {
	Content string `json:"content"`
}

// ShareRequest optionally quotes the shared post
type ShareRequest struct {
	Content string `json:"content"`
}

// ToPostResponse converts a post with preloaded User, Likes, Comments(.User,
// .Replies.User) and SharedFrom.User into its API shape.
func ToPostResponse(post *models.Post) PostResponse {
	likes := make([]string, 0, len(post.Likes))
	for _, l := range post.Likes {
		likes = append(likes, l.UserID)
	}

	resp := PostResponse{
		ID:           post.ID,
		Author:       ToPublicUser(&post.User),
		Content:      post.Content,
		ImageURL:     post.ImageURL,
		Likes:        likes,
		LikeCount:    len(likes),
		Comments:     ToCommentResponses(post.Comments),
		Shares:       post.Shares,
		SharedFromID: post.SharedFromID,
		CreatedAt:    post.CreatedAt,
	}
	if post.SharedFrom != nil {
		resp.SharedFrom = &PostSummary{
			ID:        post.SharedFrom.ID,
			Author:    ToPublicUser(&post.SharedFrom.User),
			Content:   post.SharedFrom.Content,
			ImageURL:  post.SharedFrom.ImageURL,
			CreatedAt: post.SharedFrom.CreatedAt,
		}
	}
	return resp
}

// ToCommentResponses converts comments in the order given
func ToCommentResponses(comments []models.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		c := &comments[i]
		out = append(out, CommentResponse{
			ID:        c.ID,
			PostID:    c.PostID,
			Author:    ToPublicUser(&c.User),
			Content:   c.Content,
			Replies:   ToReplyResponses(c.Replies),
			CreatedAt: c.CreatedAt,
		})
	}
	return out
}

// ToReplyResponses converts replies in the order given
func ToReplyResponses(replies []models.Reply) []ReplyResponse {
	out := make([]ReplyResponse, 0, len(replies))
	for i := range replies {
		r := &replies[i]
		out = append(out, ReplyResponse{
			ID:        r.ID,
			CommentID: r.CommentID,
			Author:    ToPublicUser(&r.User),
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}
