package social

import (
	"context"

	"github.com/zfogg/huddle/internal/dto"
	"github.com/zfogg/huddle/internal/logger"
	"github.com/zfogg/huddle/internal/models"
	"github.com/zfogg/huddle/internal/repository"
	"github.com/zfogg/huddle/internal/telemetry"
	"github.com/zfogg/huddle/internal/util"
	"github.com/zfogg/huddle/internal/websocket"
	"go.uber.org/zap"
)

// FeedQuery selects a page of the feed. Page is 1-based.
type FeedQuery struct {
	AuthorID string
	Sort     repository.FeedSort
	Page     int
	Limit    int
}

// ListPosts returns posts newest first, or by like count then recency when
// Sort is recommended. Paging is a plain offset window.
func (s *Service) ListPosts(ctx context.Context, q FeedQuery) ([]dto.PostResponse, error) {
	if q.Sort == "" {
		q.Sort = repository.SortLatest
	}
	if q.Limit < 1 || q.Limit > util.MaxPageSize {
		q.Limit = util.DefaultPageSize
	}

	ctx, span := telemetry.GetBusinessEvents().TraceGetFeed(ctx, string(q.Sort), q.Page, q.Limit)
	posts, err := s.posts.ListPosts(ctx, repository.FeedQuery{
		AuthorID: q.AuthorID,
		Sort:     q.Sort,
		Limit:    q.Limit,
		Offset:   util.Offset(q.Page, q.Limit),
	})
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, mapRepoError(err)
	}

	out := make([]dto.PostResponse, 0, len(posts))
	for i := range posts {
		out = append(out, dto.ToPostResponse(&posts[i]))
	}
	return out, nil
}

// GetPost returns a single post with its thread
func (s *Service) GetPost(ctx context.Context, postID string) (*dto.PostResponse, error) {
	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	resp := dto.ToPostResponse(post)
	return &resp, nil
}

// CreatePost stores a post and pushes it to the feed topic
func (s *Service) CreatePost(ctx context.Context, userID string, req dto.CreatePostRequest) (*dto.PostResponse, error) {
	content, err := normalize(req.Content)
	hasImage := req.ImageURL != nil && *req.ImageURL != ""
	if err == ErrContentTooLong || (err != nil && !hasImage) {
		return nil, err
	}
	if !hasImage {
		req.ImageURL = nil
	}

	post := &models.Post{UserID: userID, Content: content, ImageURL: req.ImageURL}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, mapRepoError(err)
	}

	created, err := s.posts.GetPost(ctx, post.ID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	resp := dto.ToPostResponse(created)
	s.publishPost(ctx, resp)
	return &resp, nil
}

// DeletePost removes the caller's own post
func (s *Service) DeletePost(ctx context.Context, userID, postID string) error {
	if err := s.posts.DeletePost(ctx, postID, userID); err != nil {
		return mapRepoError(err)
	}
	logger.Log.Info("Post deleted", logger.WithUserID(userID), logger.WithPostID(postID))
	return nil
}

func (s *Service) publishPost(ctx context.Context, post dto.PostResponse) {
	_, span := telemetry.GetBusinessEvents().TracePublish(ctx, websocket.FeedTopic, websocket.MessageTypeNewPost)
	n := s.relay.PublishToTopic(websocket.FeedTopic, websocket.MessageTypeNewPost, post)
	span.End()
	logger.Log.Debug("Published post", logger.WithPostID(post.ID), zap.Int("delivered", n))
}
