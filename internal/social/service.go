// Package social implements the feed query and interaction operations:
// posts, likes, comments, replies, shares, follows and the notifications
// they produce.
package social

import (
	"context"
	"errors"

	"github.com/zfogg/huddle/internal/cache"
	"github.com/zfogg/huddle/internal/dto"
	apierrors "github.com/zfogg/huddle/internal/errors"
	"github.com/zfogg/huddle/internal/logger"
	"github.com/zfogg/huddle/internal/repository"
	"github.com/zfogg/huddle/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrPostNotFound         = apierrors.NotFound("Post")
	ErrCommentNotFound      = apierrors.NotFound("Comment")
	ErrUserNotFound         = apierrors.NotFound("User")
	ErrLikeNotFound         = apierrors.NotFound("Like")
	ErrNotificationNotFound = apierrors.NotFound("Notification")
	ErrAlreadyLiked         = apierrors.Conflict("Post already liked")
	ErrContentRequired      = apierrors.BadRequest("Content required")
	ErrContentTooLong       = apierrors.BadRequest("Content too long")
	ErrCannotFollowSelf     = apierrors.BadRequest("Cannot follow yourself")
)

// Publisher is the slice of the realtime relay the service pushes to.
// Both calls are fire-and-forget and report how many connections got the frame.
type Publisher interface {
	PublishToTopic(topic, msgType string, payload interface{}) int
	SendToUser(userID, msgType string, payload interface{}) int
}

type noopPublisher struct{}

func (noopPublisher) PublishToTopic(string, string, interface{}) int { return 0 }
func (noopPublisher) SendToUser(string, string, interface{}) int     { return 0 }

// Service implements feed queries and social interactions
type Service struct {
	users  repository.UserRepository
	posts  repository.PostRepository
	inbox  repository.NotificationRepository
	relay  Publisher
	unread cache.UnreadCounts
}

// NewService creates a social service. relay and unread may be nil.
func NewService(db *gorm.DB, relay Publisher, unread cache.UnreadCounts) *Service {
	if relay == nil {
		relay = noopPublisher{}
	}
	if unread == nil {
		unread = cache.NoopUnreadCounts{}
	}
	return &Service{
		users:  repository.NewUserRepository(db),
		posts:  repository.NewPostRepository(db),
		inbox:  repository.NewNotificationRepository(db),
		relay:  relay,
		unread: unread,
	}
}

// normalize validates a user-supplied body
func normalize(content string) (string, error) {
	s, ok := util.NormalizeContent(content)
	if ok {
		return s, nil
	}
	if s == "" {
		return "", ErrContentRequired
	}
	return "", ErrContentTooLong
}

// mapRepoError turns repository sentinels into API errors. Anything else is
// passed through and becomes a 500 at the handler.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrPostNotFound):
		return ErrPostNotFound
	case errors.Is(err, repository.ErrCommentNotFound):
		return ErrCommentNotFound
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrAlreadyLiked):
		return ErrAlreadyLiked
	case errors.Is(err, repository.ErrLikeNotFound):
		return ErrLikeNotFound
	case errors.Is(err, repository.ErrNotificationNotFound):
		return ErrNotificationNotFound
	case errors.Is(err, repository.ErrInvalidInput):
		return apierrors.BadRequest("Invalid input")
	default:
		logger.Log.Error("Database operation failed", zap.Error(err))
		return err
	}
}

// GetProfile returns userID's profile as seen by viewerID
func (s *Service) GetProfile(ctx context.Context, viewerID, userID string) (*dto.ProfileResponse, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	resp := &dto.ProfileResponse{PublicUser: dto.ToPublicUser(user)}
	if resp.FollowerCount, err = s.users.GetFollowerCount(ctx, userID); err != nil {
		return nil, mapRepoError(err)
	}
	if resp.FollowingCount, err = s.users.GetFollowingCount(ctx, userID); err != nil {
		return nil, mapRepoError(err)
	}
	if viewerID != "" && viewerID != userID {
		if resp.IsFollowing, err = s.users.IsFollowing(ctx, viewerID, userID); err != nil {
			return nil, mapRepoError(err)
		}
	}
	return resp, nil
}

// GetFollowers lists users following userID, most recent first
func (s *Service) GetFollowers(ctx context.Context, userID string, page, limit int) ([]dto.PublicUser, error) {
	users, err := s.users.GetFollowers(ctx, userID, limit, util.Offset(page, limit))
	if err != nil {
		return nil, mapRepoError(err)
	}
	return dto.ToPublicUsers(users), nil
}

// GetFollowing lists users userID follows, most recent first
func (s *Service) GetFollowing(ctx context.Context, userID string, page, limit int) ([]dto.PublicUser, error) {
	users, err := s.users.GetFollowing(ctx, userID, limit, util.Offset(page, limit))
	if err != nil {
		return nil, mapRepoError(err)
	}
	return dto.ToPublicUsers(users), nil
}
