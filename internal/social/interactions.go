package social

import (
	"context"

	"github.com/zfogg/huddle/internal/dto"
	"github.com/zfogg/huddle/internal/logger"
	"github.com/zfogg/huddle/internal/metrics"
	"github.com/zfogg/huddle/internal/models"
	"github.com/zfogg/huddle/internal/telemetry"
)

func countInteraction(kind string) {
	metrics.Get().InteractionsTotal.WithLabelValues(kind).Inc()
}

// Like adds the caller to the post's like set. Liking twice is a conflict
// and leaves the set unchanged.
func (s *Service) Like(ctx context.Context, userID, postID string) (resp *dto.LikeResponse, err error) {
	ctx, span := telemetry.GetBusinessEvents().TraceInteraction(ctx, "like", userID, postID)
	defer func() { telemetry.EndSpan(span, err) }()

	post, err := s.posts.PostExists(ctx, postID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if err := s.posts.AddLike(ctx, postID, userID); err != nil {
		return nil, mapRepoError(err)
	}
	countInteraction("like")

	s.notify(ctx, post.UserID, userID, models.NotificationLike, &post.ID)

	return s.likeSet(ctx, postID)
}

// Unlike removes the caller from the post's like set
func (s *Service) Unlike(ctx context.Context, userID, postID string) (*dto.LikeResponse, error) {
	if _, err := s.posts.PostExists(ctx, postID); err != nil {
		return nil, mapRepoError(err)
	}
	if err := s.posts.RemoveLike(ctx, postID, userID); err != nil {
		return nil, mapRepoError(err)
	}
	countInteraction("unlike")
	return s.likeSet(ctx, postID)
}

func (s *Service) likeSet(ctx context.Context, postID string) (*dto.LikeResponse, error) {
	ids, err := s.posts.GetLikerIDs(ctx, postID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if ids == nil {
		ids = []string{}
	}
	return &dto.LikeResponse{Likes: ids, LikeCount: len(ids)}, nil
}

// Comment appends a comment and returns the post's full comment list,
// oldest first
func (s *Service) Comment(ctx context.Context, userID, postID, content string) (resp []dto.CommentResponse, err error) {
	ctx, span := telemetry.GetBusinessEvents().TraceInteraction(ctx, "comment", userID, postID)
	defer func() { telemetry.EndSpan(span, err) }()

	content, err = normalize(content)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.PostExists(ctx, postID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	comment := &models.Comment{PostID: postID, UserID: userID, Content: content}
	if err := s.posts.CreateComment(ctx, comment); err != nil {
		return nil, mapRepoError(err)
	}
	countInteraction("comment")

	s.notify(ctx, post.UserID, userID, models.NotificationComment, &post.ID)

	comments, err := s.posts.GetComments(ctx, postID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return dto.ToCommentResponses(comments), nil
}

// Reply appends a reply to a comment of postID and returns the comment's
// replies, oldest first. The comment's author is notified.
func (s *Service) Reply(ctx context.Context, userID, postID, commentID, content string) (resp []dto.ReplyResponse, err error) {
	ctx, span := telemetry.GetBusinessEvents().TraceInteraction(ctx, "reply", userID, commentID)
	defer func() { telemetry.EndSpan(span, err) }()

	content, err = normalize(content)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.PostExists(ctx, postID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	comment, err := s.posts.GetComment(ctx, postID, commentID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	reply := &models.Reply{CommentID: comment.ID, UserID: userID, Content: content}
	if err := s.posts.CreateReply(ctx, reply); err != nil {
		return nil, mapRepoError(err)
	}
	countInteraction("reply")

	s.notify(ctx, comment.UserID, userID, models.NotificationReply, &post.ID)

	replies, err := s.posts.GetReplies(ctx, comment.ID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return dto.ToReplyResponses(replies), nil
}

// Share bumps the share count and creates the caller's repost, which is
// pushed to the feed topic. Sharing a repost shares its original.
func (s *Service) Share(ctx context.Context, userID, postID, content string) (resp *dto.ShareResponse, err error) {
	ctx, span := telemetry.GetBusinessEvents().TraceInteraction(ctx, "share", userID, postID)
	defer func() { telemetry.EndSpan(span, err) }()

	quote, qerr := normalize(content)
	if qerr == ErrContentTooLong {
		return nil, qerr
	}

	post, err := s.posts.PostExists(ctx, postID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if post.SharedFromID != nil {
		if original, oerr := s.posts.PostExists(ctx, *post.SharedFromID); oerr == nil {
			post = original
		}
	}

	repost, shares, err := s.posts.CreateRepost(ctx, post, userID, quote)
	if err != nil {
		return nil, mapRepoError(err)
	}
	countInteraction("share")

	out := dto.ToPostResponse(repost)
	s.publishPost(ctx, out)

	logger.Log.Info("Post shared",
		logger.WithUserID(userID),
		logger.WithPostID(post.ID),
	)
	return &dto.ShareResponse{Shares: shares, Repost: out}, nil
}

// Follow makes the caller follow targetID. Following twice is a no-op;
// only the first call notifies.
func (s *Service) Follow(ctx context.Context, userID, targetID string) (resp *dto.FollowResponse, err error) {
	ctx, span := telemetry.GetBusinessEvents().TraceInteraction(ctx, "follow", userID, targetID)
	defer func() { telemetry.EndSpan(span, err) }()

	if userID == targetID {
		return nil, ErrCannotFollowSelf
	}
	if _, err := s.users.GetUser(ctx, targetID); err != nil {
		return nil, mapRepoError(err)
	}

	changed, err := s.users.CreateFollow(ctx, userID, targetID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if changed {
		countInteraction("follow")
		s.notify(ctx, targetID, userID, models.NotificationFollow, nil)
	}
	return &dto.FollowResponse{Following: true, Changed: changed}, nil
}

// Unfollow removes the follow edge if present
func (s *Service) Unfollow(ctx context.Context, userID, targetID string) (*dto.FollowResponse, error) {
	if userID == targetID {
		return nil, ErrCannotFollowSelf
	}
	if _, err := s.users.GetUser(ctx, targetID); err != nil {
		return nil, mapRepoError(err)
	}

	changed, err := s.users.DeleteFollow(ctx, userID, targetID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if changed {
		countInteraction("unfollow")
	}
	return &dto.FollowResponse{Following: false, Changed: changed}, nil
}
