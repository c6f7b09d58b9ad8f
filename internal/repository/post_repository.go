package repository

import (
	"context"
	"errors"

	"github.com/zfogg/huddle/internal/models"
	"github.com/zfogg/huddle/internal/util"
	"gorm.io/gorm"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrAlreadyLiked    = errors.New("post already liked")
	ErrLikeNotFound    = errors.New("like not found")
)

// FeedSort selects the feed ordering
type FeedSort string

const (
	SortLatest      FeedSort = "latest"
	SortRecommended FeedSort = "recommended"
)

// ParseFeedSort maps a query parameter to a FeedSort. Unknown values are latest.
func ParseFeedSort(s string) FeedSort {
	switch s {
	case "recommended", "recommendation", "popular":
		return SortRecommended
	default:
		return SortLatest
	}
}

// FeedQuery selects a window of posts
type FeedQuery struct {
	AuthorID string
	Sort     FeedSort
	Limit    int
	Offset   int
}

// likeCountExpr is the like set's cardinality, computed per row at query time
const likeCountExpr = "(SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id)"

// PostRepository handles database operations for posts and their threads
type PostRepository interface {
	ListPosts(ctx context.Context, q FeedQuery) ([]models.Post, error)
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	PostExists(ctx context.Context, postID string) (*models.Post, error)
	CreatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, postID, userID string) error

	// Likes
	AddLike(ctx context.Context, postID, userID string) error
	RemoveLike(ctx context.Context, postID, userID string) error
	GetLikerIDs(ctx context.Context, postID string) ([]string, error)

	// Shares
	CreateRepost(ctx context.Context, original *models.Post, userID, content string) (*models.Post, int, error)

	// Comments and replies, oldest first
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComments(ctx context.Context, postID string) ([]models.Comment, error)
	GetComment(ctx context.Context, postID, commentID string) (*models.Comment, error)
	CreateReply(ctx context.Context, reply *models.Reply) error
	GetReplies(ctx context.Context, commentID string) ([]models.Reply, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func oldestFirst(column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(column + " ASC")
	}
}

// withThread preloads everything dto.ToPostResponse reads
func withThread(db *gorm.DB) *gorm.DB {
	return db.
		Preload("User").
		Preload("Likes", oldestFirst("post_likes.created_at")).
		Preload("Comments", oldestFirst("comments.created_at")).
		Preload("Comments.User").
		Preload("Comments.Replies", oldestFirst("replies.created_at")).
		Preload("Comments.Replies.User").
		Preload("SharedFrom").
		Preload("SharedFrom.User")
}

// ListPosts returns a page of posts with their threads
func (r *postRepository) ListPosts(ctx context.Context, q FeedQuery) ([]models.Post, error) {
	query := withThread(r.db.WithContext(ctx).Model(&models.Post{}))

	if q.AuthorID != "" {
		query = query.Where("posts.user_id = ?", q.AuthorID)
	}

	if q.Sort == SortRecommended {
		query = query.Order(likeCountExpr + " DESC")
	}
	query = query.Order("posts.created_at DESC").Order("posts.id DESC")

	var posts []models.Post
	err := query.Limit(q.Limit).Offset(q.Offset).Find(&posts).Error
	return posts, err
}

// GetPost gets a post with its thread
func (r *postRepository) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	err := withThread(r.db.WithContext(ctx)).Where("id = ?", postID).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// PostExists loads just the post row
func (r *postRepository) PostExists(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Where("id = ?", postID).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// CreatePost creates a post
func (r *postRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post == nil || post.UserID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(post).Error
}

// DeletePost deletes userID's post together with its likes and thread
func (r *postRepository) DeletePost(ctx context.Context, postID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Where("id = ? AND user_id = ?", postID, userID).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", postID)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		// Reposts keep existing but lose their link
		if err := tx.Model(&models.Post{}).Where("shared_from_id = ?", postID).
			Update("shared_from_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
}

// AddLike inserts userID into the post's like set. The unique index makes
// concurrent duplicate likes fail with ErrAlreadyLiked.
func (r *postRepository) AddLike(ctx context.Context, postID, userID string) error {
	err := r.db.WithContext(ctx).Create(&models.PostLike{PostID: postID, UserID: userID}).Error
	if util.IsUniqueViolation(err) {
		return ErrAlreadyLiked
	}
	return err
}

// RemoveLike removes userID from the post's like set
func (r *postRepository) RemoveLike(ctx context.Context, postID, userID string) error {
	result := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.PostLike{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLikeNotFound
	}
	return nil
}

// GetLikerIDs returns the like set, oldest like first
func (r *postRepository) GetLikerIDs(ctx context.Context, postID string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).
		Model(&models.PostLike{}).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// CreateRepost bumps original's share count and creates userID's repost of
// it. Returns the repost and the new share count.
func (r *postRepository) CreateRepost(ctx context.Context, original *models.Post, userID, content string) (*models.Post, int, error) {
	repost := &models.Post{
		UserID:       userID,
		Content:      content,
		SharedFromID: &original.ID,
	}

	var shares int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Post{}).
			Where("id = ?", original.ID).
			UpdateColumn("shares", gorm.Expr("shares + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPostNotFound
		}

		if err := tx.Create(repost).Error; err != nil {
			return err
		}

		return tx.Model(&models.Post{}).
			Where("id = ?", original.ID).
			Pluck("shares", &shares).Error
	})
	if err != nil {
		return nil, 0, err
	}

	created, err := r.GetPost(ctx, repost.ID)
	if err != nil {
		return nil, 0, err
	}
	return created, shares, nil
}

// CreateComment appends a comment to a post
func (r *postRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// GetComments returns a post's comments with authors and replies, oldest first
func (r *postRepository) GetComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Replies", oldestFirst("replies.created_at")).
		Preload("Replies.User").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

// GetComment gets a comment only if it belongs to postID
func (r *postRepository) GetComment(ctx context.Context, postID, commentID string) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).
		Where("id = ? AND post_id = ?", commentID, postID).
		First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// CreateReply appends a reply to a comment
func (r *postRepository) CreateReply(ctx context.Context, reply *models.Reply) error {
	return r.db.WithContext(ctx).Create(reply).Error
}

// GetReplies returns a comment's replies with authors, oldest first
func (r *postRepository) GetReplies(ctx context.Context, commentID string) ([]models.Reply, error) {
	var replies []models.Reply
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("comment_id = ?", commentID).
		Order("created_at ASC").
		Find(&replies).Error
	return replies, err
}
