package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a feed entry. A repost has SharedFromID set to the post it shares.
type Post struct {
	ID       string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID   string  `gorm:"type:varchar(36);not null;index" json:"user_id"`
	User     User    `gorm:"foreignKey:UserID" json:"user"`
	Content  string  `gorm:"type:text" json:"content"`
	ImageURL *string `json:"image_url,omitempty"`

	// Shares only ever grows; see social.Service.Share
	Shares       int     `gorm:"not null;default:0" json:"shares"`
	SharedFromID *string `gorm:"type:varchar(36);index" json:"shared_from_id,omitempty"`
	SharedFrom   *Post   `gorm:"foreignKey:SharedFromID" json:"shared_from,omitempty"`

	Likes    []PostLike `gorm:"foreignKey:PostID" json:"likes"`
	Comments []Comment  `gorm:"foreignKey:PostID" json:"comments"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// PostLike is one member of a post's like set.
// The composite unique index is what makes a like idempotent under concurrency.
type PostLike struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_post_likes_post_user" json:"post_id"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_post_likes_post_user;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *PostLike) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// Comment belongs to exactly one post
type Comment struct {
	ID      string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID  string  `gorm:"type:varchar(36);not null;index" json:"post_id"`
	UserID  string  `gorm:"type:varchar(36);not null" json:"user_id"`
	User    User    `gorm:"foreignKey:UserID" json:"user"`
	Content string  `gorm:"type:text;not null" json:"content"`
	Replies []Reply `gorm:"foreignKey:CommentID" json:"replies"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Reply belongs to exactly one comment
type Reply struct {
	ID        string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CommentID string `gorm:"type:varchar(36);not null;index" json:"comment_id"`
	UserID    string `gorm:"type:varchar(36);not null" json:"user_id"`
	User      User   `gorm:"foreignKey:UserID" json:"user"`
	Content   string `gorm:"type:text;not null" json:"content"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (r *Reply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
