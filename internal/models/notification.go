package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType is what a notification is about
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationReply   NotificationType = "reply"
	NotificationFollow  NotificationType = "follow"
)

// Notification tells RecipientID that SenderID did something to their content.
// Only Read is ever updated after creation.
type Notification struct {
	ID          string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RecipientID string           `gorm:"type:varchar(36);not null;index:idx_notifications_recipient_read" json:"recipient_id"`
	SenderID    *string          `gorm:"type:varchar(36)" json:"sender_id,omitempty"`
	Sender      *User            `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Type        NotificationType `gorm:"type:varchar(16);not null" json:"type"`
	PostID      *string          `gorm:"type:varchar(36)" json:"post_id,omitempty"`
	Read        bool             `gorm:"not null;default:false;index:idx_notifications_recipient_read" json:"read"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
