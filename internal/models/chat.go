package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatMessage is a message posted to a chat room
type ChatMessage struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Room     string `gorm:"type:varchar(128);not null;index:idx_chat_room_created" json:"room"`
	SenderID string `gorm:"type:varchar(36);not null" json:"sender_id"`
	Sender   User   `gorm:"foreignKey:SenderID" json:"sender"`
	Content  string `gorm:"type:text;not null" json:"content"`
	Read     bool   `gorm:"not null;default:false" json:"read"`

	CreatedAt time.Time `gorm:"index:idx_chat_room_created" json:"created_at"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// AllModels lists every table for AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Follow{},
		&Post{},
		&PostLike{},
		&Comment{},
		&Reply{},
		&Notification{},
		&ChatMessage{},
	}
}
