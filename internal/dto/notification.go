package dto

import (
	"time"

	"github.com/zfogg/huddle/internal/models"
)

type NotificationResponse struct {
	ID        string                  `json:"id"`
	Type      models.NotificationType `json:"type"`
	Sender    *PublicUser             `json:"sender,omitempty"`
	PostID    *string                 `json:"post_id,omitempty"`
	Read      bool                    `json:"read"`
	CreatedAt time.Time               `json:"created_at"`
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

type ChatMessageResponse struct {
	ID        string     `json:"id"`
	Room      string     `json:"room"`
	Sender    PublicUser `json:"sender"`
	Content   string     `json:"content"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
}

func ToNotificationResponse(n *models.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		PostID:    n.PostID,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
	if n.Sender != nil {
		sender := ToPublicUser(n.Sender)
		resp.Sender = &sender
	}
	return resp
}

func ToChatMessageResponse(m *models.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:        m.ID,
		Room:      m.Room,
		Sender:    ToPublicUser(&m.Sender),
		Content:   m.Content,
		Read:      m.Read,
		CreatedAt: m.CreatedAt,
	}
}
