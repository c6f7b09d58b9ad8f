// Package chat stores per-room chat messages and relays them to the room topic.
package chat

import (
	"context"
	stderrors "errors"

	"github.com/zfogg/huddle/internal/dto"
	apierrors "github.com/zfogg/huddle/internal/errors"
	"github.com/zfogg/huddle/internal/logger"
	"github.com/zfogg/huddle/internal/metrics"
	"github.com/zfogg/huddle/internal/models"
	"github.com/zfogg/huddle/internal/telemetry"
	"github.com/zfogg/huddle/internal/util"
	"github.com/zfogg/huddle/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PageSize is how many of the most recent messages a room read returns
const PageSize = 50

var (
	ErrInvalidRoom     = apierrors.BadRequest("Invalid room")
	ErrContentRequired = apierrors.BadRequest("Content required")
	ErrContentTooLong  = apierrors.BadRequest("Content too long")
)

// Publisher delivers a frame to a topic's current subscribers
type Publisher interface {
	PublishToTopic(topic, msgType string, payload interface{}) int
}

// Service reads and writes chat rooms
type Service struct {
	db    *gorm.DB
	relay Publisher
}

// NewService creates a chat service. relay may be nil.
func NewService(db *gorm.DB, relay Publisher) *Service {
	return &Service{db: db, relay: relay}
}

func validRoom(room string) bool {
	return websocket.ValidTopic(websocket.ChatTopic(room))
}

// Recent returns the room's last PageSize messages, oldest first
func (s *Service) Recent(ctx context.Context, room string) ([]dto.ChatMessageResponse, error) {
	if !validRoom(room) {
		return nil, ErrInvalidRoom
	}

	var messages []models.ChatMessage
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("room = ?", room).
		Order("created_at DESC").
		Order("id DESC").
		Limit(PageSize).
		Find(&messages).Error
	if err != nil {
		logger.Log.Error("Failed to load chat room", zap.String("room", room), zap.Error(err))
		return nil, err
	}

	out := make([]dto.ChatMessageResponse, len(messages))
	for i := range messages {
		out[len(messages)-1-i] = dto.ToChatMessageResponse(&messages[i])
	}
	return out, nil
}

// Send stores a message and publishes it on the room's topic
func (s *Service) Send(ctx context.Context, userID, room, content string) (*dto.ChatMessageResponse, error) {
	if !validRoom(room) {
		return nil, ErrInvalidRoom
	}
	content, ok := util.NormalizeContent(content)
	if !ok {
		if content == "" {
			return nil, ErrContentRequired
		}
		return nil, ErrContentTooLong
	}

	msg := &models.ChatMessage{Room: room, SenderID: userID, Content: content}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		logger.Log.Error("Failed to store chat message", zap.String("room", room), zap.Error(err))
		return nil, err
	}
	if err := s.db.WithContext(ctx).Preload("Sender").First(msg, "id = ?", msg.ID).Error; err != nil {
		return nil, err
	}
	metrics.Get().InteractionsTotal.WithLabelValues("chat").Inc()

	resp := dto.ToChatMessageResponse(msg)
	if s.relay != nil {
		topic := websocket.ChatTopic(room)
		_, span := telemetry.GetBusinessEvents().TracePublish(ctx, topic, websocket.MessageTypeChatMessage)
		s.relay.PublishToTopic(topic, websocket.MessageTypeChatMessage, resp)
		span.End()
	}
	return &resp, nil
}

// MarkRead marks the room's messages from other senders read
func (s *Service) MarkRead(ctx context.Context, userID, room string) (int64, error) {
	if !validRoom(room) {
		return 0, ErrInvalidRoom
	}
	result := s.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("room = ? AND sender_id <> ? AND read = ?", room, userID, false).
		Update("read", true)
	return result.RowsAffected, result.Error
}

// RelayHandler handles chat-message frames sent over the websocket by
// persisting them through Send
func (s *Service) RelayHandler() websocket.MessageHandler {
	return func(client *websocket.Client, message *websocket.Message) error {
		var p websocket.ChatSendPayload
		if err := message.ParsePayload(&p); err != nil {
			return &websocket.HandlerError{Message: "Invalid chat payload"}
		}

		_, err := s.Send(client.Context(), client.UserID, p.Room, p.Content)
		var apiErr *apierrors.APIError
		if stderrors.As(err, &apiErr) {
			return &websocket.HandlerError{Message: apiErr.Message}
		}
		return err
	}
}
