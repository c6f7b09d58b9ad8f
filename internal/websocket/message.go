package websocket

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FlexibleTime handles both Unix millisecond timestamps and RFC3339 strings
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON implements custom unmarshaling for timestamps
func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms)
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds (integer) or RFC3339 string")
	}

	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

// MarshalJSON implements custom marshaling (always output as RFC3339)
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Message types for WebSocket communication
const (
	// System messages
	MessageTypeSystem = "system"
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
	MessageTypeError  = "error"

	// Subscription control (client -> server)
	MessageTypeJoin  = "join"
	MessageTypeLeave = "leave"

	// Relay events
	MessageTypeNewPost      = "new-post"
	MessageTypeChatMessage  = "chat-message"
	MessageTypeTyping       = "typing"
	MessageTypeNotification = "notification"
)

// Topics
const (
	FeedTopic       = "feed"
	chatTopicPrefix = "chat:"
)

// ChatTopic returns the topic carrying a chat room's messages and typing indicators
func ChatTopic(room string) string {
	return chatTopicPrefix + room
}

// RoomFromTopic returns the room of a chat topic and whether topic is one
func RoomFromTopic(topic string) (string, bool) {
	if !strings.HasPrefix(topic, chatTopicPrefix) {
		return "", false
	}
	room := strings.TrimPrefix(topic, chatTopicPrefix)
	return room, room != ""
}

// ValidTopic reports whether clients may join topic
func ValidTopic(topic string) bool {
	if topic == FeedTopic {
		return true
	}
	_, ok := RoomFromTopic(topic)
	return ok && len(topic) <= 128
}

// Message represents a WebSocket frame in either direction
type Message struct {
	// Type identifies the message type for routing
	Type string `json:"type"`

	// Topic is set on frames delivered through a topic subscription
	Topic string `json:"topic,omitempty"`

	// Payload contains the message-specific data
	Payload interface{} `json:"payload,omitempty"`

	// ID is a client-chosen identifier echoed back in ReplyTo
	ID string `json:"id,omitempty"`

	// ReplyTo references the original message ID for responses
	ReplyTo string `json:"reply_to,omitempty"`

	// Timestamp when the message was created (accepts Unix ms or RFC3339)
	Timestamp FlexibleTime `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewTopicMessage creates a message addressed to a topic's subscribers
func NewTopicMessage(topic, msgType string, payload interface{}) *Message {
	msg := NewMessage(msgType, payload)
	msg.Topic = topic
	return msg
}

// NewReply creates a reply message to an original message
func NewReply(original *Message, msgType string, payload interface{}) *Message {
	msg := NewMessage(msgType, payload)
	msg.ReplyTo = original.ID
	return msg
}

// NewErrorMessage creates an error message
func NewErrorMessage(code string, message string) *Message {
	return NewMessage(MessageTypeError, ErrorPayload{
		Code:    code,
		Message: message,
	})
}

// ErrorPayload represents an error message payload
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PingPayload represents a ping message payload
type PingPayload struct {
	ClientTime int64 `json:"client_time"`
}

// PongPayload represents a pong message payload
type PongPayload struct {
	ClientTime int64 `json:"client_time"`
	ServerTime int64 `json:"server_time"`
	Latency    int64 `json:"latency_ms"`
}

// TopicPayload is the body of join and leave frames
type TopicPayload struct {
	Topic string `json:"topic"`
}

// TypingPayload announces that a user is typing in a room.
// There is no stop event; receivers expire the indicator themselves.
type TypingPayload struct {
	Topic       string `json:"topic"`
	UserID      string `json:"user_id,omitempty"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// ChatSendPayload is the body of a client chat-message frame
type ChatSendPayload struct {
	Room    string `json:"room"`
	Content string `json:"content"`
}

// SystemPayload represents system event payloads
type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// ParsePayload unmarshals the payload into a specific type
func (m *Message) ParsePayload(target interface{}) error {
	if m.Payload == nil {
		return nil
	}

	// Re-marshal and unmarshal to properly type the payload
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
