package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/zfogg/huddle/internal/logger"
	"github.com/zfogg/huddle/internal/metrics"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Send buffer size
	sendBufferSize = 256
)

// Client represents a single WebSocket connection
type Client struct {
	// The websocket connection
	conn *websocket.Conn

	// Hub reference
	hub *Hub

	// User information
	UserID      string
	Username    string
	DisplayName string

	// Buffered channel of outbound messages. Never closed; done signals teardown.
	send chan []byte

	done     chan struct{}
	stopOnce sync.Once

	// Joined topics, guarded by hub.mu
	topics map[string]struct{}

	// Connection metadata
	ConnectedAt time.Time
	LastPingAt  time.Time
	RemoteAddr  string
	UserAgent   string

	// Rate limiting
	rateLimiter *RateLimiter

	// Context for cancellation
	ctx    context.Context
	cancel context.CancelFunc

	// Mutex for connection metadata
	mu sync.RWMutex
}

// RateLimiter implements a simple token bucket rate limiter
type RateLimiter struct {
	tokens    float64
	maxTokens float64
	refill    float64
	lastTime  time.Time
	mu        sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(maxPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		tokens:    float64(burst),
		maxTokens: float64(burst),
		refill:    float64(maxPerSecond),
		lastTime:  time.Now(),
	}
}

// Allow checks if an action is allowed and consumes a token
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastTime).Seconds()
	r.lastTime = now

	r.tokens += elapsed * r.refill
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}

	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// NewClient creates a new Client. conn may be nil for clients that are
// only ever fed through the hub (tests).
func NewClient(hub *Hub, conn *websocket.Conn, userID, username, displayName string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	config := hub.GetRateLimitConfig()

	return &Client{
		hub:         hub,
		conn:        conn,
		UserID:      userID,
		Username:    username,
		DisplayName: displayName,
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
		topics:      make(map[string]struct{}),
		ConnectedAt: time.Now(),
		rateLimiter: NewRateLimiter(config.MaxMessagesPerSecond, config.BurstSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		readCtx, readCancel := context.WithTimeout(c.ctx, pongWait)
		_, data, err := c.conn.Read(readCtx)
		readCancel()

		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Log.Info("Client disconnected normally", logger.WithUserID(c.UserID))
			} else if c.ctx.Err() == nil {
				logger.Log.Warn("Read error for client", logger.WithUserID(c.UserID), zap.Error(err))
				c.hub.metrics.Errors.Add(1)
			}
			return
		}

		if !c.rateLimiter.Allow() {
			c.SendError("rate_limited", "Too many messages, please slow down")
			c.hub.metrics.Errors.Add(1)
			continue
		}

		c.hub.metrics.MessagesReceived.Add(1)

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			logger.Log.Warn("WebSocket JSON parse error", logger.WithUserID(c.UserID), zap.Error(err))
			c.SendError("invalid_json", "Failed to parse message")
			continue
		}

		metrics.Get().RelayMessagesReceived.WithLabelValues(message.Type).Inc()
		c.handleMessage(&message)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			c.flush()
			c.conn.Close(websocket.StatusGoingAway, "closing")
			return

		case message := <-c.send:
			if err := c.write(message); err != nil {
				if c.ctx.Err() == nil {
					logger.Log.Warn("Write error for client", logger.WithUserID(c.UserID), zap.Error(err))
					c.hub.metrics.Errors.Add(1)
				}
				return
			}

		case <-ticker.C:
			c.mu.Lock()
			c.LastPingAt = time.Now()
			c.mu.Unlock()

			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()

			if err != nil {
				logger.Log.Warn("Ping failed for client", logger.WithUserID(c.UserID), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) write(message []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, message)
}

// flush writes whatever is still buffered, e.g. the shutdown notice
func (c *Client) flush() {
	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				return
			}
		default:
			return
		}
	}
}

// handleMessage routes incoming messages to appropriate handlers
func (c *Client) handleMessage(message *Message) {
	if message.Timestamp.IsZero() {
		message.Timestamp = FlexibleTime{Time: time.Now().UTC()}
	}

	switch message.Type {
	case MessageTypePing, "heartbeat":
		c.handlePing(message)
		return
	case MessageTypeJoin:
		c.handleJoin(message)
		return
	case MessageTypeLeave:
		c.handleLeave(message)
		return
	case MessageTypeTyping:
		c.handleTyping(message)
		return
	}

	if handler, ok := c.hub.GetHandler(message.Type); ok {
		if err := handler(c, message); err != nil {
			logger.Log.Warn("Handler error",
				zap.String("type", message.Type),
				logger.WithUserID(c.UserID),
				zap.Error(err))
			c.SendError("handler_error", handlerErrorMessage(message.Type, err))
		}
		return
	}

	logger.Log.Warn("Unknown message type",
		logger.WithUserID(c.UserID),
		zap.String("type", message.Type))
	c.SendError("unknown_type", fmt.Sprintf("Unknown message type: %s", message.Type))
}

// HandlerError is returned by a MessageHandler when the reason may be shown to the sender
type HandlerError struct {
	Message string
}

func (e *HandlerError) Error() string { return e.Message }

func handlerErrorMessage(msgType string, err error) string {
	var he *HandlerError
	if errors.As(err, &he) {
		return he.Message
	}
	return fmt.Sprintf("Failed to process %s", msgType)
}

// handlePing responds to ping messages with pong
func (c *Client) handlePing(message *Message) {
	var ping PingPayload
	if err := message.ParsePayload(&ping); err != nil {
		ping.ClientTime = 0
	}

	now := time.Now()
	c.mu.Lock()
	c.LastPingAt = now
	c.mu.Unlock()

	serverTime := now.UnixMilli()
	latency := int64(0)
	if ping.ClientTime > 0 {
		latency = serverTime - ping.ClientTime
	}

	_ = c.Send(NewReply(message, MessageTypePong, PongPayload{
		ClientTime: ping.ClientTime,
		ServerTime: serverTime,
		Latency:    latency,
	}))
}

func (c *Client) parseTopic(message *Message) (string, bool) {
	var p TopicPayload
	if err := message.ParsePayload(&p); err != nil || !ValidTopic(p.Topic) {
		c.SendError("invalid_topic", "Unknown or malformed topic")
		return "", false
	}
	return p.Topic, true
}

func (c *Client) handleJoin(message *Message) {
	topic, ok := c.parseTopic(message)
	if !ok {
		return
	}
	c.hub.Subscribe(c, topic)
	_ = c.Send(NewReply(message, MessageTypeSystem, SystemPayload{
		Event: "joined",
		Data:  map[string]interface{}{"topic": topic},
	}))
}

func (c *Client) handleLeave(message *Message) {
	topic, ok := c.parseTopic(message)
	if !ok {
		return
	}
	c.hub.Unsubscribe(c, topic)
	_ = c.Send(NewReply(message, MessageTypeSystem, SystemPayload{
		Event: "left",
		Data:  map[string]interface{}{"topic": topic},
	}))
}

// handleTyping relays a typing indicator to the room's other subscribers.
// The sender must have joined the topic.
func (c *Client) handleTyping(message *Message) {
	topic, ok := c.parseTopic(message)
	if !ok {
		return
	}
	if _, isChat := RoomFromTopic(topic); !isChat {
		c.SendError("invalid_topic", "Typing is only supported in chat rooms")
		return
	}
	if !c.hub.IsSubscribed(c, topic) {
		c.SendError("not_joined", "Join the topic before sending to it")
		return
	}

	c.hub.publish(NewTopicMessage(topic, MessageTypeTyping, TypingPayload{
		Topic:       topic,
		UserID:      c.UserID,
		Username:    c.Username,
		DisplayName: c.DisplayName,
	}), c)
}

// Send queues a message for this client
func (c *Client) Send(message *Message) error {
	if c.isStopped() {
		return fmt.Errorf("client connection closed")
	}

	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return fmt.Errorf("client shutting down")
	default:
		return fmt.Errorf("send buffer full")
	}
}

// SendError sends an error message to the client
func (c *Client) SendError(code, message string) {
	_ = c.Send(NewErrorMessage(code, message))
}

// stop signals the write pump to finish. Safe to call more than once.
func (c *Client) stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) isStopped() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close tears down the connection
func (c *Client) Close() {
	c.stop()
	c.cancel()
	if c.conn != nil {
		c.conn.Close(websocket.StatusNormalClosure, "closing")
	}
}

// IsClosed returns whether the client has been stopped
func (c *Client) IsClosed() bool {
	return c.isStopped()
}

// Context is cancelled when the connection closes
func (c *Client) Context() context.Context {
	return c.ctx
}

// GetInfo returns client information
func (c *Client) GetInfo() ClientInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ClientInfo{
		UserID:      c.UserID,
		Username:    c.Username,
		ConnectedAt: c.ConnectedAt,
		LastPingAt:  c.LastPingAt,
		RemoteAddr:  c.RemoteAddr,
		UserAgent:   c.UserAgent,
	}
}

// ClientInfo represents public client information
type ClientInfo struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	ConnectedAt time.Time `json:"connected_at"`
	LastPingAt  time.Time `json:"last_ping_at"`
	RemoteAddr  string    `json:"remote_addr"`
	UserAgent   string    `json:"user_agent"`
}
