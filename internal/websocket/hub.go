// Package websocket is the realtime relay: topic-based publish/subscribe over
// github.com/coder/websocket. Delivery is at-most-once and process-local.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zfogg/huddle/internal/logger"
	"github.com/zfogg/huddle/internal/metrics"
	"go.uber.org/zap"
)

// Hub maintains the set of active clients, their topic subscriptions,
// and fans published messages out to subscribers.
type Hub struct {
	// Registered clients by user ID for targeted messaging
	clients map[string]map[*Client]struct{}

	// Every registered client, for shutdown
	allClients map[*Client]struct{}

	// Subscribers per topic
	topics map[string]map[*Client]struct{}

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Guards clients, allClients and topics
	mu sync.RWMutex

	// Metrics
	metrics *Metrics

	// Shutdown handling
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}

	// Message handlers
	handlersMu sync.RWMutex
	handlers   map[string]MessageHandler

	// Rate limiter config
	rateLimitConfig RateLimitConfig
}

// Metrics tracks WebSocket statistics
type Metrics struct {
	TotalConnections   atomic.Int64
	ActiveConnections  atomic.Int64
	MessagesReceived   atomic.Int64
	MessagesSent       atomic.Int64
	Errors             atomic.Int64
	ConnectionsDropped atomic.Int64
}

// RateLimitConfig defines rate limiting parameters
type RateLimitConfig struct {
	// MaxMessagesPerSecond per client
	MaxMessagesPerSecond int
	// BurstSize allows short bursts above the rate
	BurstSize int
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxMessagesPerSecond: 10,
		BurstSize:            20,
	}
}

// MessageHandler processes incoming messages of a specific type
type MessageHandler func(client *Client, message *Message) error

// NewHub creates a new Hub instance
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:         make(map[string]map[*Client]struct{}),
		allClients:      make(map[*Client]struct{}),
		topics:          make(map[string]map[*Client]struct{}),
		register:        make(chan *Client, 256),
		unregister:      make(chan *Client, 256),
		metrics:         &Metrics{},
		ctx:             ctx,
		cancel:          cancel,
		stopped:         make(chan struct{}),
		handlers:        make(map[string]MessageHandler),
		rateLimitConfig: DefaultRateLimitConfig(),
	}
}

// RegisterHandler registers a handler for a specific message type
func (h *Hub) RegisterHandler(msgType string, handler MessageHandler) {
	h.handlersMu.Lock()
	defer h.handlersMu.Unlock()
	h.handlers[msgType] = handler
	logger.Log.Debug("Registered websocket handler", zap.String("type", msgType))
}

// GetHandler returns the handler for a message type
func (h *Hub) GetHandler(msgType string) (MessageHandler, bool) {
	h.handlersMu.RLock()
	defer h.handlersMu.RUnlock()
	handler, ok := h.handlers[msgType]
	return handler, ok
}

// Run starts the hub's main event loop
func (h *Hub) Run() {
	defer close(h.stopped)
	logger.Log.Info("WebSocket hub starting")

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// registerClient adds a client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Already dropped before the register event was processed
	if client.isStopped() {
		return
	}

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}
	h.allClients[client] = struct{}{}

	h.metrics.TotalConnections.Add(1)
	h.metrics.ActiveConnections.Add(1)
	metrics.Get().RelayConnections.Inc()

	logger.Log.Info("Client connected",
		logger.WithUserID(client.UserID),
		zap.Int64("active", h.metrics.ActiveConnections.Load()),
	)
}

// unregisterClient removes a client from the hub and all of its topics
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.allClients[client]; !ok {
		h.removeSubscriptionsLocked(client)
		client.stop()
		return
	}

	delete(h.allClients, client)
	if clients, ok := h.clients[client.UserID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.UserID)
		}
	}
	h.removeSubscriptionsLocked(client)

	client.stop()

	h.metrics.ActiveConnections.Add(-1)
	metrics.Get().RelayConnections.Dec()

	logger.Log.Info("Client disconnected",
		logger.WithUserID(client.UserID),
		zap.Int64("active", h.metrics.ActiveConnections.Load()),
	)
}

func (h *Hub) removeSubscriptionsLocked(client *Client) {
	for topic := range client.topics {
		if subs, ok := h.topics[topic]; ok {
			delete(subs, client)
			metrics.Get().RelaySubscriptions.Dec()
			if len(subs) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	client.topics = make(map[string]struct{})
}

// Subscribe adds client to topic. Only messages published after Subscribe
// returns are delivered; nothing is replayed.
func (h *Hub) Subscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.isStopped() {
		return
	}
	if _, already := client.topics[topic]; already {
		return
	}
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]struct{})
	}
	h.topics[topic][client] = struct{}{}
	client.topics[topic] = struct{}{}
	metrics.Get().RelaySubscriptions.Inc()
}

// Unsubscribe removes client from topic
func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := client.topics[topic]; !ok {
		return
	}
	delete(client.topics, topic)
	if subs, ok := h.topics[topic]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	metrics.Get().RelaySubscriptions.Dec()
}

// IsSubscribed reports whether client currently receives topic
func (h *Hub) IsSubscribed(client *Client, topic string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := client.topics[topic]
	return ok
}

// SubscriberCount returns how many clients are subscribed to topic
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// PublishToTopic enqueues a frame on every current subscriber of topic and
// returns how many clients it was enqueued for. It never blocks and never
// fails: subscribers whose buffer is full are dropped.
func (h *Hub) PublishToTopic(topic, msgType string, payload interface{}) int {
	return h.publish(NewTopicMessage(topic, msgType, payload), nil)
}

// publish delivers msg to msg.Topic's subscribers, skipping except
func (h *Hub) publish(msg *Message, except *Client) int {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Error("Error marshaling topic message", logger.WithTopic(msg.Topic), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.topics[msg.Topic] {
		if client == except {
			continue
		}
		if h.enqueueLocked(client, data) {
			delivered++
		}
	}
	metrics.Get().RelayMessagesPublished.WithLabelValues(msg.Type).Add(float64(delivered))
	logger.Log.Debug("Published to topic",
		logger.WithTopic(msg.Topic),
		zap.String("type", msg.Type),
		zap.Int("delivered", delivered),
	)
	return delivered
}

// SendToUser enqueues a frame on every connection of userID
func (h *Hub) SendToUser(userID, msgType string, payload interface{}) int {
	data, err := json.Marshal(NewMessage(msgType, payload))
	if err != nil {
		logger.Log.Error("Error marshaling unicast message", logger.WithUserID(userID), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.clients[userID] {
		if h.enqueueLocked(client, data) {
			delivered++
		}
	}
	metrics.Get().RelayMessagesPublished.WithLabelValues(msgType).Add(float64(delivered))
	return delivered
}

// enqueueLocked must be called with h.mu held (read or write)
func (h *Hub) enqueueLocked(client *Client, data []byte) bool {
	select {
	case client.send <- data:
		h.metrics.MessagesSent.Add(1)
		return true
	default:
		// Slow consumer: drop it rather than block the publisher
		h.metrics.ConnectionsDropped.Add(1)
		metrics.Get().RelayClientsDropped.Inc()
		go h.Unregister(client)
		return false
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		client.stop()
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// IsUserOnline checks if a user has any active connections
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// GetUserConnectionCount returns the number of connections for a user
func (h *Hub) GetUserConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// GetOnlineUsers returns a list of all online user IDs
func (h *Hub) GetOnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	return users
}

// GetMetrics returns current WebSocket metrics
func (h *Hub) GetMetrics() MetricsSnapshot {
	h.mu.RLock()
	topics := len(h.topics)
	h.mu.RUnlock()

	return MetricsSnapshot{
		TotalConnections:   h.metrics.TotalConnections.Load(),
		ActiveConnections:  h.metrics.ActiveConnections.Load(),
		MessagesReceived:   h.metrics.MessagesReceived.Load(),
		MessagesSent:       h.metrics.MessagesSent.Load(),
		Errors:             h.metrics.Errors.Load(),
		ConnectionsDropped: h.metrics.ConnectionsDropped.Load(),
		Topics:             topics,
	}
}

// MetricsSnapshot is a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	TotalConnections   int64 `json:"total_connections"`
	ActiveConnections  int64 `json:"active_connections"`
	MessagesReceived   int64 `json:"messages_received"`
	MessagesSent       int64 `json:"messages_sent"`
	Errors             int64 `json:"errors"`
	ConnectionsDropped int64 `json:"connections_dropped"`
	Topics             int   `json:"topics"`
}

// String implements Stringer for MetricsSnapshot
func (m MetricsSnapshot) String() string {
	return fmt.Sprintf(
		"connections=%d/%d topics=%d messages=rx:%d/tx:%d errors=%d dropped=%d",
		m.ActiveConnections, m.TotalConnections, m.Topics,
		m.MessagesReceived, m.MessagesSent,
		m.Errors, m.ConnectionsDropped,
	)
}

// Shutdown stops the event loop and closes every client. It waits for
// Run to return or ctx to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	logger.Log.Info("Initiating WebSocket hub shutdown")
	h.cancel()

	select {
	case <-h.stopped:
		logger.Log.Info("WebSocket hub shutdown complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

// shutdown closes all client connections
func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	shutdownMsg := NewMessage(MessageTypeSystem, SystemPayload{Event: "server_shutdown"})
	shutdownMsg.Timestamp = FlexibleTime{Time: time.Now().UTC()}
	data, _ := json.Marshal(shutdownMsg)

	closed := len(h.allClients)
	for client := range h.allClients {
		select {
		case client.send <- data:
		default:
		}
		client.stop()
	}

	h.clients = make(map[string]map[*Client]struct{})
	h.allClients = make(map[*Client]struct{})
	h.topics = make(map[string]map[*Client]struct{})

	logger.Log.Info("Closed connections during shutdown", zap.Int("count", closed))
}

// Connections describes the live connections of one user
func (h *Hub) Connections(userID string) []ClientInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ClientInfo, 0, len(h.clients[userID]))
	for client := range h.clients[userID] {
		out = append(out, client.GetInfo())
	}
	return out
}

// SetRateLimitConfig updates the rate limiting configuration for new clients
func (h *Hub) SetRateLimitConfig(config RateLimitConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rateLimitConfig = config
}

// GetRateLimitConfig returns the current rate limit configuration
func (h *Hub) GetRateLimitConfig() RateLimitConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rateLimitConfig
}
