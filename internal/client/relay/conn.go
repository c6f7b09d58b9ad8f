// Package relay is a client for the Huddle realtime relay. It keeps a
// websocket open, reconnects with exponential backoff and re-joins topics
// after a reconnect. Events fired while disconnected are not replayed.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Frame types used by the relay protocol
const (
	TypeJoin        = "join"
	TypeLeave       = "leave"
	TypeTyping      = "typing"
	TypePing        = "ping"
	TypePong        = "pong"
	TypeSystem      = "system"
	TypeError       = "error"
	TypeNewPost     = "new-post"
	TypeChatMessage = "chat-message"
	TypeNotify      = "notification"

	// AnyType registers a handler for every frame
	AnyType = "*"
)

// FeedTopic carries new posts
const FeedTopic = "feed"

// ChatTopic returns the topic for a chat room
func ChatTopic(room string) string {
	return "chat:" + room
}

// ErrNotConnected is returned by Emit while the connection is down
var ErrNotConnected = errors.New("relay: not connected")

// Frame is a relay message in either direction
type Frame struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	ID        string          `json:"id,omitempty"`
	ReplyTo   string          `json:"reply_to,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Decode unmarshals the payload into target
func (f *Frame) Decode(target interface{}) error {
	if len(f.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(f.Payload, target)
}

// Handler receives frames on the read goroutine; it must not block
type Handler func(*Frame)

// State is the connection state
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "disconnected"
	}
}

// Config holds relay client configuration
type Config struct {
	// URL of the websocket endpoint, e.g. ws://localhost:8787/api/v1/ws
	URL   string
	Token string

	HeartbeatInterval    time.Duration
	WriteTimeout         time.Duration
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	MaxReconnectAttempts int // negative = unlimited

	Logger *log.Logger
	Dialer *websocket.Dialer
}

// DefaultConfig returns a development configuration
func DefaultConfig() Config {
	return Config{
		URL:                  "ws://localhost:8787/api/v1/ws",
		HeartbeatInterval:    30 * time.Second,
		WriteTimeout:         10 * time.Second,
		ReconnectBaseDelay:   time.Second,
		ReconnectMaxDelay:    30 * time.Second,
		MaxReconnectAttempts: -1,
	}
}

type registration struct {
	id      uint64
	handler Handler
}

// Conn is a self-healing relay connection
type Conn struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *log.Logger

	mu     sync.Mutex
	ws     *websocket.Conn
	topics map[string]struct{}

	writeMu sync.Mutex

	handlersMu sync.RWMutex
	handlers   map[string][]registration
	nextID     uint64

	state      atomic.Int32
	reconnects atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Dial connects to the relay and starts the read loop. The first connection
// must succeed; later drops are retried in the background.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	defaults := DefaultConfig()
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = defaults.ReconnectBaseDelay
	}
	if cfg.ReconnectMaxDelay < cfg.ReconnectBaseDelay {
		cfg.ReconnectMaxDelay = cfg.ReconnectBaseDelay
	}

	c := &Conn{
		cfg:      cfg,
		dialer:   cfg.Dialer,
		logger:   cfg.Logger,
		topics:   make(map[string]struct{}),
		handlers: make(map[string][]registration),
		done:     make(chan struct{}),
	}
	if c.dialer == nil {
		c.dialer = websocket.DefaultDialer
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.setState(StateConnecting)
	ws, err := c.dial(ctx)
	if err != nil {
		c.cancel()
		c.setState(StateDisconnected)
		close(c.done)
		return nil, err
	}
	c.attach(ws)

	go c.run(ws)
	go c.heartbeatLoop()

	return c, nil
}

// State returns the current connection state
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Reconnects returns how many times the connection was re-established
func (c *Conn) Reconnects() int64 {
	return c.reconnects.Load()
}

// On registers a handler for a frame type (AnyType for all frames) and
// returns a function that removes it.
func (c *Conn) On(frameType string, handler Handler) func() {
	c.handlersMu.Lock()
	c.nextID++
	id := c.nextID
	c.handlers[frameType] = append(c.handlers[frameType], registration{id: id, handler: handler})
	c.handlersMu.Unlock()

	return func() {
		c.handlersMu.Lock()
		defer c.handlersMu.Unlock()
		regs := c.handlers[frameType]
		for i, r := range regs {
			if r.id == id {
				c.handlers[frameType] = append(regs[:i:i], regs[i+1:]...)
				return
			}
		}
	}
}

// Join subscribes to a topic now and after every reconnect
func (c *Conn) Join(topic string) error {
	c.mu.Lock()
	c.topics[topic] = struct{}{}
	c.mu.Unlock()

	err := c.Emit(TypeJoin, map[string]string{"topic": topic})
	if errors.Is(err, ErrNotConnected) {
		// Joined on the next reconnect
		return nil
	}
	return err
}

// Leave unsubscribes from a topic
func (c *Conn) Leave(topic string) error {
	c.mu.Lock()
	delete(c.topics, topic)
	c.mu.Unlock()

	err := c.Emit(TypeLeave, map[string]string{"topic": topic})
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

// Topics returns the joined topics
func (c *Conn) Topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	topics := make([]string, 0, len(c.topics))
	for t := range c.topics {
		topics = append(topics, t)
	}
	return topics
}

// Emit sends a frame. It fails with ErrNotConnected during a reconnect gap.
func (c *Conn) Emit(frameType string, payload interface{}) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return ErrNotConnected
	}
	return c.write(ws, frameType, payload)
}

// Close stops reconnecting and closes the socket
func (c *Conn) Close() error {
	if c.State() == StateClosed {
		return nil
	}
	c.mu.Lock()
	c.setState(StateClosed)
	c.cancel()
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	if ws != nil {
		c.writeMu.Lock()
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = ws.Close()
	}

	<-c.done
	return nil
}

// Done is closed once the connection has stopped for good
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	ws, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return ws, err
}

// attach installs ws as the live socket unless Close already ran
func (c *Conn) attach(ws *websocket.Conn) bool {
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		_ = ws.Close()
		return false
	}
	c.ws = ws
	c.setState(StateConnected)
	c.mu.Unlock()
	c.logger.Debug("Relay connected", "url", c.cfg.URL)
	return true
}

// run reads until the socket fails, then reconnects and re-joins
func (c *Conn) run(ws *websocket.Conn) {
	defer close(c.done)

	for {
		c.readLoop(ws)

		c.mu.Lock()
		if c.ws == ws {
			c.ws = nil
		}
		c.mu.Unlock()
		_ = ws.Close()

		if c.ctx.Err() != nil {
			return
		}

		c.setState(StateReconnecting)
		next, ok := c.reconnect()
		if !ok {
			if c.State() != StateClosed {
				c.setState(StateDisconnected)
			}
			return
		}
		ws = next
	}
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		var frame Frame
		if err := ws.ReadJSON(&frame); err != nil {
			if c.ctx.Err() == nil {
				c.logger.Debug("Relay read error", "error", err)
			}
			return
		}
		c.dispatch(&frame)
	}
}

func (c *Conn) dispatch(frame *Frame) {
	c.handlersMu.RLock()
	regs := append([]registration(nil), c.handlers[frame.Type]...)
	regs = append(regs, c.handlers[AnyType]...)
	c.handlersMu.RUnlock()

	for _, r := range regs {
		r.handler(frame)
	}
}

func (c *Conn) reconnect() (*websocket.Conn, bool) {
	delay := c.cfg.ReconnectBaseDelay
	for attempt := 0; c.cfg.MaxReconnectAttempts < 0 || attempt < c.cfg.MaxReconnectAttempts; attempt++ {
		wait := delay + jitter(delay)
		c.logger.Debug("Reconnecting relay", "attempt", attempt+1, "wait", wait)

		select {
		case <-c.ctx.Done():
			return nil, false
		case <-time.After(wait):
		}

		ws, err := c.dial(c.ctx)
		if err != nil {
			delay = nextDelay(delay, c.cfg.ReconnectMaxDelay)
			continue
		}

		if !c.attach(ws) {
			return nil, false
		}
		c.reconnects.Add(1)
		c.rejoin(ws)
		return ws, true
	}

	c.logger.Error("Relay gave up reconnecting", "attempts", c.cfg.MaxReconnectAttempts)
	return nil, false
}

func (c *Conn) rejoin(ws *websocket.Conn) {
	for _, topic := range c.Topics() {
		if err := c.write(ws, TypeJoin, map[string]string{"topic": topic}); err != nil {
			c.logger.Warn("Failed to re-join topic", "topic", topic, "error", err)
		}
	}
}

func (c *Conn) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			err := c.Emit(TypePing, map[string]int64{"client_time": time.Now().UnixMilli()})
			if err != nil && !errors.Is(err, ErrNotConnected) {
				c.logger.Debug("Failed to send heartbeat", "error", err)
			}
		}
	}
}

func (c *Conn) write(ws *websocket.Conn, frameType string, payload interface{}) error {
	frame := struct {
		Type      string      `json:"type"`
		Payload   interface{} `json:"payload,omitempty"`
		Timestamp time.Time   `json:"timestamp"`
	}{frameType, payload, time.Now().UTC()}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return ws.WriteJSON(frame)
}

func (c *Conn) setState(s State) {
	c.state.Store(int32(s))
}

// nextDelay doubles the delay up to max
func nextDelay(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d)/4 + 1))
}
