// Package unread polls the unread notification count and raises a local
// notification when it grows.
package unread

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultInterval is how often the count is polled
const DefaultInterval = 30 * time.Second

// State of the counter
type State int

const (
	StateUnknown State = iota
	StatePolling
	StateIdle
	StatePermissionPending
)

func (s State) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateIdle:
		return "idle"
	case StatePermissionPending:
		return "permission_pending"
	default:
		return "unknown"
	}
}

// Permission mirrors a platform notification permission
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Source fetches the authoritative unread count
type Source interface {
	HasToken() bool
	UnreadCount(ctx context.Context) (int64, error)
}

// Notifier raises local notifications
type Notifier interface {
	Permission() Permission
	RequestPermission(ctx context.Context) Permission
	Notify(title, body string) error
}

// Counter tracks the last known unread count for one session
type Counter struct {
	source   Source
	notifier Notifier
	interval time.Duration
	logger   *log.Logger

	mu        sync.Mutex
	baseline  int64
	state     State
	requested bool
}

// Option configures a Counter
type Option func(*Counter)

// WithInterval overrides DefaultInterval
func WithInterval(d time.Duration) Option {
	return func(c *Counter) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLogger sets the logger used for poll failures
func WithLogger(l *log.Logger) Option {
	return func(c *Counter) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCounter creates a counter in StateUnknown
func NewCounter(source Source, notifier Notifier, opts ...Option) *Counter {
	c := &Counter{
		source:   source,
		notifier: notifier,
		interval: DefaultInterval,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start asks for notification permission if it is undecided, polls once and
// then on every interval until ctx is cancelled.
func (c *Counter) Start(ctx context.Context) {
	c.requestPermissionOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Poll(ctx)
		}
	}
}

// Poll runs one cycle. Without a token the baseline resets and nothing is
// fetched. A failed fetch is logged and leaves the baseline alone.
func (c *Counter) Poll(ctx context.Context) {
	if !c.source.HasToken() {
		c.mu.Lock()
		c.baseline = 0
		c.state = StateIdle
		c.mu.Unlock()
		return
	}

	c.setState(StatePolling)

	count, err := c.source.UnreadCount(ctx)
	if err != nil {
		c.logger.Warn("Unread count poll failed", "error", err)
		c.settle()
		return
	}

	c.mu.Lock()
	delta := count - c.baseline
	c.baseline = count
	c.mu.Unlock()

	if delta > 0 && c.notifier.Permission() == PermissionGranted {
		if err := c.notifier.Notify("Huddle", describe(delta)); err != nil {
			c.logger.Warn("Failed to show notification", "error", err)
		}
	}
	c.settle()
}

// Baseline returns the last adopted count
func (c *Counter) Baseline() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseline
}

// State returns the current state
func (c *Counter) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Counter) requestPermissionOnce(ctx context.Context) {
	c.mu.Lock()
	if c.requested {
		c.mu.Unlock()
		return
	}
	c.requested = true
	c.mu.Unlock()

	if c.notifier.Permission() == PermissionDefault {
		c.notifier.RequestPermission(ctx)
	}
}

func (c *Counter) settle() {
	if c.notifier.Permission() == PermissionDefault {
		c.setState(StatePermissionPending)
		return
	}
	c.setState(StateIdle)
}

func (c *Counter) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func describe(delta int64) string {
	if delta == 1 {
		return "You have 1 new notification"
	}
	return fmt.Sprintf("You have %d new notifications", delta)
}
