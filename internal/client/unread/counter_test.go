package unread

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu     sync.Mutex
	token  bool
	counts []int64
	err    error
	calls  int
}

func (s *fakeSource) HasToken() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *fakeSource) UnreadCount(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.err != nil {
		return 0, s.err
	}
	n := s.counts[0]
	if len(s.counts) > 1 {
		s.counts = s.counts[1:]
	}
	return n, nil
}

type fakeNotifier struct {
	mu         sync.Mutex
	permission Permission
	grantTo    Permission
	requests   int
	bodies     []string
}

func (n *fakeNotifier) Permission() Permission {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.permission
}

func (n *fakeNotifier) RequestPermission(context.Context) Permission {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests++
	n.permission = n.grantTo
	return n.permission
}

func (n *fakeNotifier) Notify(_, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bodies = append(n.bodies, body)
	return nil
}

func quiet() Option {
	return WithLogger(log.New(io.Discard))
}

func TestIncreaseFiresOneNotification(t *testing.T) {
	src := &fakeSource{token: true, counts: []int64{2, 5, 5}}
	n := &fakeNotifier{permission: PermissionGranted}
	c := NewCounter(src, n, quiet())
	ctx := context.Background()

	c.Poll(ctx)
	require.Len(t, n.bodies, 1)
	assert.Equal(t, "You have 2 new notifications", n.bodies[0])

	c.Poll(ctx)
	require.Len(t, n.bodies, 2)
	assert.Equal(t, "You have 3 new notifications", n.bodies[1])
	assert.Equal(t, int64(5), c.Baseline())

	c.Poll(ctx)
	assert.Len(t, n.bodies, 2)
	assert.Equal(t, int64(5), c.Baseline())
	assert.Equal(t, StateIdle, c.State())
}

func TestDecreaseAdoptsBaselineSilently(t *testing.T) {
	src := &fakeSource{token: true, counts: []int64{4, 1}}
	n := &fakeNotifier{permission: PermissionGranted}
	c := NewCounter(src, n, quiet())

	c.Poll(context.Background())
	c.Poll(context.Background())
	assert.Len(t, n.bodies, 1)
	assert.Equal(t, int64(1), c.Baseline())
}

func TestWithoutPermissionBaselineStillAdvances(t *testing.T) {
	src := &fakeSource{token: true, counts: []int64{3}}
	n := &fakeNotifier{permission: PermissionDefault}
	c := NewCounter(src, n, quiet())

	c.Poll(context.Background())
	assert.Empty(t, n.bodies)
	assert.Equal(t, int64(3), c.Baseline())
	assert.Equal(t, StatePermissionPending, c.State())

	n.permission = PermissionDenied
	c.Poll(context.Background())
	assert.Empty(t, n.bodies)
	assert.Equal(t, StateIdle, c.State())
}

func TestNoTokenResetsAndSkipsFetch(t *testing.T) {
	src := &fakeSource{token: true, counts: []int64{7}}
	n := &fakeNotifier{permission: PermissionGranted}
	c := NewCounter(src, n, quiet())

	c.Poll(context.Background())
	assert.Equal(t, int64(7), c.Baseline())

	src.token = false
	c.Poll(context.Background())
	assert.Zero(t, c.Baseline())
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 1, src.calls)
}

func TestFailedPollKeepsBaseline(t *testing.T) {
	src := &fakeSource{token: true, counts: []int64{2}}
	n := &fakeNotifier{permission: PermissionGranted}
	var buf bytes.Buffer
	c := NewCounter(src, n, WithLogger(log.New(&buf)))

	c.Poll(context.Background())
	src.err = errors.New("connection refused")
	c.Poll(context.Background())

	assert.Equal(t, int64(2), c.Baseline())
	assert.Len(t, n.bodies, 1)
	assert.Contains(t, buf.String(), "Unread count poll failed")
}

func TestPollPassesContextToSource(t *testing.T) {
	src := &fakeSource{token: true, counts: []int64{3, 9}}
	n := &fakeNotifier{permission: PermissionGranted}
	c := NewCounter(src, n, quiet())

	c.Poll(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Poll(ctx)

	assert.Equal(t, int64(3), c.Baseline())
	assert.Len(t, n.bodies, 1)
	assert.Equal(t, 2, src.calls)
}

func TestStartRequestsPermissionOnceAndPolls(t *testing.T) {
	src := &fakeSource{token: true, counts: []int64{1, 2, 3, 4, 5, 6}}
	n := &fakeNotifier{permission: PermissionDefault, grantTo: PermissionGranted}
	c := NewCounter(src, n, quiet(), WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.calls >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	assert.Equal(t, 1, n.requests)
	assert.NotEmpty(t, n.bodies)
}

func TestTerminalNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewTerminalNotifier(&buf, false)
	assert.Equal(t, PermissionDefault, n.Permission())
	assert.Equal(t, PermissionGranted, n.RequestPermission(context.Background()))

	require.NoError(t, n.Notify("Huddle", describe(1)))
	assert.Contains(t, buf.String(), "You have 1 new notification")

	muted := NewTerminalNotifier(&buf, true)
	assert.Equal(t, PermissionDenied, muted.RequestPermission(context.Background()))
}
