package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnreadKey(t *testing.T) {
	assert.Equal(t, "notifications:unread:abc", UnreadKey("abc"))
	assert.Equal(t, "notifications:unread:version:abc", UnreadVersionKey("abc"))
}

func TestNoopUnreadCounts(t *testing.T) {
	var c UnreadCounts = NoopUnreadCounts{}
	c.Set(context.Background(), "u", 3, c.Version(context.Background(), "u"))
	_, ok := c.Get(context.Background(), "u")
	assert.False(t, ok)
}

// TestRedisUnreadCounts needs a live Redis; set REDIS_HOST to run it
func TestRedisUnreadCounts(t *testing.T) {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		t.Skip("Skipping Redis cache test: REDIS_HOST not set")
	}

	rc, err := NewRedisClient(host, os.Getenv("REDIS_PORT"), os.Getenv("REDIS_PASSWORD"))
	require.NoError(t, err)
	defer rc.Close()

	ctx := context.Background()
	c := NewRedisUnreadCounts(rc, time.Minute)
	userID := "cache-test-" + time.Now().Format("150405.000000")

	_, ok := c.Get(ctx, userID)
	assert.False(t, ok)

	defer rc.Client().Del(ctx, UnreadKey(userID), UnreadVersionKey(userID))

	v := c.Version(ctx, userID)
	assert.Equal(t, int64(0), v)
	c.Set(ctx, userID, 7, v)
	n, ok := c.Get(ctx, userID)
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)

	c.Invalidate(ctx, userID)
	_, ok = c.Get(ctx, userID)
	assert.False(t, ok)
	assert.Equal(t, v+1, c.Version(ctx, userID))

	// A count read under the old version must not land after the invalidation
	c.Set(ctx, userID, 7, v)
	_, ok = c.Get(ctx, userID)
	assert.False(t, ok)

	c.Set(ctx, userID, 8, c.Version(ctx, userID))
	n, ok = c.Get(ctx, userID)
	assert.True(t, ok)
	assert.Equal(t, int64(8), n)
}
