package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zfogg/huddle/internal/logger"
	"go.uber.org/zap"
)

// UnreadCounts caches per-user unread notification counts.
// Implementations never fail the caller; a miss just means "ask the database".
//
// Each user has a version that Invalidate bumps. A reader takes the version
// before counting and passes it to Set, which stores nothing if an
// invalidation happened in between.
type UnreadCounts interface {
	Get(ctx context.Context, userID string) (int64, bool)
	Version(ctx context.Context, userID string) int64
	Set(ctx context.Context, userID string, count, version int64)
	Invalidate(ctx context.Context, userID string)
}

// UnreadKey is the Redis key holding a user's unread count
func UnreadKey(userID string) string {
	return "notifications:unread:" + userID
}

// UnreadVersionKey is the Redis key holding a user's invalidation counter
func UnreadVersionKey(userID string) string {
	return "notifications:unread:version:" + userID
}

// versionTTL keeps idle version keys from piling up. It outlives any count.
const versionTTL = 24 * time.Hour

// RedisUnreadCounts stores unread counts in Redis with a short TTL
type RedisUnreadCounts struct {
	rc  *RedisClient
	ttl time.Duration
}

// NewRedisUnreadCounts creates a Redis-backed unread count cache
func NewRedisUnreadCounts(rc *RedisClient, ttl time.Duration) *RedisUnreadCounts {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisUnreadCounts{rc: rc, ttl: ttl}
}

func (c *RedisUnreadCounts) Get(ctx context.Context, userID string) (int64, bool) {
	n, err := c.rc.GetInt(ctx, UnreadKey(userID))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.Debug("Unread cache read failed", logger.WithUserID(userID), zap.Error(err))
		}
		return 0, false
	}
	return n, true
}

// Version returns the user's invalidation counter; 0 when never invalidated
func (c *RedisUnreadCounts) Version(ctx context.Context, userID string) int64 {
	v, err := c.rc.GetInt(ctx, UnreadVersionKey(userID))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.Debug("Unread version read failed", logger.WithUserID(userID), zap.Error(err))
			return -1
		}
		return 0
	}
	return v
}

// Set stores count only while the version key still equals version.
// WATCH aborts the write if an Invalidate lands between the check and the SET.
func (c *RedisUnreadCounts) Set(ctx context.Context, userID string, count, version int64) {
	if version < 0 {
		return
	}
	versionKey := UnreadVersionKey(userID)

	err := c.rc.Client().Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != version {
			return errStaleUnread
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, UnreadKey(userID), count, c.ttl)
			return nil
		})
		return err
	}, versionKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleUnread), errors.Is(err, redis.TxFailedErr):
		logger.Log.Debug("Unread cache write skipped: invalidated meanwhile", logger.WithUserID(userID))
	default:
		logger.Log.Debug("Unread cache write failed", logger.WithUserID(userID), zap.Error(err))
	}
}

// Invalidate bumps the version and drops the cached count in one transaction
func (c *RedisUnreadCounts) Invalidate(ctx context.Context, userID string) {
	versionKey := UnreadVersionKey(userID)
	_, err := c.rc.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey)
		pipe.Expire(ctx, versionKey, versionTTL)
		pipe.Del(ctx, UnreadKey(userID))
		return nil
	})
	if err != nil {
		logger.Log.Debug("Unread cache invalidate failed", logger.WithUserID(userID), zap.Error(err))
	}
}

var errStaleUnread = errors.New("unread count is stale")

// NoopUnreadCounts is used when Redis is not configured
type NoopUnreadCounts struct{}

func (NoopUnreadCounts) Get(context.Context, string) (int64, bool) { return 0, false }
func (NoopUnreadCounts) Version(context.Context, string) int64     { return 0 }
func (NoopUnreadCounts) Set(context.Context, string, int64, int64) {}
func (NoopUnreadCounts) Invalidate(context.Context, string)        {}
