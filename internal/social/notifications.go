package social

import (
	"context"

	"github.com/zfogg/huddle/internal/dto"
	"github.com/zfogg/huddle/internal/logger"
	"github.com/zfogg/huddle/internal/metrics"
	"github.com/zfogg/huddle/internal/models"
	"github.com/zfogg/huddle/internal/util"
	"github.com/zfogg/huddle/internal/websocket"
	"go.uber.org/zap"
)

const unreadCacheName = "unread_count"

// notify records that senderID did something to recipientID's content. It
// runs after the interaction has committed and never fails the caller: a
// write failure is logged and counted, leaving the interaction un-notified.
func (s *Service) notify(ctx context.Context, recipientID, senderID string, kind models.NotificationType, postID *string) {
	if recipientID == "" || recipientID == senderID {
		return
	}

	n := &models.Notification{
		RecipientID: recipientID,
		SenderID:    &senderID,
		Type:        kind,
		PostID:      postID,
	}
	if err := s.inbox.Create(ctx, n); err != nil {
		metrics.Get().NotificationWriteFailures.Inc()
		logger.Log.Warn("Failed to store notification",
			logger.WithUserID(recipientID),
			zap.String("type", string(kind)),
			zap.Error(err),
		)
		return
	}

	s.unread.Invalidate(ctx, recipientID)

	if sender, err := s.users.GetUser(ctx, senderID); err == nil {
		n.Sender = sender
	}
	s.relay.SendToUser(recipientID, websocket.MessageTypeNotification, dto.ToNotificationResponse(n))
}

// ListNotifications returns the caller's notifications, newest first
func (s *Service) ListNotifications(ctx context.Context, userID string, page, limit int) ([]dto.NotificationResponse, error) {
	list, err := s.inbox.List(ctx, userID, limit, util.Offset(page, limit))
	if err != nil {
		return nil, mapRepoError(err)
	}

	out := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		out = append(out, dto.ToNotificationResponse(&list[i]))
	}
	return out, nil
}

// UnreadCount returns how many of the caller's notifications are unread,
// from the cache when it has the value
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if count, ok := s.unread.Get(ctx, userID); ok {
		metrics.Get().CacheHitsTotal.WithLabelValues(unreadCacheName).Inc()
		return count, nil
	}
	metrics.Get().CacheMissesTotal.WithLabelValues(unreadCacheName).Inc()

	// Taken before counting so a notification written meanwhile voids the Set
	version := s.unread.Version(ctx, userID)
	count, err := s.inbox.CountUnread(ctx, userID)
	if err != nil {
		return 0, mapRepoError(err)
	}
	s.unread.Set(ctx, userID, count, version)
	return count, nil
}

// MarkRead marks one of the caller's notifications read
func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	if err := s.inbox.MarkRead(ctx, notificationID, userID); err != nil {
		return mapRepoError(err)
	}
	s.unread.Invalidate(ctx, userID)
	return nil
}

// MarkAllRead marks every notification of the caller read
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.inbox.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, mapRepoError(err)
	}
	s.unread.Invalidate(ctx, userID)
	return n, nil
}
