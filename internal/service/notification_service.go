package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge/internal/clock"
	"github.com/phrazzld/nudge/internal/delivery"
	"github.com/phrazzld/nudge/internal/domain"
	"github.com/phrazzld/nudge/internal/store"
)

// List filters accepted by ListNotifications. A type filter is written as
// TypeFilterPrefix followed by a notification type, e.g. "type:TASK_OVERDUE".
const (
	FilterAll        = "all"
	FilterUnread     = "unread"
	FilterLatest     = "latest"
	TypeFilterPrefix = "type:"
)

// NotificationService provides notification operations for users and for
// the reminder engine.
type NotificationService interface {
	// ListNotifications returns the user's notifications, newest first.
	// filter is one of FilterAll (or empty), FilterUnread, FilterLatest or a
	// type filter.
	ListNotifications(ctx context.Context, userID uuid.UUID, filter string) ([]*domain.Notification, error)

	// GetUnreadCount returns the number of unread notifications of the user.
	GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error)

	// MarkRead marks one of the user's notifications as read.
	MarkRead(ctx context.Context, userID, id uuid.UUID) error

	// MarkAllRead marks every unread notification of the user as read and
	// returns how many changed.
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)

	// DeleteNotification deletes one of the user's notifications.
	DeleteNotification(ctx context.Context, userID, id uuid.UUID) error

	// CreateAndDeliver persists a new notification for user and then hands
	// it to the delivery channel. It returns ErrAlreadyNotified when a
	// notification with the same reference and type already exists.
	CreateAndDeliver(
		ctx context.Context,
		user *domain.User,
		title, message string,
		notificationType domain.NotificationType,
		referenceID *uuid.UUID,
	) (*domain.Notification, error)

	// PurgeOld deletes the user's read notifications created before cutoff.
	PurgeOld(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error)

	// HasBeenSent reports whether a notification of the given type already
	// exists for referenceID.
	HasBeenSent(
		ctx context.Context,
		userID, referenceID uuid.UUID,
		notificationType domain.NotificationType,
	) (bool, error)
}

type notificationServiceImpl struct {
	store   store.NotificationStore
	channel delivery.Channel
	clock   clock.Clock
	logger  *slog.Logger
}

var _ NotificationService = (*notificationServiceImpl)(nil)

// NewNotificationService creates a NotificationService. A nil channel
// disables real-time delivery.
func NewNotificationService(
	notificationStore store.NotificationStore,
	channel delivery.Channel,
	clk clock.Clock,
	logger *slog.Logger,
) (NotificationService, error) {
	if notificationStore == nil {
		return nil, &NotificationServiceError{Operation: "create_service", Message: "notificationStore cannot be nil"}
	}
	if clk == nil {
		return nil, &NotificationServiceError{Operation: "create_service", Message: "clock cannot be nil"}
	}
	if channel == nil {
		channel = delivery.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &notificationServiceImpl{
		store:   notificationStore,
		channel: channel,
		clock:   clk,
		logger:  logger.With("component", "notification_service"),
	}, nil
}

// ListNotifications implements NotificationService.
func (s *notificationServiceImpl) ListNotifications(
	ctx context.Context,
	userID uuid.UUID,
	filter string,
) ([]*domain.Notification, error) {
	var (
		notifications []*domain.Notification
		err           error
	)

	switch {
	case filter == "" || filter == FilterAll:
		notifications, err = s.store.ListAll(ctx, userID)
	case filter == FilterUnread:
		notifications, err = s.store.ListUnread(ctx, userID)
	case filter == FilterLatest:
		notifications, err = s.store.ListLatest(ctx, userID, store.DefaultLatestLimit)
	case strings.HasPrefix(filter, TypeFilterPrefix):
		t := domain.NotificationType(strings.TrimPrefix(filter, TypeFilterPrefix))
		if !domain.IsValidNotificationType(t) {
			return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidFilter, t)
		}
		notifications, err = s.store.ListByType(ctx, userID, t)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, filter)
	}

	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list notifications",
			"error", err,
			"user_id", userID,
			"filter", filter)
		return nil, wrapError("list", "failed to list notifications", err)
	}
	return notifications, nil
}

// GetUnreadCount implements NotificationService.
func (s *notificationServiceImpl) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, wrapError("count_unread", "failed to count unread notifications", err)
	}
	return count, nil
}

// MarkRead implements NotificationService.
func (s *notificationServiceImpl) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.withOwned(ctx, "mark_read", userID, id, func(ctx context.Context, tx store.NotificationStore) error {
		return tx.MarkRead(ctx, id)
	})
}

// DeleteNotification implements NotificationService.
func (s *notificationServiceImpl) DeleteNotification(ctx context.Context, userID, id uuid.UUID) error {
	return s.withOwned(ctx, "delete", userID, id, func(ctx context.Context, tx store.NotificationStore) error {
		return tx.Delete(ctx, id)
	})
}

// withOwned loads the notification inside a transaction, checks that userID
// owns it and then runs fn with the transactional store.
func (s *notificationServiceImpl) withOwned(
	ctx context.Context,
	operation string,
	userID, id uuid.UUID,
	fn func(ctx context.Context, tx store.NotificationStore) error,
) error {
	err := store.RunInTransaction(ctx, s.store.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.store.WithTx(tx)

		n, err := txStore.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotificationNotFound) {
				return fmt.Errorf("%w: %w", ErrNotFound, err)
			}
			return err
		}
		if !n.IsOwnedBy(userID) {
			s.logger.WarnContext(ctx, "notification access denied",
				"operation", operation,
				"user_id", userID,
				"notification_id", id,
				"owner_id", n.UserID)
			return ErrUnauthorized
		}

		if err := fn(ctx, txStore); err != nil {
			if errors.Is(err, store.ErrNotificationNotFound) {
				return fmt.Errorf("%w: %w", ErrNotFound, err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return wrapError(operation, "failed to update notification", err)
	}

	s.logger.DebugContext(ctx, "notification updated",
		"operation", operation,
		"user_id", userID,
		"notification_id", id)
	return nil
}

// MarkAllRead implements NotificationService.
func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, wrapError("mark_all_read", "failed to mark notifications read", err)
	}
	return n, nil
}

// CreateAndDeliver implements NotificationService.
func (s *notificationServiceImpl) CreateAndDeliver(
	ctx context.Context,
	user *domain.User,
	title, message string,
	notificationType domain.NotificationType,
	referenceID *uuid.UUID,
) (*domain.Notification, error) {
	if user == nil {
		return nil, &NotificationServiceError{Operation: "create", Message: "user cannot be nil"}
	}

	n, err := domain.NewNotification(user.ID, title, message, notificationType, referenceID, s.clock.Now())
	if err != nil {
		return nil, wrapError("create", "invalid notification", err)
	}

	if err := s.store.Create(ctx, n); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %w", ErrAlreadyNotified, err)
		}
		s.logger.ErrorContext(ctx, "failed to create notification",
			"error", err,
			"user_id", user.ID,
			"type", string(notificationType))
		return nil, wrapError("create", "failed to save notification", err)
	}

	s.logger.InfoContext(ctx, "notification created",
		"notification_id", n.ID,
		"user_id", user.ID,
		"type", string(notificationType))

	s.channel.Push(ctx, user.Address(), n)
	return n, nil
}

// PurgeOld implements NotificationService.
func (s *notificationServiceImpl) PurgeOld(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	n, err := s.store.PurgeReadOlderThan(ctx, userID, cutoff)
	if err != nil {
		return 0, wrapError("purge", "failed to purge notifications", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "purged read notifications",
			"user_id", userID,
			"count", n,
			"cutoff", cutoff)
	}
	return n, nil
}

// HasBeenSent implements NotificationService.
func (s *notificationServiceImpl) HasBeenSent(
	ctx context.Context,
	userID, referenceID uuid.UUID,
	notificationType domain.NotificationType,
) (bool, error) {
	exists, err := s.store.Exists(ctx, userID, referenceID, notificationType)
	if err != nil {
		return false, wrapError("exists", "failed to check notification", err)
	}
	return exists, nil
}
